package http

import (
	"rps_arena/internal/config"
	"rps_arena/internal/http/handlers"
	"rps_arena/internal/http/middleware"
	"rps_arena/internal/match"
	"rps_arena/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(r *gin.Engine, cfg *config.Config, mm *match.Matchmaker, hub *ws.Hub, limiter *middleware.RateLimiter, version string) {
	healthHandler := handlers.NewHealthHandler(mm, limiter, version)
	statsHandler := handlers.NewStatsHandler(mm)
	rl := limiter.Limit(cfg.RateLimit, cfg.RateWindow)

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/stats", rl, statsHandler.Stats)
	r.GET("/ws", rl, ws.HandleWS(hub, cfg.AllowedOrigin))
}
