package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rps_arena/internal/broker"
	"rps_arena/internal/config"
	httpServer "rps_arena/internal/http"
	"rps_arena/internal/http/middleware"
	"rps_arena/internal/logger"
	"rps_arena/internal/match"
	"rps_arena/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	limiter := middleware.NewRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer limiter.Close()

	var announcer match.Announcer
	if cfg.NatsURL != "" {
		nc, err := broker.Connect(cfg.NatsURL)
		if err != nil {
			logger.Fatal("nats connect failed", "url", cfg.NatsURL, "error", err)
		}
		defer nc.Drain()
		announcer = broker.NewNATSAnnouncer(nc)
	}

	mm := match.NewMatchmaker(cfg.Game.Match(), announcer)
	if err := match.RegisterStats(prometheus.DefaultRegisterer, mm); err != nil {
		logger.Fatal("register match metrics", "error", err)
	}
	mm.StartCleanup(ctx, cfg.CleanupInterval)
	mm.StartMonitor(ctx, cfg.MonitorInterval)

	hub := ws.NewHub(mm)

	r := gin.New()
	r.Use(gin.Recovery())

	// CORS for a frontend served from another domain
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (cfg.AllowedOrigin == "" || origin == cfg.AllowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	httpServer.RegisterRoutes(r, cfg, mm, hub, limiter, version)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version,
			"redis", limiter.Enabled(), "nats", cfg.NatsURL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
