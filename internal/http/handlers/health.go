package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"rps_arena/internal/http/middleware"
	"rps_arena/internal/match"

	"github.com/gin-gonic/gin"
)

// Probe is an optional dependency checked by the health endpoints.
type Probe interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	mm        *match.Matchmaker
	redis     Probe
	startTime time.Time
	version   string
}

func NewHealthHandler(mm *match.Matchmaker, redis Probe, version string) *HealthHandler {
	return &HealthHandler{
		mm:        mm,
		redis:     redis,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status         string            `json:"status"`
	Version        string            `json:"version,omitempty"`
	Uptime         string            `json:"uptime,omitempty"`
	Timestamp      string            `json:"timestamp"`
	ActiveRooms    int               `json:"active_rooms"`
	WaitingPlayers int               `json:"waiting_players"`
	Checks         map[string]string `json:"checks,omitempty"`
}

// Liveness returns simple alive status (for k8s liveness probe)
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Health reports matchmaker load and the Redis check. A broken Redis only
// degrades the service since the rate limiter fails open.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	redisState, healthy := h.checkRedis(ctx)
	status := "ok"
	if !healthy {
		status = "degraded"
	}

	c.JSON(http.StatusOK, h.response(status, map[string]string{"redis": redisState}))
}

// Readiness fails when a configured Redis does not answer (for k8s readiness probe).
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	redisState, healthy := h.checkRedis(ctx)
	checks["redis"] = redisState

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	checks["memory_alloc_mb"] = formatMB(m.Alloc)
	checks["goroutines"] = fmt.Sprint(runtime.NumGoroutine())

	status := "healthy"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, h.response(status, checks))
}

func (h *HealthHandler) checkRedis(ctx context.Context) (string, bool) {
	if h.redis == nil {
		return "disabled", true
	}
	err := h.redis.Ping(ctx)
	switch {
	case err == nil:
		return "healthy", true
	case errors.Is(err, middleware.ErrRedisDisabled):
		return "disabled", true
	default:
		return "unhealthy: " + err.Error(), false
	}
}

func (h *HealthHandler) response(status string, checks map[string]string) HealthResponse {
	st := h.mm.Stats()
	return HealthResponse{
		Status:         status,
		Version:        h.version,
		Uptime:         time.Since(h.startTime).Round(time.Second).String(),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		ActiveRooms:    st.ActiveSessions,
		WaitingPlayers: st.Waiting,
		Checks:         checks,
	}
}

func formatMB(bytes uint64) string {
	mb := float64(bytes) / 1024 / 1024
	return fmt.Sprintf("%.2f", mb)
}
