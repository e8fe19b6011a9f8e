package handlers

import (
	"net/http"

	"rps_arena/internal/match"
	"rps_arena/internal/ws"

	"github.com/gin-gonic/gin"
)

type StatsResponse struct {
	match.Stats
	ws.ConnStats
}

type StatsHandler struct {
	mm *match.Matchmaker
}

func NewStatsHandler(mm *match.Matchmaker) *StatsHandler {
	return &StatsHandler{mm: mm}
}

// Stats returns the matchmaker snapshot merged with connection counters.
func (h *StatsHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, StatsResponse{
		Stats:     h.mm.Stats(),
		ConnStats: ws.Counters(),
	})
}
