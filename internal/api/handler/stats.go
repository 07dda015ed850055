package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meeplelog/meeplelog/internal/api/response"
	"github.com/meeplelog/meeplelog/internal/service"
)

// StatsHandler exposes cached player statistics.
type StatsHandler struct {
	statsService *service.StatsService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// PlayerStats returns a player's aggregated stats
func (h *StatsHandler) PlayerStats(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "playerID"))
	if err != nil {
		response.BadRequest(w, "invalid player ID")
		return
	}

	stats, err := h.statsService.PlayerStats(r.Context(), id)
	if err != nil {
		response.InternalError(w, "failed to compute player stats")
		return
	}

	response.OK(w, stats)
}
