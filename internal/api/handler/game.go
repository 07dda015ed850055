package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meeplelog/meeplelog/internal/api/response"
	"github.com/meeplelog/meeplelog/internal/domain"
	"github.com/meeplelog/meeplelog/internal/repository/postgres"
)

// GameHandler exposes the game catalog and per-game play history.
type GameHandler struct {
	gameRepo domain.GameRepository
}

// NewGameHandler creates a new game handler
func NewGameHandler(gameRepo domain.GameRepository) *GameHandler {
	return &GameHandler{gameRepo: gameRepo}
}

// List returns known games
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50)

	games, err := h.gameRepo.List(r.Context(), limit, offset)
	if err != nil {
		response.InternalError(w, "failed to list games")
		return
	}

	response.OK(w, games)
}

// Get returns one game
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "gameID"))
	if err != nil {
		response.BadRequest(w, "invalid game ID")
		return
	}

	game, err := h.gameRepo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrGameNotFound) {
			response.NotFound(w, "game not found")
			return
		}
		response.InternalError(w, "failed to get game")
		return
	}

	response.OK(w, game)
}

// History returns a game's recent plays
func (h *GameHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "gameID"))
	if err != nil {
		response.BadRequest(w, "invalid game ID")
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}

	plays, err := h.gameRepo.History(r.Context(), id, limit)
	if err != nil {
		response.InternalError(w, "failed to list game history")
		return
	}

	response.OK(w, plays)
}
