package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meeplelog/meeplelog/internal/api/response"
	"github.com/meeplelog/meeplelog/internal/domain"
	"github.com/meeplelog/meeplelog/internal/repository/postgres"
	"github.com/meeplelog/meeplelog/internal/service"
)

// PlayerHandler exposes player registration and listing.
type PlayerHandler struct {
	playerRepo     domain.PlayerRepository
	sessionService *service.SessionService
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(playerRepo domain.PlayerRepository, sessionService *service.SessionService) *PlayerHandler {
	return &PlayerHandler{playerRepo: playerRepo, sessionService: sessionService}
}

// Create registers a player
func (h *PlayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.PlayerCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	player, err := h.playerRepo.Create(r.Context(), input)
	if err != nil {
		response.InternalError(w, "failed to create player")
		return
	}

	response.Created(w, player)
}

// List returns registered players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 50)

	players, err := h.playerRepo.List(r.Context(), limit, offset)
	if err != nil {
		response.InternalError(w, "failed to list players")
		return
	}

	response.OK(w, players)
}

// Get returns one player
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "playerID"))
	if err != nil {
		response.BadRequest(w, "invalid player ID")
		return
	}

	player, err := h.playerRepo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrPlayerNotFound) {
			response.NotFound(w, "player not found")
			return
		}
		response.InternalError(w, "failed to get player")
		return
	}

	response.OK(w, player)
}

// Sessions returns a player's sessions
func (h *PlayerHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "playerID"))
	if err != nil {
		response.BadRequest(w, "invalid player ID")
		return
	}

	limit, offset := pagination(r, 20)

	sessions, err := h.sessionService.ListByPlayer(r.Context(), id, limit, offset)
	if err != nil {
		response.InternalError(w, "failed to list player sessions")
		return
	}

	response.OK(w, sessions)
}
