package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meeplelog/meeplelog/internal/api/middleware"
	"github.com/meeplelog/meeplelog/internal/api/response"
	"github.com/meeplelog/meeplelog/internal/domain"
	"github.com/meeplelog/meeplelog/internal/repository/postgres"
	"github.com/meeplelog/meeplelog/internal/service"
)

// SessionHandler exposes session logging, loading and editing.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// List returns recent sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 20)

	sessions, err := h.sessionService.List(r.Context(), limit, offset)
	if err != nil {
		response.InternalError(w, "failed to list sessions")
		return
	}

	response.OK(w, sessions)
}

// Create logs a new session
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.SessionCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	agg, err := h.sessionService.Log(r.Context(), input)
	if err != nil {
		response.InternalError(w, "failed to log session")
		return
	}

	response.Created(w, agg)
}

// Get returns one session aggregate
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "invalid session ID")
		return
	}

	agg, err := h.sessionService.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrSessionNotFound) {
			response.NotFound(w, "session not found")
			return
		}
		response.InternalError(w, "failed to load session")
		return
	}

	response.OK(w, agg)
}

// Delete soft-deletes a session
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "invalid session ID")
		return
	}

	if err := h.sessionService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, postgres.ErrSessionNotFound) {
			response.NotFound(w, "session not found")
			return
		}
		response.InternalError(w, "failed to delete session")
		return
	}

	response.NoContent(w)
}

type editPlayerRequest struct {
	PlayerID uuid.UUID `json:"player_id" validate:"required"`
	ScoreID  uuid.UUID `json:"score_id" validate:"required"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	IsWinner bool      `json:"is_winner"`
}

type editRequest struct {
	GameName        string              `json:"game_name" validate:"required"`
	Date            string              `json:"date" validate:"required,datetime=2006-01-02"`
	Location        string              `json:"location"`
	DurationMinutes int                 `json:"duration_minutes" validate:"required,gt=0"`
	Highlights      string              `json:"highlights"`
	Players         []editPlayerRequest `json:"players" validate:"required,min=1,dive"`
}

// Edit commits a proposed session edit. Workflow failures map to
// distinct statuses so the client can keep the edit surface open and
// show a field-scoped or step-scoped message.
func (h *SessionHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		response.BadRequest(w, "invalid session ID")
		return
	}

	actingPlayerID, ok := middleware.GetPlayerID(r.Context())
	if !ok {
		response.BadRequest(w, "missing acting player")
		return
	}

	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	date, err := time.Parse(domain.DateFormat, req.Date)
	if err != nil {
		response.BadRequest(w, "invalid date")
		return
	}

	proposed := domain.SessionEdit{
		GameName:        req.GameName,
		Date:            date,
		Location:        req.Location,
		DurationMinutes: req.DurationMinutes,
		Highlights:      req.Highlights,
	}
	for _, p := range req.Players {
		proposed.Players = append(proposed.Players, domain.PlayerEdit{
			PlayerID: p.PlayerID,
			ScoreID:  p.ScoreID,
			Name:     p.Name,
			Score:    p.Score,
			IsWinner: p.IsWinner,
		})
	}

	result, err := h.sessionService.Edit(r.Context(), id, proposed, actingPlayerID)
	if err != nil {
		writeEditError(w, err)
		return
	}

	response.OK(w, result)
}

func writeEditError(w http.ResponseWriter, err error) {
	var remoteErr *service.RemoteWriteError

	switch {
	case errors.Is(err, postgres.ErrSessionNotFound):
		response.NotFound(w, "session not found")
	case errors.Is(err, service.ErrEditInProgress):
		response.Conflict(w, "an edit is already in progress")
	case errors.Is(err, service.ErrSessionDeleted):
		response.Gone(w, "session has been deleted")
	case errors.Is(err, service.ErrInvalidGameName),
		errors.Is(err, service.ErrInvalidPlayerName),
		errors.Is(err, service.ErrDuplicatePlayerName),
		errors.Is(err, service.ErrScoreRowMismatch):
		response.UnprocessableEntity(w, err.Error())
	case errors.As(err, &remoteErr):
		response.BadGateway(w, map[string]any{
			"step":    string(remoteErr.Step),
			"entity":  remoteErr.Entity,
			"message": remoteErr.Error(),
		})
	default:
		response.InternalError(w, "failed to commit edit")
	}
}

func pagination(r *http.Request, defaultLimit int) (int, int) {
	limit := defaultLimit
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
