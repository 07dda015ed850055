package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meeplelog/meeplelog/internal/api/middleware"
	"github.com/meeplelog/meeplelog/internal/api/response"
	"github.com/meeplelog/meeplelog/internal/domain"
	"github.com/meeplelog/meeplelog/internal/repository/postgres"
	"github.com/meeplelog/meeplelog/internal/service"
)

// CollectionHandler exposes the acting player's game collection.
type CollectionHandler struct {
	collectionService *service.CollectionService
}

// NewCollectionHandler creates a new collection handler
func NewCollectionHandler(collectionService *service.CollectionService) *CollectionHandler {
	return &CollectionHandler{collectionService: collectionService}
}

// List returns the acting player's collection
func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.GetPlayerID(r.Context())
	if !ok {
		response.BadRequest(w, "missing acting player")
		return
	}

	entries, err := h.collectionService.List(r.Context(), playerID)
	if err != nil {
		response.InternalError(w, "failed to list collection")
		return
	}

	response.OK(w, entries)
}

// Add puts a game into the acting player's collection
func (h *CollectionHandler) Add(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.GetPlayerID(r.Context())
	if !ok {
		response.BadRequest(w, "missing acting player")
		return
	}

	var input domain.CollectionAdd
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	entry, err := h.collectionService.Add(r.Context(), playerID, input)
	if err != nil {
		response.InternalError(w, "failed to add to collection")
		return
	}

	response.Created(w, entry)
}

// Remove drops an entry from the acting player's collection
func (h *CollectionHandler) Remove(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.GetPlayerID(r.Context())
	if !ok {
		response.BadRequest(w, "missing acting player")
		return
	}

	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		response.BadRequest(w, "invalid entry ID")
		return
	}

	if err := h.collectionService.Remove(r.Context(), playerID, entryID); err != nil {
		if errors.Is(err, postgres.ErrCollectionEntryNotFound) {
			response.NotFound(w, "collection entry not found")
			return
		}
		response.InternalError(w, "failed to remove collection entry")
		return
	}

	response.NoContent(w)
}

// SetTags replaces an entry's tags
func (h *CollectionHandler) SetTags(w http.ResponseWriter, r *http.Request) {
	playerID, ok := middleware.GetPlayerID(r.Context())
	if !ok {
		response.BadRequest(w, "missing acting player")
		return
	}

	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		response.BadRequest(w, "invalid entry ID")
		return
	}

	var req struct {
		Tags []string `json:"tags" validate:"max=20,dive,min=1,max=64"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	if err := h.collectionService.SetTags(r.Context(), playerID, entryID, req.Tags); err != nil {
		if errors.Is(err, postgres.ErrCollectionEntryNotFound) {
			response.NotFound(w, "collection entry not found")
			return
		}
		response.InternalError(w, "failed to set tags")
		return
	}

	response.NoContent(w)
}
