package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/meeplelog/meeplelog/internal/domain"
	"github.com/rs/zerolog/log"
)

// SessionService handles session logging and loading. Loading assembles
// the full aggregate (metadata plus ordered player/score rows) that the
// edit workflow snapshots.
type SessionService struct {
	sessionRepo domain.SessionRepository
	edit        *EditService
}

// NewSessionService creates a new session service
func NewSessionService(sessionRepo domain.SessionRepository, edit *EditService) *SessionService {
	return &SessionService{sessionRepo: sessionRepo, edit: edit}
}

// Log records a new play session.
func (s *SessionService) Log(ctx context.Context, input domain.SessionCreate) (*domain.SessionAggregate, error) {
	agg, err := s.sessionRepo.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("session_id", agg.ID.String()).
		Str("game", agg.GameName).
		Int("players", len(agg.Players)).
		Msg("session logged")
	return agg, nil
}

// Load assembles the aggregate for display or editing.
func (s *SessionService) Load(ctx context.Context, id uuid.UUID) (*domain.SessionAggregate, error) {
	return s.sessionRepo.GetAggregate(ctx, id)
}

// List returns recent sessions, newest first.
func (s *SessionService) List(ctx context.Context, limit, offset int) ([]domain.SessionAggregate, error) {
	return s.sessionRepo.List(ctx, limit, offset)
}

// ListByPlayer returns a player's sessions, newest first.
func (s *SessionService) ListByPlayer(ctx context.Context, playerID uuid.UUID, limit, offset int) ([]domain.SessionAggregate, error) {
	return s.sessionRepo.ListByPlayer(ctx, playerID, limit, offset)
}

// Delete soft-deletes a session. Deleted sessions refuse edits.
func (s *SessionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.sessionRepo.SoftDelete(ctx, id)
}

// Edit loads the aggregate fresh, opens an edit session, and commits the
// proposed state through the edit workflow in one round trip. Callers who
// hold an editing surface open across requests use BeginEdit and
// ProceedCommit on EditService directly.
func (s *SessionService) Edit(ctx context.Context, id uuid.UUID, proposed domain.SessionEdit, actingPlayerID uuid.UUID) (*CommitResult, error) {
	agg, err := s.sessionRepo.GetAggregate(ctx, id)
	if err != nil {
		return nil, err
	}
	es := s.edit.BeginEdit(agg)
	return s.edit.ProceedCommit(ctx, es, proposed, actingPlayerID)
}
