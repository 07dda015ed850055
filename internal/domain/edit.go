package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionEdit is a proposed new state for a session aggregate, assembled
// by the caller from user input. Fields mirror the mutable half of
// SessionAggregate; identity fields (session id, score ids) come from the
// loaded aggregate and are not edited directly.
type SessionEdit struct {
	GameName        string       `json:"game_name"`
	Date            time.Time    `json:"date"`
	Location        string       `json:"location"`
	DurationMinutes int          `json:"duration_minutes"`
	Highlights      string       `json:"highlights"`
	Players         []PlayerEdit `json:"players"`
}

// PlayerEdit is the proposed state of one session player. PlayerID is the
// identity the player had when the aggregate was loaded; a changed Name is
// a request to retag that identity, not to rename the player entity.
type PlayerEdit struct {
	PlayerID uuid.UUID `json:"player_id"`
	ScoreID  uuid.UUID `json:"score_id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	IsWinner bool      `json:"is_winner"`
}

// SessionScalarUpdate carries the directly-updatable session columns.
// Optional text fields are pointers so that "absent" reaches the store as
// NULL rather than an empty string.
type SessionScalarUpdate struct {
	Date            string
	Location        *string
	DurationMinutes int
	Highlights      *string
}

// ScoreUpdate carries the per-row score write, keyed by score id.
type ScoreUpdate struct {
	Score    int
	IsWinner bool
}

// EditGateway is the persistence surface the edit workflow commits
// through. Each call is individually atomic; the gateway offers no
// transaction spanning calls.
type EditGateway interface {
	// UpdateSessionScalars writes the session's mutable scalar columns in
	// a single statement.
	UpdateSessionScalars(ctx context.Context, sessionID uuid.UUID, upd SessionScalarUpdate) error

	// RetagGame finds-or-creates a game with the given name, relinks the
	// session to it, and returns the resulting game id.
	RetagGame(ctx context.Context, sessionID uuid.UUID, newName string) (uuid.UUID, error)

	// RetagPlayer finds-or-creates a player with the given name, repoints
	// the session's score row from the old player to it, and returns the
	// resulting player id.
	RetagPlayer(ctx context.Context, sessionID, oldPlayerID uuid.UUID, newName string) (uuid.UUID, error)

	// UpdateScore writes score and winner flag to the row identified by
	// scoreID.
	UpdateScore(ctx context.Context, scoreID uuid.UUID, upd ScoreUpdate) error
}

// CacheInvalidator removes stale derived views after a committed edit.
// Implementations are best-effort; the workflow never fails a commit on
// invalidation errors.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, keys []string) error
}
