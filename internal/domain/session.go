package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DateFormat is the calendar-date wire format used everywhere a session
// date crosses a boundary. Sessions carry no time-of-day.
const DateFormat = "2006-01-02"

// SessionAggregate is the unit of editing: one play session plus the
// ordered player/score rows that belong to it. Player order is display
// order only.
type SessionAggregate struct {
	ID              uuid.UUID       `json:"id"`
	GameID          uuid.UUID       `json:"game_id"`
	GameName        string          `json:"game_name"`
	Date            time.Time       `json:"date"`
	Location        string          `json:"location,omitempty"`
	DurationMinutes int             `json:"duration_minutes"`
	Highlights      string          `json:"highlights,omitempty"`
	Players         []SessionPlayer `json:"players"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
}

// SessionPlayer is one participant's record within a session. PlayerID is
// the player's identity at load time and may be rewritten by a retag;
// ScoreID is stable for the lifetime of the session and is the join key
// for score updates.
type SessionPlayer struct {
	PlayerID uuid.UUID `json:"player_id"`
	ScoreID  uuid.UUID `json:"score_id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	IsWinner bool      `json:"is_winner"`
}

// Deleted reports whether the aggregate has been soft-deleted. A deleted
// aggregate accepts no further mutation.
func (s *SessionAggregate) Deleted() bool {
	return s.DeletedAt != nil
}

// Clone returns a deep copy of the aggregate, used to snapshot the
// original state at the start of an edit.
func (s *SessionAggregate) Clone() *SessionAggregate {
	cp := *s
	cp.Players = make([]SessionPlayer, len(s.Players))
	copy(cp.Players, s.Players)
	if s.DeletedAt != nil {
		t := *s.DeletedAt
		cp.DeletedAt = &t
	}
	return &cp
}

// PlayerByID looks up a session player by its player identity.
func (s *SessionAggregate) PlayerByID(playerID uuid.UUID) (SessionPlayer, bool) {
	for _, p := range s.Players {
		if p.PlayerID == playerID {
			return p, true
		}
	}
	return SessionPlayer{}, false
}

// SessionCreate is the payload for logging a new session.
type SessionCreate struct {
	GameName        string             `json:"game_name" validate:"required,min=2,max=255"`
	Date            string             `json:"date" validate:"required,datetime=2006-01-02"`
	Location        string             `json:"location" validate:"max=255"`
	DurationMinutes int                `json:"duration_minutes" validate:"required,gt=0"`
	Highlights      string             `json:"highlights" validate:"max=2000"`
	Players         []SessionPlayerNew `json:"players" validate:"required,min=1,dive"`
}

// SessionPlayerNew is one participant entry in a SessionCreate payload.
type SessionPlayerNew struct {
	Name     string `json:"name" validate:"required,max=255"`
	Score    int    `json:"score"`
	IsWinner bool   `json:"is_winner"`
}

// SessionRepository defines the interface for session storage.
type SessionRepository interface {
	Create(ctx context.Context, input SessionCreate) (*SessionAggregate, error)
	GetAggregate(ctx context.Context, id uuid.UUID) (*SessionAggregate, error)
	List(ctx context.Context, limit, offset int) ([]SessionAggregate, error)
	ListByPlayer(ctx context.Context, playerID uuid.UUID, limit, offset int) ([]SessionAggregate, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}
