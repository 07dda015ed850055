package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Game represents a board game entity. Games are deduplicated by
// case-insensitive name; sessions reference them by id.
type Game struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// GamePlay is one historical play of a game, used for game detail views.
type GamePlay struct {
	SessionID  uuid.UUID `json:"session_id"`
	Date       time.Time `json:"date"`
	WinnerName string    `json:"winner_name,omitempty"`
	Players    int       `json:"players"`
}

// GameRepository defines the interface for game storage.
type GameRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*Game, error)
	List(ctx context.Context, limit, offset int) ([]Game, error)
	History(ctx context.Context, gameID uuid.UUID, limit int) ([]GamePlay, error)
}
