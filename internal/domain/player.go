package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Player represents a player entity. Players are deduplicated by
// case-insensitive name; score rows reference them by id.
type Player struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// PlayerCreate is the payload for registering a player directly.
type PlayerCreate struct {
	Name string `json:"name" validate:"required,max=255"`
}

// PlayerRepository defines the interface for player storage.
type PlayerRepository interface {
	Create(ctx context.Context, input PlayerCreate) (*Player, error)
	Get(ctx context.Context, id uuid.UUID) (*Player, error)
	List(ctx context.Context, limit, offset int) ([]Player, error)
}
