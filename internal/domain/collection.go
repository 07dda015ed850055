package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CollectionEntry is one game in a player's collection, with free-form
// tags ("coop", "heavy", "wishlist", ...).
type CollectionEntry struct {
	ID       uuid.UUID `json:"id"`
	PlayerID uuid.UUID `json:"player_id"`
	GameID   uuid.UUID `json:"game_id"`
	GameName string    `json:"game_name"`
	Tags     []string  `json:"tags,omitempty"`
	AddedAt  time.Time `json:"added_at"`
}

// CollectionAdd is the payload for adding a game to a collection. The
// game is found-or-created by name, matching session logging semantics.
type CollectionAdd struct {
	GameName string   `json:"game_name" validate:"required,min=2,max=255"`
	Tags     []string `json:"tags" validate:"max=20,dive,min=1,max=64"`
}

// CollectionRepository defines the interface for collection storage.
type CollectionRepository interface {
	Add(ctx context.Context, playerID uuid.UUID, input CollectionAdd) (*CollectionEntry, error)
	ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]CollectionEntry, error)
	Remove(ctx context.Context, playerID, entryID uuid.UUID) error
	SetTags(ctx context.Context, playerID, entryID uuid.UUID, tags []string) error
}
