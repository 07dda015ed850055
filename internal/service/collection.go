package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/meeplelog/meeplelog/internal/domain"
)

// CollectionService manages per-player game collections and their tags.
type CollectionService struct {
	collectionRepo domain.CollectionRepository
}

// NewCollectionService creates a new collection service
func NewCollectionService(collectionRepo domain.CollectionRepository) *CollectionService {
	return &CollectionService{collectionRepo: collectionRepo}
}

// Add puts a game into a player's collection, creating the game if it is
// not known yet. Tags are trimmed and blank tags dropped.
func (s *CollectionService) Add(ctx context.Context, playerID uuid.UUID, input domain.CollectionAdd) (*domain.CollectionEntry, error) {
	input.Tags = cleanTags(input.Tags)
	return s.collectionRepo.Add(ctx, playerID, input)
}

// List returns a player's collection, ordered by game name.
func (s *CollectionService) List(ctx context.Context, playerID uuid.UUID) ([]domain.CollectionEntry, error) {
	return s.collectionRepo.ListByPlayer(ctx, playerID)
}

// Remove drops an entry from a player's collection.
func (s *CollectionService) Remove(ctx context.Context, playerID, entryID uuid.UUID) error {
	return s.collectionRepo.Remove(ctx, playerID, entryID)
}

// SetTags replaces an entry's tags.
func (s *CollectionService) SetTags(ctx context.Context, playerID, entryID uuid.UUID, tags []string) error {
	return s.collectionRepo.SetTags(ctx, playerID, entryID, cleanTags(tags))
}

func cleanTags(tags []string) []string {
	out := tags[:0]
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
