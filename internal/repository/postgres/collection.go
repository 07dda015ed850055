package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meeplelog/meeplelog/internal/domain"
)

// ErrCollectionEntryNotFound indicates the collection entry does not
// exist or belongs to a different player.
var ErrCollectionEntryNotFound = errors.New("collection entry not found")

// CollectionRepository implements domain.CollectionRepository
type CollectionRepository struct {
	pool *pgxpool.Pool
}

// NewCollectionRepository creates a new collection repository
func NewCollectionRepository(pool *pgxpool.Pool) *CollectionRepository {
	return &CollectionRepository{pool: pool}
}

func (r *CollectionRepository) Add(ctx context.Context, playerID uuid.UUID, input domain.CollectionAdd) (*domain.CollectionEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	gameID, gameName, err := findOrCreateGame(ctx, tx, input.GameName)
	if err != nil {
		return nil, err
	}

	entry := &domain.CollectionEntry{
		PlayerID: playerID,
		GameID:   gameID,
		GameName: gameName,
		Tags:     input.Tags,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO collections (id, player_id, game_id, added_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (player_id, game_id) DO UPDATE SET player_id = collections.player_id
		RETURNING id, added_at
	`, uuid.New(), playerID, gameID).Scan(&entry.ID, &entry.AddedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add collection entry: %w", err)
	}

	if err := replaceTags(ctx, tx, entry.ID, input.Tags); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit collection entry: %w", err)
	}
	return entry, nil
}

func (r *CollectionRepository) ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]domain.CollectionEntry, error) {
	query := `
		SELECT c.id, c.player_id, c.game_id, g.name, c.added_at,
		       COALESCE(array_agg(t.tag ORDER BY t.tag) FILTER (WHERE t.tag IS NOT NULL), '{}')
		FROM collections c
		JOIN games g ON g.id = c.game_id
		LEFT JOIN collection_tags t ON t.collection_id = c.id
		WHERE c.player_id = $1
		GROUP BY c.id, c.player_id, c.game_id, g.name, c.added_at
		ORDER BY g.name
	`
	rows, err := r.pool.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection: %w", err)
	}
	defer rows.Close()

	var entries []domain.CollectionEntry
	for rows.Next() {
		var e domain.CollectionEntry
		if err := rows.Scan(&e.ID, &e.PlayerID, &e.GameID, &e.GameName, &e.AddedAt, &e.Tags); err != nil {
			return nil, fmt.Errorf("failed to scan collection entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *CollectionRepository) Remove(ctx context.Context, playerID, entryID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM collections WHERE id = $1 AND player_id = $2
	`, entryID, playerID)
	if err != nil {
		return fmt.Errorf("failed to remove collection entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCollectionEntryNotFound
	}
	return nil
}

func (r *CollectionRepository) SetTags(ctx context.Context, playerID, entryID uuid.UUID, tags []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var owner uuid.UUID
	err = tx.QueryRow(ctx, `SELECT player_id FROM collections WHERE id = $1`, entryID).Scan(&owner)
	if err := entryOwnerCheck(err, owner, playerID); err != nil {
		return err
	}

	if err := replaceTags(ctx, tx, entryID, tags); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit tags: %w", err)
	}
	return nil
}

// entryOwnerCheck maps the owner lookup outcome to the repository's
// error contract: a missing row and a foreign owner both read as not
// found, while a real query failure keeps its cause.
func entryOwnerCheck(err error, owner, playerID uuid.UUID) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrCollectionEntryNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load collection entry: %w", err)
	}
	if owner != playerID {
		return ErrCollectionEntryNotFound
	}
	return nil
}

func replaceTags(ctx context.Context, tx pgx.Tx, collectionID uuid.UUID, tags []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM collection_tags WHERE collection_id = $1`, collectionID); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	for _, tag := range tags {
		_, err := tx.Exec(ctx, `
			INSERT INTO collection_tags (collection_id, tag) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, collectionID, tag)
		if err != nil {
			return fmt.Errorf("failed to set tag %q: %w", tag, err)
		}
	}
	return nil
}
