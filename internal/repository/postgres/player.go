package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meeplelog/meeplelog/internal/domain"
)

// ErrPlayerNotFound indicates the requested player does not exist.
var ErrPlayerNotFound = errors.New("player not found")

// PlayerRepository implements domain.PlayerRepository
type PlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPlayerRepository creates a new player repository
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

func (r *PlayerRepository) Create(ctx context.Context, input domain.PlayerCreate) (*domain.Player, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	id, _, err := findOrCreatePlayer(ctx, tx, input.Name)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit player: %w", err)
	}

	return r.Get(ctx, id)
}

func (r *PlayerRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Player, error) {
	query := `SELECT id, name, created_at FROM players WHERE id = $1`
	var p domain.Player
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return &p, nil
}

func (r *PlayerRepository) List(ctx context.Context, limit, offset int) ([]domain.Player, error) {
	query := `SELECT id, name, created_at FROM players ORDER BY name LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// findOrCreatePlayer resolves a player by trimmed, case-insensitive name,
// creating it when absent. Returns the canonical id and stored name.
func findOrCreatePlayer(ctx context.Context, tx pgx.Tx, name string) (uuid.UUID, string, error) {
	name = strings.TrimSpace(name)

	var id uuid.UUID
	var stored string
	err := tx.QueryRow(ctx, `
		INSERT INTO players (id, name, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT ((lower(name))) DO UPDATE SET name = players.name
		RETURNING id, name
	`, uuid.New(), name).Scan(&id, &stored)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to find or create player %q: %w", name, err)
	}
	return id, stored, nil
}
