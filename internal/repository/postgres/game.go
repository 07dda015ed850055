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

// ErrGameNotFound indicates the requested game does not exist.
var ErrGameNotFound = errors.New("game not found")

// GameRepository implements domain.GameRepository
type GameRepository struct {
	pool *pgxpool.Pool
}

// NewGameRepository creates a new game repository
func NewGameRepository(pool *pgxpool.Pool) *GameRepository {
	return &GameRepository{pool: pool}
}

func (r *GameRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Game, error) {
	query := `SELECT id, name, created_at FROM games WHERE id = $1`
	var g domain.Game
	err := r.pool.QueryRow(ctx, query, id).Scan(&g.ID, &g.Name, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return &g, nil
}

func (r *GameRepository) List(ctx context.Context, limit, offset int) ([]domain.Game, error) {
	query := `SELECT id, name, created_at FROM games ORDER BY name LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var games []domain.Game
	for rows.Next() {
		var g domain.Game
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (r *GameRepository) History(ctx context.Context, gameID uuid.UUID, limit int) ([]domain.GamePlay, error) {
	query := `
		SELECT s.id, s.session_date,
		       COALESCE((SELECT p.name FROM scores sc JOIN players p ON p.id = sc.player_id
		                 WHERE sc.session_id = s.id AND sc.is_winner LIMIT 1), ''),
		       (SELECT count(*) FROM scores sc WHERE sc.session_id = s.id)
		FROM sessions s
		WHERE s.game_id = $1 AND s.deleted_at IS NULL
		ORDER BY s.session_date DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, gameID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list game history: %w", err)
	}
	defer rows.Close()

	var plays []domain.GamePlay
	for rows.Next() {
		var p domain.GamePlay
		if err := rows.Scan(&p.SessionID, &p.Date, &p.WinnerName, &p.Players); err != nil {
			return nil, fmt.Errorf("failed to scan game play: %w", err)
		}
		plays = append(plays, p)
	}
	return plays, rows.Err()
}

// findOrCreateGame resolves a game by trimmed, case-insensitive name,
// creating it when absent. Returns the canonical id and stored name.
func findOrCreateGame(ctx context.Context, tx pgx.Tx, name string) (uuid.UUID, string, error) {
	name = strings.TrimSpace(name)

	var id uuid.UUID
	var stored string
	err := tx.QueryRow(ctx, `
		INSERT INTO games (id, name, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT ((lower(name))) DO UPDATE SET name = games.name
		RETURNING id, name
	`, uuid.New(), name).Scan(&id, &stored)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to find or create game %q: %w", name, err)
	}
	return id, stored, nil
}
