package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meeplelog/meeplelog/internal/domain"
)

// StatsRepository implements domain.StatsRepository with SQL aggregates.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

func (r *StatsRepository) PlayerStats(ctx context.Context, playerID uuid.UUID) (*domain.PlayerStats, error) {
	stats := &domain.PlayerStats{PlayerID: playerID}

	query := `
		SELECT count(*),
		       count(*) FILTER (WHERE sc.is_winner),
		       COALESCE(sum(s.duration_minutes), 0)
		FROM scores sc
		JOIN sessions s ON s.id = sc.session_id
		WHERE sc.player_id = $1 AND s.deleted_at IS NULL
	`
	err := r.pool.QueryRow(ctx, query, playerID).Scan(
		&stats.SessionsPlayed,
		&stats.Wins,
		&stats.TotalMinutes,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute player stats: %w", err)
	}
	if stats.SessionsPlayed > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.SessionsPlayed)
	}

	mostPlayed := `
		SELECT g.id, g.name
		FROM scores sc
		JOIN sessions s ON s.id = sc.session_id
		JOIN games g ON g.id = s.game_id
		WHERE sc.player_id = $1 AND s.deleted_at IS NULL
		GROUP BY g.id, g.name
		ORDER BY count(*) DESC, g.name
		LIMIT 1
	`
	rows, err := r.pool.Query(ctx, mostPlayed, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute most played game: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&stats.MostPlayedID, &stats.MostPlayedGame); err != nil {
			return nil, fmt.Errorf("failed to scan most played game: %w", err)
		}
	}
	return stats, rows.Err()
}
