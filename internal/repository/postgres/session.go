package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meeplelog/meeplelog/internal/domain"
)

// ErrSessionNotFound indicates the requested session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository implements domain.SessionRepository and
// domain.EditGateway against Postgres. The retag operations call the
// server-side retag_game / retag_player functions, which own the
// find-or-create-and-relink semantics.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, input domain.SessionCreate) (*domain.SessionAggregate, error) {
	date, err := time.Parse(domain.DateFormat, input.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid session date: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	gameID, gameName, err := findOrCreateGame(ctx, tx, input.GameName)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.New()
	now := time.Now()
	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (id, game_id, session_date, location, duration_minutes, highlights, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, sessionID, gameID, date, nullIfBlank(input.Location), input.DurationMinutes, nullIfBlank(input.Highlights), now)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	agg := &domain.SessionAggregate{
		ID:              sessionID,
		GameID:          gameID,
		GameName:        gameName,
		Date:            date,
		Location:        strings.TrimSpace(input.Location),
		DurationMinutes: input.DurationMinutes,
		Highlights:      strings.TrimSpace(input.Highlights),
	}

	for _, p := range input.Players {
		playerID, playerName, err := findOrCreatePlayer(ctx, tx, p.Name)
		if err != nil {
			return nil, err
		}

		scoreID := uuid.New()
		_, err = tx.Exec(ctx, `
			INSERT INTO scores (id, session_id, player_id, score, is_winner, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
		`, scoreID, sessionID, playerID, p.Score, p.IsWinner, now)
		if err != nil {
			return nil, fmt.Errorf("failed to create score for player %q: %w", p.Name, err)
		}

		agg.Players = append(agg.Players, domain.SessionPlayer{
			PlayerID: playerID,
			ScoreID:  scoreID,
			Name:     playerName,
			Score:    p.Score,
			IsWinner: p.IsWinner,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit session: %w", err)
	}
	return agg, nil
}

func (r *SessionRepository) GetAggregate(ctx context.Context, id uuid.UUID) (*domain.SessionAggregate, error) {
	query := `
		SELECT s.id, s.game_id, g.name, s.session_date, COALESCE(s.location, ''), s.duration_minutes, COALESCE(s.highlights, ''), s.deleted_at
		FROM sessions s
		JOIN games g ON g.id = s.game_id
		WHERE s.id = $1
	`
	var agg domain.SessionAggregate
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&agg.ID,
		&agg.GameID,
		&agg.GameName,
		&agg.Date,
		&agg.Location,
		&agg.DurationMinutes,
		&agg.Highlights,
		&agg.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	players, err := r.sessionPlayers(ctx, id)
	if err != nil {
		return nil, err
	}
	agg.Players = players

	return &agg, nil
}

func (r *SessionRepository) sessionPlayers(ctx context.Context, sessionID uuid.UUID) ([]domain.SessionPlayer, error) {
	query := `
		SELECT sc.player_id, sc.id, p.name, sc.score, sc.is_winner
		FROM scores sc
		JOIN players p ON p.id = sc.player_id
		WHERE sc.session_id = $1
		ORDER BY sc.created_at, sc.id
	`
	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session players: %w", err)
	}
	defer rows.Close()

	var players []domain.SessionPlayer
	for rows.Next() {
		var p domain.SessionPlayer
		if err := rows.Scan(&p.PlayerID, &p.ScoreID, &p.Name, &p.Score, &p.IsWinner); err != nil {
			return nil, fmt.Errorf("failed to scan session player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (r *SessionRepository) List(ctx context.Context, limit, offset int) ([]domain.SessionAggregate, error) {
	query := `
		SELECT s.id, s.game_id, g.name, s.session_date, COALESCE(s.location, ''), s.duration_minutes, COALESCE(s.highlights, ''), s.deleted_at
		FROM sessions s
		JOIN games g ON g.id = s.game_id
		WHERE s.deleted_at IS NULL
		ORDER BY s.session_date DESC, s.created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.listSessions(ctx, query, limit, offset)
}

func (r *SessionRepository) ListByPlayer(ctx context.Context, playerID uuid.UUID, limit, offset int) ([]domain.SessionAggregate, error) {
	query := `
		SELECT s.id, s.game_id, g.name, s.session_date, COALESCE(s.location, ''), s.duration_minutes, COALESCE(s.highlights, ''), s.deleted_at
		FROM sessions s
		JOIN games g ON g.id = s.game_id
		WHERE s.deleted_at IS NULL
		  AND EXISTS (SELECT 1 FROM scores sc WHERE sc.session_id = s.id AND sc.player_id = $3)
		ORDER BY s.session_date DESC, s.created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.listSessions(ctx, query, limit, offset, playerID)
}

func (r *SessionRepository) listSessions(ctx context.Context, query string, limit, offset int, extra ...any) ([]domain.SessionAggregate, error) {
	args := append([]any{limit, offset}, extra...)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.SessionAggregate
	for rows.Next() {
		var agg domain.SessionAggregate
		if err := rows.Scan(
			&agg.ID,
			&agg.GameID,
			&agg.GameName,
			&agg.Date,
			&agg.Location,
			&agg.DurationMinutes,
			&agg.Highlights,
			&agg.DeletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	for i := range sessions {
		players, err := r.sessionPlayers(ctx, sessions[i].ID)
		if err != nil {
			return nil, err
		}
		sessions[i].Players = players
	}
	return sessions, nil
}

func (r *SessionRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// UpdateSessionScalars writes the session's mutable scalar columns in a
// single statement. Implements domain.EditGateway.
func (r *SessionRepository) UpdateSessionScalars(ctx context.Context, sessionID uuid.UUID, upd domain.SessionScalarUpdate) error {
	date, err := time.Parse(domain.DateFormat, upd.Date)
	if err != nil {
		return fmt.Errorf("invalid session date: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET session_date = $1, location = $2, duration_minutes = $3, highlights = $4, updated_at = now()
		WHERE id = $5 AND deleted_at IS NULL
	`, date, upd.Location, upd.DurationMinutes, upd.Highlights, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// RetagGame invokes the server-side retag_game function.
func (r *SessionRepository) RetagGame(ctx context.Context, sessionID uuid.UUID, newName string) (uuid.UUID, error) {
	var gameID uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT retag_game($1, $2)`, sessionID, newName).Scan(&gameID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to retag game: %w", err)
	}
	return gameID, nil
}

// RetagPlayer invokes the server-side retag_player function.
func (r *SessionRepository) RetagPlayer(ctx context.Context, sessionID, oldPlayerID uuid.UUID, newName string) (uuid.UUID, error) {
	var playerID uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT retag_player($1, $2, $3)`, sessionID, oldPlayerID, newName).Scan(&playerID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to retag player: %w", err)
	}
	return playerID, nil
}

// UpdateScore writes score and winner flag to a score row by its id.
func (r *SessionRepository) UpdateScore(ctx context.Context, scoreID uuid.UUID, upd domain.ScoreUpdate) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE scores SET score = $1, is_winner = $2, updated_at = now()
		WHERE id = $3
	`, upd.Score, upd.IsWinner, scoreID)
	if err != nil {
		return fmt.Errorf("failed to update score: %w", err)
	}
	return nil
}

func nullIfBlank(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
