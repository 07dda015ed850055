package domain

import (
	"context"

	"github.com/google/uuid"
)

// PlayerStats is the aggregated view of one player's play history.
type PlayerStats struct {
	PlayerID       uuid.UUID `json:"player_id"`
	SessionsPlayed int       `json:"sessions_played"`
	Wins           int       `json:"wins"`
	WinRate        float64   `json:"win_rate"`
	MostPlayedGame string    `json:"most_played_game,omitempty"`
	MostPlayedID   uuid.UUID `json:"most_played_game_id,omitempty"`
	TotalMinutes   int       `json:"total_minutes"`
}

// StatsRepository computes aggregates from the store; caching sits above
// this interface.
type StatsRepository interface {
	PlayerStats(ctx context.Context, playerID uuid.UUID) (*PlayerStats, error)
}
