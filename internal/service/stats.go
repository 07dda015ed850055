package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/meeplelog/meeplelog/internal/domain"
	"github.com/rs/zerolog/log"
)

// StatsCache is the read-through cache in front of computed stats. A nil
// cache is allowed and means stats are always computed fresh.
type StatsCache interface {
	Get(ctx context.Context, playerID uuid.UUID) (*domain.PlayerStats, error)
	Set(ctx context.Context, playerID uuid.UUID, stats *domain.PlayerStats) error
}

// StatsService serves player statistics, cached under the same keys the
// edit workflow invalidates.
type StatsService struct {
	statsRepo domain.StatsRepository
	cache     StatsCache
}

// NewStatsService creates a new stats service
func NewStatsService(statsRepo domain.StatsRepository, cache StatsCache) *StatsService {
	return &StatsService{statsRepo: statsRepo, cache: cache}
}

// PlayerStats returns a player's aggregates, from cache when possible.
func (s *StatsService) PlayerStats(ctx context.Context, playerID uuid.UUID) (*domain.PlayerStats, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, playerID); err == nil && cached != nil {
			return cached, nil
		}
	}

	stats, err := s.statsRepo.PlayerStats(ctx, playerID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, playerID, stats); err != nil {
			log.Warn().Err(err).Str("player_id", playerID.String()).Msg("failed to cache player stats")
		}
	}
	return stats, nil
}
