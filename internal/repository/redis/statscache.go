package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meeplelog/meeplelog/internal/cache"
	"github.com/meeplelog/meeplelog/internal/domain"
)

// StatsCache caches computed player stats in Redis under the same keys
// the edit workflow's invalidator derives, so committed edits bust them.
type StatsCache struct {
	client *Client
	ttl    time.Duration
}

// NewStatsCache creates a new stats cache
func NewStatsCache(client *Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

// Get retrieves cached stats for a player
func (c *StatsCache) Get(ctx context.Context, playerID uuid.UUID) (*domain.PlayerStats, error) {
	data, err := c.client.rdb.Get(ctx, cache.PlayerStatsKey(playerID)).Bytes()
	if err != nil {
		return nil, nil // Cache miss
	}

	var stats domain.PlayerStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
	}
	return &stats, nil
}

// Set caches stats for a player
func (c *StatsCache) Set(ctx context.Context, playerID uuid.UUID, stats *domain.PlayerStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	return c.client.rdb.Set(ctx, cache.PlayerStatsKey(playerID), data, c.ttl).Err()
}
