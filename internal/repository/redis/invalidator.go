package redis

import (
	"context"
	"fmt"
)

// Invalidator implements domain.CacheInvalidator by deleting the given
// keys. It does not know how keys are derived; that lives in the cache
// package so it stays a pure, testable function.
type Invalidator struct {
	client *Client
}

// NewInvalidator creates a new cache invalidator
func NewInvalidator(client *Client) *Invalidator {
	return &Invalidator{client: client}
}

// Invalidate deletes the given cache keys.
func (i *Invalidator) Invalidate(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := i.client.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache keys: %w", err)
	}
	return nil
}
