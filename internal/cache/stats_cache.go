// Package cache keeps derived section statistics in redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/navojoa/electoral-map/internal/models"
)

const keyPrefix = "electoral-map:section-stats:"

// Open returns a redis client for addr, or nil when addr is empty
func Open(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// StatsCache stores section statistics per person-data revision.
// A nil *StatsCache is valid and always misses.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache wraps client; a nil client yields a nil cache
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	if client == nil {
		return nil
	}
	return &StatsCache{client: client, ttl: ttl}
}

// Key is the redis key of revision
func Key(revision uint64) string {
	return fmt.Sprintf("%s%d", keyPrefix, revision)
}

// Get returns the statistics cached for revision
func (c *StatsCache) Get(ctx context.Context, revision uint64) ([]models.SectionStats, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	s, err := c.client.Get(ctx, Key(revision)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read stats cache: %w", err)
	}
	var stats []models.SectionStats
	if err := json.Unmarshal([]byte(s), &stats); err != nil {
		return nil, false, fmt.Errorf("failed to decode stats cache: %w", err)
	}
	return stats, true, nil
}

// Set stores stats for revision
func (c *StatsCache) Set(ctx context.Context, revision uint64, stats []models.SectionStats) error {
	if c == nil {
		return nil
	}
	b, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	if err := c.client.Set(ctx, Key(revision), string(b), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write stats cache: %w", err)
	}
	return nil
}

// Ping checks the connection
func (c *StatsCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}
