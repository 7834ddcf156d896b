package accountant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rapidaai/relay/internal/types"
)

// RedisMirror publishes usage snapshots to Redis so other relay instances
// (and external dashboards) can observe a principal's usage without the
// Accountant's in-process shards becoming the source of truth for anything
// but rate limiting.
type RedisMirror struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisMirror builds a Mirror backed by a Redis client.
func NewRedisMirror(client *redis.Client) *RedisMirror {
	return &RedisMirror{client: client, ttl: 24 * time.Hour}
}

// PublishUsage writes the latest snapshot for principalID as a JSON blob
// under a principal-scoped key.
func (m *RedisMirror) PublishUsage(ctx context.Context, principalID string, snapshot types.UsageCounter) error {
	b, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("redis mirror: marshal usage: %w", err)
	}
	key := "relay:usage:" + principalID
	if err := m.client.Set(ctx, key, b, m.ttl).Err(); err != nil {
		return fmt.Errorf("redis mirror: set %s: %w", key, err)
	}
	return nil
}
