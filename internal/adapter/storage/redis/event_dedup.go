package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// EventDedupCache implements ports.EventDedupCache. It is the fast duplicate
// check for settlement events; the ledger existence check remains the durable
// layer, so a cold cache only costs an extra query.
type EventDedupCache struct {
	client *goredis.Client
	prefix string
}

// NewEventDedupCache creates a new Redis-backed settlement dedup cache.
func NewEventDedupCache(client *goredis.Client) *EventDedupCache {
	return &EventDedupCache{
		client: client,
		prefix: "settlement:dedup:",
	}
}

// Seen reports whether the event key was already processed.
func (c *EventDedupCache) Seen(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records the event key as processed with a TTL.
func (c *EventDedupCache) Mark(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis dedup mark: %w", err)
	}
	return nil
}
