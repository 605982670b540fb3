// Package cache provides an optional Redis-backed cache for user progress
// snapshots. The cache is only ever refreshed from committed store state,
// never incremented in place.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bloom-app/progression/internal/app/domain/progression"
	"github.com/bloom-app/progression/pkg/logger"
	"github.com/go-redis/redis/v8"
)

const defaultTTL = 5 * time.Minute

// ProgressCache caches Progress snapshots keyed by user. A nil *ProgressCache
// is valid and disables caching.
type ProgressCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// New creates a cache over the given Redis client.
func New(client *redis.Client, log *logger.Logger) *ProgressCache {
	if log == nil {
		log = logger.NewDefault("progress-cache")
	}
	return &ProgressCache{client: client, ttl: defaultTTL, log: log}
}

func key(userID string) string {
	return "progress:" + userID
}

// Get returns the cached snapshot for the user, if present.
func (c *ProgressCache) Get(ctx context.Context, userID string) (progression.Progress, bool) {
	if c == nil || c.client == nil {
		return progression.Progress{}, false
	}

	raw, err := c.client.Get(ctx, key(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Warn("progress cache read failed")
		}
		return progression.Progress{}, false
	}

	var p progression.Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return progression.Progress{}, false
	}
	return p, true
}

// Set stores a snapshot. Failures are logged and otherwise ignored; the
// durable store remains authoritative.
func (c *ProgressCache) Set(ctx context.Context, p progression.Progress) {
	if c == nil || c.client == nil {
		return
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(p.UserID), raw, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("progress cache write failed")
	}
}

// Invalidate drops the cached snapshot for the user.
func (c *ProgressCache) Invalidate(ctx context.Context, userID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, key(userID)).Err(); err != nil {
		c.log.WithError(err).Warn("progress cache invalidate failed")
	}
}
