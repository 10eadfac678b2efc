/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-backed cache of roster snapshots.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jtoledo1974/atcapp/internal/events"
	"github.com/jtoledo1974/atcapp/internal/store"
	"github.com/jtoledo1974/atcapp/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultRosterTTL bounds how long a snapshot may be served after an import
// that this process did not observe.
const DefaultRosterTTL = 5 * time.Minute

// Key prefixes for Redis cache
const (
	KeyRoster           = "atcapp:cache:roster:"            // + roster_id
	KeyControllerRoster = "atcapp:cache:controller_roster:" // + controller_id, value is a roster_id
	keyPattern          = "atcapp:cache:*"
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RosterTTL     time.Duration

	// DisableOnError trips the breaker on the first Redis error.
	DisableOnError bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		RosterTTL:      DefaultRosterTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback. Every method
// is safe to call when Redis is unreachable; reads then report a miss.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool // circuit breaker state
}

// New creates a cache. An unreachable Redis yields a disabled cache, not an error.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	logger = logger.With().Str("component", "cache").Logger()
	if cfg.RosterTTL <= 0 {
		cfg.RosterTTL = DefaultRosterTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, running without snapshot cache")
		_ = client.Close()
		return &Cache{logger: logger, config: cfg, disabled: true}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("redis snapshot cache initialized")
	return &Cache{client: client, logger: logger, config: cfg}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

func (c *Cache) handleError(err error, operation string) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}
	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to redis error")
	}
}

func (c *Cache) get(ctx context.Context, key string, dest any) bool {
	if !c.IsAvailable() {
		return false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		c.handleError(err, "get")
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}
	return nil
}

func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	if !c.IsAvailable() {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.handleError(err, "delete_batch")
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// GetRoster returns the cached snapshot for rosterID.
func (c *Cache) GetRoster(ctx context.Context, rosterID string) (*store.Snapshot, bool) {
	var snap store.Snapshot
	if !c.get(ctx, KeyRoster+rosterID, &snap) {
		telemetry.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	telemetry.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return &snap, true
}

// SetRoster caches a snapshot under its roster id.
func (c *Cache) SetRoster(ctx context.Context, snap *store.Snapshot) error {
	return c.set(ctx, KeyRoster+snap.RosterID, snap, c.config.RosterTTL)
}

// GetLatestRosterID returns the cached latest roster id of a controller.
func (c *Cache) GetLatestRosterID(ctx context.Context, controllerID string) (string, bool) {
	var id string
	if !c.get(ctx, KeyControllerRoster+controllerID, &id) {
		return "", false
	}
	return id, true
}

// SetLatestRosterID caches the latest roster id of a controller.
func (c *Cache) SetLatestRosterID(ctx context.Context, controllerID, rosterID string) error {
	return c.set(ctx, KeyControllerRoster+controllerID, rosterID, c.config.RosterTTL)
}

// InvalidateRoster drops the snapshot and every controller pointer, since an
// import may change which roster is the latest for any controller on it.
func (c *Cache) InvalidateRoster(ctx context.Context, rosterID string) error {
	if !c.IsAvailable() {
		return nil
	}
	if err := c.client.Del(ctx, KeyRoster+rosterID).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}
	return c.deletePattern(ctx, KeyControllerRoster+"*")
}

// FlushAll removes all cached data.
func (c *Cache) FlushAll(ctx context.Context) error {
	c.logger.Warn().Msg("flushing all cache data")
	return c.deletePattern(ctx, keyPattern)
}

// Run invalidates snapshots on roster.imported events until ctx is done.
func (c *Cache) Run(ctx context.Context, bus *events.Bus) error {
	sub := bus.Subscribe(events.EventRosterImported)
	defer bus.Unsubscribe(events.EventRosterImported, sub)

	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-sub:
			if !ok {
				return nil
			}
			rosterID, _ := payload["roster_id"].(string)
			if rosterID == "" {
				continue
			}
			if err := c.InvalidateRoster(ctx, rosterID); err != nil {
				c.logger.Warn().Err(err).Str("roster_id", rosterID).Msg("invalidate roster snapshot")
				continue
			}
			c.logger.Debug().Str("roster_id", rosterID).Msg("roster snapshot invalidated")
		}
	}
}
