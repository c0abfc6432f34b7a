/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based read-through cache for clockwheel
// configuration and catalog lookups, so the AutoDJ selector does not hit
// the persistence layer on every selection.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Default TTL values for different cache types.
const (
	DefaultClockwheelTTL     = 1 * time.Hour
	DefaultClockwheelSlotTTL = 1 * time.Hour
	DefaultCatalogItemTTL    = 1 * time.Hour
	DefaultRecentPlaysTTL    = 10 * time.Minute
)

// Key prefixes for Redis cache.
const (
	KeyClockwheel     = "aircore:cache:clockwheel:"      // + clockwheel_id
	KeyClockwheelSlot = "aircore:cache:clockwheel_slot:"  // + slot_id
	KeyCatalogItem    = "aircore:cache:catalog_item:"     // + item_id
	KeyRecentPlays    = "aircore:cache:recent_plays"
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ClockwheelTTL     time.Duration
	ClockwheelSlotTTL time.Duration
	CatalogItemTTL    time.Duration
	RecentPlaysTTL    time.Duration

	// DisableOnError disables caching after the first Redis error, so the
	// selector falls through to the persistence layer instead of erroring.
	DisableOnError bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:         "localhost:6379",
		ClockwheelTTL:     DefaultClockwheelTTL,
		ClockwheelSlotTTL: DefaultClockwheelSlotTTL,
		CatalogItemTTL:    DefaultCatalogItemTTL,
		RecentPlaysTTL:    DefaultRecentPlaysTTL,
		DisableOnError:    true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool // circuit breaker state
}

// New creates a new cache instance.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
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
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

	return true, nil
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

func (c *Cache) delete(ctx context.Context, key string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.handleError(err, "delete")
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
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
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

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return nil
}

// Clockwheel caching methods.

// CachedClockwheel represents a cached clockwheel configuration.
type CachedClockwheel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Timezone  string `json:"timezone"`
	CursorPos int    `json:"cursor_pos"`
	Active    bool   `json:"active"`
}

// GetClockwheel retrieves a cached clockwheel by ID.
func (c *Cache) GetClockwheel(ctx context.Context, clockwheelID string) (*CachedClockwheel, bool) {
	var wheel CachedClockwheel
	found, err := c.get(ctx, KeyClockwheel+clockwheelID, &wheel)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Str("clockwheel_id", clockwheelID).Msg("clockwheel cache hit")
	return &wheel, true
}

// SetClockwheel caches a clockwheel configuration.
func (c *Cache) SetClockwheel(ctx context.Context, wheel *CachedClockwheel) error {
	c.logger.Debug().Str("clockwheel_id", wheel.ID).Msg("caching clockwheel")
	return c.set(ctx, KeyClockwheel+wheel.ID, wheel, c.config.ClockwheelTTL)
}

// InvalidateClockwheel removes a clockwheel from cache.
func (c *Cache) InvalidateClockwheel(ctx context.Context, clockwheelID string) error {
	c.logger.Debug().Str("clockwheel_id", clockwheelID).Msg("invalidating clockwheel cache")
	return c.delete(ctx, KeyClockwheel+clockwheelID)
}

// Clockwheel slot caching methods.

// CachedClockwheelSlot represents a cached clockwheel slot definition,
// including its selection method and separation rules.
type CachedClockwheelSlot struct {
	ID                 string         `json:"id"`
	ClockwheelID       string         `json:"clockwheel_id"`
	Position           int            `json:"position"`
	Category           string         `json:"category"`
	SelectionMethod    string         `json:"selection_method"`
	Rules              map[string]any `json:"rules"`
	ArtistSeparation   int            `json:"artist_separation"`
	TrackSeparation    int            `json:"track_separation"`
	AlbumSeparation    int            `json:"album_separation"`
	OnPlayWeightDelta  float64        `json:"on_play_reduce_weight_by"`
	OnRequestWeightAdd float64        `json:"on_request_increase_weight_by"`
	Fallbacks          []string       `json:"fallback_slot_ids"`
}

// GetClockwheelSlot retrieves a cached clockwheel slot by ID.
func (c *Cache) GetClockwheelSlot(ctx context.Context, slotID string) (*CachedClockwheelSlot, bool) {
	var slot CachedClockwheelSlot
	found, err := c.get(ctx, KeyClockwheelSlot+slotID, &slot)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Str("slot_id", slotID).Msg("clockwheel slot cache hit")
	return &slot, true
}

// SetClockwheelSlot caches a clockwheel slot.
func (c *Cache) SetClockwheelSlot(ctx context.Context, slot *CachedClockwheelSlot) error {
	c.logger.Debug().Str("slot_id", slot.ID).Msg("caching clockwheel slot")
	return c.set(ctx, KeyClockwheelSlot+slot.ID, slot, c.config.ClockwheelSlotTTL)
}

// InvalidateClockwheelSlot removes a clockwheel slot from cache.
func (c *Cache) InvalidateClockwheelSlot(ctx context.Context, slotID string) error {
	c.logger.Debug().Str("slot_id", slotID).Msg("invalidating clockwheel slot cache")
	return c.delete(ctx, KeyClockwheelSlot+slotID)
}

// Catalog caching methods.

// CachedCatalogItem represents a cached catalog (media library) record,
// read-only from this module's perspective.
type CachedCatalogItem struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Artist   string         `json:"artist"`
	Album    string         `json:"album"`
	Category string         `json:"category"`
	Duration int64          `json:"duration"` // nanoseconds
	Path     string         `json:"path"`
	Weight   float64        `json:"weight"`
	IntroEnd int64          `json:"intro_end"` // nanoseconds from track start
	OutroIn  int64          `json:"outro_in"`  // nanoseconds from track start
	Metadata map[string]any `json:"metadata"`
}

// GetCatalogItem retrieves a cached catalog item by ID.
func (c *Cache) GetCatalogItem(ctx context.Context, itemID string) (*CachedCatalogItem, bool) {
	var item CachedCatalogItem
	found, err := c.get(ctx, KeyCatalogItem+itemID, &item)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Str("item_id", itemID).Msg("catalog item cache hit")
	return &item, true
}

// SetCatalogItem caches a catalog item.
func (c *Cache) SetCatalogItem(ctx context.Context, item *CachedCatalogItem) error {
	c.logger.Debug().Str("item_id", item.ID).Msg("caching catalog item")
	return c.set(ctx, KeyCatalogItem+item.ID, item, c.config.CatalogItemTTL)
}

// InvalidateCatalogItem removes a catalog item from cache.
func (c *Cache) InvalidateCatalogItem(ctx context.Context, itemID string) error {
	c.logger.Debug().Str("item_id", itemID).Msg("invalidating catalog item cache")
	return c.delete(ctx, KeyCatalogItem+itemID)
}

// Recent-plays caching methods, for instances that want separation-rule
// history shared through Redis instead of kept purely in-process.

// CachedRecentPlay mirrors a single play-history entry.
type CachedRecentPlay struct {
	ItemID   string    `json:"item_id"`
	Artist   string    `json:"artist"`
	Album    string    `json:"album"`
	Category string    `json:"category"`
	PlayedAt time.Time `json:"played_at"`
}

// GetRecentPlays retrieves the cached recent-play history.
func (c *Cache) GetRecentPlays(ctx context.Context) ([]CachedRecentPlay, bool) {
	var plays []CachedRecentPlay
	found, err := c.get(ctx, KeyRecentPlays, &plays)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Int("count", len(plays)).Msg("recent plays cache hit")
	return plays, true
}

// SetRecentPlays caches the recent-play history.
func (c *Cache) SetRecentPlays(ctx context.Context, plays []CachedRecentPlay) error {
	c.logger.Debug().Int("count", len(plays)).Msg("caching recent plays")
	return c.set(ctx, KeyRecentPlays, plays, c.config.RecentPlaysTTL)
}

// InvalidateRecentPlays clears the cached recent-play history.
func (c *Cache) InvalidateRecentPlays(ctx context.Context) error {
	return c.delete(ctx, KeyRecentPlays)
}

// FlushAll removes all cached data (use sparingly).
func (c *Cache) FlushAll(ctx context.Context) error {
	c.logger.Warn().Msg("flushing all cache data")
	return c.deletePattern(ctx, "aircore:cache:*")
}
