/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package autodj

import (
	"context"
	"time"

	"github.com/friendsincode/aircore/internal/cache"
	"github.com/friendsincode/aircore/internal/events"
	"github.com/friendsincode/aircore/internal/models"
)

// CachedCatalog wraps a Catalog with a Redis read-through cache on
// ByID, the lookup the transition planner's re-fetch path (and a
// manual fixed-item request) hits hardest. ByCategory/ByDirectoryPrefix/
// Pool pass straight through: those are broad scans the cache's
// per-item keying can't serve.
type CachedCatalog struct {
	next  Catalog
	cache *cache.Cache
}

// NewCachedCatalog wraps next with cache. cache may be nil, in which
// case CachedCatalog behaves exactly like next (the cache's own
// DisableOnError circuit breaker handles a down Redis; a nil cache
// handles a deployment that never configured one).
func NewCachedCatalog(next Catalog, c *cache.Cache) *CachedCatalog {
	return &CachedCatalog{next: next, cache: c}
}

// ByCategory passes through uncached.
func (c *CachedCatalog) ByCategory(ctx context.Context, category string) ([]models.CatalogItem, error) {
	return c.next.ByCategory(ctx, category)
}

// ByDirectoryPrefix passes through uncached.
func (c *CachedCatalog) ByDirectoryPrefix(ctx context.Context, prefix string) ([]models.CatalogItem, error) {
	return c.next.ByDirectoryPrefix(ctx, prefix)
}

// Pool passes through uncached.
func (c *CachedCatalog) Pool(ctx context.Context) ([]models.CatalogItem, error) {
	return c.next.Pool(ctx)
}

// ByID serves from cache when available, populating it on a miss.
func (c *CachedCatalog) ByID(ctx context.Context, id string) (models.CatalogItem, error) {
	if c.cache == nil {
		return c.next.ByID(ctx, id)
	}
	if cached, ok := c.cache.GetCatalogItem(ctx, id); ok {
		return fromCachedItem(*cached), nil
	}

	item, err := c.next.ByID(ctx, id)
	if err != nil {
		return models.CatalogItem{}, err
	}
	_ = c.cache.SetCatalogItem(ctx, toCachedItem(item))
	return item, nil
}

// InvalidateOnCatalogUpdate subscribes to events.EventCatalogUpdated and
// evicts the named item, so a library edit is visible on the next
// selection round rather than after the TTL expires. Call in its own
// goroutine; returns when ctx is cancelled.
func (c *CachedCatalog) InvalidateOnCatalogUpdate(ctx context.Context, bus *events.Bus) {
	if c.cache == nil || bus == nil {
		return
	}
	sub := bus.Subscribe(events.EventCatalogUpdated)
	defer bus.Unsubscribe(events.EventCatalogUpdated, sub)

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-sub:
			if id, ok := payload["item_id"].(string); ok {
				_ = c.cache.InvalidateCatalogItem(ctx, id)
			}
		}
	}
}

func toCachedItem(item models.CatalogItem) *cache.CachedCatalogItem {
	return &cache.CachedCatalogItem{
		ID:       item.ID,
		Title:    item.Title,
		Artist:   item.Artist,
		Album:    item.Album,
		Category: item.Category,
		Duration: int64(item.Duration),
		Path:     item.Path,
		Weight:   item.Weight,
		IntroEnd: int64(item.Markers.IntroEnd),
		OutroIn:  int64(item.Markers.OutroIn),
	}
}

func fromCachedItem(c cache.CachedCatalogItem) models.CatalogItem {
	return models.CatalogItem{
		ID:       c.ID,
		Title:    c.Title,
		Artist:   c.Artist,
		Album:    c.Album,
		Category: c.Category,
		Path:     c.Path,
		Duration: time.Duration(c.Duration),
		Weight:   c.Weight,
		Markers: models.Markers{
			IntroEnd: time.Duration(c.IntroEnd),
			OutroIn:  time.Duration(c.OutroIn),
		},
	}
}
