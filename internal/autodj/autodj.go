/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package autodj implements the clockwheel selector of spec.md §4.4:
// cursor-driven slot iteration, candidate fetch, separation-rule
// filtering, and one of eight selection methods. Grounded on the
// teacher's `internal/smartblock.Engine` for the progressive
// candidate-fetch/filter shape (GORM query plus in-memory filtering,
// a `rand.New(rand.NewSource(...))` RNG threaded through for
// reproducible selection) and on `internal/priority.Resolver` for the
// exhaustion/fallback pattern (exhaust the primary rule, widen scope,
// log and proceed rather than erroring).
package autodj

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/aircore/internal/events"
	"github.com/friendsincode/aircore/internal/models"
	"github.com/friendsincode/aircore/internal/telemetry"
)

// ErrNoCandidates indicates every slot and the fallback pool were
// exhausted, per spec.md §4.4 step 9 turning up nothing to play.
var ErrNoCandidates = errors.New("autodj: no candidates available")

// Catalog resolves candidates for a clockwheel slot against the
// external media library, per spec.md §4.4 step 3. Implementations
// back onto gorm in production; tests use an in-memory fake.
type Catalog interface {
	ByCategory(ctx context.Context, category string) ([]models.CatalogItem, error)
	ByDirectoryPrefix(ctx context.Context, prefix string) ([]models.CatalogItem, error)
	Pool(ctx context.Context) ([]models.CatalogItem, error)
	ByID(ctx context.Context, id string) (models.CatalogItem, error)
}

// RecentPlayLog returns plays since a cutoff, for separation-rule
// evaluation (spec.md §4.4 step 5) and MRP/LRP methods.
type RecentPlayLog interface {
	Recent(ctx context.Context, since time.Time) ([]models.RecentPlay, error)
}

// CursorStore persists the clockwheel cursor, one of the two values
// named in spec.md §6's "Persisted state layout".
type CursorStore interface {
	LoadCursor(ctx context.Context) (int, error)
	SaveCursor(ctx context.Context, pos int) error
}

// ClockwheelSource loads the active clockwheel configuration, the
// other persisted value named in spec.md §6.
type ClockwheelSource interface {
	Load(ctx context.Context) (models.ClockwheelConfig, error)
}

// WeightStore applies the weight-delta side effects of spec.md §4.4's
// closing paragraph.
type WeightStore interface {
	AdjustWeight(ctx context.Context, itemID string, delta float64) error
}

// Selector runs the clockwheel algorithm of spec.md §4.4.
type Selector struct {
	clockwheel ClockwheelSource
	catalog    Catalog
	recent     RecentPlayLog
	cursor     CursorStore
	weights    WeightStore
	rng        *rand.Rand
	logger     zerolog.Logger
	bus        *events.Bus
}

// Config wires a Selector's collaborators.
type Config struct {
	Clockwheel ClockwheelSource
	Catalog    Catalog
	Recent     RecentPlayLog
	Cursor     CursorStore
	Weights    WeightStore
	Seed       int64
	Bus        *events.Bus
	Logger     zerolog.Logger
}

// New constructs a Selector.
func New(cfg Config) *Selector {
	return &Selector{
		clockwheel: cfg.Clockwheel,
		catalog:    cfg.Catalog,
		recent:     cfg.Recent,
		cursor:     cfg.Cursor,
		weights:    cfg.Weights,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		logger:     cfg.Logger,
		bus:        cfg.Bus,
	}
}

// SelectRequest parameterizes one selection round.
type SelectRequest struct {
	Now              time.Time
	ExcludedIDs      map[string]struct{}
	ExplicitCategory string
}

// SelectResult is the chosen candidate plus the slot and method that
// produced it, for event/telemetry labeling.
type SelectResult struct {
	Item   models.CatalogItem
	SlotID string
	Method models.SelectionMethod
}

// Select runs spec.md §4.4's full algorithm: load the cursor, iterate
// slots from it, fetch and filter candidates, pick by the slot's
// method, advance and persist the cursor, and fall back to a weighted
// pick over the generic pool if every slot was excluded by its
// time/day window.
func (s *Selector) Select(ctx context.Context, req SelectRequest) (SelectResult, error) {
	cfg, err := s.clockwheel.Load(ctx)
	if err != nil {
		return SelectResult{}, err
	}
	if len(cfg.Slots) == 0 {
		return s.fallbackPool(ctx, req)
	}

	cursor, err := s.cursor.LoadCursor(ctx)
	if err != nil {
		return SelectResult{}, err
	}
	if cursor < 0 || cursor >= len(cfg.Slots) {
		cursor = 0
	}

	recent, err := s.recent.Recent(ctx, req.Now.Add(-24*time.Hour))
	if err != nil {
		return SelectResult{}, err
	}
	sortRecentDesc(recent)

	anyInWindow := false
	for i := 0; i < len(cfg.Slots); i++ {
		idx := (cursor + i) % len(cfg.Slots)
		slot := cfg.Slots[idx]

		if !slot.InWindow(req.Now) {
			continue
		}
		anyInWindow = true

		candidates, err := s.fetchCandidates(ctx, slot, req.ExplicitCategory)
		if err != nil {
			return SelectResult{}, err
		}
		candidates = excludeIDs(candidates, req.ExcludedIDs)
		candidates = applySeparation(candidates, slot.Separation, recent, req.Now)
		candidates = applyLegacyRotation(candidates, cfg.Legacy, recent, req.Now)

		if len(candidates) == 0 {
			continue
		}

		chosen, err := selectByMethod(s.rng, candidates, recent, slot.SelectionMethod)
		if err != nil {
			continue
		}

		next := (idx + 1) % len(cfg.Slots)
		if err := s.cursor.SaveCursor(ctx, next); err != nil {
			return SelectResult{}, err
		}

		telemetry.AutoDJSelectionsTotal.WithLabelValues(string(slot.SelectionMethod)).Inc()
		s.publishSelected(slot.ID, chosen, slot.SelectionMethod)
		return SelectResult{Item: chosen, SlotID: slot.ID, Method: slot.SelectionMethod}, nil
	}

	level := "all_slots_excluded"
	if anyInWindow {
		level = "all_slots_empty"
	}
	telemetry.AutoDJRuleExhaustionsTotal.WithLabelValues(level).Inc()
	s.logger.Warn().Str("level", level).Msg("autodj falling back to generic pool")
	return s.fallbackPool(ctx, req)
}

// fallbackPool implements spec.md §4.4 step 9: a weighted pick over a
// generic pool when every slot is excluded by time/day.
func (s *Selector) fallbackPool(ctx context.Context, req SelectRequest) (SelectResult, error) {
	pool, err := s.catalog.Pool(ctx)
	if err != nil {
		return SelectResult{}, err
	}
	pool = excludeIDs(pool, req.ExcludedIDs)
	if len(pool) == 0 {
		return SelectResult{}, ErrNoCandidates
	}

	chosen := weightedPick(s.rng, pool)
	telemetry.AutoDJSelectionsTotal.WithLabelValues(string(models.SelectWeighted) + "_fallback").Inc()
	s.publishSelected("", chosen, models.SelectWeighted)
	return SelectResult{Item: chosen, Method: models.SelectWeighted}, nil
}

func (s *Selector) fetchCandidates(ctx context.Context, slot models.ClockwheelSlot, explicitCategory string) ([]models.CatalogItem, error) {
	switch slot.Type {
	case models.SlotTypeCategory:
		category := slot.Category
		if explicitCategory != "" {
			category = explicitCategory
		}
		return s.catalog.ByCategory(ctx, category)
	case models.SlotTypeDirectory:
		return s.catalog.ByDirectoryPrefix(ctx, slot.DirectoryPrefix)
	case models.SlotTypeRequest:
		return s.catalog.Pool(ctx)
	case models.SlotTypeFixedItem:
		item, err := s.catalog.ByID(ctx, slot.FixedItemID)
		if err != nil {
			return nil, nil
		}
		return []models.CatalogItem{item}, nil
	default:
		return nil, nil
	}
}

// OnPlay applies a slot's on_play_reduce_weight_by side effect, floored
// at 0, per spec.md §4.4's closing paragraph.
func (s *Selector) OnPlay(ctx context.Context, itemID string, delta float64) error {
	if delta == 0 {
		return nil
	}
	return s.weights.AdjustWeight(ctx, itemID, -delta)
}

// OnRequest applies a slot's on_request_increase_weight_by side effect.
func (s *Selector) OnRequest(ctx context.Context, itemID string, delta float64) error {
	if delta == 0 {
		return nil
	}
	return s.weights.AdjustWeight(ctx, itemID, delta)
}

func (s *Selector) publishSelected(slotID string, item models.CatalogItem, method models.SelectionMethod) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.EventAutoDJSelected, events.Payload{
		"slot_id": slotID,
		"item_id": item.ID,
		"method":  string(method),
	})
}

func excludeIDs(items []models.CatalogItem, excluded map[string]struct{}) []models.CatalogItem {
	if len(excluded) == 0 {
		return items
	}
	out := make([]models.CatalogItem, 0, len(items))
	for _, item := range items {
		if _, skip := excluded[item.ID]; !skip {
			out = append(out, item)
		}
	}
	return out
}

func normalizedEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// categoryMatches implements spec.md §4.4 step 3's "exact / normalised
// / substring matches in that order": a higher-priority match kind
// short-circuits a catalog that supports multiple resolution passes.
// Concrete Catalog implementations are expected to apply the same
// ordering inside ByCategory; this helper is exposed for in-memory
// test fakes and for callers composing their own Catalog.
func categoryMatches(item models.CatalogItem, category string) bool {
	if item.Category == category {
		return true
	}
	if normalizedEqual(item.Category, category) {
		return true
	}
	return strings.Contains(strings.ToLower(item.Category), strings.ToLower(category))
}
