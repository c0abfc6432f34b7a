package autodj

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/friendsincode/aircore/internal/events"
	"github.com/friendsincode/aircore/internal/models"
)

type fakeCatalog struct {
	byCategory map[string][]models.CatalogItem
	pool       []models.CatalogItem
}

func (f *fakeCatalog) ByCategory(ctx context.Context, category string) ([]models.CatalogItem, error) {
	return f.byCategory[category], nil
}
func (f *fakeCatalog) ByDirectoryPrefix(ctx context.Context, prefix string) ([]models.CatalogItem, error) {
	return nil, nil
}
func (f *fakeCatalog) Pool(ctx context.Context) ([]models.CatalogItem, error) { return f.pool, nil }
func (f *fakeCatalog) ByID(ctx context.Context, id string) (models.CatalogItem, error) {
	for _, item := range f.pool {
		if item.ID == id {
			return item, nil
		}
	}
	return models.CatalogItem{}, errNoSurvivors
}

type fakeRecent struct{ plays []models.RecentPlay }

func (f *fakeRecent) Recent(ctx context.Context, since time.Time) ([]models.RecentPlay, error) {
	return f.plays, nil
}

type fakeCursor struct{ pos int }

func (f *fakeCursor) LoadCursor(ctx context.Context) (int, error) { return f.pos, nil }
func (f *fakeCursor) SaveCursor(ctx context.Context, pos int) error {
	f.pos = pos
	return nil
}

type fakeClockwheel struct{ cfg models.ClockwheelConfig }

func (f *fakeClockwheel) Load(ctx context.Context) (models.ClockwheelConfig, error) {
	return f.cfg, nil
}

type fakeWeights struct{ deltas map[string]float64 }

func (f *fakeWeights) AdjustWeight(ctx context.Context, itemID string, delta float64) error {
	if f.deltas == nil {
		f.deltas = map[string]float64{}
	}
	f.deltas[itemID] += delta
	return nil
}

func newTestSelector(cfg models.ClockwheelConfig, catalog *fakeCatalog, recent []models.RecentPlay) (*Selector, *fakeCursor, *fakeWeights) {
	cursor := &fakeCursor{}
	weights := &fakeWeights{}
	sel := New(Config{
		Clockwheel: &fakeClockwheel{cfg: cfg},
		Catalog:    catalog,
		Recent:     &fakeRecent{plays: recent},
		Cursor:     cursor,
		Weights:    weights,
		Seed:       1,
		Bus:        events.NewBus(),
		Logger:     zerolog.Nop(),
	})
	return sel, cursor, weights
}

func TestSelectPicksFromSlotCategoryAndAdvancesCursor(t *testing.T) {
	cfg := models.ClockwheelConfig{
		Slots: []models.ClockwheelSlot{
			{ID: "s1", Type: models.SlotTypeCategory, Category: "music", SelectionMethod: models.SelectRandom},
			{ID: "s2", Type: models.SlotTypeCategory, Category: "jingles", SelectionMethod: models.SelectRandom},
		},
	}
	catalog := &fakeCatalog{byCategory: map[string][]models.CatalogItem{
		"music": {{ID: "a", Weight: 1}},
	}}

	sel, cursor, _ := newTestSelector(cfg, catalog, nil)

	result, err := sel.Select(context.Background(), SelectRequest{Now: time.Now()})
	require.NoError(t, err)
	require.Equal(t, "a", result.Item.ID)
	require.Equal(t, "s1", result.SlotID)
	require.Equal(t, 1, cursor.pos)
}

func TestSelectSkipsSlotOutOfTimeWindow(t *testing.T) {
	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	cfg := models.ClockwheelConfig{
		Slots: []models.ClockwheelSlot{
			{
				ID: "night-only", Type: models.SlotTypeCategory, Category: "music",
				SelectionMethod: models.SelectRandom,
				WindowStart:     22 * time.Hour, WindowEnd: 23 * time.Hour,
			},
			{ID: "daytime", Type: models.SlotTypeCategory, Category: "jingles", SelectionMethod: models.SelectRandom},
		},
	}
	catalog := &fakeCatalog{byCategory: map[string][]models.CatalogItem{
		"music":   {{ID: "night", Weight: 1}},
		"jingles": {{ID: "day", Weight: 1}},
	}}

	sel, _, _ := newTestSelector(cfg, catalog, nil)
	result, err := sel.Select(context.Background(), SelectRequest{Now: now})
	require.NoError(t, err)
	require.Equal(t, "day", result.Item.ID)
}

func TestSelectFallsBackToPoolWhenAllSlotsExcluded(t *testing.T) {
	now := time.Date(2026, 7, 31, 3, 0, 0, 0, time.UTC)
	cfg := models.ClockwheelConfig{
		Slots: []models.ClockwheelSlot{
			{
				ID: "night-only", Type: models.SlotTypeCategory, Category: "music",
				SelectionMethod: models.SelectRandom,
				WindowStart:     22 * time.Hour, WindowEnd: 23 * time.Hour,
			},
		},
	}
	catalog := &fakeCatalog{pool: []models.CatalogItem{{ID: "fallback", Weight: 1}}}

	sel, _, _ := newTestSelector(cfg, catalog, nil)
	result, err := sel.Select(context.Background(), SelectRequest{Now: now})
	require.NoError(t, err)
	require.Equal(t, "fallback", result.Item.ID)
}

func TestSelectExcludesGivenIDs(t *testing.T) {
	cfg := models.ClockwheelConfig{
		Slots: []models.ClockwheelSlot{
			{ID: "s1", Type: models.SlotTypeCategory, Category: "music", SelectionMethod: models.SelectRandom},
		},
	}
	catalog := &fakeCatalog{byCategory: map[string][]models.CatalogItem{
		"music": {{ID: "a", Weight: 1}, {ID: "b", Weight: 1}},
	}}

	sel, _, _ := newTestSelector(cfg, catalog, nil)
	result, err := sel.Select(context.Background(), SelectRequest{
		Now:         time.Now(),
		ExcludedIDs: map[string]struct{}{"a": {}},
	})
	require.NoError(t, err)
	require.Equal(t, "b", result.Item.ID)
}

func TestSelectAppliesArtistSeparation(t *testing.T) {
	now := time.Now()
	cfg := models.ClockwheelConfig{
		Slots: []models.ClockwheelSlot{
			{
				ID: "s1", Type: models.SlotTypeCategory, Category: "music",
				SelectionMethod: models.SelectRandom,
				Separation:      models.SeparationRules{ArtistSeparation: time.Hour},
			},
		},
	}
	catalog := &fakeCatalog{byCategory: map[string][]models.CatalogItem{
		"music": {
			{ID: "a", Artist: "Same Artist", Weight: 1},
			{ID: "b", Artist: "Other Artist", Weight: 1},
		},
	}}
	recent := []models.RecentPlay{{ItemID: "a", Artist: "Same Artist", PlayedAt: now.Add(-10 * time.Minute)}}

	sel, _, _ := newTestSelector(cfg, catalog, recent)
	result, err := sel.Select(context.Background(), SelectRequest{Now: now})
	require.NoError(t, err)
	require.Equal(t, "b", result.Item.ID)
}

func TestWeightedPickRespectsMinimumWeight(t *testing.T) {
	candidates := []models.CatalogItem{{ID: "zero", Weight: 0}}
	chosen := weightedPick(rand.New(rand.NewSource(1)), candidates)
	require.Equal(t, "zero", chosen.ID)
}

func TestPriorityPickSelectsMaxWeight(t *testing.T) {
	candidates := []models.CatalogItem{{ID: "low", Weight: 1}, {ID: "high", Weight: 5}}
	require.Equal(t, "high", priorityPick(candidates).ID)
}

func TestPlaylistOrderPicksMinPlayCount(t *testing.T) {
	candidates := []models.CatalogItem{{ID: "b"}, {ID: "a"}}
	recent := []models.RecentPlay{{ItemID: "a"}, {ItemID: "a"}}
	require.Equal(t, "b", playlistOrderPick(candidates, recent).ID)
}

func TestLRPSongPicksOldestOrUnplayed(t *testing.T) {
	now := time.Now()
	candidates := []models.CatalogItem{{ID: "played"}, {ID: "never-played"}}
	recent := []models.RecentPlay{{ItemID: "played", PlayedAt: now.Add(-time.Minute)}}

	chosen, err := extremumByLastPlayed(candidates, recent, lastPlayedByItem, false)
	require.NoError(t, err)
	require.Equal(t, "never-played", chosen.ID)
}

func TestMRPIgnoresUnplayedCandidates(t *testing.T) {
	now := time.Now()
	candidates := []models.CatalogItem{{ID: "played"}, {ID: "never-played"}}
	recent := []models.RecentPlay{{ItemID: "played", PlayedAt: now.Add(-time.Minute)}}

	chosen, err := extremumByLastPlayed(candidates, recent, lastPlayedByItem, true)
	require.NoError(t, err)
	require.Equal(t, "played", chosen.ID)
}

func TestOnPlayFloorsWeightDeltaAtZeroViaStore(t *testing.T) {
	cfg := models.ClockwheelConfig{}
	catalog := &fakeCatalog{}
	sel, _, weights := newTestSelector(cfg, catalog, nil)

	require.NoError(t, sel.OnPlay(context.Background(), "song-1", 0.5))
	require.Equal(t, -0.5, weights.deltas["song-1"])
}
