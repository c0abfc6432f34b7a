package persist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/aircore/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&kvEntry{}))
	return NewStore(db)
}

func TestStoreGetReturnsFalseWhenMissing(t *testing.T) {
	store := newTestStore(t)
	_, found, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, found)
}

func TestStoreSetThenGetRoundTrips(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set(context.Background(), "k", "v1"))
	value, found, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "v1", value)
}

func TestStoreSetOverwritesExistingKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", "v1"))
	require.NoError(t, store.Set(ctx, "k", "v2"))
	value, _, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v2", value)
}

func TestCursorStoreDefaultsToZero(t *testing.T) {
	cursor := NewCursorStore(newTestStore(t))
	pos, err := cursor.LoadCursor(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, pos)
}

func TestCursorStoreSaveThenLoadRoundTrips(t *testing.T) {
	cursor := NewCursorStore(newTestStore(t))
	ctx := context.Background()
	require.NoError(t, cursor.SaveCursor(ctx, 3))
	pos, err := cursor.LoadCursor(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, pos)
}

func TestClockwheelSourceDefaultsToEmptyConfig(t *testing.T) {
	source := NewClockwheelSource(newTestStore(t))
	cfg, err := source.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, cfg.Slots)
}

func TestClockwheelSourceSaveThenLoadRoundTrips(t *testing.T) {
	source := NewClockwheelSource(newTestStore(t))
	ctx := context.Background()
	cfg := models.ClockwheelConfig{
		ID:   "default",
		Name: "Main Rotation",
		Slots: []models.ClockwheelSlot{
			{ID: "s1", Type: models.SlotTypeCategory, Category: "music"},
		},
	}
	require.NoError(t, source.Save(ctx, cfg))

	loaded, err := source.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "default", loaded.ID)
	require.Len(t, loaded.Slots, 1)
	require.Equal(t, "music", loaded.Slots[0].Category)
}
