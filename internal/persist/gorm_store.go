/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package persist serves spec.md §6's "Persisted state layout": the two
// values the core reads at startup and writes on change — the AutoDJ
// clockwheel configuration and its cursor — through a key/value adapter,
// the schema of which is an external collaborator's concern. Grounded
// on the teacher's `models.SystemSettings` singleton-row pattern
// (internal/models/system_settings.go): `gorm.FirstOrCreate` for a
// get-or-default read, `Assign` + `FirstOrCreate` as an upsert for a write.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/aircore/internal/models"
)

// kvEntry is the sole table this package owns, per SPEC_FULL.md §6:
// "only a single kv_entries(key, value) table is owned here."
type kvEntry struct {
	Key       string `gorm:"primaryKey;type:varchar(128)"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string { return "kv_entries" }

// Store is a thin key/value wrapper over gorm, scoped to the two
// persisted values spec.md §6 names.
type Store struct {
	db *gorm.DB
}

// NewStore wraps db as a Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the stored value for key, and false if no row exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var entry kvEntry
	err := s.db.WithContext(ctx).First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

// Set upserts key to value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	entry := kvEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).
		Where(kvEntry{Key: key}).
		Assign(kvEntry{Value: value, UpdatedAt: entry.UpdatedAt}).
		FirstOrCreate(&entry).Error
}

const (
	keyClockwheelCursor = "autodj.clockwheel_cursor"
	keyClockwheelConfig = "autodj.clockwheel_config"
)

// CursorStore adapts Store to autodj.CursorStore.
type CursorStore struct {
	store *Store
}

// NewCursorStore builds a CursorStore over store.
func NewCursorStore(store *Store) *CursorStore {
	return &CursorStore{store: store}
}

// LoadCursor returns the persisted cursor, or 0 if never written.
func (c *CursorStore) LoadCursor(ctx context.Context) (int, error) {
	raw, found, err := c.store.Get(ctx, keyClockwheelCursor)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	var pos int
	if err := json.Unmarshal([]byte(raw), &pos); err != nil {
		return 0, err
	}
	return pos, nil
}

// SaveCursor persists pos.
func (c *CursorStore) SaveCursor(ctx context.Context, pos int) error {
	raw, err := json.Marshal(pos)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, keyClockwheelCursor, string(raw))
}

// ClockwheelSource adapts Store to autodj.ClockwheelSource.
type ClockwheelSource struct {
	store *Store
}

// NewClockwheelSource builds a ClockwheelSource over store.
func NewClockwheelSource(store *Store) *ClockwheelSource {
	return &ClockwheelSource{store: store}
}

// Load returns the persisted clockwheel configuration, or a zero-value
// (no slots) config if never written — the selector falls back to the
// generic pool in that case, per spec.md §4.4 step 9.
func (c *ClockwheelSource) Load(ctx context.Context) (models.ClockwheelConfig, error) {
	raw, found, err := c.store.Get(ctx, keyClockwheelConfig)
	if err != nil {
		return models.ClockwheelConfig{}, err
	}
	if !found {
		return models.ClockwheelConfig{}, nil
	}
	var cfg models.ClockwheelConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return models.ClockwheelConfig{}, err
	}
	return cfg, nil
}

// Save persists cfg, read back by the next Load call (and by the next
// process start).
func (c *ClockwheelSource) Save(ctx context.Context, cfg models.ClockwheelConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, keyClockwheelConfig, string(raw))
}

// Migrate applies this package's GORM schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&kvEntry{})
}
