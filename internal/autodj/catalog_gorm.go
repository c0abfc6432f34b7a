/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package autodj

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/aircore/internal/models"
)

// catalogRow is the GORM row backing a catalog candidate, grounded on
// the teacher's `models.MediaItem` (internal/models/models.go) —
// narrowed to the columns spec.md §4.4's selector actually reads,
// since library ingestion/analysis state is an external
// collaborator's concern here (spec.md §1 non-goals).
type catalogRow struct {
	ID       string `gorm:"type:uuid;primaryKey"`
	Title    string `gorm:"index"`
	Artist   string `gorm:"index"`
	Album    string `gorm:"index"`
	Category string `gorm:"index"`
	Path     string `gorm:"index"`
	Duration time.Duration
	Weight   float64
	IntroEnd time.Duration
	OutroIn  time.Duration
}

// TableName pins the row to the catalog's media table.
func (catalogRow) TableName() string { return "catalog_items" }

func (r catalogRow) toModel() models.CatalogItem {
	return models.CatalogItem{
		ID:       r.ID,
		Title:    r.Title,
		Artist:   r.Artist,
		Album:    r.Album,
		Category: r.Category,
		Path:     r.Path,
		Duration: r.Duration,
		Weight:   r.Weight,
		Markers: models.Markers{
			IntroEnd: r.IntroEnd,
			OutroIn:  r.OutroIn,
		},
	}
}

// GormCatalog resolves clockwheel candidates from a GORM-backed media
// table, grounded on the teacher's `smartblock.Engine.fetchCandidates`
// query shape (internal/smartblock/engine.go): a broad SQL filter
// followed, where needed, by in-memory normalization.
type GormCatalog struct {
	db *gorm.DB
}

// NewGormCatalog wraps db as a Catalog.
func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

// ByCategory resolves candidates via exact, then normalised, then
// substring matches, in that order, per spec.md §4.4 step 3 — the
// first pass to return any rows wins.
func (c *GormCatalog) ByCategory(ctx context.Context, category string) ([]models.CatalogItem, error) {
	if rows, err := c.queryCategory(ctx, "category = ?", category); err != nil || len(rows) > 0 {
		return rows, err
	}

	normalized := strings.ToLower(strings.TrimSpace(category))
	if rows, err := c.queryCategory(ctx, "LOWER(TRIM(category)) = ?", normalized); err != nil || len(rows) > 0 {
		return rows, err
	}

	return c.queryCategory(ctx, "LOWER(category) LIKE ?", "%"+normalized+"%")
}

func (c *GormCatalog) queryCategory(ctx context.Context, clause string, arg any) ([]models.CatalogItem, error) {
	var rows []catalogRow
	if err := c.db.WithContext(ctx).Where(clause, arg).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toModels(rows), nil
}

// ByDirectoryPrefix matches candidates by prefix on the file path, per
// spec.md §4.4 step 3's "Directory matches by prefix".
func (c *GormCatalog) ByDirectoryPrefix(ctx context.Context, prefix string) ([]models.CatalogItem, error) {
	var rows []catalogRow
	if err := c.db.WithContext(ctx).Where("path LIKE ?", prefix+"%").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toModels(rows), nil
}

// Pool returns the broad candidate pool used by Request slots and the
// step-9 fallback.
func (c *GormCatalog) Pool(ctx context.Context) ([]models.CatalogItem, error) {
	var rows []catalogRow
	if err := c.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toModels(rows), nil
}

// ByID fetches a single fixed-item candidate.
func (c *GormCatalog) ByID(ctx context.Context, id string) (models.CatalogItem, error) {
	var row catalogRow
	if err := c.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return models.CatalogItem{}, err
	}
	return row.toModel(), nil
}

func toModels(rows []catalogRow) []models.CatalogItem {
	out := make([]models.CatalogItem, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out
}

// playHistoryRow is the GORM row for a completed play, grounded on the
// teacher's `models.PlayHistory`.
type playHistoryRow struct {
	ItemID   string `gorm:"column:media_id"`
	Artist   string
	Album    string
	Category string
	PlayedAt time.Time `gorm:"column:started_at"`
}

func (playHistoryRow) TableName() string { return "play_history" }

// GormRecentPlayLog reads recent plays from the same table the
// teacher's smart block engine queries for separation-rule windows.
type GormRecentPlayLog struct {
	db *gorm.DB
}

// NewGormRecentPlayLog wraps db as a RecentPlayLog.
func NewGormRecentPlayLog(db *gorm.DB) *GormRecentPlayLog {
	return &GormRecentPlayLog{db: db}
}

// Recent returns plays at or after since, newest first.
func (l *GormRecentPlayLog) Recent(ctx context.Context, since time.Time) ([]models.RecentPlay, error) {
	var rows []playHistoryRow
	if err := l.db.WithContext(ctx).
		Where("started_at >= ?", since).
		Order("started_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]models.RecentPlay, len(rows))
	for i, r := range rows {
		out[i] = models.RecentPlay{
			ItemID:   r.ItemID,
			Artist:   r.Artist,
			Album:    r.Album,
			Category: r.Category,
			PlayedAt: r.PlayedAt,
		}
	}
	return out, nil
}

// GormWeightStore applies AutoDJ weight-delta side effects directly to
// the catalog table a row came from, rather than through the persisted
// KV surface (a per-item column update, not one of spec.md §6's two
// persisted blobs).
type GormWeightStore struct {
	db *gorm.DB
}

// NewGormWeightStore wraps db as a WeightStore.
func NewGormWeightStore(db *gorm.DB) *GormWeightStore {
	return &GormWeightStore{db: db}
}

// AdjustWeight applies delta to itemID's weight, floored at zero inside
// a transaction to avoid a lost-update race against a concurrent play.
func (s *GormWeightStore) AdjustWeight(ctx context.Context, itemID string, delta float64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row catalogRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", itemID).Error; err != nil {
			return err
		}
		next := row.Weight + delta
		if next < 0 {
			next = 0
		}
		return tx.Model(&catalogRow{}).Where("id = ?", itemID).Update("weight", next).Error
	})
}

// Migrate applies this package's GORM schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&catalogRow{}, &playHistoryRow{})
}
