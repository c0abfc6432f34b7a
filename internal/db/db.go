/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package db owns the GORM connection backing internal/persist and
// internal/autodj's catalog/recent-play/weight stores, per spec.md §6's
// persisted state layout. Grounded on the teacher's internal/db
// package: dialector selection by backend, a tuned connection pool, and
// telemetry callbacks wired at connect time.
package db

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/friendsincode/aircore/internal/autodj"
	"github.com/friendsincode/aircore/internal/config"
	"github.com/friendsincode/aircore/internal/persist"
)

// Connect establishes a GORM connection for the configured backend.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBBackend {
	case config.DatabasePostgres:
		dialector = postgres.Open(cfg.DBDSN)
	case config.DatabaseMySQL:
		dialector = mysql.Open(cfg.DBDSN)
	case config.DatabaseSQLite:
		dialector = sqlite.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unknown database backend: %s", cfg.DBBackend)
	}

	database, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, err
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := RegisterCallbacks(database); err != nil {
		return nil, fmt.Errorf("register telemetry callbacks: %w", err)
	}
	return database, nil
}

// Migrate applies the schema owned by internal/persist and
// internal/autodj — the only two GORM-backed packages in this module,
// per spec.md §1's media-library/scheduling-store non-goals.
func Migrate(database *gorm.DB) error {
	if err := persist.Migrate(database); err != nil {
		return err
	}
	return autodj.Migrate(database)
}

// Close releases database resources.
func Close(database *gorm.DB) error {
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
