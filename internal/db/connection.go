package db

import (
	"errors"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// Open opens (creating if needed) the gateway database at path and syncs
// the schema. The connection pool is pinned to a single connection; sqlite
// serializes writers anyway.
func Open(path string) (*gorm.DB, error) {
	gdb, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := SyncSchema(gdb); err != nil {
		if sqlDB, dbErr := gdb.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return gdb, nil
}

func openSQLite(path string) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	gdb, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := gdb.Exec(`PRAGMA journal_mode=WAL;`).Error; err != nil {
		return nil, err
	}
	if err := gdb.Exec(`PRAGMA busy_timeout=5000;`).Error; err != nil {
		return nil, err
	}
	return gdb, nil
}

// SyncSchema creates/updates tables and indexes from models.
func SyncSchema(gdb *gorm.DB) error {
	if gdb == nil {
		return errors.New("db is required")
	}
	if err := gdb.AutoMigrate(&ActivityJournalEntry{}); err != nil {
		return err
	}
	return gdb.Exec(`CREATE INDEX IF NOT EXISTS idx_activity_journal_removed_at ON activity_journal(removed_at DESC);`).Error
}
