// Package db opens the local SQLite lead store and keeps its schema current.
package db

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	embeddedmigrations "github.com/dontwait/dontwait/migrations"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenSQLite opens (creating if needed) the database at dbPath and applies embedded migrations.
func OpenSQLite(dbPath string) (*gorm.DB, error) {
	database, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := runMigrations(database, embeddedmigrations.Files); err != nil {
		closeDatabase(database)
		return nil, fmt.Errorf("apply embedded migrations: %w", err)
	}
	return database, nil
}

// Migrate applies pending migrations and returns the file names applied by this call.
func Migrate(dbPath string) ([]string, error) {
	database, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	defer closeDatabase(database)

	applied, err := runMigrations(database, embeddedmigrations.Files)
	if err != nil {
		return applied, fmt.Errorf("apply embedded migrations: %w", err)
	}
	return applied, nil
}

func openSQLite(dbPath string) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=5000", dbPath)
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormlogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return database, nil
}

func closeDatabase(database *gorm.DB) {
	sqlDB, err := database.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}
