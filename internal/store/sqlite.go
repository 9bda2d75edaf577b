package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// SQLiteStore writes leads into the local database opened by db.OpenSQLite.
// It is meant for development and tests, where no hosted backend is reachable.
type SQLiteStore struct {
	database *gorm.DB
}

func NewSQLiteStore(database *gorm.DB) (*SQLiteStore, error) {
	if database == nil {
		return nil, errors.New("sqlite database is required")
	}
	return &SQLiteStore{database: database}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, table string, row Row) error {
	if err := checkInsert(table, row); err != nil {
		return err
	}
	statement, args := buildInsertSQL(table, row, sqlitePlaceholder)
	if err := s.database.WithContext(ctx).Exec(statement, args...).Error; err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.database.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func sqlitePlaceholder(int) string {
	return "?"
}
