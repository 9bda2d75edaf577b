package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DefaultMaxConns        = 10
	DefaultConnMaxLifetime = 5 * time.Minute
)

// PostgresStore writes directly into the hosted Postgres database behind the REST API.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("store dsn is required")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse store dsn: %w", err)
	}
	config.MaxConns = DefaultMaxConns
	config.MaxConnLifetime = DefaultConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Insert(ctx context.Context, table string, row Row) error {
	if err := checkInsert(table, row); err != nil {
		return err
	}
	statement, args := buildInsertSQL(table, row, postgresPlaceholder)
	if _, err := s.pool.Exec(ctx, statement, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func postgresPlaceholder(position int) string {
	return "$" + strconv.Itoa(position)
}
