// Package storetest provides an in-memory Inserter for service and handler tests.
package storetest

import (
	"context"
	"sync"

	"github.com/dontwait/dontwait/internal/store"
)

type Insert struct {
	Table string
	Row   store.Row
}

// Recording remembers every insert and returns Err (when set) instead of succeeding.
// Block, when non-nil, holds each call until it is closed or the context ends.
type Recording struct {
	mu      sync.Mutex
	inserts []Insert
	err     error

	Block   chan struct{}
	Started chan struct{}
}

func NewRecording() *Recording {
	return &Recording{}
}

func (r *Recording) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recording) Insert(ctx context.Context, table string, row store.Row) error {
	if r.Started != nil {
		select {
		case r.Started <- struct{}{}:
		default:
		}
	}
	if r.Block != nil {
		select {
		case <-r.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	copied := make(store.Row, len(row))
	for column, value := range row {
		copied[column] = value
	}
	r.inserts = append(r.inserts, Insert{Table: table, Row: copied})
	return nil
}

func (r *Recording) Inserts() []Insert {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Insert, len(r.inserts))
	copy(result, r.inserts)
	return result
}

func (r *Recording) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inserts)
}
