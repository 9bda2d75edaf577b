// Package store holds the insert-only clients for the hosted lead store.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	DriverREST     = "rest"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var (
	ErrEmptyTable = errors.New("table name is required")
	ErrEmptyRow   = errors.New("row has no columns")
)

// Row maps column names to values for a single insert.
type Row map[string]any

// Columns returns the column names in a stable order.
func (r Row) Columns() []string {
	columns := make([]string, 0, len(r))
	for column := range r {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

// Inserter performs exactly one write per call. Implementations never read, update or delete.
type Inserter interface {
	Insert(ctx context.Context, table string, row Row) error
}

// StoreError is a rejection reported by the store itself, as opposed to a transport failure.
type StoreError struct {
	Table      string
	StatusCode int
	Message    string
}

func (e *StoreError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("store rejected insert into %q: status %d: %s", e.Table, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("store rejected insert into %q: %s", e.Table, e.Message)
}

func checkInsert(table string, row Row) error {
	if strings.TrimSpace(table) == "" {
		return ErrEmptyTable
	}
	if len(row) == 0 {
		return ErrEmptyRow
	}
	return nil
}

type placeholderFunc func(position int) string

// buildInsertSQL renders a parameterised INSERT with quoted identifiers.
// Table names such as "Request Form" contain spaces, so every identifier is quoted.
func buildInsertSQL(table string, row Row, placeholder placeholderFunc) (string, []any) {
	columns := row.Columns()
	quoted := make([]string, 0, len(columns))
	marks := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for index, column := range columns {
		quoted = append(quoted, quoteIdentifier(column))
		marks = append(marks, placeholder(index+1))
		args = append(args, row[column])
	}

	statement := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentifier(table),
		strings.Join(quoted, ", "),
		strings.Join(marks, ", "),
	)
	return statement, args
}

func quoteIdentifier(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}
