package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dontwait/dontwait/internal/db"
)

func TestSQLiteStoreInsertWritesIntoSpacedTable(t *testing.T) {
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "leads.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqliteStore, err := NewSQLiteStore(database)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	t.Cleanup(func() {
		_ = sqliteStore.Close()
	})

	row := Row{
		"Name":      "Maria",
		"Email":     "m@x.gr",
		"Type":      "salon",
		"Packets":   "pro",
		"createdat": "2026-01-02T03:04:05Z",
	}
	if err := sqliteStore.Insert(context.Background(), "Request Form", row); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	var stored struct {
		Name    string `gorm:"column:Name"`
		Packets string `gorm:"column:Packets"`
	}
	if err := database.Raw(`SELECT "Name", "Packets" FROM "Request Form"`).Scan(&stored).Error; err != nil {
		t.Fatalf("load stored row: %v", err)
	}
	if stored.Name != "Maria" || stored.Packets != "pro" {
		t.Fatalf("stored row = %+v, want Maria/pro", stored)
	}
}

func TestSQLiteStoreInsertSurfacesUnknownTable(t *testing.T) {
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "leads.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqliteStore, err := NewSQLiteStore(database)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	t.Cleanup(func() {
		_ = sqliteStore.Close()
	})

	if err := sqliteStore.Insert(context.Background(), "missing_table", Row{"a": "b"}); err == nil {
		t.Fatal("expected insert into missing table to fail")
	}
}
