// Package testutil provides shared fixtures for tests across packages.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/reconcile/internal/model"
	"github.com/Veraticus/reconcile/internal/storage"
)

// TestDB is a migrated in-memory database scoped to one test.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database.
// It automatically handles migrations and cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustGetReconciliation loads a stored record or fails the test.
func (db *TestDB) MustGetReconciliation(id string) *model.Reconciliation {
	db.t.Helper()
	rec, err := db.Storage.GetReconciliation(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to load reconciliation %q: %v", id, err)
	}
	return rec
}
