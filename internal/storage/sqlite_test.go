package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/reconcile/internal/common"
	"github.com/Veraticus/reconcile/internal/model"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func createTestReconciliation(userID string, count int) *model.Reconciliation {
	txns := make([]model.ReconciledTransaction, count)
	for i := 0; i < count; i++ {
		txns[i] = model.ReconciledTransaction{
			Transaction: model.Transaction{
				ID:          "txn_" + string(rune('a'+i)),
				Amount:      decimal.NewFromFloat(-10.25).Sub(decimal.NewFromInt(int64(i))),
				Description: "Payment " + string(rune('A'+i)),
				Date:        "2024-03-0" + string(rune('1'+i%9)),
				Type:        model.TypeDebit,
				Category:    "Office",
			},
		}
	}
	if count > 0 {
		txns[0].IsUnmatched = true
	}
	if count > 1 {
		txns[1].MatchedBookID = "book_1"
	}

	return &model.Reconciliation{
		UserID:       userID,
		SessionID:    "session_test",
		FileName:     "march.csv",
		Source:       model.ResultCSV,
		ProcessedAt:  time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC),
		Transactions: txns,
		Summary: model.Summary{
			TotalTransactions: count,
			UnmatchedCount:    1,
			MatchesFound:      1,
			TimeSaved:         float64(count) * 0.5 / 60,
			TimeSavedUnit:     model.UnitHours,
		},
	}
}

func TestNewSQLiteStorage(t *testing.T) {
	t.Run("creates nested directory", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "nested", "dir", "reconcile.db")
		store, err := NewSQLiteStorage(dbPath)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		assert.Equal(t, dbPath, store.Path())
	})

	t.Run("in-memory database", func(t *testing.T) {
		store, err := NewSQLiteStorage(":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		require.NoError(t, store.Migrate(context.Background()))
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := NewSQLiteStorage("")
		assert.ErrorIs(t, err, ErrEmptyString)
	})
}

func TestMigrate(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))
	version, err = store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestSaveAndGetReconciliation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	rec := createTestReconciliation("user-1", 3)
	id, err := store.SaveReconciliation(ctx, rec)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := store.GetReconciliation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "session_test", got.SessionID)
	assert.Equal(t, "march.csv", got.FileName)
	assert.Equal(t, model.ResultCSV, got.Source)
	assert.Equal(t, 3, got.Summary.TotalTransactions)
	assert.Equal(t, model.UnitHours, got.Summary.TimeSavedUnit)
	assert.True(t, got.ProcessedAt.Equal(rec.ProcessedAt))

	require.Len(t, got.Transactions, 3)
	first := got.Transactions[0]
	assert.Equal(t, "txn_a", first.ID)
	assert.True(t, first.Amount.Equal(decimal.RequireFromString("-10.25")), first.Amount.String())
	assert.Equal(t, model.TypeDebit, first.Type)
	assert.Equal(t, "Office", first.Category)
	assert.True(t, first.IsUnmatched)
	assert.False(t, first.IsDuplicate)
	assert.Equal(t, "book_1", got.Transactions[1].MatchedBookID)
	assert.Empty(t, got.Transactions[2].MatchedBookID)
}

func TestSaveReconciliationKeepsExplicitID(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	rec := createTestReconciliation("user-1", 1)
	rec.ID = "rec-fixed"
	id, err := store.SaveReconciliation(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "rec-fixed", id)
}

func TestSaveReconciliationRollsBackOnInvalidTransaction(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	rec := createTestReconciliation("user-1", 2)
	rec.Transactions[1].Amount = decimal.Zero

	_, err := store.SaveReconciliation(ctx, rec)
	require.ErrorIs(t, err, ErrInvalidTransaction)

	list, err := store.ListReconciliations(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetReconciliationNotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.GetReconciliation(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListReconciliations(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	older := createTestReconciliation("user-1", 1)
	older.CreatedAt = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	newer := createTestReconciliation("user-1", 2)
	newer.CreatedAt = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	other := createTestReconciliation("user-2", 1)

	for _, rec := range []*model.Reconciliation{older, newer, other} {
		_, err := store.SaveReconciliation(ctx, rec)
		require.NoError(t, err)
	}

	list, err := store.ListReconciliations(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
	assert.Empty(t, list[0].Transactions, "listing returns headers only")
}

func TestSessionRows(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	deadline := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.PutSession(ctx, "session_1", []byte(`{"a":1}`), deadline))

	payload, expiresAt, err := store.GetSession(ctx, "session_1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(payload))
	assert.True(t, expiresAt.Equal(deadline))

	require.NoError(t, store.UpdateSessionPayload(ctx, "session_1", []byte(`{"a":2}`)))
	payload, expiresAt, err = store.GetSession(ctx, "session_1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(payload))
	assert.True(t, expiresAt.Equal(deadline), "update keeps the deadline")

	err = store.UpdateSessionPayload(ctx, "session_2", []byte(`{}`))
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, store.DeleteSession(ctx, "session_1"))
	_, _, err = store.GetSession(ctx, "session_1")
	assert.ErrorIs(t, err, common.ErrNotFound)
	require.NoError(t, store.DeleteSession(ctx, "session_1"))
}

func TestDeleteExpiredSessions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.PutSession(ctx, "old", []byte(`{}`), now.Add(-time.Minute)))
	require.NoError(t, store.PutSession(ctx, "fresh", []byte(`{}`), now.Add(time.Hour)))

	n, err := store.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, _, err = store.GetSession(ctx, "fresh")
	assert.NoError(t, err)
	_, _, err = store.GetSession(ctx, "old")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListUserTransactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.SaveReconciliation(ctx, createTestReconciliation("user_1", 2))
	require.NoError(t, err)
	_, err = store.SaveReconciliation(ctx, createTestReconciliation("user_2", 3))
	require.NoError(t, err)

	txns, err := store.ListUserTransactions(ctx, "user_1")
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, "txn_a", txns[0].ID)
	assert.Equal(t, "2024-03-01", txns[0].Date)
	assert.Equal(t, "Payment A", txns[0].Description)
	assert.Equal(t, model.TypeDebit, txns[0].Type)
	assert.True(t, decimal.RequireFromString("-11.25").Equal(txns[1].Amount))

	none, err := store.ListUserTransactions(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = store.ListUserTransactions(ctx, " ")
	assert.ErrorIs(t, err, ErrEmptyString)
}
