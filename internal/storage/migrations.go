package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the user_version Migrate leaves behind.
const ExpectedSchemaVersion = 4

// migration is one schema step. Its statements run in a single transaction
// that also bumps PRAGMA user_version.
type migration struct {
	description string
	statements  []string
	version     int
}

var migrations = []migration{
	{
		version:     1,
		description: "Initial reconciliation schema",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS reconciliations (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				session_id TEXT NOT NULL,
				file_name TEXT,
				source TEXT NOT NULL,
				total_transactions INTEGER NOT NULL DEFAULT 0,
				duplicates_found INTEGER NOT NULL DEFAULT 0,
				unmatched_count INTEGER NOT NULL DEFAULT 0,
				matches_found INTEGER NOT NULL DEFAULT 0,
				time_saved REAL NOT NULL DEFAULT 0,
				time_saved_unit TEXT,
				processed_at DATETIME NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS reconciliation_transactions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				reconciliation_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				external_id TEXT NOT NULL,
				amount TEXT NOT NULL,
				description TEXT NOT NULL,
				transaction_date TEXT NOT NULL,
				transaction_type TEXT NOT NULL,
				reference TEXT,
				category TEXT,
				is_duplicate INTEGER NOT NULL DEFAULT 0,
				is_unmatched INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (reconciliation_id) REFERENCES reconciliations(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX idx_reconciliation_transactions_reconciliation ON reconciliation_transactions(reconciliation_id)`,
		},
	},
	{
		version:     2,
		description: "Add durable temporary session store",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS temporary_sessions (
				id TEXT PRIMARY KEY,
				payload TEXT NOT NULL,
				expires_at INTEGER NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX idx_temporary_sessions_expires ON temporary_sessions(expires_at)`,
		},
	},
	{
		version:     3,
		description: "Track accepted matches and per-user listing",
		statements: []string{
			`ALTER TABLE reconciliation_transactions ADD COLUMN matched_book_id TEXT`,
			`CREATE INDEX IF NOT EXISTS idx_reconciliations_user ON reconciliations(user_id, created_at)`,
		},
	},
	{
		version:     4,
		description: "Index stored transactions by user for re-import checks",
		statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_reconciliation_transactions_user ON reconciliation_transactions(user_id)`,
		},
	},
}

// Migrate brings the schema up to ExpectedSchemaVersion.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return err
		}
		slog.Info("Applied migration", "version", m.version, "description", m.description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

func (s *SQLiteStorage) apply(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return tx.Commit()
}
