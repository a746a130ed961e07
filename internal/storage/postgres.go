package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/reconcile/internal/common"
	"github.com/Veraticus/reconcile/internal/model"
	"github.com/Veraticus/reconcile/internal/service"
)

//go:embed postgres_migrations/*.sql
var postgresMigrationsFS embed.FS

var _ service.RecordStore = (*PostgresStorage)(nil)

// PostgresStorage implements RecordStore on PostgreSQL for hosted deployments.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects to the database at dsn.
func NewPostgresStorage(ctx context.Context, dsn string) (*PostgresStorage, error) {
	if err := validateString(dsn, "dsn"); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

// Close closes the connection pool.
func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

// Migrate applies embedded SQL migrations in filename order, recording each
// in schema_migrations.
func (p *PostgresStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	entries, err := postgresMigrationsFS.ReadDir("postgres_migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, filename := range files {
		var exists bool
		err := p.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
			filename,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if exists {
			continue
		}

		content, err := postgresMigrationsFS.ReadFile("postgres_migrations/" + filename)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", filename)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", filename, err)
		}

		slog.Info("Applied migration", "version", filename)
	}

	return nil
}

// SaveReconciliation writes the record and its transactions in one
// transaction, sending the transaction rows as a single batch.
func (p *PostgresStorage) SaveReconciliation(ctx context.Context, rec *model.Reconciliation) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateReconciliation(rec); err != nil {
		return "", err
	}

	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO reconciliations (
				id, user_id, session_id, file_name, source,
				total_transactions, duplicates_found, unmatched_count, matches_found,
				time_saved, time_saved_unit, processed_at, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			id, rec.UserID, rec.SessionID, rec.FileName, string(rec.Source),
			rec.Summary.TotalTransactions, rec.Summary.DuplicatesFound,
			rec.Summary.UnmatchedCount, rec.Summary.MatchesFound,
			rec.Summary.TimeSaved, rec.Summary.TimeSavedUnit,
			rec.ProcessedAt, createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert reconciliation: %w", err)
		}

		batch := &pgx.Batch{}
		for _, txn := range rec.Transactions {
			txnType := txn.Type
			if txnType == "" {
				txnType = model.TypeUnknown
			}
			batch.Queue(`
				INSERT INTO reconciliation_transactions (
					reconciliation_id, user_id, external_id, amount, description,
					transaction_date, transaction_type, reference, category,
					is_duplicate, is_unmatched, matched_book_id
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''))`,
				id, rec.UserID, txn.ID, txn.Amount.String(), txn.Description,
				txn.Date, string(txnType), txn.Reference, txn.Category,
				txn.IsDuplicate, txn.IsUnmatched, txn.MatchedBookID,
			)
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("failed to insert transactions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	rec.ID = id
	rec.CreatedAt = createdAt
	return id, nil
}

// GetReconciliation loads a record with its transactions.
func (p *PostgresStorage) GetReconciliation(ctx context.Context, id string) (*model.Reconciliation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := p.pool.QueryRow(ctx, `
		SELECT id, user_id, session_id, COALESCE(file_name, ''), source,
			total_transactions, duplicates_found, unmatched_count, matches_found,
			time_saved, COALESCE(time_saved_unit, ''), processed_at, created_at
		FROM reconciliations WHERE id = $1`, id)

	rec, err := scanReconciliation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reconciliation %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT external_id, amount::text, description, transaction_date, transaction_type,
			COALESCE(reference, ''), COALESCE(category, ''),
			is_duplicate, is_unmatched, COALESCE(matched_book_id, '')
		FROM reconciliation_transactions
		WHERE reconciliation_id = $1
		ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			txn    model.ReconciledTransaction
			amount string
			typ    string
		)
		if err := rows.Scan(&txn.ID, &amount, &txn.Description, &txn.Date, &typ,
			&txn.Reference, &txn.Category, &txn.IsDuplicate, &txn.IsUnmatched, &txn.MatchedBookID); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
		}
		txn.Type = model.TransactionType(typ)
		rec.Transactions = append(rec.Transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return rec, nil
}

// ListUserTransactions returns every transaction stored for userID, oldest
// first.
func (p *PostgresStorage) ListUserTransactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT external_id, amount::text, description, transaction_date, transaction_type
		FROM reconciliation_transactions
		WHERE user_id = $1
		ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user transactions: %w", err)
	}
	defer rows.Close()

	return scanHistory(rows)
}

// ListReconciliations returns a user's records, newest first.
func (p *PostgresStorage) ListReconciliations(ctx context.Context, userID string) ([]model.Reconciliation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, user_id, session_id, COALESCE(file_name, ''), source,
			total_transactions, duplicates_found, unmatched_count, matches_found,
			time_saved, COALESCE(time_saved_unit, ''), processed_at, created_at
		FROM reconciliations
		WHERE user_id = $1
		ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reconciliations: %w", err)
	}
	defer rows.Close()

	var out []model.Reconciliation
	for rows.Next() {
		rec, err := scanReconciliation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reconciliations: %w", err)
	}
	return out, nil
}
