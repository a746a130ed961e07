package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/reconcile/internal/common"
	"github.com/Veraticus/reconcile/internal/model"
	"github.com/Veraticus/reconcile/internal/service"
)

var _ service.RecordStore = (*SQLiteStorage)(nil)

// SaveReconciliation writes the record and one row per transaction in a
// single database transaction.
func (s *SQLiteStorage) SaveReconciliation(ctx context.Context, rec *model.Reconciliation) (string, error) {
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reconciliations (
			id, user_id, session_id, file_name, source,
			total_transactions, duplicates_found, unmatched_count, matches_found,
			time_saved, time_saved_unit, processed_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.UserID, rec.SessionID, rec.FileName, string(rec.Source),
		rec.Summary.TotalTransactions, rec.Summary.DuplicatesFound,
		rec.Summary.UnmatchedCount, rec.Summary.MatchesFound,
		rec.Summary.TimeSaved, rec.Summary.TimeSavedUnit,
		rec.ProcessedAt.UTC(), createdAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert reconciliation: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reconciliation_transactions (
			reconciliation_id, user_id, external_id, amount, description,
			transaction_date, transaction_type, reference, category,
			is_duplicate, is_unmatched, matched_book_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, txn := range rec.Transactions {
		txnType := txn.Type
		if txnType == "" {
			txnType = model.TypeUnknown
		}
		_, err = stmt.ExecContext(ctx,
			id, rec.UserID, txn.ID, txn.Amount.String(), txn.Description,
			txn.Date, string(txnType), txn.Reference, txn.Category,
			txn.IsDuplicate, txn.IsUnmatched, nullString(txn.MatchedBookID),
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit reconciliation: %w", err)
	}

	rec.ID = id
	rec.CreatedAt = createdAt
	return id, nil
}

// GetReconciliation loads a record with its transactions.
func (s *SQLiteStorage) GetReconciliation(ctx context.Context, id string) (*model.Reconciliation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, session_id, COALESCE(file_name, ''), source,
			total_transactions, duplicates_found, unmatched_count, matches_found,
			time_saved, COALESCE(time_saved_unit, ''), processed_at, created_at
		FROM reconciliations WHERE id = ?`, id)

	rec, err := scanReconciliation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reconciliation %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT external_id, amount, description, transaction_date, transaction_type,
			COALESCE(reference, ''), COALESCE(category, ''),
			is_duplicate, is_unmatched, COALESCE(matched_book_id, '')
		FROM reconciliation_transactions
		WHERE reconciliation_id = ?
		ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

// ListReconciliations returns a user's records, newest first.
func (s *SQLiteStorage) ListReconciliations(ctx context.Context, userID string) ([]model.Reconciliation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, session_id, COALESCE(file_name, ''), source,
			total_transactions, duplicates_found, unmatched_count, matches_found,
			time_saved, COALESCE(time_saved_unit, ''), processed_at, created_at
		FROM reconciliations
		WHERE user_id = ?
		ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reconciliations: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

// ListUserTransactions returns every transaction stored for userID, oldest
// first. Only the fields that identify a transaction are loaded.
func (s *SQLiteStorage) ListUserTransactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT external_id, amount, description, transaction_date, transaction_type
		FROM reconciliation_transactions
		WHERE user_id = ?
		ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanHistory(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

// rowIterator is satisfied by both *sql.Rows and pgx.Rows.
type rowIterator interface {
	scanner
	Next() bool
	Err() error
}

func scanHistory(rows rowIterator) ([]model.Transaction, error) {
	var out []model.Transaction
	for rows.Next() {
		var (
			txn    model.Transaction
			amount string
			typ    string
		)
		if err := rows.Scan(&txn.ID, &amount, &txn.Description, &txn.Date, &typ); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
		}
		txn.Amount = parsed
		txn.Type = model.TransactionType(typ)
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return out, nil
}

func scanReconciliation(row scanner) (*model.Reconciliation, error) {
	var (
		rec    model.Reconciliation
		source string
	)
	err := row.Scan(&rec.ID, &rec.UserID, &rec.SessionID, &rec.FileName, &source,
		&rec.Summary.TotalTransactions, &rec.Summary.DuplicatesFound,
		&rec.Summary.UnmatchedCount, &rec.Summary.MatchesFound,
		&rec.Summary.TimeSaved, &rec.Summary.TimeSavedUnit,
		&rec.ProcessedAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan reconciliation: %w", err)
	}
	rec.Source = model.ResultSource(source)
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
