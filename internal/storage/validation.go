// Package storage provides the permanent persistence layer for reconciliations.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/reconcile/internal/model"
)

// Validation errors.
var (
	ErrNilContext            = errors.New("context cannot be nil")
	ErrEmptyString           = errors.New("string parameter cannot be empty")
	ErrNilParameter          = errors.New("parameter cannot be nil")
	ErrInvalidTransaction    = errors.New("invalid transaction")
	ErrInvalidReconciliation = errors.New("invalid reconciliation")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.Date == "" {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if txn.Amount.IsZero() {
		return fmt.Errorf("%w: zero amount", ErrInvalidTransaction)
	}
	return nil
}

// validateReconciliation validates a record and every transaction in it.
func validateReconciliation(rec *model.Reconciliation) error {
	if rec == nil {
		return fmt.Errorf("%w: reconciliation", ErrNilParameter)
	}
	if strings.TrimSpace(rec.UserID) == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidReconciliation)
	}
	if strings.TrimSpace(rec.SessionID) == "" {
		return fmt.Errorf("%w: missing session ID", ErrInvalidReconciliation)
	}
	for i := range rec.Transactions {
		if err := validateTransaction(&rec.Transactions[i].Transaction); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}
