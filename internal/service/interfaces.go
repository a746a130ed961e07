// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/reconcile/internal/model"
)

// RecordStore defines the contract for permanent reconciliation storage.
type RecordStore interface {
	// SaveReconciliation stores the record and its transactions atomically
	// and returns the new record id.
	SaveReconciliation(ctx context.Context, rec *model.Reconciliation) (string, error)
	GetReconciliation(ctx context.Context, id string) (*model.Reconciliation, error)
	// ListReconciliations returns a user's records, newest first, without
	// their transactions.
	ListReconciliations(ctx context.Context, userID string) ([]model.Reconciliation, error)
	TransactionHistory

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// TransactionHistory looks up what a user has already reconciled.
type TransactionHistory interface {
	// ListUserTransactions returns every transaction stored for userID
	// across all of their reconciliations.
	ListUserTransactions(ctx context.Context, userID string) ([]model.Transaction, error)
}

// SessionStore holds session results until they expire or are transferred.
type SessionStore interface {
	// Put stores result under id for ttl, replacing any previous entry.
	Put(ctx context.Context, id string, result *model.SessionResult, ttl time.Duration) error
	// Update replaces the result under id and keeps its original deadline.
	Update(ctx context.Context, id string, result *model.SessionResult) error
	// Get returns common.ErrSessionNotFound for unknown ids and
	// common.ErrSessionExpired, removing the entry, once the deadline passed.
	Get(ctx context.Context, id string) (*model.SessionResult, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
