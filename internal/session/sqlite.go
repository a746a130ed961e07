package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/reconcile/internal/common"
	"github.com/Veraticus/reconcile/internal/model"
	"github.com/Veraticus/reconcile/internal/service"
	"github.com/Veraticus/reconcile/internal/storage"
)

var _ service.SessionStore = (*SQLiteStore)(nil)

// SQLiteStore implements SessionStore on the temporary_sessions table, so
// sessions survive a restart. It does not own the database handle.
type SQLiteStore struct {
	db       *storage.SQLiteStorage
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSQLiteStore creates a store backed by db, which must already be migrated.
func NewSQLiteStore(db *storage.SQLiteStorage, opts ...Option) *SQLiteStore {
	o := newOptions(opts)
	store := &SQLiteStore{
		db:     db,
		now:    o.now,
		stopCh: make(chan struct{}),
	}

	if o.sweepInterval > 0 {
		go sweeper(o.sweepInterval, store.stopCh, func() {
			if err := store.sweep(context.Background()); err != nil {
				slog.Warn("Session sweep failed", "error", err)
			}
		})
	}

	return store
}

// Put stores result under id until now+ttl, evicting expired rows first.
func (s *SQLiteStore) Put(ctx context.Context, id string, result *model.SessionResult, ttl time.Duration) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("session ID is required")
	}
	payload, err := encode(result)
	if err != nil {
		return err
	}

	if err := s.sweep(ctx); err != nil {
		slog.Warn("Session sweep failed", "error", err)
	}
	return s.db.PutSession(ctx, id, payload, s.now().Add(ttl))
}

// Update replaces the stored result and keeps the original deadline.
func (s *SQLiteStore) Update(ctx context.Context, id string, result *model.SessionResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	payload, err := encode(result)
	if err != nil {
		return err
	}

	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.db.UpdateSessionPayload(ctx, id, payload); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("session %s: %w", id, common.ErrSessionNotFound)
		}
		return err
	}
	return nil
}

// Get returns the stored result, deleting it if it has expired.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.SessionResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	payload, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return decode(payload)
}

// Delete removes id. Unknown ids are ignored.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.db.DeleteSession(ctx, id)
}

// Close stops the eviction loop. The database stays open.
func (s *SQLiteStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	return nil
}

func (s *SQLiteStore) load(ctx context.Context, id string) ([]byte, error) {
	payload, expiresAt, err := s.db.GetSession(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("session %s: %w", id, common.ErrSessionNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !s.now().Before(expiresAt) {
		if err := s.db.DeleteSession(ctx, id); err != nil {
			slog.Warn("Failed to delete expired session", "session_id", id, "error", err)
		}
		return nil, fmt.Errorf("session %s: %w", id, common.ErrSessionExpired)
	}
	return payload, nil
}

func (s *SQLiteStore) sweep(ctx context.Context) error {
	n, err := s.db.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Debug("Evicted expired sessions", "count", n)
	}
	return nil
}
