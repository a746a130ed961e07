package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/reconcile/internal/common"
	"github.com/Veraticus/reconcile/internal/model"
	"github.com/Veraticus/reconcile/internal/service"
)

var _ service.SessionStore = (*MemoryStore)(nil)

type memoryEntry struct {
	expiresAt time.Time
	payload   []byte
}

// MemoryStore implements SessionStore in process memory.
// Entries are stored encoded so callers never share state with the store.
type MemoryStore struct {
	entries  map[string]memoryEntry
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
	mu       sync.RWMutex
}

// NewMemoryStore creates a store and starts its eviction loop.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := newOptions(opts)
	store := &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     o.now,
		stopCh:  make(chan struct{}),
	}

	if o.sweepInterval > 0 {
		go sweeper(o.sweepInterval, store.stopCh, store.sweep)
	}

	return store
}

// Put stores result under id until now+ttl.
func (s *MemoryStore) Put(ctx context.Context, id string, result *model.SessionResult, ttl time.Duration) error {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)
	s.entries[id] = memoryEntry{payload: payload, expiresAt: now.Add(ttl)}
	return nil
}

// Update replaces the stored result and keeps the original deadline.
func (s *MemoryStore) Update(ctx context.Context, id string, result *model.SessionResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	payload, err := encode(result)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, common.ErrSessionNotFound)
	}
	if s.expired(entry) {
		delete(s.entries, id)
		return fmt.Errorf("session %s: %w", id, common.ErrSessionExpired)
	}
	entry.payload = payload
	s.entries[id] = entry
	return nil
}

// Get returns a copy of the stored result.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.SessionResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, common.ErrSessionNotFound)
	}
	if s.expired(entry) {
		s.mu.Lock()
		if current, still := s.entries[id]; still && s.expired(current) {
			delete(s.entries, id)
		}
		s.mu.Unlock()
		return nil, fmt.Errorf("session %s: %w", id, common.ErrSessionExpired)
	}

	return decode(entry.payload)
}

// Delete removes id. Unknown ids are ignored.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Len reports the number of entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the eviction loop. It is safe to call more than once.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	return nil
}

func (s *MemoryStore) expired(entry memoryEntry) bool {
	return !s.now().Before(entry.expiresAt)
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	removed := 0
	for id, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("Evicted expired sessions", "count", removed)
	}
}
