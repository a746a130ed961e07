// Package session implements the temporary result stores that hold a
// processed upload until it expires or is transferred.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/reconcile/internal/model"
)

// DefaultSweepInterval is how often expired entries are evicted in the background.
const DefaultSweepInterval = 10 * time.Minute

type options struct {
	now           func() time.Time
	sweepInterval time.Duration
}

// Option configures a store.
type Option func(*options)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSweepInterval sets the background eviction interval. Zero or negative
// disables the background sweep; expired entries are still removed on Put and Get.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) { o.sweepInterval = d }
}

func newOptions(opts []Option) options {
	o := options{now: time.Now, sweepInterval: DefaultSweepInterval}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// sweeper runs fn every interval until stop is closed.
func sweeper(interval time.Duration, stop <-chan struct{}, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn()
		case <-stop:
			return
		}
	}
}

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func encode(result *model.SessionResult) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("session result cannot be nil")
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*model.SessionResult, error) {
	var result model.SessionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &result, nil
}
