package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/reconcile/internal/config"
	"github.com/Veraticus/reconcile/internal/ingest"
	"github.com/Veraticus/reconcile/internal/match"
	"github.com/Veraticus/reconcile/internal/pipeline"
	"github.com/Veraticus/reconcile/internal/service"
	"github.com/Veraticus/reconcile/internal/session"
	"github.com/Veraticus/reconcile/internal/storage"
)

// stores bundles the storage handles opened for a command.
type stores struct {
	records  service.RecordStore
	sessions service.SessionStore
	sqlite   *storage.SQLiteStorage
}

func (s *stores) Close() {
	if s.sessions != nil {
		_ = s.sessions.Close()
	}
	if s.records != nil {
		_ = s.records.Close()
	}
	// The SQLite handle may back both stores.
	if s.sqlite != nil && s.records != service.RecordStore(s.sqlite) {
		_ = s.sqlite.Close()
	}
}

// initRecordStore opens and migrates permanent storage.
func initRecordStore(ctx context.Context, cfg *config.Config) (service.RecordStore, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		store, err := storage.NewPostgresStorage(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return store, nil
	default:
		return openSQLite(ctx, cfg.Database.Path)
	}
}

func openSQLite(ctx context.Context, path string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(config.ExpandPath(path))
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// initStores opens permanent storage and the configured session store.
func initStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	records, err := initRecordStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &stores{records: records}

	opts := []session.Option{session.WithSweepInterval(cfg.Session.SweepInterval)}
	switch cfg.Session.Backend {
	case config.BackendSQLite:
		db, ok := records.(*storage.SQLiteStorage)
		if !ok {
			db, err = openSQLite(ctx, cfg.Database.Path)
			if err != nil {
				s.Close()
				return nil, err
			}
		}
		s.sqlite = db
		s.sessions = session.NewSQLiteStore(db, opts...)
	default:
		s.sessions = session.NewMemoryStore(opts...)
	}

	slog.Info("Storage ready",
		"database", cfg.Database.Driver,
		"sessions", cfg.Session.Backend)
	return s, nil
}

// newPipeline builds a pipeline from the match and session settings.
func newPipeline(cfg *config.Config, progress match.ProgressFunc, extra ...pipeline.Option) *pipeline.Pipeline {
	engine := match.NewEngine()
	engine.Threshold = cfg.Match.Threshold
	engine.MaxPairs = cfg.Match.MaxPairs
	engine.Progress = progress
	opts := append([]pipeline.Option{pipeline.WithEngine(engine), pipeline.WithTTL(cfg.Session.TTL)}, extra...)
	return pipeline.New(opts...)
}

// readUpload validates and reads a file from disk the same way the HTTP
// upload path does.
func readUpload(path string, maxBytes int64) (pipeline.Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return pipeline.Upload{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if _, err := ingest.DetectWithLimit(path, info.Size(), maxBytes); err != nil {
		return pipeline.Upload{}, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return pipeline.Upload{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return pipeline.Upload{FileName: path, Data: data}, nil
}
