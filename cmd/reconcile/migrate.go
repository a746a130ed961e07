package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/reconcile/internal/cli"
	"github.com/Veraticus/reconcile/internal/config"
	"github.com/Veraticus/reconcile/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Uses database.driver to pick SQLite (database.path) or PostgreSQL (database.dsn).`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current SQLite schema version without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetBool("status")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if status {
		if cfg.Database.Driver != config.DriverSQLite {
			return fmt.Errorf("--status is only supported for sqlite")
		}
		store, err := storage.NewSQLiteStorage(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = store.Close() }()

		version, err := store.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Database: %s\nCurrent version: %d\nLatest version: %d\n",
			cfg.Database.Path, version, storage.ExpectedSchemaVersion)
		return nil
	}

	slog.Info("Starting database migration", "driver", cfg.Database.Driver)

	records, err := initRecordStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer func() { _ = records.Close() }()

	fmt.Fprintln(out, cli.FormatSuccess("Database migrations completed successfully!"))
	return nil
}
