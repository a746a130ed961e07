package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/reconcile/internal/api"
	"github.com/Veraticus/reconcile/internal/config"
	"github.com/Veraticus/reconcile/internal/pipeline"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Start the reconciliation HTTP API.

Uploads are processed into temporary sessions that expire after session.ttl.
Sessions can be reviewed over the API and transferred into permanent storage.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	cmd.Flags().String("session-backend", "", "session store backend (memory, sqlite)")

	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("session.backend", cmd.Flags().Lookup("session-backend"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	envFile, _ := cmd.Flags().GetString("env-file")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st, err := initStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	server := api.NewServer(newPipeline(cfg, nil, pipeline.WithHistory(st.records)), st.sessions, st.records, api.Options{
		MaxUploadBytes: cfg.Upload.MaxBytes,
		SessionTTL:     cfg.Session.TTL,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
