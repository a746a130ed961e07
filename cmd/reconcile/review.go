package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/reconcile/internal/cli"
	"github.com/Veraticus/reconcile/internal/config"
	"github.com/Veraticus/reconcile/internal/model"
	"github.com/Veraticus/reconcile/internal/pipeline"
	"github.com/Veraticus/reconcile/internal/service"
	"github.com/Veraticus/reconcile/internal/tui"
	"github.com/Veraticus/reconcile/internal/tui/themes"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review BANK_FILE",
		Short: "Review duplicates and match candidates interactively",
		Long: `Process a statement and open an interactive review screen.

Accept or reject match candidates and clear duplicate flags. With --user,
rows already saved for that user are flagged as previously imported and the
reviewed result is saved to permanent storage when you quit.`,
		Args: cobra.ExactArgs(1),
		RunE: runReview,
	}

	cmd.Flags().String("book", "", "bookkeeping export to match against")
	cmd.Flags().String("user", "", "save the reviewed result for this user")
	cmd.Flags().String("theme", "default", "color theme (default, catppuccin)")
	cmd.Flags().Bool("multi-month", false, "read the statement as a multi-month ledger")

	return cmd
}

func runReview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	bank, err := readUpload(args[0], cfg.Upload.MaxBytes)
	if err != nil {
		return err
	}
	bank.MultiMonth, _ = cmd.Flags().GetBool("multi-month")

	var book *pipeline.Upload
	if path, _ := cmd.Flags().GetString("book"); path != "" {
		upload, err := readUpload(path, cfg.Upload.MaxBytes)
		if err != nil {
			return err
		}
		book = &upload
	}

	userID, _ := cmd.Flags().GetString("user")
	var records service.RecordStore
	if userID != "" {
		records, err = initRecordStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = records.Close() }()
	}

	p := newPipeline(cfg, nil, pipeline.WithHistory(records))
	result, err := p.ProcessForUser(ctx, userID, bank, book)
	if err != nil {
		return err
	}

	themeName, _ := cmd.Flags().GetString("theme")
	reviewed, err := tui.Run(ctx, p, result, themes.ByName(themeName))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.RenderSummary(reviewed))

	if records == nil {
		return nil
	}

	id, err := records.SaveReconciliation(ctx, model.NewReconciliation(reviewed, userID, time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save reconciliation: %w", err)
	}

	slog.Info("Saved reconciliation", "id", id, "user", userID)
	fmt.Fprintln(out, cli.FormatSuccess("Saved reconciliation "+id))
	return nil
}
