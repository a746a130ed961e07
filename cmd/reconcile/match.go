package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/reconcile/internal/cli"
	"github.com/Veraticus/reconcile/internal/common"
	"github.com/Veraticus/reconcile/internal/config"
)

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match BANK_FILE BOOK_FILE",
		Short: "Propose matches between a statement and a bookkeeping export",
		Args:  cobra.ExactArgs(2),
		RunE:  runMatch,
	}

	cmd.Flags().Int("threshold", 0, "minimum confidence score (default 70)")
	cmd.Flags().Int64("max-pairs", 0, "refuse inputs with more bank×book pairs than this")
	cmd.Flags().Int("limit", 20, "maximum rows to print per table (0 for all)")
	cmd.Flags().Bool("json", false, "print matches and unmatched transactions as JSON")
	cmd.Flags().Bool("progress", true, "show a progress bar while matching")
	cmd.Flags().Bool("multi-month", false, "read the statement as a multi-month ledger")

	_ = viper.BindPFlag("match.threshold", cmd.Flags().Lookup("threshold"))
	_ = viper.BindPFlag("match.max_pairs", cmd.Flags().Lookup("max-pairs"))

	return cmd
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	bank, err := readUpload(args[0], cfg.Upload.MaxBytes)
	if err != nil {
		return err
	}
	bank.MultiMonth, _ = cmd.Flags().GetBool("multi-month")
	book, err := readUpload(args[1], cfg.Upload.MaxBytes)
	if err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	handler := cli.NewInterruptHandler(errOut, "Matching")
	ctx := handler.HandleInterrupts(cmd.Context())

	p := newPipeline(cfg, nil)
	if showProgress, _ := cmd.Flags().GetBool("progress"); showProgress {
		p = newPipeline(cfg, cli.MatchProgress(errOut))
	}

	result, err := p.Process(ctx, bank, &book)
	if err != nil {
		if handler.WasInterrupted() {
			return nil
		}
		if errors.Is(err, common.ErrTooManyPairs) {
			return common.NewUserError("Too many transactions to compare; raise --max-pairs or split the files.", err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Matches   any `json:"matches"`
			Unmatched any `json:"unmatched"`
			BookOnly  any `json:"bookOnly"`
		}{result.Matches, result.Unmatched, result.BookOnly})
	}

	limit, _ := cmd.Flags().GetInt("limit")
	fmt.Fprintln(out, cli.RenderSummary(result))
	fmt.Fprintln(out, cli.FormatTitle("Match candidates"))
	fmt.Fprintln(out, cli.RenderMatches(result.Matches, limit))
	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.FormatTitle("Unmatched"))
	fmt.Fprintln(out, cli.RenderTransactions(result.Unmatched, limit))
	if len(result.BookOnly) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, cli.FormatTitle("Only in the books"))
		fmt.Fprintln(out, cli.RenderTransactions(result.BookOnly, limit))
	}
	return nil
}
