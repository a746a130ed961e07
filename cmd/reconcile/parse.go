package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/reconcile/internal/cli"
	"github.com/Veraticus/reconcile/internal/config"
)

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a statement and show its transactions",
		Long: `Parse a bank statement, normalize its rows and flag likely duplicates.

Supported formats: .csv, .txt (comma or pipe delimited), .xlsx, .xls, .ofx, .qfx.`,
		Args: cobra.ExactArgs(1),
		RunE: runParse,
	}

	cmd.Flags().Int("limit", 20, "maximum transactions to print (0 for all)")
	cmd.Flags().Bool("json", false, "print the full result as JSON")
	cmd.Flags().Bool("multi-month", false, "read a CSV or TXT file as a multi-month ledger")

	return cmd
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	upload, err := readUpload(args[0], cfg.Upload.MaxBytes)
	if err != nil {
		return err
	}
	upload.MultiMonth, _ = cmd.Flags().GetBool("multi-month")

	result, err := newPipeline(cfg, nil).Process(cmd.Context(), upload, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	fmt.Fprintln(out, cli.RenderSummary(result))
	fmt.Fprintln(out, cli.FormatTitle("Transactions"))
	fmt.Fprintln(out, cli.RenderTransactions(result.Transactions, limit))
	if len(result.Duplicates) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, cli.FormatTitle("Possible duplicates"))
		fmt.Fprintln(out, cli.RenderDuplicates(result.Duplicates))
	}
	return nil
}
