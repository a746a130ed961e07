package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/reconcile/internal/model"
)

// RenderSummary renders the counts of a processed upload in a box.
func RenderSummary(result *model.SessionResult) string {
	s := result.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "  • Transactions: %d\n", s.TotalTransactions)
	fmt.Fprintf(&b, "  • Duplicates: %d\n", s.DuplicatesFound)
	if s.PreviouslyImported > 0 {
		fmt.Fprintf(&b, "  • Previously imported: %d\n", s.PreviouslyImported)
	}
	fmt.Fprintf(&b, "  • Matches: %d\n", s.MatchesFound)
	fmt.Fprintf(&b, "  • Unmatched: %d\n", s.UnmatchedCount)
	if len(result.Book) > 0 {
		fmt.Fprintf(&b, "  • Book only: %d\n", s.BookOnlyCount)
	}
	fmt.Fprintf(&b, "  • Time saved: ~%s", formatTimeSaved(s.TimeSaved, s.TimeSavedUnit))

	if st := result.Statement; st != nil {
		fmt.Fprintf(&b, "\n  • Account: %s %s", st.AccountID, st.AccountType)
		if st.LedgerBalance != nil {
			fmt.Fprintf(&b, "\n  • Ledger balance: %s %s", st.LedgerBalance.StringFixed(2), st.Currency)
		}
	}

	return RenderBox(result.FileName, b.String())
}

func formatTimeSaved(value float64, unit string) string {
	if unit == model.UnitMinutes {
		return fmt.Sprintf("%.0f %s", value, unit)
	}
	return fmt.Sprintf("%.2f %s", value, unit)
}

// RenderTransactions renders up to limit transactions as a table. A
// non-positive limit renders all of them.
func RenderTransactions(txns []model.Transaction, limit int) string {
	rows := make([][]string, 0, len(txns))
	for _, txn := range head(txns, limit) {
		rows = append(rows, []string{txn.Date, txn.SignedAmount().StringFixed(2), truncate(txn.Description, 48), txn.Category})
	}
	return renderTable([]string{"Date", "Amount", "Description", "Category"}, rows, len(txns))
}

// RenderMatches renders up to limit match candidates as a table.
func RenderMatches(matches []model.AutoMatch, limit int) string {
	rows := make([][]string, 0, len(matches))
	for _, m := range head(matches, limit) {
		rows = append(rows, []string{
			fmt.Sprintf("%d", m.Confidence),
			m.Bank.SignedAmount().StringFixed(2),
			truncate(m.Bank.Description, 30),
			truncate(m.Book.Description, 30),
			m.Reason,
		})
	}
	return renderTable([]string{"Score", "Amount", "Bank", "Book", "Reason"}, rows, len(matches))
}

// RenderDuplicates renders each group as its original followed by the
// flagged copies.
func RenderDuplicates(groups []model.DuplicateGroup) string {
	if len(groups) == 0 {
		return SubtleStyle.Render("No duplicates.")
	}
	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s %s %s %s\n", DuplicateIcon, g.Original.Date,
			g.Original.SignedAmount().StringFixed(2), g.Original.Description)
		for _, d := range g.Duplicates {
			b.WriteString(WarningStyle.Render(fmt.Sprintf("    %s %s (%s)", d.Date, d.Description, d.ID)))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderTable(headers []string, rows [][]string, total int) string {
	if len(rows) == 0 {
		return SubtleStyle.Render("Nothing to show.")
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	render := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = TableCellStyle.Width(widths[i] + 2).Render(cell)
		}
		return style.Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
	}

	lines := []string{render(headers, TableHeaderStyle)}
	for _, row := range rows {
		lines = append(lines, render(row, lipgloss.NewStyle()))
	}
	if total > len(rows) {
		lines = append(lines, SubtleStyle.Render(fmt.Sprintf("... and %d more", total-len(rows))))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func head[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
