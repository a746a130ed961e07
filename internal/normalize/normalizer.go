package normalize

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/reconcile/internal/model"
)

// Normalizer converts raw rows into transactions.
type Normalizer struct {
	// Now supplies the processing time used for id suffixes and for the
	// date fallback. Defaults to time.Now.
	Now func() time.Time
	// IDPrefix is prepended to generated ids. Defaults to "txn".
	IDPrefix string
}

// NewNormalizer creates a normalizer using the wall clock.
func NewNormalizer() *Normalizer {
	return &Normalizer{Now: time.Now, IDPrefix: "txn"}
}

// Normalize maps every row through mapping. Rows whose amount is missing,
// unparseable or zero are dropped without error; they are how header
// repeats, subtotals and blank lines show up in bank exports.
func (n *Normalizer) Normalize(rows []model.RawRow, mapping model.ColumnMapping) []model.Transaction {
	now := n.now()
	categoryHeader, referenceHeader := "", ""
	if len(rows) > 0 {
		categoryHeader = findHeader(rows[0], "category")
		referenceHeader = findHeader(rows[0], "reference")
	}

	transactions := make([]model.Transaction, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		txn, ok := n.normalizeRow(row, mapping, now)
		if !ok {
			skipped++
			continue
		}
		txn.Category = strings.TrimSpace(row.Get(categoryHeader))
		if referenceHeader != mapping.Description {
			txn.Reference = strings.TrimSpace(row.Get(referenceHeader))
		}
		transactions = append(transactions, txn)
	}

	slog.Debug("Normalized rows",
		"rows", len(rows),
		"transactions", len(transactions),
		"skipped", skipped)

	return transactions
}

// NormalizeRow converts a single row. ok is false for rows that carry no
// usable amount.
func (n *Normalizer) NormalizeRow(row model.RawRow, mapping model.ColumnMapping) (model.Transaction, bool) {
	return n.normalizeRow(row, mapping, n.now())
}

func (n *Normalizer) normalizeRow(row model.RawRow, mapping model.ColumnMapping, now time.Time) (model.Transaction, bool) {
	amount, ok := CleanAmount(row.Get(mapping.Amount))
	if !ok || amount.IsZero() {
		return model.Transaction{}, false
	}

	prefix := n.IDPrefix
	if prefix == "" {
		prefix = "txn"
	}

	return model.Transaction{
		ID:          fmt.Sprintf("%s_%d_%d", prefix, row.Index, now.UnixNano()),
		Amount:      amount,
		Description: CleanDescription(row.Get(mapping.Description)),
		Date:        NormalizeDate(row.Get(mapping.Date), now),
		Type:        TypeForAmount(amount),
	}, true
}

func (n *Normalizer) now() time.Time {
	if n.Now == nil {
		return time.Now()
	}
	return n.Now()
}

// findHeader returns the row's header equal to name, ignoring case.
func findHeader(row model.RawRow, name string) string {
	for header := range row.Fields {
		if strings.EqualFold(strings.TrimSpace(header), name) {
			return header
		}
	}
	return ""
}
