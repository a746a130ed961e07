package match

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Veraticus/reconcile/internal/common"
	"github.com/Veraticus/reconcile/internal/model"
)

// Defaults for Engine.
const (
	DefaultThreshold       = 70
	DefaultMaxPairs  int64 = 25_000_000
)

// ProgressFunc is called after each bank transaction is compared.
type ProgressFunc func(done, total int)

// Engine scans every bank/book pair and keeps the confident ones.
type Engine struct {
	Progress  ProgressFunc
	Threshold int
	MaxPairs  int64
}

// NewEngine creates an engine with the default threshold and pair limit.
func NewEngine() *Engine {
	return &Engine{Threshold: DefaultThreshold, MaxPairs: DefaultMaxPairs}
}

// Match compares every bank transaction with every book transaction and
// returns pairs scoring at least the threshold, highest confidence first.
// Ties keep bank order, then book order. A transaction may appear in more
// than one candidate. The scan stops early when ctx is done.
func (e *Engine) Match(ctx context.Context, bank, book []model.Transaction) ([]model.AutoMatch, error) {
	pairs := int64(len(bank)) * int64(len(book))
	if e.MaxPairs > 0 && pairs > e.MaxPairs {
		return nil, fmt.Errorf("%w: %d bank x %d book exceeds %d", common.ErrTooManyPairs, len(bank), len(book), e.MaxPairs)
	}

	threshold := e.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	bankFeatures := extractAll(bank)
	bookFeatures := extractAll(book)

	matches := make([]model.AutoMatch, 0)
	for i, b := range bank {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("matching canceled after %d of %d: %w", i, len(bank), err)
		}
		for j, k := range book {
			confidence, reasons := score(bankFeatures[i], bookFeatures[j])
			if confidence < threshold {
				continue
			}
			matches = append(matches, model.AutoMatch{
				Bank:       b,
				Book:       k,
				Confidence: confidence,
				Reason:     strings.Join(reasons, ", "),
			})
		}
		if e.Progress != nil {
			e.Progress(i+1, len(bank))
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})

	slog.Debug("Matched transactions",
		"bank", len(bank),
		"book", len(book),
		"candidates", len(matches))

	return matches, nil
}

// Unmatched returns the bank transactions that appear in no candidate.
func Unmatched(bank []model.Transaction, matches []model.AutoMatch) []model.Transaction {
	matched := make(map[string]bool, len(matches))
	for _, m := range matches {
		matched[m.Bank.ID] = true
	}
	out := make([]model.Transaction, 0, len(bank))
	for _, txn := range bank {
		if !matched[txn.ID] {
			out = append(out, txn)
		}
	}
	return out
}

// UnmatchedBook returns the bookkeeping transactions that appear in no
// candidate: entries recorded in the books with no bank counterpart.
func UnmatchedBook(book []model.Transaction, matches []model.AutoMatch) []model.Transaction {
	matched := make(map[string]bool, len(matches))
	for _, m := range matches {
		matched[m.Book.ID] = true
	}
	out := make([]model.Transaction, 0, len(book))
	for _, txn := range book {
		if !matched[txn.ID] {
			out = append(out, txn)
		}
	}
	return out
}
