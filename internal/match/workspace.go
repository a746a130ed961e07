package match

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/reconcile/internal/common"
	"github.com/Veraticus/reconcile/internal/model"
)

// Workspace tracks a human review of match candidates. Accepted pairs
// leave the working sets and rejected pairs are never proposed again.
// It is not safe for concurrent use.
type Workspace struct {
	engine     *Engine
	bank       []model.Transaction
	book       []model.Transaction
	accepted   []model.AutoMatch
	rejected   map[model.MatchPair]bool
	candidates []model.AutoMatch
}

// NewWorkspace creates a workspace and computes the first candidates.
func NewWorkspace(ctx context.Context, engine *Engine, bank, book []model.Transaction) (*Workspace, error) {
	return RestoreWorkspace(ctx, engine, bank, book, nil, nil)
}

// RestoreWorkspace rebuilds a workspace from a saved review. Participants of
// accepted pairs are removed from bank and book.
func RestoreWorkspace(ctx context.Context, engine *Engine, bank, book []model.Transaction,
	accepted []model.AutoMatch, rejected []model.MatchPair) (*Workspace, error) {
	if engine == nil {
		engine = NewEngine()
	}

	w := &Workspace{
		engine:   engine,
		accepted: append([]model.AutoMatch(nil), accepted...),
		rejected: make(map[model.MatchPair]bool, len(rejected)),
	}
	for _, p := range rejected {
		w.rejected[p] = true
	}

	usedBank := make(map[string]bool, len(accepted))
	usedBook := make(map[string]bool, len(accepted))
	for _, m := range accepted {
		usedBank[m.Bank.ID] = true
		usedBook[m.Book.ID] = true
	}
	w.bank = exclude(bank, usedBank)
	w.book = exclude(book, usedBook)

	if err := w.refresh(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// Candidates returns the current proposals.
func (w *Workspace) Candidates() []model.AutoMatch {
	return append([]model.AutoMatch(nil), w.candidates...)
}

// Accepted returns the pairs confirmed so far, in acceptance order.
func (w *Workspace) Accepted() []model.AutoMatch {
	return append([]model.AutoMatch(nil), w.accepted...)
}

// Rejected returns the pairs dismissed so far.
func (w *Workspace) Rejected() []model.MatchPair {
	out := make([]model.MatchPair, 0, len(w.rejected))
	for p := range w.rejected {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BankID != out[j].BankID {
			return out[i].BankID < out[j].BankID
		}
		return out[i].BookID < out[j].BookID
	})
	return out
}

// Bank returns the bank transactions still under review.
func (w *Workspace) Bank() []model.Transaction {
	return append([]model.Transaction(nil), w.bank...)
}

// Book returns the bookkeeping transactions still under review.
func (w *Workspace) Book() []model.Transaction {
	return append([]model.Transaction(nil), w.book...)
}

// Unmatched returns bank transactions with no remaining candidate.
func (w *Workspace) Unmatched() []model.Transaction {
	return Unmatched(w.bank, w.candidates)
}

// UnmatchedBook returns bookkeeping transactions with no remaining candidate.
func (w *Workspace) UnmatchedBook() []model.Transaction {
	return UnmatchedBook(w.book, w.candidates)
}

// Accept confirms a pairing. Both transactions leave the working sets and
// candidates are recomputed. The pair need not be a current candidate.
func (w *Workspace) Accept(ctx context.Context, bankID, bookID string) (model.AutoMatch, error) {
	bank, ok := find(w.bank, bankID)
	if !ok {
		return model.AutoMatch{}, fmt.Errorf("bank transaction %q: %w", bankID, common.ErrNotFound)
	}
	book, ok := find(w.book, bookID)
	if !ok {
		return model.AutoMatch{}, fmt.Errorf("book transaction %q: %w", bookID, common.ErrNotFound)
	}

	confidence, reasons := Score(bank, book)
	accepted := model.AutoMatch{
		Bank:       bank,
		Book:       book,
		Confidence: confidence,
		Reason:     strings.Join(reasons, ", "),
	}
	w.accepted = append(w.accepted, accepted)
	w.bank = exclude(w.bank, map[string]bool{bankID: true})
	w.book = exclude(w.book, map[string]bool{bookID: true})

	if err := w.refresh(ctx); err != nil {
		return accepted, err
	}
	return accepted, nil
}

// Reject dismisses a pairing so it is not proposed again.
func (w *Workspace) Reject(ctx context.Context, bankID, bookID string) error {
	if _, ok := find(w.bank, bankID); !ok {
		return fmt.Errorf("bank transaction %q: %w", bankID, common.ErrNotFound)
	}
	if _, ok := find(w.book, bookID); !ok {
		return fmt.Errorf("book transaction %q: %w", bookID, common.ErrNotFound)
	}
	w.rejected[model.MatchPair{BankID: bankID, BookID: bookID}] = true
	return w.refresh(ctx)
}

func (w *Workspace) refresh(ctx context.Context) error {
	matches, err := w.engine.Match(ctx, w.bank, w.book)
	if err != nil {
		return fmt.Errorf("failed to recompute candidates: %w", err)
	}

	kept := matches[:0]
	for _, m := range matches {
		if !w.rejected[model.MatchPair{BankID: m.Bank.ID, BookID: m.Book.ID}] {
			kept = append(kept, m)
		}
	}
	w.candidates = kept
	return nil
}

func find(txns []model.Transaction, id string) (model.Transaction, bool) {
	for _, txn := range txns {
		if txn.ID == id {
			return txn, true
		}
	}
	return model.Transaction{}, false
}

func exclude(txns []model.Transaction, ids map[string]bool) []model.Transaction {
	out := make([]model.Transaction, 0, len(txns))
	for _, txn := range txns {
		if !ids[txn.ID] {
			out = append(out, txn)
		}
	}
	return out
}
