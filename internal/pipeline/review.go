package pipeline

import (
	"context"
	"fmt"

	"github.com/Veraticus/reconcile/internal/common"
	"github.com/Veraticus/reconcile/internal/duplicate"
	"github.com/Veraticus/reconcile/internal/match"
	"github.com/Veraticus/reconcile/internal/model"
)

// DismissDuplicate unflags one duplicate or previously imported
// transaction, returning it to the working set.
func (p *Pipeline) DismissDuplicate(ctx context.Context, result *model.SessionResult, txnID string) error {
	groups := duplicate.Groups(result.Duplicates)
	switch {
	case groups.DuplicateIDs()[txnID]:
		result.Duplicates = groups.Dismiss(txnID)
	case containsID(result.Existing, txnID):
		result.Existing = removeID(result.Existing, txnID)
	default:
		return fmt.Errorf("duplicate %q: %w", txnID, common.ErrNotFound)
	}
	return p.Refresh(ctx, result)
}

// ClearDuplicates unflags every duplicate and previously imported
// transaction.
func (p *Pipeline) ClearDuplicates(ctx context.Context, result *model.SessionResult) error {
	result.Duplicates = duplicate.Groups(result.Duplicates).Clear()
	result.Existing = nil
	return p.Refresh(ctx, result)
}

// AcceptMatch confirms a bank/book pairing.
func (p *Pipeline) AcceptMatch(ctx context.Context, result *model.SessionResult, bankID, bookID string) (model.AutoMatch, error) {
	ws, err := p.workspace(ctx, result)
	if err != nil {
		return model.AutoMatch{}, err
	}
	accepted, err := ws.Accept(ctx, bankID, bookID)
	if err != nil {
		return model.AutoMatch{}, err
	}
	result.Accepted = ws.Accepted()
	return accepted, p.Refresh(ctx, result)
}

// RejectMatch dismisses a bank/book pairing.
func (p *Pipeline) RejectMatch(ctx context.Context, result *model.SessionResult, bankID, bookID string) error {
	ws, err := p.workspace(ctx, result)
	if err != nil {
		return err
	}
	if err := ws.Reject(ctx, bankID, bookID); err != nil {
		return err
	}
	result.Rejected = ws.Rejected()
	return p.Refresh(ctx, result)
}

func (p *Pipeline) workspace(ctx context.Context, result *model.SessionResult) (*match.Workspace, error) {
	return match.RestoreWorkspace(ctx, p.engine, workingBank(result), result.Book, result.Accepted, result.Rejected)
}

func containsID(txns []model.Transaction, id string) bool {
	for _, txn := range txns {
		if txn.ID == id {
			return true
		}
	}
	return false
}

func removeID(txns []model.Transaction, id string) []model.Transaction {
	out := make([]model.Transaction, 0, len(txns))
	for _, txn := range txns {
		if txn.ID != id {
			out = append(out, txn)
		}
	}
	return out
}
