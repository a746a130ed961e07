package model

import (
	"time"
)

// Reconciliation is a session result transferred into permanent storage.
type Reconciliation struct {
	ProcessedAt  time.Time               `json:"processedAt"`
	CreatedAt    time.Time               `json:"createdAt"`
	ID           string                  `json:"id"`
	UserID       string                  `json:"userId"`
	SessionID    string                  `json:"sessionId"`
	FileName     string                  `json:"fileName,omitempty"`
	Source       ResultSource            `json:"source"`
	Transactions []ReconciledTransaction `json:"transactions,omitempty"`
	Summary      Summary                 `json:"summary"`
}

// ReconciledTransaction is a stored transaction with its review flags.
type ReconciledTransaction struct {
	Transaction
	MatchedBookID string `json:"matchedBookId,omitempty"`
	IsDuplicate   bool   `json:"isDuplicate"`
	IsUnmatched   bool   `json:"isUnmatched"`
}

// NewReconciliation flattens a session result into a record for userID.
func NewReconciliation(result *SessionResult, userID string, now time.Time) *Reconciliation {
	duplicates := make(map[string]bool)
	for _, group := range result.Duplicates {
		for _, d := range group.Duplicates {
			duplicates[d.ID] = true
		}
	}
	for _, txn := range result.Existing {
		duplicates[txn.ID] = true
	}
	unmatched := make(map[string]bool, len(result.Unmatched))
	for _, txn := range result.Unmatched {
		unmatched[txn.ID] = true
	}
	matched := make(map[string]string, len(result.Accepted))
	for _, m := range result.Accepted {
		matched[m.Bank.ID] = m.Book.ID
	}

	txns := make([]ReconciledTransaction, len(result.Transactions))
	for i, txn := range result.Transactions {
		txns[i] = ReconciledTransaction{
			Transaction:   txn,
			MatchedBookID: matched[txn.ID],
			IsDuplicate:   duplicates[txn.ID],
			IsUnmatched:   unmatched[txn.ID],
		}
	}

	return &Reconciliation{
		UserID:       userID,
		SessionID:    result.ID,
		FileName:     result.FileName,
		Source:       result.Source,
		Summary:      result.Summary,
		ProcessedAt:  result.ProcessedAt,
		CreatedAt:    now,
		Transactions: txns,
	}
}
