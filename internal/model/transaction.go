// Package model defines the core domain models used throughout the application.
package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionType is a direction hint whose casing depends on the source format.
type TransactionType string

// Transaction type constants. CSV-derived rows use the title-cased forms, OFX
// statements use the upper-cased forms.
const (
	TypeCredit      TransactionType = "Credit"
	TypeDebit       TransactionType = "Debit"
	TypeCreditUpper TransactionType = "CREDIT"
	TypeDebitUpper  TransactionType = "DEBIT"
	TypeUnknown     TransactionType = "Unknown"
)

// IsDebit reports whether the type denotes an outflow, regardless of casing.
func (t TransactionType) IsDebit() bool {
	return strings.EqualFold(string(t), string(TypeDebit))
}

// MaxDescriptionLength caps the stored description, in runes.
const MaxDescriptionLength = 200

// Transaction is the canonical unit produced by normalization.
type Transaction struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        string          `json:"date"` // YYYY-MM-DD
	Type        TransactionType `json:"type"`
	Reference   string          `json:"reference,omitempty"`
	Category    string          `json:"category,omitempty"`
}

// SignedAmount returns the amount with inflows positive and outflows negative.
// OFX transactions store the absolute value and carry the direction in Type.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type.IsDebit() && t.Amount.IsPositive() {
		return t.Amount.Neg()
	}
	return t.Amount
}

// SimilarityKey is the exact-match key used to group likely re-entries.
func (t Transaction) SimilarityKey() string {
	return t.Amount.String() + "|" + strings.ToLower(strings.TrimSpace(t.Description))
}

// HistoryKey identifies a transaction across uploads: the same date,
// signed amount and description imported twice is the same movement.
func (t Transaction) HistoryKey() string {
	return t.Date + "|" + t.SignedAmount().String() + "|" + strings.ToLower(strings.TrimSpace(t.Description))
}

// IDs returns the ids of the given transactions in order.
func IDs(txns []Transaction) []string {
	ids := make([]string, len(txns))
	for i, txn := range txns {
		ids[i] = txn.ID
	}
	return ids
}
