package testutil

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/reconcile/internal/model"
)

// TxnBuilder provides a fluent interface for constructing test transactions.
//
// Example:
//
//	txn := testutil.Txn("b1").Amount("-42.10").On("2024-01-05").Desc("Office Depot").Build()
type TxnBuilder struct {
	txn model.Transaction
}

// Txn starts a transaction with the given id, dated 2024-01-01.
func Txn(id string) *TxnBuilder {
	return &TxnBuilder{txn: model.Transaction{
		ID:          id,
		Amount:      decimal.NewFromInt(1),
		Description: "Transaction",
		Date:        "2024-01-01",
		Type:        model.TypeCredit,
	}}
}

// Amount sets the amount from a decimal string and derives the type from
// its sign. It panics on malformed input.
func (b *TxnBuilder) Amount(s string) *TxnBuilder {
	b.txn.Amount = decimal.RequireFromString(s)
	if b.txn.Amount.IsNegative() {
		b.txn.Type = model.TypeDebit
	} else {
		b.txn.Type = model.TypeCredit
	}
	return b
}

// On sets the YYYY-MM-DD date.
func (b *TxnBuilder) On(date string) *TxnBuilder {
	b.txn.Date = date
	return b
}

// Desc sets the description.
func (b *TxnBuilder) Desc(description string) *TxnBuilder {
	b.txn.Description = description
	return b
}

// Category sets the category.
func (b *TxnBuilder) Category(category string) *TxnBuilder {
	b.txn.Category = category
	return b
}

// Type overrides the derived type.
func (b *TxnBuilder) Type(t model.TransactionType) *TxnBuilder {
	b.txn.Type = t
	return b
}

// Build returns the transaction.
func (b *TxnBuilder) Build() model.Transaction {
	return b.txn
}

// SampleSession returns a small CSV session result with one duplicate group,
// one auto-match and one unmatched bank row.
func SampleSession(id string) *model.SessionResult {
	rent := Txn("b1").Amount("-1200").On("2024-02-01").Desc("Rent February").Category("Housing").Build()
	rentAgain := Txn("b2").Amount("-1200").On("2024-02-02").Desc("Rent February").Category("Housing").Build()
	coffee := Txn("b3").Amount("-4.50").On("2024-02-03").Desc("Coffee").Build()
	bookRent := Txn("k1").Amount("-1200").On("2024-02-01").Desc("Rent February").Category("Housing").Build()

	return &model.SessionResult{
		ID:           id,
		Source:       model.ResultCSV,
		FileName:     "february.csv",
		Transactions: []model.Transaction{rent, rentAgain, coffee},
		Duplicates: []model.DuplicateGroup{{
			Key:        rent.SimilarityKey(),
			Original:   rent,
			Duplicates: []model.Transaction{rentAgain},
		}},
		Book:      []model.Transaction{bookRent},
		Unmatched: []model.Transaction{coffee},
		Matches: []model.AutoMatch{{
			Bank:       rent,
			Book:       bookRent,
			Confidence: 100,
			Reason:     "exact amount, date within 0 days, exact description, same category",
		}},
		TimeSaved: 3 * 0.5 / 60,
		Summary: model.Summary{
			TotalTransactions: 3,
			DuplicatesFound:   1,
			UnmatchedCount:    1,
			MatchesFound:      1,
			TimeSaved:         3 * 0.5 / 60,
			TimeSavedUnit:     model.UnitHours,
		},
	}
}
