package match

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/reconcile/internal/model"
)

func txn(id, amount, date, desc string) model.Transaction {
	amt := decimal.RequireFromString(amount)
	typ := model.TypeCredit
	if amt.IsNegative() {
		typ = model.TypeDebit
	}
	return model.Transaction{ID: id, Amount: amt, Date: date, Description: desc, Type: typ}
}

func withCategory(t model.Transaction, category string) model.Transaction {
	t.Category = category
	return t
}

func TestScore(t *testing.T) {
	tests := []struct {
		name        string
		a, b        model.Transaction
		want        int
		wantReasons []string
	}{
		{
			name:        "amount, date and single-word description",
			a:           txn("a", "-50.00", "2024-01-10", "Rent"),
			b:           txn("b", "-50.00", "2024-01-12", "rent"),
			want:        95,
			wantReasons: []string{"exact amount", "date within 2 days", "exact description"},
		},
		{
			name:        "multi-word exact description stacks with token overlap",
			a:           txn("a", "-12.34", "2024-01-10", "Office Depot Supplies"),
			b:           txn("b", "-12.34", "2024-03-10", "office depot supplies"),
			want:        90,
			wantReasons: []string{"exact amount", "3 shared words", "exact description"},
		},
		{
			name:        "amount within a cent",
			a:           txn("a", "10.004", "bad", "x"),
			b:           txn("b", "10.00", "2024-01-01", "y"),
			want:        50,
			wantReasons: []string{"exact amount"},
		},
		{
			name: "date four days apart",
			a:    txn("a", "1", "2024-01-01", "x"),
			b:    txn("b", "2", "2024-01-05", "y"),
			want: 0,
		},
		{
			name:        "opposite signs do not match",
			a:           txn("a", "25", "2024-01-01", "Deposit"),
			b:           txn("b", "-25", "2024-01-01", "Deposit"),
			want:        45,
			wantReasons: []string{"date within 0 days", "exact description"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reasons := Score(tt.a, tt.b)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantReasons, reasons)
		})
	}
}

func TestScore_CategoryBonus(t *testing.T) {
	a := withCategory(txn("a", "-8.00", "2024-01-01", "Parking"), "Travel")
	b := withCategory(txn("b", "-8.00", "2024-02-01", "PARKING"), "travel")

	got, reasons := Score(a, b)
	assert.Equal(t, 85, got)
	assert.Contains(t, reasons, "same category")

	b.Category = ""
	got, _ = Score(a, b)
	assert.Equal(t, 75, got)
}

func TestScore_OFXDirectionUsesSign(t *testing.T) {
	bank := model.Transaction{ID: "b", Amount: decimal.NewFromInt(25), Type: model.TypeDebitUpper, Date: "2024-01-15", Description: "Hardware"}
	book := txn("k", "-25", "2024-01-15", "Hardware")

	got, _ := Score(bank, book)
	assert.Equal(t, 95, got)
}

func TestDateDistance(t *testing.T) {
	days, ok := DateDistance("2024-02-28", "2024-03-01")
	assert.True(t, ok)
	assert.Equal(t, 2, days)

	_, ok = DateDistance("2024-02-30", "2024-03-01")
	assert.False(t, ok)
}

func TestSharedTokens(t *testing.T) {
	assert.Equal(t, 2, SharedTokens("ACME Corp invoice", "acme corp"))
	assert.Equal(t, 1, SharedTokens("pay pay pay", "pay pay"))
	assert.Equal(t, 0, SharedTokens("", "anything"))
}

func TestExtract(t *testing.T) {
	f := extract(withCategory(txn("a", "-12.50", "2024-03-09", "  Office DEPOT office "), " Supplies"))

	assert.True(t, f.dated)
	assert.Equal(t, "2024-03-09", f.date.Format("2006-01-02"))
	assert.Equal(t, "office depot office", f.description)
	assert.Equal(t, "supplies", f.category)
	assert.Equal(t, map[string]bool{"office": true, "depot": true}, f.tokens)
	assert.True(t, f.amount.Equal(decimal.RequireFromString("-12.50")))

	assert.False(t, extract(txn("b", "1", "03/09/2024", "x")).dated)
}
