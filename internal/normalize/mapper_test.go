package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/reconcile/internal/model"
)

func TestMapColumns(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    model.ColumnMapping
	}{
		{
			name:    "standard headers",
			headers: []string{"Date", "Description", "Amount"},
			want:    model.ColumnMapping{Date: "Date", Amount: "Amount", Description: "Description"},
		},
		{
			name:    "positional fallback",
			headers: []string{"Foo", "Bar", "Baz"},
			want:    model.ColumnMapping{Date: "Foo", Amount: "Bar", Description: "Baz"},
		},
		{
			name:    "bank export abbreviations",
			headers: []string{"Posted Dt", "Txn Amt", "Memo"},
			want:    model.ColumnMapping{Date: "Posted Dt", Amount: "Txn Amt", Description: "Memo"},
		},
		{
			name:    "exact dt and amt",
			headers: []string{"DT", "AMT", "Details"},
			want:    model.ColumnMapping{Date: "DT", Amount: "AMT", Description: "Details"},
		},
		{
			name:    "first matching header wins",
			headers: []string{"Transaction Date", "Effective Date", "Debit", "Credit", "Note"},
			want:    model.ColumnMapping{Date: "Transaction Date", Amount: "Debit", Description: "Note"},
		},
		{
			name:    "missing columns leave fields empty",
			headers: []string{"Foo"},
			want:    model.ColumnMapping{Date: "Foo"},
		},
		{
			name:    "no headers",
			headers: nil,
			want:    model.ColumnMapping{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapColumns(tt.headers))
		})
	}
}

func TestMapColumns_ExactSynonymsDoNotMatchSubstrings(t *testing.T) {
	// "width" contains "dt" but only an exact "dt" header counts.
	got := MapColumns([]string{"Width", "Amount", "Description"})
	assert.Equal(t, "Width", got.Date, "falls back to the first column")
	assert.False(t, MatchesDate("Width"))
	assert.True(t, MatchesDate(" dt "))
}

func TestExpectedColumns(t *testing.T) {
	expected := ExpectedColumns()
	assert.Contains(t, expected["date"], "posted dt")
	assert.Contains(t, expected["amount"], "txn amt")
	assert.Contains(t, expected["description"], "memo")

	count := 0
	for _, name := range expected["description"] {
		if name == "memo" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
