package normalize

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/reconcile/internal/model"
)

func TestCleanAmount(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{raw: "-42.50", want: "-42.5", wantOK: true},
		{raw: "$1,234.56", want: "1234.56", wantOK: true},
		{raw: "  100 USD ", want: "100", wantOK: true},
		{raw: "12.", want: "12", wantOK: true},
		{raw: ".75", want: "0.75", wantOK: true},
		{raw: "1.2.3", want: "1.2", wantOK: true},
		{raw: "10-20", want: "10", wantOK: true},
		{raw: "0.00", want: "0", wantOK: true},
		{raw: "", wantOK: false},
		{raw: "N/A", wantOK: false},
		{raw: "--5", wantOK: false},
		{raw: "-", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := CleanAmount(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
			}
		})
	}
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "Transaction", CleanDescription(""))
	assert.Equal(t, "Transaction", CleanDescription("   "))
	assert.Equal(t, "Coffee Shop", CleanDescription("  Coffee Shop \t"))

	long := strings.Repeat("é", model.MaxDescriptionLength+50)
	got := CleanDescription(long)
	assert.Equal(t, model.MaxDescriptionLength, len([]rune(got)))
}

func TestNormalizeDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		raw  string
		want string
	}{
		{raw: "2024-01-15", want: "2024-01-15"},
		{raw: "2024-01-15T10:00:00Z", want: "2024-01-15"},
		{raw: "01/15/2024", want: "2024-01-15"},
		{raw: "01-15-2024", want: "2024-01-15"},
		{raw: "1/5/2024", want: "2024-01-05"},
		{raw: "posted 3/15/2024 late", want: "2024-03-15"},
		{raw: "13/45/2024", want: "2024-13-45"},
		{raw: "", want: "2024-06-01"},
		{raw: "yesterday", want: "2024-06-01"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDate(tt.raw, now))
		})
	}
}

func TestTypeForAmount(t *testing.T) {
	assert.Equal(t, model.TypeCredit, TypeForAmount(decimal.NewFromInt(5)))
	assert.Equal(t, model.TypeDebit, TypeForAmount(decimal.NewFromInt(-5)))
}
