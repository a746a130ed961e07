package match

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/reconcile/internal/common"
	"github.com/Veraticus/reconcile/internal/model"
)

func TestEngine_Match(t *testing.T) {
	bank := []model.Transaction{
		txn("b1", "-42.50", "2024-01-02", "Groceries"),
		txn("b2", "1500.00", "2024-01-05", "Client ACME Invoice 12"),
		txn("b3", "-9.99", "2024-01-07", "Streaming"),
	}
	book := []model.Transaction{
		txn("k1", "1500.00", "2024-01-04", "client acme invoice 12"),
		txn("k2", "-42.50", "2024-01-01", "Groceries"),
		txn("k3", "-42.50", "2024-02-20", "Groceries"),
	}

	matches, err := NewEngine().Match(context.Background(), bank, book)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, "b2", matches[0].Bank.ID)
	assert.Equal(t, 110, matches[0].Confidence)
	assert.Equal(t, "b1", matches[1].Bank.ID)
	assert.Equal(t, "k2", matches[1].Book.ID)
	assert.Equal(t, 95, matches[1].Confidence)
	assert.Equal(t, "k3", matches[2].Book.ID)
	assert.Equal(t, 75, matches[2].Confidence)
	assert.Equal(t, "exact amount, exact description", matches[2].Reason)

	for i, m := range matches {
		assert.GreaterOrEqual(t, m.Confidence, DefaultThreshold)
		if i > 0 {
			assert.LessOrEqual(t, m.Confidence, matches[i-1].Confidence)
		}
	}

	unmatched := Unmatched(bank, matches)
	assert.Equal(t, []string{"b3"}, model.IDs(unmatched))
	assert.Empty(t, UnmatchedBook(book, matches))
}

func TestEngine_MatchIsManyToMany(t *testing.T) {
	bank := []model.Transaction{
		txn("b1", "-20.00", "2024-01-02", "Gas"),
		txn("b2", "-20.00", "2024-01-03", "Gas"),
	}
	book := []model.Transaction{
		txn("k1", "-20.00", "2024-01-02", "Gas"),
		txn("k2", "-20.00", "2024-01-03", "Gas"),
	}

	matches, err := NewEngine().Match(context.Background(), bank, book)
	require.NoError(t, err)
	require.Len(t, matches, 4, "every bank row pairs with every book row it scores against")

	perBank := map[string]int{}
	perBook := map[string]int{}
	for _, m := range matches {
		perBank[m.Bank.ID]++
		perBook[m.Book.ID]++
	}
	assert.Equal(t, map[string]int{"b1": 2, "b2": 2}, perBank)
	assert.Equal(t, map[string]int{"k1": 2, "k2": 2}, perBook)
}

func TestUnmatchedBook(t *testing.T) {
	bank := []model.Transaction{txn("b1", "-42.50", "2024-01-02", "Groceries")}
	book := []model.Transaction{
		txn("k1", "-42.50", "2024-01-01", "Groceries"),
		txn("k2", "-300.00", "2024-01-15", "Payroll tax"),
		txn("k3", "-12.00", "2024-01-20", "Bank fee"),
	}

	matches, err := NewEngine().Match(context.Background(), bank, book)
	require.NoError(t, err)

	assert.Equal(t, []string{"k2", "k3"}, model.IDs(UnmatchedBook(book, matches)))
	assert.Empty(t, Unmatched(bank, matches))
}

func TestEngine_MatchAgreesWithScore(t *testing.T) {
	bank := []model.Transaction{
		withCategory(txn("b1", "-42.50", "2024-01-02", "Whole Foods Market"), "Food"),
		txn("b2", "1500.00", "not-a-date", "Client ACME Invoice 12"),
		txn("b3", "-9.99", "2024-01-07", "  Streaming  "),
	}
	book := []model.Transaction{
		withCategory(txn("k1", "-42.50", "2024-01-04", "whole foods market"), "FOOD"),
		txn("k2", "1500.00", "2024-01-04", "client acme invoice 12"),
		txn("k3", "-9.99", "2024-01-08", "streaming"),
	}

	engine := &Engine{Threshold: 1}
	matches, err := engine.Match(context.Background(), bank, book)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	for _, m := range matches {
		confidence, reasons := Score(m.Bank, m.Book)
		assert.Equal(t, confidence, m.Confidence, "%s/%s", m.Bank.ID, m.Book.ID)
		assert.Equal(t, strings.Join(reasons, ", "), m.Reason, "%s/%s", m.Bank.ID, m.Book.ID)
	}
}

func BenchmarkEngine_Match(b *testing.B) {
	bank := make([]model.Transaction, 500)
	book := make([]model.Transaction, 500)
	for i := range bank {
		date := fmt.Sprintf("2024-%02d-%02d", i%12+1, i%28+1)
		bank[i] = txn(fmt.Sprintf("b%d", i), fmt.Sprintf("-%d.25", i+1), date, "Card purchase store "+fmt.Sprint(i))
		book[i] = txn(fmt.Sprintf("k%d", i), fmt.Sprintf("-%d.25", i+1), date, "card purchase store "+fmt.Sprint(i))
	}
	engine := NewEngine()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Match(context.Background(), bank, book); err != nil {
			b.Fatal(err)
		}
	}
}

func TestEngine_Empty(t *testing.T) {
	matches, err := NewEngine().Match(context.Background(), nil, []model.Transaction{txn("k", "1", "2024-01-01", "x")})
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.NotNil(t, matches)
}

func TestEngine_TooManyPairs(t *testing.T) {
	engine := &Engine{Threshold: DefaultThreshold, MaxPairs: 3}
	bank := []model.Transaction{txn("b1", "1", "2024-01-01", "a"), txn("b2", "1", "2024-01-01", "a")}
	book := []model.Transaction{txn("k1", "1", "2024-01-01", "a"), txn("k2", "1", "2024-01-01", "a")}

	_, err := engine.Match(context.Background(), bank, book)
	assert.ErrorIs(t, err, common.ErrTooManyPairs)
}

func TestEngine_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine().Match(ctx, []model.Transaction{txn("b", "1", "2024-01-01", "a")}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_Progress(t *testing.T) {
	var calls [][2]int
	engine := NewEngine()
	engine.Progress = func(done, total int) { calls = append(calls, [2]int{done, total}) }

	bank := []model.Transaction{txn("b1", "1", "2024-01-01", "a"), txn("b2", "2", "2024-01-01", "b")}
	_, err := engine.Match(context.Background(), bank, nil)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, calls)
}

func TestEngine_CustomThreshold(t *testing.T) {
	engine := &Engine{Threshold: 50}
	matches, err := engine.Match(context.Background(),
		[]model.Transaction{txn("b", "5", "2024-01-01", "x")},
		[]model.Transaction{txn("k", "5", "2024-06-01", "y")})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 50, matches[0].Confidence)
}
