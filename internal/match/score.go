// Package match proposes pairings between bank and bookkeeping transactions.
package match

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/reconcile/internal/model"
)

// Signal weights. A pair's confidence is the sum of the signals it fires.
const (
	WeightExactAmount      = 50
	WeightDateProximity    = 20
	WeightTokenOverlap     = 15
	WeightExactDescription = 25
	WeightCategory         = 10
)

// MaxDateDistance is the widest gap, in days, that still counts as close.
const MaxDateDistance = 3

// MinSharedTokens is the number of distinct shared words needed for the
// token overlap signal.
const MinSharedTokens = 2

var amountTolerance = decimal.RequireFromString("0.01")

// features holds the parts of a transaction that scoring compares, derived
// once so a scan does not re-parse dates or re-split descriptions per pair.
type features struct {
	amount      decimal.Decimal
	date        time.Time
	dated       bool
	tokens      map[string]bool
	description string
	category    string
}

func extract(t model.Transaction) features {
	f := features{
		amount:      t.SignedAmount(),
		tokens:      tokenSet(t.Description),
		description: strings.ToLower(strings.TrimSpace(t.Description)),
		category:    strings.ToLower(strings.TrimSpace(t.Category)),
	}
	if d, err := time.Parse(time.DateOnly, t.Date); err == nil {
		f.date, f.dated = d, true
	}
	return f
}

func extractAll(txns []model.Transaction) []features {
	out := make([]features, len(txns))
	for i, t := range txns {
		out[i] = extract(t)
	}
	return out
}

// Score rates how likely a and b record the same movement of money.
// It returns the confidence and the reasons that contributed to it.
func Score(a, b model.Transaction) (int, []string) {
	return score(extract(a), extract(b))
}

func score(a, b features) (int, []string) {
	total := 0
	var reasons []string

	if a.amount.Sub(b.amount).Abs().LessThan(amountTolerance) {
		total += WeightExactAmount
		reasons = append(reasons, "exact amount")
	}

	if a.dated && b.dated {
		if days := daysBetween(a.date, b.date); days <= MaxDateDistance {
			total += WeightDateProximity
			reasons = append(reasons, fmt.Sprintf("date within %d days", days))
		}
	}

	if shared := countShared(a.tokens, b.tokens); shared >= MinSharedTokens {
		total += WeightTokenOverlap
		reasons = append(reasons, fmt.Sprintf("%d shared words", shared))
	}

	if a.description == b.description {
		total += WeightExactDescription
		reasons = append(reasons, "exact description")
	}

	if a.category != "" && a.category == b.category {
		total += WeightCategory
		reasons = append(reasons, "same category")
	}

	return total, reasons
}

// AmountsMatch compares signed amounts within a cent.
func AmountsMatch(a, b model.Transaction) bool {
	return a.SignedAmount().Sub(b.SignedAmount()).Abs().LessThan(amountTolerance)
}

// DateDistance returns the absolute number of days between two YYYY-MM-DD
// dates. ok is false when either date does not parse.
func DateDistance(a, b string) (days int, ok bool) {
	ta, err := time.Parse(time.DateOnly, a)
	if err != nil {
		return 0, false
	}
	tb, err := time.Parse(time.DateOnly, b)
	if err != nil {
		return 0, false
	}
	return daysBetween(ta, tb), true
}

func daysBetween(a, b time.Time) int {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}

// SharedTokens counts distinct whitespace-separated words, compared
// case-insensitively, that appear in both descriptions.
func SharedTokens(a, b string) int {
	return countShared(tokenSet(a), tokenSet(b))
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = true
	}
	return set
}

func countShared(a, b map[string]bool) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	shared := 0
	for tok := range a {
		if b[tok] {
			shared++
		}
	}
	return shared
}
