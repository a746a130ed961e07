package normalize

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/reconcile/internal/model"
)

// DateLayout is the canonical transaction date format.
const DateLayout = "2006-01-02"

// FallbackDescription replaces empty descriptions.
const FallbackDescription = "Transaction"

var (
	amountStrip  = regexp.MustCompile(`[^0-9.,\-]`)
	amountPrefix = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)`)

	isoDate      = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	usSlashDate  = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`)
	usDashDate   = regexp.MustCompile(`(\d{2})-(\d{2})-(\d{4})`)
	shortUSDate  = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
)

// CleanAmount parses a free-form money cell. Everything except digits,
// minus, dot and comma is dropped, commas are treated as thousands
// separators, and the longest leading number is used. ok is false when no
// number is present.
func CleanAmount(raw string) (amount decimal.Decimal, ok bool) {
	cleaned := amountStrip.ReplaceAllString(raw, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	prefix := amountPrefix.FindString(cleaned)
	if prefix == "" {
		return decimal.Zero, false
	}
	if strings.HasSuffix(prefix, ".") {
		prefix = strings.TrimSuffix(prefix, ".")
	}

	amount, err := decimal.NewFromString(prefix)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

// CleanDescription trims and caps a description, substituting a fallback
// for empty cells.
func CleanDescription(raw string) string {
	desc := strings.TrimSpace(raw)
	if desc == "" {
		return FallbackDescription
	}
	if utf8.RuneCountInString(desc) > model.MaxDescriptionLength {
		desc = string([]rune(desc)[:model.MaxDescriptionLength])
	}
	return strings.TrimSpace(desc)
}

// NormalizeDate finds the first recognizable date in raw and rewrites it as
// YYYY-MM-DD. Components are not checked against the calendar. When nothing
// matches, now is used instead.
func NormalizeDate(raw string, now time.Time) string {
	if m := isoDate.FindStringSubmatch(raw); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3]
	}
	if m := usSlashDate.FindStringSubmatch(raw); m != nil {
		return m[3] + "-" + m[1] + "-" + m[2]
	}
	if m := usDashDate.FindStringSubmatch(raw); m != nil {
		return m[3] + "-" + m[1] + "-" + m[2]
	}
	if m := shortUSDate.FindStringSubmatch(raw); m != nil {
		return m[3] + "-" + pad2(m[1]) + "-" + pad2(m[2])
	}
	return now.Format(DateLayout)
}

// TypeForAmount derives the CSV-style direction hint from the sign.
func TypeForAmount(amount decimal.Decimal) model.TransactionType {
	if amount.IsPositive() {
		return model.TypeCredit
	}
	return model.TypeDebit
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
