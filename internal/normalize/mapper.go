// Package normalize turns raw tabular rows into canonical transactions.
package normalize

import (
	"strings"

	"github.com/Veraticus/reconcile/internal/model"
)

// synonym is a header rule: a case-insensitive substring, or an exact
// header name when exact is set.
type synonym struct {
	text  string
	exact bool
}

func (s synonym) matches(header string) bool {
	h := strings.ToLower(strings.TrimSpace(header))
	if s.exact {
		return h == s.text
	}
	return strings.Contains(h, s.text)
}

var (
	dateSynonyms = []synonym{
		{text: "date"},
		{text: "posted dt"},
		{text: "transaction date"},
		{text: "doc dt"},
		{text: "effective date"},
		{text: "posted"},
		{text: "dt", exact: true},
	}
	amountSynonyms = []synonym{
		{text: "amount"},
		{text: "txn amt"},
		{text: "value"},
		{text: "total"},
		{text: "debit"},
		{text: "credit"},
		{text: "balance"},
		{text: "amt", exact: true},
		{text: "txn", exact: true},
	}
	descriptionSynonyms = []synonym{
		{text: "description"},
		{text: "memo"},
		{text: "note"},
		{text: "details"},
		{text: "reference"},
		{text: "doc"},
		{text: "memo/description"},
		{text: "memo/"},
		{text: "memo", exact: true},
	}
)

// MapColumns picks the date, amount and description headers. The first
// header satisfying any synonym of a field wins that field; fields nobody
// claims fall back to the first, second and third columns.
func MapColumns(headers []string) model.ColumnMapping {
	mapping := model.ColumnMapping{
		Date:        firstMatch(headers, dateSynonyms),
		Amount:      firstMatch(headers, amountSynonyms),
		Description: firstMatch(headers, descriptionSynonyms),
	}

	if mapping.Date == "" {
		mapping.Date = positional(headers, 0)
	}
	if mapping.Amount == "" {
		mapping.Amount = positional(headers, 1)
	}
	if mapping.Description == "" {
		mapping.Description = positional(headers, 2)
	}

	return mapping
}

// MatchesDate reports whether header is a date column name.
func MatchesDate(header string) bool { return anyMatch(header, dateSynonyms) }

// MatchesAmount reports whether header is an amount column name.
func MatchesAmount(header string) bool { return anyMatch(header, amountSynonyms) }

// MatchesDescription reports whether header is a description column name.
func MatchesDescription(header string) bool { return anyMatch(header, descriptionSynonyms) }

// ExpectedColumns lists the header names the mapper recognizes, per field.
func ExpectedColumns() map[string][]string {
	return map[string][]string{
		"date":        names(dateSynonyms),
		"amount":      names(amountSynonyms),
		"description": names(descriptionSynonyms),
	}
}

func firstMatch(headers []string, synonyms []synonym) string {
	for _, header := range headers {
		if anyMatch(header, synonyms) {
			return header
		}
	}
	return ""
}

func anyMatch(header string, synonyms []synonym) bool {
	for _, s := range synonyms {
		if s.matches(header) {
			return true
		}
	}
	return false
}

func positional(headers []string, i int) string {
	if i < len(headers) {
		return headers[i]
	}
	return ""
}

func names(synonyms []synonym) []string {
	out := make([]string, 0, len(synonyms))
	seen := make(map[string]bool)
	for _, s := range synonyms {
		if seen[s.text] {
			continue
		}
		seen[s.text] = true
		out = append(out, s.text)
	}
	return out
}
