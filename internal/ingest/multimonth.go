package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/reconcile/internal/model"
)

// MultiMonthHeader is the synthetic header given to rows lifted out of a
// multi-month ledger.
var MultiMonthHeader = []string{"date", "description", "amount", "category"}

// multiMonthCategory is assigned to every ledger row; the layout carries no
// category column.
const multiMonthCategory = "Unknown"

var months = map[string]int{
	"January": 1, "February": 2, "March": 3, "April": 4, "May": 5, "June": 6,
	"July": 7, "August": 8, "September": 9, "October": 10, "November": 11, "December": 12,
}

// Annotation rows mark totals and payment status. Phrase markers match
// anywhere in a row; word markers only match a whole cell so that names
// such as "Booking" or "Spinney" survive.
var (
	phraseMarkers = []string{"TOTAL ALL", "TOTAL GL", "HIGHLIGHTED", "NOT HIGHLIGJTED"}
	wordMarkers   = map[string]bool{"PRIVATE": true, "OOP": true, "ok": true, "SPIN": true}
	detectMarkers = []string{"TOTAL ALL", "HIGHLIGHTED", "PRIVATE"}
)

// looksMultiMonth reports whether text is a multi-month ledger: at least
// three month names, quoted cells, and the ledger's annotation markers.
func looksMultiMonth(text string) bool {
	found := 0
	for name := range months {
		if strings.Contains(text, name) {
			found++
		}
	}
	if found < 3 {
		return false
	}
	if !strings.Contains(text, `"`) || !strings.Contains(text, ",") {
		return false
	}
	for _, marker := range detectMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// parseMultiMonth reads a ledger whose rows hold month, name, amount
// triplets side by side. Each month is dated the first of that month in
// year. Rows carrying annotation markers are skipped.
func parseMultiMonth(text string, year int) (*Parsed, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	parsed := &Parsed{Headers: append([]string(nil), MultiMonthHeader...)}
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				parsed.RowErrors = append(parsed.RowErrors, err)
				continue
			}
			return nil, fmt.Errorf("failed to read ledger text: %w", err)
		}
		if isBlankRecord(record) || isAnnotation(record...) {
			continue
		}

		for i := 0; i < len(record); {
			month, ok := months[strings.TrimSpace(record[i])]
			if !ok {
				i++
				continue
			}
			name := cell(record, i+1)
			amount := strings.ReplaceAll(cell(record, i+2), ",", "")
			if name != "" && amount != "" && !isAnnotation(name) {
				parsed.Rows = append(parsed.Rows, model.RawRow{
					Source: model.SourceMultiMonth,
					Index:  len(parsed.Rows),
					Fields: map[string]string{
						"date":        fmt.Sprintf("%04d-%02d-01", year, month),
						"description": name,
						"amount":      amount,
						"category":    multiMonthCategory,
					},
				})
			}
			i += 3
		}
	}

	return parsed, nil
}

func isAnnotation(cells ...string) bool {
	for _, c := range cells {
		for _, marker := range phraseMarkers {
			if strings.Contains(c, marker) {
				return true
			}
		}
		if wordMarkers[strings.TrimSpace(c)] {
			return true
		}
	}
	return false
}

func cell(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(record[i], `"`, ""))
}
