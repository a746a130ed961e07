package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/Veraticus/reconcile/internal/model"
)

// PipeHeader is the synthetic header given to pipe-delimited exports.
var PipeHeader = []string{"date", "description", "amount", "type", "category"}

var (
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
	rowPrefix = regexp.MustCompile(`^\s*Row\s+\d+:\s*`)
)

// parseDelimited tokenizes comma-separated text with a header row. Text
// whose first non-blank line uses pipes and no commas is rewritten into
// CSV with PipeHeader first.
func parseDelimited(data []byte, source model.RowSource) (*Parsed, error) {
	text := string(bytes.TrimPrefix(data, utf8BOM))

	if isPipeDelimited(text) {
		text = rewritePipes(text)
		source = model.SourcePipe
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	parsed := &Parsed{}
	var headers []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				parsed.RowErrors = append(parsed.RowErrors, err)
				continue
			}
			return nil, fmt.Errorf("failed to read delimited text: %w", err)
		}
		if isBlankRecord(record) {
			continue
		}

		if headers == nil {
			headers = cleanHeaders(record)
			continue
		}

		fields := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(record) {
				fields[header] = strings.TrimSpace(record[i])
			}
		}
		parsed.Rows = append(parsed.Rows, model.RawRow{
			Source: source,
			Index:  len(parsed.Rows),
			Fields: fields,
		})
	}

	parsed.Headers = headers
	return parsed, nil
}

func isPipeDelimited(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		return strings.Contains(line, "|") && !strings.Contains(line, ",")
	}
	return false
}

func rewritePipes(text string) string {
	var b strings.Builder
	b.WriteString(strings.Join(PipeHeader, ","))
	b.WriteByte('\n')
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		line = rowPrefix.ReplaceAllString(line, "")
		b.WriteString(strings.ReplaceAll(line, "|", ","))
		b.WriteByte('\n')
	}
	return b.String()
}

// cleanHeaders trims header names and gives blank or repeated ones a
// positional name so every column stays addressable.
func cleanHeaders(record []string) []string {
	headers := make([]string, len(record))
	seen := make(map[string]bool, len(record))
	for i, h := range record {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			h = fmt.Sprintf("column_%d", i+1)
		}
		seen[h] = true
		headers[i] = h
	}
	return headers
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
