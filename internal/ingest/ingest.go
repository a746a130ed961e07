// Package ingest detects statement formats and turns uploaded bytes into
// raw rows or, for OFX, transactions.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/reconcile/internal/common"
	"github.com/Veraticus/reconcile/internal/model"
)

// Format is a supported statement file format.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatTXT  Format = "txt"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatOFX  Format = "ofx"
	FormatQFX  Format = "qfx"
)

// DefaultMaxFileSize is the largest upload accepted, in bytes.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

var extensions = map[string]Format{
	".csv":  FormatCSV,
	".txt":  FormatTXT,
	".xlsx": FormatXLSX,
	".xls":  FormatXLS,
	".ofx":  FormatOFX,
	".qfx":  FormatQFX,
}

// IsTabular reports whether the format yields raw rows that still need
// column mapping.
func (f Format) IsTabular() bool {
	return f == FormatCSV || f == FormatTXT || f == FormatXLSX || f == FormatXLS
}

// IsOFX reports whether the format is an OFX statement.
func (f Format) IsOFX() bool {
	return f == FormatOFX || f == FormatQFX
}

// SupportedExtensions lists the accepted file extensions.
func SupportedExtensions() []string {
	return []string{".csv", ".txt", ".xlsx", ".xls", ".ofx", ".qfx"}
}

// Detect validates an upload by name and size using DefaultMaxFileSize.
func Detect(filename string, size int64) (Format, error) {
	return DetectWithLimit(filename, size, DefaultMaxFileSize)
}

// DetectWithLimit validates an upload before any bytes are read.
func DetectWithLimit(filename string, size, maxSize int64) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	format, ok := extensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, ext)
	}
	if size <= 0 {
		return "", common.ErrEmptyFile
	}
	if maxSize > 0 && size > maxSize {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d", common.ErrFileTooLarge, size, maxSize)
	}
	return format, nil
}

// Parsed is the output of a single file parse. Tabular formats fill Headers
// and Rows; OFX fills Transactions and, when available, Statement.
type Parsed struct {
	Format       Format
	Headers      []string
	Rows         []model.RawRow
	Transactions []model.Transaction
	Statement    *model.StatementInfo
	RowErrors    []error
}

// Options adjusts how a single file is parsed.
type Options struct {
	// MultiMonth forces the multi-month ledger layout for CSV and TXT
	// files. Without it the layout is still chosen when the text looks
	// like one.
	MultiMonth bool
}

// Parser turns file bytes into a Parsed result.
type Parser struct {
	now func() time.Time
	ofx *ofxScanner
}

// NewParser creates a parser that reads the wall clock.
func NewParser() *Parser {
	return NewParserWithClock(nil)
}

// NewParserWithClock creates a parser whose OFX ids, missing-date fallback
// and multi-month ledger year come from now.
func NewParserWithClock(now func() time.Time) *Parser {
	if now == nil {
		now = time.Now
	}
	return &Parser{now: now, ofx: newOFXScanner(now)}
}

// Parse is a convenience wrapper around NewParser().Parse.
func Parse(ctx context.Context, filename string, data []byte) (*Parsed, error) {
	return NewParser().Parse(ctx, filename, data)
}

// Parse dispatches on the file extension with default options.
func (p *Parser) Parse(ctx context.Context, filename string, data []byte) (*Parsed, error) {
	return p.ParseWithOptions(ctx, filename, data, Options{})
}

// ParseWithOptions dispatches on the file extension. Fatal failures are
// returned as *common.ParseError and no partial result is produced.
func (p *Parser) ParseWithOptions(ctx context.Context, filename string, data []byte, opts Options) (*Parsed, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context canceled: %w", err)
	}

	format, err := DetectWithLimit(filename, int64(len(data)), 0)
	if err != nil {
		return nil, err
	}

	var parsed *Parsed
	switch format {
	case FormatCSV, FormatTXT:
		text := string(bytes.TrimPrefix(data, utf8BOM))
		if opts.MultiMonth || looksMultiMonth(text) {
			slog.Debug("Using multi-month ledger layout", "file", filename, "forced", opts.MultiMonth)
			parsed, err = parseMultiMonth(text, p.now().Year())
		} else {
			parsed, err = parseDelimited(data, model.SourceCSV)
		}
	case FormatXLSX, FormatXLS:
		parsed, err = parseWorkbook(format, data)
	case FormatOFX, FormatQFX:
		parsed, err = p.ofx.scan(ctx, data)
	}
	if err != nil {
		return nil, &common.ParseError{Err: err, File: filename, Format: string(format)}
	}
	parsed.Format = format

	for _, rowErr := range parsed.RowErrors {
		slog.Warn("Skipped malformed row", "file", filename, "error", rowErr)
	}
	slog.Debug("Parsed statement file",
		"file", filename,
		"format", format,
		"rows", len(parsed.Rows),
		"transactions", len(parsed.Transactions),
		"row_errors", len(parsed.RowErrors))

	return parsed, nil
}
