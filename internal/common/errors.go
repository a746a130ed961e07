// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common application errors.
var (
	// Upload validation errors.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("file is empty")
	ErrFileTooLarge      = errors.New("file too large")

	// Parsing errors.
	ErrEmptyWorkbook     = errors.New("workbook has no readable sheet")
	ErrCorruptedWorkbook = errors.New("workbook conversion produced binary data")
	ErrParse             = errors.New("failed to parse file")
	ErrNoTransactions    = errors.New("no transactions found")

	// Session errors.
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// Matching errors.
	ErrTooManyPairs        = errors.New("too many transaction pairs to match")
	ErrBookRequiresTabular = errors.New("bookkeeping matching requires a tabular statement")

	// Database errors.
	ErrNotFound = errors.New("not found")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// ParseError wraps a fatal parse failure with the file it came from.
type ParseError struct {
	Err    error
	File   string
	Format string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s file %q: %v", e.Format, e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is makes every ParseError match ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// NoTransactionsError reports an upload that yielded nothing usable and
// carries the column names the mapper understands.
type NoTransactionsError struct {
	Expected map[string][]string
	File     string
}

func (e *NoTransactionsError) Error() string {
	return fmt.Sprintf("%v in %q", ErrNoTransactions, e.File)
}

func (e *NoTransactionsError) Unwrap() error {
	return ErrNoTransactions
}

// Hint describes the headers an upload should have used.
func (e *NoTransactionsError) Hint() string {
	fields := make([]string, 0, len(e.Expected))
	for field := range e.Expected {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s (%s)", field, strings.Join(e.Expected[field], ", ")))
	}
	return "Expected columns: " + strings.Join(parts, "; ")
}
