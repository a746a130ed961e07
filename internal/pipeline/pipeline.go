// Package pipeline runs an uploaded statement through parsing, normalization,
// duplicate detection and matching, and produces the session result.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/reconcile/internal/common"
	"github.com/Veraticus/reconcile/internal/duplicate"
	"github.com/Veraticus/reconcile/internal/ingest"
	"github.com/Veraticus/reconcile/internal/match"
	"github.com/Veraticus/reconcile/internal/model"
	"github.com/Veraticus/reconcile/internal/normalize"
	"github.com/Veraticus/reconcile/internal/service"
)

// DefaultTTL is how long a session result stays retrievable.
const DefaultTTL = 24 * time.Hour

// Time saved per transaction. Tabular uploads are reported in hours and
// OFX uploads in minutes.
const (
	csvMinutesPerTransaction = 0.5
	ofxMinutesPerTransaction = 2
)

// Upload is one file handed to the pipeline. MultiMonth forces the
// multi-month ledger layout for CSV and TXT files.
type Upload struct {
	FileName   string
	Data       []byte
	MultiMonth bool
}

// Pipeline processes uploads. It holds no per-request state and is safe
// for concurrent use.
type Pipeline struct {
	parser  *ingest.Parser
	engine  *match.Engine
	history service.TransactionHistory
	now     func() time.Time
	ttl     time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEngine sets the match engine.
func WithEngine(engine *match.Engine) Option {
	return func(p *Pipeline) { p.engine = engine }
}

// WithClock sets the processing clock.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithTTL sets the session lifetime stamped on results.
func WithTTL(ttl time.Duration) Option {
	return func(p *Pipeline) { p.ttl = ttl }
}

// WithHistory enables re-import checks against transactions already
// stored for the uploading user.
func WithHistory(history service.TransactionHistory) Option {
	return func(p *Pipeline) { p.history = history }
}

// New creates a pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		engine: match.NewEngine(),
		now:    time.Now,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.parser = ingest.NewParserWithClock(p.now)
	return p
}

// Engine returns the match engine in use.
func (p *Pipeline) Engine() *match.Engine {
	return p.engine
}

// Load parses one file and returns its transactions. Tabular files are
// column-mapped and normalized; OFX files come back as scanned. A file with
// no usable transactions yields a *common.NoTransactionsError.
func (p *Pipeline) Load(ctx context.Context, upload Upload) ([]model.Transaction, *ingest.Parsed, error) {
	return p.load(ctx, upload, "txn")
}

func (p *Pipeline) load(ctx context.Context, upload Upload, idPrefix string) ([]model.Transaction, *ingest.Parsed, error) {
	opts := ingest.Options{MultiMonth: upload.MultiMonth}
	parsed, err := p.parser.ParseWithOptions(ctx, upload.FileName, upload.Data, opts)
	if err != nil {
		return nil, nil, err
	}

	txns := parsed.Transactions
	if parsed.Format.IsTabular() {
		mapping := normalize.MapColumns(parsed.Headers)
		slog.DebugContext(ctx, "Mapped columns",
			"file", upload.FileName,
			"date", mapping.Date,
			"amount", mapping.Amount,
			"description", mapping.Description)

		n := &normalize.Normalizer{Now: p.now, IDPrefix: idPrefix}
		txns = n.Normalize(parsed.Rows, mapping)
	}

	if len(txns) == 0 {
		return nil, parsed, &common.NoTransactionsError{
			Expected: normalize.ExpectedColumns(),
			File:     upload.FileName,
		}
	}
	return txns, parsed, nil
}

// Process runs a bank statement, and optionally a bookkeeping export to
// match against, through the whole pipeline.
func (p *Pipeline) Process(ctx context.Context, bank Upload, book *Upload) (*model.SessionResult, error) {
	return p.ProcessForUser(ctx, "", bank, book)
}

// ProcessForUser is Process for a known user. When a history is configured,
// transactions the user already reconciled are set aside in Existing.
// A bookkeeping file is only accepted with a tabular statement.
func (p *Pipeline) ProcessForUser(ctx context.Context, userID string, bank Upload, book *Upload) (*model.SessionResult, error) {
	if book != nil {
		if format, err := ingest.DetectWithLimit(bank.FileName, int64(len(bank.Data)), 0); err == nil && format.IsOFX() {
			return nil, common.NewUserError(
				"A bookkeeping file can only be matched against a CSV, text or Excel statement.",
				common.ErrBookRequiresTabular)
		}
	}

	txns, parsed, err := p.Load(ctx, bank)
	if err != nil {
		return nil, err
	}

	processedAt := p.now()
	result := &model.SessionResult{
		ID:           NewSessionID(),
		FileName:     bank.FileName,
		UserID:       userID,
		Transactions: txns,
		Duplicates:   []model.DuplicateGroup{},
		Matches:      []model.AutoMatch{},
		Statement:    parsed.Statement,
		ProcessedAt:  processedAt,
		ExpiresAt:    processedAt.Add(p.ttl),
	}

	if parsed.Format.IsOFX() {
		result.Source = model.ResultOFX
		result.TimeSaved = float64(len(txns)) * ofxMinutesPerTransaction
		result.Summary.TimeSavedUnit = model.UnitMinutes
	} else {
		result.Source = model.ResultCSV
		result.TimeSaved = float64(len(txns)) * csvMinutesPerTransaction / 60
		result.Summary.TimeSavedUnit = model.UnitHours
		result.Duplicates = duplicate.Detect(txns)

		if book != nil {
			bookTxns, _, err := p.load(ctx, *book, "book")
			if err != nil {
				return nil, fmt.Errorf("bookkeeping file: %w", err)
			}
			result.Book = bookTxns
		}
	}

	result.Existing = p.previouslyImported(ctx, userID, duplicate.Without(txns, result.Duplicates))

	if err := p.Refresh(ctx, result); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Processed upload",
		"session_id", result.ID,
		"file", bank.FileName,
		"source", result.Source,
		"transactions", result.Summary.TotalTransactions,
		"duplicates", result.Summary.DuplicatesFound,
		"previously_imported", result.Summary.PreviouslyImported,
		"matches", result.Summary.MatchesFound,
		"unmatched", result.Summary.UnmatchedCount,
		"book_only", result.Summary.BookOnlyCount)

	return result, nil
}

// previouslyImported returns the transactions in txns whose HistoryKey is
// already stored for userID. A failed lookup is logged and treated as no
// history so the upload still goes through.
func (p *Pipeline) previouslyImported(ctx context.Context, userID string, txns []model.Transaction) []model.Transaction {
	if p.history == nil || userID == "" {
		return nil
	}

	stored, err := p.history.ListUserTransactions(ctx, userID)
	if err != nil {
		common.LogError(ctx, err, "Failed to load transaction history", common.Fields{"user_id": userID})
		return nil
	}

	known := make(map[string]bool, len(stored))
	for _, txn := range stored {
		known[txn.HistoryKey()] = true
	}

	var existing []model.Transaction
	for _, txn := range txns {
		if known[txn.HistoryKey()] {
			existing = append(existing, txn)
		}
	}

	slog.DebugContext(ctx, "Checked upload against history",
		"user_id", userID,
		"stored", len(stored),
		"previously_imported", len(existing))
	return existing
}

// Refresh recomputes candidates, unmatched transactions and the summary
// from the result's transactions, duplicates, bookkeeping set and review
// decisions.
func (p *Pipeline) Refresh(ctx context.Context, result *model.SessionResult) error {
	ws, err := p.workspace(ctx, result)
	if err != nil {
		return err
	}

	result.Matches = ws.Candidates()
	result.Unmatched = ws.Unmatched()
	result.BookOnly = ws.UnmatchedBook()
	result.Summary = model.Summary{
		TotalTransactions:  len(result.Transactions),
		DuplicatesFound:    duplicate.Groups(result.Duplicates).Count(),
		PreviouslyImported: len(result.Existing),
		UnmatchedCount:     len(result.Unmatched),
		BookOnlyCount:      len(result.BookOnly),
		MatchesFound:       len(result.Matches),
		TimeSaved:          result.TimeSaved,
		TimeSavedUnit:      result.Summary.TimeSavedUnit,
	}
	return nil
}

// workingBank is the bank side still open for matching: everything not
// flagged as a duplicate or as previously imported.
func workingBank(result *model.SessionResult) []model.Transaction {
	bank := duplicate.Without(result.Transactions, result.Duplicates)
	if len(result.Existing) == 0 {
		return bank
	}
	existing := make(map[string]bool, len(result.Existing))
	for _, txn := range result.Existing {
		existing[txn.ID] = true
	}
	out := bank[:0]
	for _, txn := range bank {
		if !existing[txn.ID] {
			out = append(out, txn)
		}
	}
	return out
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return "session_" + uuid.NewString()
}
