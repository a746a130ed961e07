package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ResultSource identifies which upload path produced a SessionResult.
type ResultSource string

// Result sources.
const (
	ResultCSV ResultSource = "csv"
	ResultOFX ResultSource = "ofx"
)

// Units for Summary.TimeSaved. The two upload paths report different units.
const (
	UnitHours   = "hours"
	UnitMinutes = "minutes"
)

// StatementInfo holds account metadata from a well-formed OFX response.
type StatementInfo struct {
	AccountID     string           `json:"accountId,omitempty"`
	AccountType   string           `json:"accountType,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	LedgerBalance *decimal.Decimal `json:"ledgerBalance,omitempty"`
	PeriodStart   string           `json:"periodStart,omitempty"`
	PeriodEnd     string           `json:"periodEnd,omitempty"`
}

// Summary contains the headline counts for one processed upload.
type Summary struct {
	TotalTransactions  int     `json:"totalTransactions"`
	DuplicatesFound    int     `json:"duplicatesFound"`
	PreviouslyImported int     `json:"previouslyImported"`
	UnmatchedCount     int     `json:"unmatchedCount"`
	BookOnlyCount      int     `json:"bookOnlyCount"`
	MatchesFound       int     `json:"matchesFound"`
	TimeSaved          float64 `json:"timeSaved"`
	TimeSavedUnit      string  `json:"timeSavedUnit"`
}

// SessionResult is the pipeline output held in the temporary store.
// Existing holds transactions already stored for UserID by an earlier
// reconciliation; like duplicates they are kept out of matching. BookOnly
// holds bookkeeping transactions with no bank candidate.
type SessionResult struct {
	ID           string           `json:"sessionId"`
	Source       ResultSource     `json:"source"`
	FileName     string           `json:"fileName,omitempty"`
	UserID       string           `json:"userId,omitempty"`
	Transactions []Transaction    `json:"transactions"`
	Duplicates   []DuplicateGroup `json:"duplicates"`
	Existing     []Transaction    `json:"previouslyImported,omitempty"`
	Unmatched    []Transaction    `json:"unmatched"`
	Book         []Transaction    `json:"book,omitempty"`
	BookOnly     []Transaction    `json:"bookOnly,omitempty"`
	Matches      []AutoMatch      `json:"matches"`
	Accepted     []AutoMatch      `json:"accepted,omitempty"`
	Rejected     []MatchPair      `json:"rejected,omitempty"`
	Statement    *StatementInfo   `json:"statement,omitempty"`
	TimeSaved    float64          `json:"timeSaved"`
	ProcessedAt  time.Time        `json:"processedAt"`
	ExpiresAt    time.Time        `json:"expiresAt"`
	Summary      Summary          `json:"summary"`
}

// MatchPair identifies a bank/book pairing by transaction id.
type MatchPair struct {
	BankID string `json:"bankId"`
	BookID string `json:"bookId"`
}
