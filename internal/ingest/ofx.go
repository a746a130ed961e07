package ingest

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/reconcile/internal/model"
	"github.com/Veraticus/reconcile/internal/normalize"
)

var (
	stmtTrnBlock = regexp.MustCompile(`(?is)<STMTTRN>(.*?)</STMTTRN>`)
	dtPosted     = regexp.MustCompile(`(?i)<DTPOSTED>\s*(\d{8})`)
	severityTag  = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	unclosedTag  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)

	tagPatterns = map[string]*regexp.Regexp{}
)

func init() {
	for _, tag := range []string{"TRNAMT", "TRNTYPE", "NAME", "PAYEE", "MEMO", "FITID"} {
		tagPatterns[tag] = regexp.MustCompile(`(?i)<` + tag + `>([^<\r\n]*)`)
	}
}

// ofxScanner extracts transactions from OFX/QFX text by scanning STMTTRN
// blocks, which tolerates the SGML dialects many banks emit.
type ofxScanner struct {
	now func() time.Time
}

func newOFXScanner(now func() time.Time) *ofxScanner {
	if now == nil {
		now = time.Now
	}
	return &ofxScanner{now: now}
}

func (s *ofxScanner) scan(ctx context.Context, data []byte) (*Parsed, error) {
	content := string(data)
	now := s.now()

	blocks := stmtTrnBlock.FindAllStringSubmatch(content, -1)
	parsed := &Parsed{Transactions: make([]model.Transaction, 0, len(blocks))}

	for i, block := range blocks {
		txn, err := s.convertBlock(block[1], i, now)
		if err != nil {
			parsed.RowErrors = append(parsed.RowErrors, fmt.Errorf("transaction %d: %w", i+1, err))
			continue
		}
		parsed.Transactions = append(parsed.Transactions, txn)
	}

	parsed.Statement = statementInfo(ctx, content)

	slog.Info("Parsed OFX file",
		"blocks", len(blocks),
		"total_transactions", len(parsed.Transactions),
		"has_statement", parsed.Statement != nil)

	return parsed, nil
}

func (s *ofxScanner) convertBlock(block string, index int, now time.Time) (model.Transaction, error) {
	raw := tagValue(block, "TRNAMT")
	if strings.Contains(raw, ",") && !strings.Contains(raw, ".") {
		raw = strings.ReplaceAll(raw, ",", ".")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if amount.IsZero() {
		return model.Transaction{}, fmt.Errorf("zero amount")
	}

	date := now.Format(normalize.DateLayout)
	if m := dtPosted.FindStringSubmatch(block); m != nil {
		date = m[1][0:4] + "-" + m[1][4:6] + "-" + m[1][6:8]
	}

	return model.Transaction{
		ID:          fmt.Sprintf("ofx_%d_%d", index, now.UnixNano()),
		Amount:      amount.Abs(),
		Description: normalize.CleanDescription(ofxDescription(block)),
		Date:        date,
		Type:        ofxType(tagValue(block, "TRNTYPE"), amount),
		Reference:   tagValue(block, "FITID"),
	}, nil
}

func ofxDescription(block string) string {
	for _, tag := range []string{"NAME", "PAYEE", "MEMO"} {
		if v := tagValue(block, tag); v != "" {
			return html.UnescapeString(v)
		}
	}
	return ""
}

// ofxType keeps explicit CREDIT/DEBIT tags and derives the rest from the sign.
func ofxType(tag string, amount decimal.Decimal) model.TransactionType {
	switch strings.ToUpper(tag) {
	case string(model.TypeCreditUpper):
		return model.TypeCreditUpper
	case string(model.TypeDebitUpper):
		return model.TypeDebitUpper
	}
	if amount.IsPositive() {
		return model.TypeCreditUpper
	}
	return model.TypeDebitUpper
}

func tagValue(block, tag string) string {
	m := tagPatterns[tag].FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// preprocessOFX fixes common formatting issues before a structured parse.
func preprocessOFX(content string) string {
	// Trim any leading whitespace or blank lines before the header
	content = strings.TrimLeft(content, " \t\r\n")

	content = severityTag.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML files sometimes drop the closing bracket of a bare opening tag
	content = unclosedTag.ReplaceAllString(content, "$1>")

	return content
}

// statementInfo runs a full ofxgo parse for account metadata. Many real
// files fail strict parsing; those simply carry no statement info.
func statementInfo(ctx context.Context, content string) *model.StatementInfo {
	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(content)))
	if err != nil {
		slog.DebugContext(ctx, "OFX statement metadata unavailable", "error", err)
		return nil
	}

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			info := &model.StatementInfo{
				AccountID:     string(stmt.BankAcctFrom.AcctID),
				AccountType:   stmt.BankAcctFrom.AcctType.String(),
				Currency:      stmt.CurDef.String(),
				LedgerBalance: ledgerBalance(&stmt.BalAmt),
			}
			setPeriod(info, stmt.BankTranList)
			return info
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			info := &model.StatementInfo{
				AccountID:     string(stmt.CCAcctFrom.AcctID),
				AccountType:   "CREDITCARD",
				Currency:      stmt.CurDef.String(),
				LedgerBalance: ledgerBalance(&stmt.BalAmt),
			}
			setPeriod(info, stmt.BankTranList)
			return info
		}
	}

	return nil
}

func ledgerBalance(amt *ofxgo.Amount) *decimal.Decimal {
	bal, err := decimal.NewFromString(amt.FloatString(2))
	if err != nil {
		return nil
	}
	return &bal
}

func setPeriod(info *model.StatementInfo, list *ofxgo.TransactionList) {
	if list == nil {
		return
	}
	if !list.DtStart.IsZero() {
		info.PeriodStart = list.DtStart.Format(normalize.DateLayout)
	}
	if !list.DtEnd.IsZero() {
		info.PeriodEnd = list.DtEnd.Format(normalize.DateLayout)
	}
}
