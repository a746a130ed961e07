package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/reconcile/internal/model"
)

const ledgerCSV = `January,"Smith, J","1,200.00",,February,"Smith, J","1,250.00"
March,"Booking Co",-45.10,,April,Spinney Ltd,80
"TOTAL ALL",,"2,575.00"
May,PRIVATE,100,,June,"Jones",0
ok,,,,,
HIGHLIGHTED = PAID,,,
`

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
}

func TestLooksMultiMonth(t *testing.T) {
	assert.True(t, looksMultiMonth(ledgerCSV))
	assert.False(t, looksMultiMonth("Date,Description,Amount\n2024-01-01,Coffee,-4.00\n"))
	assert.False(t, looksMultiMonth(`January,"A",1,February,"B",2,March,"C",3`), "no annotation markers")
	assert.False(t, looksMultiMonth("January,February,TOTAL ALL"), "fewer than three months")
}

func TestParseMultiMonth(t *testing.T) {
	parsed, err := parseMultiMonth(ledgerCSV, 2024)
	require.NoError(t, err)

	assert.Equal(t, MultiMonthHeader, parsed.Headers)
	var got []map[string]string
	for _, row := range parsed.Rows {
		assert.Equal(t, model.SourceMultiMonth, row.Source)
		got = append(got, row.Fields)
	}

	assert.Equal(t, []map[string]string{
		{"date": "2024-01-01", "description": "Smith, J", "amount": "1200.00", "category": "Unknown"},
		{"date": "2024-02-01", "description": "Smith, J", "amount": "1250.00", "category": "Unknown"},
		{"date": "2024-03-01", "description": "Booking Co", "amount": "-45.10", "category": "Unknown"},
		{"date": "2024-04-01", "description": "Spinney Ltd", "amount": "80", "category": "Unknown"},
	}, got)
}

func TestParse_MultiMonthDispatch(t *testing.T) {
	p := NewParserWithClock(fixedClock())

	parsed, err := p.Parse(context.Background(), "ledger.csv", []byte(ledgerCSV))
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, parsed.Format)
	require.Len(t, parsed.Rows, 4)
	assert.Equal(t, "2024-01-01", parsed.Rows[0].Fields["date"])

	plain := "January,Rent,-1200\nFebruary,Rent,-1200\n"
	parsed, err = p.Parse(context.Background(), "plain.txt", []byte(plain))
	require.NoError(t, err)
	assert.Equal(t, model.SourceCSV, parsed.Rows[0].Source, "not detected without markers")

	parsed, err = p.ParseWithOptions(context.Background(), "plain.txt", []byte(plain), Options{MultiMonth: true})
	require.NoError(t, err)
	require.Len(t, parsed.Rows, 2)
	assert.Equal(t, "2024-02-01", parsed.Rows[1].Fields["date"])
	assert.Equal(t, "-1200", parsed.Rows[1].Fields["amount"])
}

func TestParser_ClockReachesOFX(t *testing.T) {
	const noDate = `<OFX><STMTTRN><TRNTYPE>DEBIT<TRNAMT>-5.00<NAME>Fee</STMTTRN></OFX>`

	parsed, err := NewParserWithClock(fixedClock()).Parse(context.Background(), "fees.ofx", []byte(noDate))
	require.NoError(t, err)
	require.Len(t, parsed.Transactions, 1)
	assert.Equal(t, "2024-06-01", parsed.Transactions[0].Date)
	assert.Contains(t, parsed.Transactions[0].ID, "_1717200000000000000")
}
