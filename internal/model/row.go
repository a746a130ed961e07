package model

// RowSource identifies which parser produced a RawRow.
type RowSource string

// Row sources.
const (
	SourceCSV   RowSource = "csv"
	SourcePipe  RowSource = "pipe"
	SourceExcel RowSource = "excel"
	// SourceMultiMonth rows come from month/name/amount ledgers where
	// several months sit side by side in one sheet.
	SourceMultiMonth RowSource = "multi_month"
)

// RawRow is one data row from a tabular file, keyed by header.
// Rows are discarded once normalized.
type RawRow struct {
	Source RowSource
	Index  int
	Fields map[string]string
}

// Get returns the cell under header, or "" when absent.
func (r RawRow) Get(header string) string {
	if header == "" {
		return ""
	}
	return r.Fields[header]
}

// ColumnMapping names the headers holding the date, amount and description.
type ColumnMapping struct {
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}
