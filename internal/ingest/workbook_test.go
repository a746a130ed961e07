package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/reconcile/internal/common"
	"github.com/Veraticus/reconcile/internal/model"
)

func buildWorkbook(t *testing.T, rows [][]any, hidden ...int) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	for _, h := range hidden {
		require.NoError(t, f.SetRowVisible("Sheet1", h, false))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseWorkbook_XLSX(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"Posted Dt", "Memo", "Txn Amt"},
		{"2024-02-01", "Office chairs", "-350.00"},
		{},
		{"2024-02-03", "Hidden subtotal", "-999"},
		{"2024-02-04", "Client payment", "1200"},
	}, 4)

	parsed, err := parseWorkbook(FormatXLSX, data)
	require.NoError(t, err)

	assert.Equal(t, []string{"Posted Dt", "Memo", "Txn Amt"}, parsed.Headers)
	require.Len(t, parsed.Rows, 2)
	assert.Equal(t, model.SourceExcel, parsed.Rows[0].Source)
	assert.Equal(t, "Office chairs", parsed.Rows[0].Get("Memo"))
	assert.Equal(t, "Client payment", parsed.Rows[1].Get("Memo"))
}

func TestParseWorkbook_Empty(t *testing.T) {
	data := buildWorkbook(t, nil)

	_, err := parseWorkbook(FormatXLSX, data)
	assert.ErrorIs(t, err, common.ErrEmptyWorkbook)
}

func TestParseWorkbook_NotAWorkbook(t *testing.T) {
	_, err := parseWorkbook(FormatXLS, []byte("definitely not a spreadsheet"))
	assert.Error(t, err)
}

func TestCheckBinaryMarkers(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		corrupt bool
	}{
		{name: "plain text", text: "date,amount\n2024-01-01,5\n"},
		{name: "zip header", text: "PK\x03\x04rest", corrupt: true},
		{name: "content types", text: "a,[Content_Types].xml", corrupt: true},
		{name: "drawing part", text: "xl/drawings/drawing1.xml", corrupt: true},
		{name: "drawing xml", text: "<xdr:wsDr>", corrupt: true},
		{name: "nul byte", text: "a\x00b", corrupt: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkBinaryMarkers(tt.text)
			if tt.corrupt {
				assert.ErrorIs(t, err, common.ErrCorruptedWorkbook)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWorkbookText_DropsBlankRows(t *testing.T) {
	text, err := workbookText([][]string{{"a", "b"}, {"", " "}, {"1", "2"}})
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", text)

	_, err = workbookText([][]string{{""}})
	assert.ErrorIs(t, err, common.ErrEmptyWorkbook)
}
