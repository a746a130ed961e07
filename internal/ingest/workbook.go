package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/reconcile/internal/common"
	"github.com/Veraticus/reconcile/internal/model"
)

// binaryMarkers betray a workbook that was dumped as its zip container or
// drawing XML instead of cell text.
var binaryMarkers = []string{
	"PK\x03\x04",
	"[Content_Types].xml",
	"xl/drawings",
	"<xdr:",
	"\x00",
}

// parseWorkbook converts the first worksheet into CSV text and parses that.
func parseWorkbook(format Format, data []byte) (*Parsed, error) {
	var (
		rows [][]string
		err  error
	)
	if format == FormatXLS {
		rows, err = readXLS(data)
		if err != nil {
			// Some exports are xlsx files carrying a legacy extension.
			slog.Debug("Legacy workbook read failed, trying xlsx", "error", err)
			rows, err = readXLSX(data)
		}
	} else {
		rows, err = readXLSX(data)
	}
	if err != nil {
		return nil, err
	}

	text, err := workbookText(rows)
	if err != nil {
		return nil, err
	}
	if err := checkBinaryMarkers(text); err != nil {
		return nil, err
	}

	parsed, err := parseDelimited([]byte(text), model.SourceExcel)
	if err != nil {
		return nil, err
	}
	if parsed.Headers == nil {
		return nil, common.ErrEmptyWorkbook
	}
	return parsed, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Debug("Failed to close workbook", "error", cerr)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, common.ErrEmptyWorkbook
	}
	sheet := sheets[0]

	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	rows := make([][]string, 0, len(all))
	for i, row := range all {
		visible, err := f.GetRowVisible(sheet, i+1)
		if err == nil && !visible {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readXLS(data []byte) (rows [][]string, err error) {
	// The legacy reader panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("failed to read legacy workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy workbook: %w", err)
	}
	if wb == nil {
		return nil, fmt.Errorf("failed to open legacy workbook: no workbook stream")
	}
	if wb.NumSheets() == 0 {
		return nil, common.ErrEmptyWorkbook
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, common.ErrEmptyWorkbook
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for c := 0; c <= row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// xlsRow returns nil for rows the sheet never defined.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

// workbookText renders rows as CSV, dropping rows with no printable cell.
func workbookText(rows [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	written := 0
	for _, row := range rows {
		if isBlankRecord(row) {
			continue
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to render workbook row: %w", err)
		}
		written++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to render workbook: %w", err)
	}
	if written == 0 {
		return "", common.ErrEmptyWorkbook
	}
	return buf.String(), nil
}

func checkBinaryMarkers(text string) error {
	for _, marker := range binaryMarkers {
		if strings.Contains(text, marker) {
			return fmt.Errorf("%w: found %q", common.ErrCorruptedWorkbook, strings.Trim(marker, "\x00\x03\x04"))
		}
	}
	return nil
}
