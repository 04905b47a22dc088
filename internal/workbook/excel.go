package workbook

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/tpa-claim-loader/internal/header"
	"github.com/ginjaninja78/tpa-claim-loader/internal/types"
)

// excelWorkbook wraps an open excelize file.
type excelWorkbook struct {
	name string
	file *excelize.File
}

func openExcel(name string, r io.Reader) (*excelWorkbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", name, err)
	}
	return &excelWorkbook{name: name, file: f}, nil
}

func (w *excelWorkbook) Name() string {
	return w.name
}

// SheetNames skips hidden sheets; TPAs sometimes keep lookup tables there.
func (w *excelWorkbook) SheetNames() []string {
	var names []string
	for _, sheet := range w.file.GetSheetList() {
		visible, err := w.file.GetSheetVisible(sheet)
		if err == nil && !visible {
			continue
		}
		names = append(names, sheet)
	}
	return names
}

// Sample reads at most rows x cols cells from the top-left of sheet using the
// streaming row iterator, so the rest of the sheet is never materialized.
func (w *excelWorkbook) Sample(sheet string, rows, cols int) (header.Sample, error) {
	iter, err := w.file.Rows(sheet)
	if err != nil {
		return header.Sample{}, &header.SourceReadError{Sheet: sheet, Err: err}
	}
	defer iter.Close()

	var sampled [][]string
	for len(sampled) < rows && iter.Next() {
		row, err := iter.Columns()
		if err != nil {
			return header.Sample{}, &header.SourceReadError{Sheet: sheet, Err: err}
		}
		sampled = append(sampled, row)
	}
	if err := iter.Error(); err != nil {
		return header.Sample{}, &header.SourceReadError{Sheet: sheet, Err: err}
	}

	return header.Sample{Rows: truncate(sampled, rows, cols)}, nil
}

func (w *excelWorkbook) ReadTable(sheet string, headerRow int) (*types.Table, error) {
	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheet, err)
	}
	return buildTable(sheet, rows, headerRow)
}

func (w *excelWorkbook) Close() error {
	return w.file.Close()
}
