// =============================================================================
// TPA Claim Loader - Workbook Reader
// =============================================================================
//
// This module opens uploaded TPA files and exposes them as a set of named
// sheets. It serves two callers:
//   - the header locator, which needs a small bounded window of a sheet
//   - the pipeline, which reads the full table once the header row is known
//
// SUPPORTED FORMATS:
//   - .xlsx / .xlsm / .xltx / .xltm : read with excelize, one entry per sheet
//   - .csv                          : read with encoding/csv, a single sheet
//                                     named after the file stem
//
// All cell values come back as formatted text, so tables handed to a sink
// are text-typed throughout.
//
// =============================================================================

package workbook

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/tpa-claim-loader/internal/header"
	"github.com/ginjaninja78/tpa-claim-loader/internal/types"
)

// ErrNoData means the sheet has a header row but nothing below it.
var ErrNoData = errors.New("sheet has no data rows")

// ErrUnsupportedFormat is returned for file extensions no reader handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// =============================================================================
// WORKBOOK INTERFACE
// =============================================================================

// Workbook is an open TPA file. Callers must Close it.
type Workbook interface {
	header.SampleSource

	// Name returns the original filename.
	Name() string

	// SheetNames returns the visible sheet names in workbook order.
	SheetNames() []string

	// ReadTable reads sheet starting at headerRow. The header row supplies
	// the column titles and every later non-empty row becomes a data row.
	ReadTable(sheet string, headerRow int) (*types.Table, error)

	Close() error
}

// Options controls how files are read.
type Options struct {
	// CSVDelimiter is the field separator for CSV files. Accepts a single
	// character or one of "tab", "pipe", "semicolon". Default ",".
	CSVDelimiter string
}

// =============================================================================
// OPENING FILES
// =============================================================================

// Open opens the file at path, choosing a reader from its extension.
func Open(path string, opts Options) (Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return OpenReader(filepath.Base(path), f, opts)
}

// OpenReader reads a workbook from r. The name is only used to pick the
// format and to name the sheet of a CSV file.
func OpenReader(name string, r io.Reader, opts Options) (Workbook, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		wb, err := openExcel(name, r)
		if err != nil {
			return nil, err
		}
		return wb, nil
	case ".csv":
		wb, err := openCSV(name, r, opts)
		if err != nil {
			return nil, err
		}
		return wb, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// IsSupported reports whether path has an extension OpenReader accepts.
func IsSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm", ".csv":
		return true
	}
	return false
}

// =============================================================================
// TABLE BUILDING
// =============================================================================

// buildTable turns raw rows (starting at the sheet's first row) into a
// Table whose header is rows[headerRow].
func buildTable(sheet string, rows [][]string, headerRow int) (*types.Table, error) {
	if headerRow < 0 || headerRow >= len(rows) {
		return nil, fmt.Errorf("header row %d is outside sheet %q (%d rows)", headerRow, sheet, len(rows))
	}

	var data [][]string
	width := len(rows[headerRow])
	for _, row := range rows[headerRow+1:] {
		if isRowEmpty(row) {
			continue
		}
		if len(row) > width {
			width = len(row)
		}
		data = append(data, row)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, sheet)
	}

	table := &types.Table{
		Columns:   cleanColumns(rows[headerRow], width),
		Rows:      make([][]string, len(data)),
		Sheet:     sheet,
		HeaderRow: headerRow,
	}
	for i, row := range data {
		padded := make([]string, width)
		copy(padded, row)
		table.Rows[i] = padded
	}

	return table, nil
}

// cleanColumns trims titles, names blank ones by position, and suffixes
// duplicates so every column title is unique.
func cleanColumns(titles []string, width int) []string {
	cleaned := make([]string, width)
	seen := make(map[string]int, width)

	for i := 0; i < width; i++ {
		title := ""
		if i < len(titles) {
			title = strings.TrimSpace(titles[i])
		}
		if title == "" {
			title = fmt.Sprintf("column_%d", i+1)
		}

		key := strings.ToLower(title)
		seen[key]++
		if n := seen[key]; n > 1 {
			// A suffixed title may itself already be a column title.
			candidate := fmt.Sprintf("%s_%d", title, n)
			for seen[strings.ToLower(candidate)] > 0 {
				n++
				candidate = fmt.Sprintf("%s_%d", title, n)
			}
			title = candidate
			seen[strings.ToLower(title)]++
		}

		cleaned[i] = title
	}

	return cleaned
}

// truncate bounds rows to at most maxRows rows of at most maxCols cells.
func truncate(rows [][]string, maxRows, maxCols int) [][]string {
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) > maxCols {
			row = row[:maxCols]
		}
		out[i] = append([]string(nil), row...)
	}
	return out
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
