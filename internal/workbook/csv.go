package workbook

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/ginjaninja78/tpa-claim-loader/internal/filename"
	"github.com/ginjaninja78/tpa-claim-loader/internal/header"
	"github.com/ginjaninja78/tpa-claim-loader/internal/types"
)

// csvWorkbook holds a whole CSV file as a single sheet. CSV exports are
// small enough that reading them fully up front is fine.
type csvWorkbook struct {
	name  string
	sheet string
	rows  [][]string
}

func openCSV(name string, r io.Reader, opts Options) (*csvWorkbook, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	configureReader(reader, opts.CSVDelimiter)

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV %s: %w", name, err)
	}

	return &csvWorkbook{
		name:  name,
		sheet: filename.RemoveExtension(name),
		rows:  rows,
	}, nil
}

// configureReader sets the delimiter and relaxes the reader for the ragged,
// loosely quoted files TPA systems produce.
func configureReader(reader *csv.Reader, delimiter string) {
	switch strings.ToLower(delimiter) {
	case "\\t", "tab":
		reader.Comma = '\t'
	case "|", "pipe":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(delimiter) > 0 {
			reader.Comma = rune(delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
}

func (w *csvWorkbook) Name() string {
	return w.name
}

func (w *csvWorkbook) SheetNames() []string {
	return []string{w.sheet}
}

func (w *csvWorkbook) Sample(sheet string, rows, cols int) (header.Sample, error) {
	if sheet != w.sheet {
		return header.Sample{}, &header.SourceReadError{Sheet: sheet, Err: fmt.Errorf("no such sheet in %s", w.name)}
	}
	return header.Sample{Rows: truncate(w.rows, rows, cols)}, nil
}

func (w *csvWorkbook) ReadTable(sheet string, headerRow int) (*types.Table, error) {
	if sheet != w.sheet {
		return nil, fmt.Errorf("no sheet %q in %s", sheet, w.name)
	}
	return buildTable(sheet, w.rows, headerRow)
}

func (w *csvWorkbook) Close() error {
	return nil
}
