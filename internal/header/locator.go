// =============================================================================
// TPA Claim Loader - Header Row Locator
// =============================================================================
//
// TPA workbooks often carry title banners, blank spacer rows, or merged
// cells above the real column headers. The locator inspects a small bounded
// window at the top of a sheet (10 rows x 5 columns by default) and returns
// the zero-based index of the first row whose sampled cells are all present.
//
// ACCEPTANCE RULE:
//   A row is the header row when every cell across the sampled width is
//   non-empty and is not the literal null placeholder ("null").
//
// OUTCOMES:
//   - index, nil               : header row found
//   - -1, ErrHeaderNotFound    : sample read, but no row qualified
//   - -1, *SourceReadError     : the sample itself could not be read
//
// Only the window is inspected, never the whole sheet, so detection costs
// the same for a ten-row sheet and a million-row one.
//
// =============================================================================

package header

import (
	"errors"
	"fmt"
)

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultSampleRows is the number of leading rows inspected.
	DefaultSampleRows = 10

	// DefaultSampleCols is the number of leading columns inspected.
	DefaultSampleCols = 5

	// DefaultNullPlaceholder is the literal text some exports write for null.
	DefaultNullPlaceholder = "null"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrHeaderNotFound means the sample was read but no row within it looks like
// a header. The sheet may still be usable with a wider window or a different
// sheet, so callers should flag it rather than fail the whole file.
var ErrHeaderNotFound = errors.New("no header row found in sample window")

// SourceReadError means the bounded sample could not be read at all.
// Retrying with a different window will not help.
type SourceReadError struct {
	Sheet string
	Err   error
}

func (e *SourceReadError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("failed to read sheet sample: %v", e.Err)
	}
	return fmt.Sprintf("failed to read sample of sheet %q: %v", e.Sheet, e.Err)
}

func (e *SourceReadError) Unwrap() error {
	return e.Err
}

// errEmptySample is wrapped in a SourceReadError when a sheet has no rows.
var errEmptySample = errors.New("sheet returned no rows")

// =============================================================================
// SAMPLE
// =============================================================================

// Sample is the bounded top-left window of a sheet. Rows may be ragged; a
// cell past the end of its row counts as missing.
type Sample struct {
	Rows [][]string
}

// Width returns the number of columns covered by the widest row.
func (s Sample) Width() int {
	width := 0
	for _, row := range s.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// SampleSource supplies a bounded window of a named sheet.
type SampleSource interface {
	Sample(sheet string, rows, cols int) (Sample, error)
}

// =============================================================================
// LOCATOR
// =============================================================================

// Locator finds header rows. The zero value uses the defaults.
type Locator struct {
	SampleRows      int
	SampleCols      int
	NullPlaceholder string
}

// DefaultLocator returns a Locator using a 10x5 window and "null" as the
// placeholder.
func DefaultLocator() Locator {
	return Locator{
		SampleRows:      DefaultSampleRows,
		SampleCols:      DefaultSampleCols,
		NullPlaceholder: DefaultNullPlaceholder,
	}
}

// Locate runs the default Locator over sample.
func Locate(sample Sample) (int, error) {
	return DefaultLocator().Locate(sample)
}

// LocateIn reads the bounded window of sheet from src and locates its header.
func (l Locator) LocateIn(src SampleSource, sheet string) (int, error) {
	l = l.withDefaults()

	sample, err := src.Sample(sheet, l.SampleRows, l.SampleCols)
	if err != nil {
		var readErr *SourceReadError
		if errors.As(err, &readErr) {
			return -1, err
		}
		return -1, &SourceReadError{Sheet: sheet, Err: err}
	}

	idx, err := l.Locate(sample)
	var readErr *SourceReadError
	if errors.As(err, &readErr) && readErr.Sheet == "" {
		readErr.Sheet = sheet
	}
	return idx, err
}

// Locate returns the index of the first row in sample whose cells are all
// present. Rows and columns beyond the Locator's window are ignored.
func (l Locator) Locate(sample Sample) (int, error) {
	l = l.withDefaults()

	if len(sample.Rows) == 0 {
		return -1, &SourceReadError{Err: errEmptySample}
	}

	window := l.window(sample)
	width := window.Width()

	for i, row := range window.Rows {
		if l.isComplete(row, width) {
			return i, nil
		}
	}
	return -1, ErrHeaderNotFound
}

// window trims sample to SampleRows x SampleCols.
func (l Locator) window(sample Sample) Sample {
	rows := sample.Rows
	if len(rows) > l.SampleRows {
		rows = rows[:l.SampleRows]
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) > l.SampleCols {
			row = row[:l.SampleCols]
		}
		out[i] = row
	}
	return Sample{Rows: out}
}

// isComplete reports whether row has a usable value in every one of the
// first width columns. An empty window never qualifies.
func (l Locator) isComplete(row []string, width int) bool {
	if width == 0 || len(row) < width {
		return false
	}
	for _, cell := range row[:width] {
		if cell == "" || cell == l.NullPlaceholder {
			return false
		}
	}
	return true
}

func (l Locator) withDefaults() Locator {
	if l.SampleRows <= 0 {
		l.SampleRows = DefaultSampleRows
	}
	if l.SampleCols <= 0 {
		l.SampleCols = DefaultSampleCols
	}
	if l.NullPlaceholder == "" {
		l.NullPlaceholder = DefaultNullPlaceholder
	}
	return l
}
