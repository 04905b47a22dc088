// =============================================================================
// TPA Claim Loader - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - workbook
//   - sink
//   - pipeline
//
// =============================================================================

package types

// =============================================================================
// TABLE TYPES
// =============================================================================

// Table is a rectangular, all-text table read from one sheet, starting at
// its header row. Every row has exactly len(Columns) cells.
type Table struct {
	// Columns contains the column titles from the header row.
	Columns []string

	// Rows contains the data rows below the header row.
	Rows [][]string

	// Sheet is the name of the sheet the table was read from.
	Sheet string

	// HeaderRow is the zero-based row index of the header within the sheet.
	HeaderRow int
}

// AppendColumn adds a column with the same value on every row.
func (t *Table) AppendColumn(name, value string) {
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], value)
	}
}

// Width returns the number of columns.
func (t *Table) Width() int {
	return len(t.Columns)
}
