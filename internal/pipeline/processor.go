// =============================================================================
// TPA Claim Loader - Pipeline Module
// =============================================================================
//
// This module contains the core load logic. It orchestrates the entire
// pipeline for a single TPA file, from filename parsing to the sink.
//
// PIPELINE:
//   1. Parse the filename into TPA name and file date
//   2. Open the workbook and list its visible sheets
//   3. For each sheet:
//      a. Locate the header row in the bounded sample window
//      b. Read the table below the header
//      c. Append provenance columns (optional)
//      d. Replace the destination table in the sink
//
// A failure on one sheet is recorded on that sheet's result and the next
// sheet is still processed. Only failures that affect the whole file
// (unreadable file, unknown sheet filter, cancellation) are set on
// FileResult.Err.
//
// CONCURRENCY:
//   A Processor holds no per-file state, so one Processor can process many
//   files concurrently provided its Sink is safe for concurrent use.
//
// =============================================================================

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/tpa-claim-loader/internal/filename"
	"github.com/ginjaninja78/tpa-claim-loader/internal/header"
	"github.com/ginjaninja78/tpa-claim-loader/internal/logging"
	"github.com/ginjaninja78/tpa-claim-loader/internal/sink"
	"github.com/ginjaninja78/tpa-claim-loader/internal/types"
	"github.com/ginjaninja78/tpa-claim-loader/internal/workbook"
)

// ErrSheetNotFound is returned when Options.Sheet names a sheet the
// workbook does not have.
var ErrSheetNotFound = errors.New("sheet not found")

// Provenance column names appended when Options.ProvenanceColumns is set.
const (
	ColumnTPAName  = "tpa_name"
	ColumnFileDate = "file_date"
	ColumnLoadID   = "load_id"
)

// =============================================================================
// RESULT STRUCTURES
// =============================================================================

// Status is the outcome of one sheet.
type Status string

const (
	StatusLoaded         Status = "loaded"
	StatusHeaderNotFound Status = "header_not_found"
	StatusReadError      Status = "read_error"
	StatusNoData         Status = "no_data"
	StatusLoadFailed     Status = "load_failed"
	StatusSkipped        Status = "skipped"
)

// Failed reports whether the status is a sheet failure.
func (s Status) Failed() bool {
	return s != StatusLoaded && s != StatusSkipped
}

// SheetResult is the outcome of processing one sheet.
type SheetResult struct {
	// Sheet is the sheet name.
	Sheet string

	// HeaderRow is the zero-based header row index, or -1 if none was found.
	HeaderRow int

	// TableName is the destination table. Empty if the sheet never reached
	// the sink.
	TableName string

	// Status is the sheet outcome.
	Status Status

	// Rows is the number of data rows read.
	Rows int

	// Table is the table that was (or, in a dry run, would have been) loaded.
	Table *types.Table

	// Err explains a failed status.
	Err error
}

// FileResult is the outcome of processing one file.
type FileResult struct {
	// FilePath is the input file.
	FilePath string

	// Metadata is the TPA name and date parsed from the filename.
	Metadata filename.Metadata

	// LoadID identifies this load in provenance columns and logs.
	LoadID string

	// Sheets holds one result per processed sheet, in workbook order.
	Sheets []SheetResult

	// Err is set when the file as a whole could not be processed.
	Err error

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// Success reports whether the file was processed and no sheet failed.
func (r FileResult) Success() bool {
	if r.Err != nil || len(r.Sheets) == 0 {
		return false
	}
	for _, s := range r.Sheets {
		if s.Status.Failed() {
			return false
		}
	}
	return true
}

// Count returns the number of sheets with the given status.
func (r FileResult) Count(status Status) int {
	n := 0
	for _, s := range r.Sheets {
		if s.Status == status {
			n++
		}
	}
	return n
}

// RowsLoaded returns the number of data rows across loaded sheets.
func (r FileResult) RowsLoaded() int {
	n := 0
	for _, s := range r.Sheets {
		if s.Status == StatusLoaded {
			n += s.Rows
		}
	}
	return n
}

// =============================================================================
// PROCESSOR
// =============================================================================

// Options controls a Processor.
type Options struct {
	// TableNameFormat is passed to sink.TableName.
	TableNameFormat string

	// ProvenanceColumns appends tpa_name, file_date and load_id columns.
	ProvenanceColumns bool

	// DryRun stops after reading each table. The sink is not called and may
	// be nil.
	DryRun bool

	// Sheet restricts processing to one sheet when set.
	Sheet string

	// Workbook is passed to workbook.Open.
	Workbook workbook.Options
}

// Processor loads TPA files sheet by sheet.
type Processor struct {
	locator header.Locator
	parser  *filename.Parser
	sink    sink.Sink
	logger  logging.Logger
	opts    Options

	newLoadID func() string
}

// New creates a Processor. A nil logger discards output.
func New(locator header.Locator, s sink.Sink, logger logging.Logger, opts Options) *Processor {
	if logger == nil {
		logger = logging.Discard
	}
	return &Processor{
		locator:   locator,
		parser:    filename.NewParser(),
		sink:      s,
		logger:    logger,
		opts:      opts,
		newLoadID: func() string { return uuid.New().String() },
	}
}

// ProcessFile opens the file at path and processes every visible sheet.
func (p *Processor) ProcessFile(ctx context.Context, path string) FileResult {
	start := time.Now()

	wb, err := workbook.Open(path, p.opts.Workbook)
	if err != nil {
		result := p.newResult(path)
		result.Err = err
		p.logger.Error("Failed to open %s: %v", path, err)
		result.ProcessingTime = time.Since(start)
		return result
	}
	defer wb.Close()

	result := p.ProcessWorkbook(ctx, path, wb)
	result.ProcessingTime = time.Since(start)
	return result
}

// ProcessWorkbook processes an already open workbook. path is used for the
// filename metadata and in logs.
func (p *Processor) ProcessWorkbook(ctx context.Context, path string, wb workbook.Workbook) FileResult {
	result := p.newResult(path)

	p.logger.Info("Processing file: %s (TPA %q, date %s, load %s)",
		path, result.Metadata.EntityName, result.Metadata.Date, result.LoadID)

	sheets, err := p.selectSheets(wb)
	if err != nil {
		result.Err = err
		p.logger.Error("%s: %v", path, err)
		return result
	}

	// Table names already claimed by earlier sheets of this workbook.
	tables := make(map[string]bool, len(sheets))
	for _, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			result.Err = err
			p.logger.Warn("%s: stopped before sheet %q: %v", path, sheet, err)
			return result
		}
		result.Sheets = append(result.Sheets, p.processSheet(ctx, wb, sheet, result, tables))
	}

	return result
}

// newResult parses the filename and assigns a load ID.
func (p *Processor) newResult(path string) FileResult {
	meta := p.parser.Parse(filepath.Base(path))
	result := FileResult{
		FilePath: path,
		Metadata: meta,
		LoadID:   p.newLoadID(),
	}

	switch meta.Fallback {
	case filename.FallbackNoMatch:
		p.logger.Warn("%s: no date in filename, using today's date %s", path, meta.Date)
	case filename.FallbackInvalidDate:
		p.logger.Warn("%s: %q is not a valid date, using today's date %s", path, meta.MatchedText, meta.Date)
	}

	return result
}

func (p *Processor) selectSheets(wb workbook.Workbook) ([]string, error) {
	names := wb.SheetNames()
	if p.opts.Sheet == "" {
		return names, nil
	}
	for _, name := range names {
		if name == p.opts.Sheet {
			return []string{name}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q (available: %s)", ErrSheetNotFound, p.opts.Sheet, strings.Join(names, ", "))
}

// processSheet runs locate, read and load for one sheet. It never returns
// an error; failures are reported through the result status. tables holds
// the table names taken by earlier sheets of the same file.
func (p *Processor) processSheet(ctx context.Context, wb workbook.Workbook, sheet string, file FileResult, tables map[string]bool) SheetResult {
	res := SheetResult{Sheet: sheet, HeaderRow: -1}

	// =========================================================================
	// STEP 1: LOCATE HEADER
	// =========================================================================

	idx, err := p.locator.LocateIn(wb, sheet)
	if err != nil {
		res.Err = err
		if errors.Is(err, header.ErrHeaderNotFound) {
			res.Status = StatusHeaderNotFound
			p.logger.Warn("%s: sheet %q flagged: no header row in the first %d rows", file.FilePath, sheet, p.sampleRows())
		} else {
			res.Status = StatusReadError
			p.logger.Error("%s: sheet %q could not be read: %v", file.FilePath, sheet, err)
		}
		return res
	}
	res.HeaderRow = idx
	p.logger.Debug("%s: sheet %q header at row %d", file.FilePath, sheet, idx)

	// =========================================================================
	// STEP 2: READ TABLE
	// =========================================================================

	table, err := wb.ReadTable(sheet, idx)
	if err != nil {
		res.Err = err
		if errors.Is(err, workbook.ErrNoData) {
			res.Status = StatusNoData
			p.logger.Warn("%s: sheet %q has no data below its header", file.FilePath, sheet)
		} else {
			res.Status = StatusReadError
			p.logger.Error("%s: sheet %q could not be read: %v", file.FilePath, sheet, err)
		}
		return res
	}

	// =========================================================================
	// STEP 3: PROVENANCE
	// =========================================================================

	if p.opts.ProvenanceColumns {
		addProvenance(table, file)
	}
	res.Table = table
	res.Rows = len(table.Rows)
	name := sink.TableName(p.opts.TableNameFormat, file.Metadata, sheet)
	res.TableName = uniqueTableName(tables, name)
	tables[res.TableName] = true
	if res.TableName != name {
		p.logger.Warn("%s: sheet %q: table %s is already used by another sheet, loading into %s",
			file.FilePath, sheet, name, res.TableName)
	}

	// =========================================================================
	// STEP 4: LOAD
	// =========================================================================

	if p.opts.DryRun {
		res.Status = StatusSkipped
		p.logger.Info("%s: sheet %q ready: %d rows for %s (dry run)", file.FilePath, sheet, res.Rows, res.TableName)
		return res
	}

	if p.sink == nil {
		res.Status = StatusLoadFailed
		res.Err = errors.New("no sink configured")
		return res
	}

	if err := p.sink.Load(ctx, res.TableName, table); err != nil {
		res.Status = StatusLoadFailed
		res.Err = fmt.Errorf("failed to load %s: %w", res.TableName, err)
		p.logger.Error("%s: sheet %q: %v", file.FilePath, sheet, res.Err)
		return res
	}

	res.Status = StatusLoaded
	p.logger.Info("%s: sheet %q loaded %d rows into %s", file.FilePath, sheet, res.Rows, res.TableName)
	return res
}

func (p *Processor) sampleRows() int {
	if p.locator.SampleRows > 0 {
		return p.locator.SampleRows
	}
	return header.DefaultSampleRows
}

// addProvenance appends the TPA name, file date and load ID to every row.
// A sheet column that already uses a provenance name keeps it; the
// provenance column gets a numeric suffix instead.
func addProvenance(table *types.Table, file FileResult) {
	table.AppendColumn(uniqueColumn(table.Columns, ColumnTPAName), file.Metadata.EntityName)
	table.AppendColumn(uniqueColumn(table.Columns, ColumnFileDate), file.Metadata.Date)
	table.AppendColumn(uniqueColumn(table.Columns, ColumnLoadID), file.LoadID)
}

// uniqueTableName suffixes name until it is not in taken, keeping the result
// within the identifier length limit.
func uniqueTableName(taken map[string]bool, name string) string {
	candidate := name
	for n := 2; taken[candidate]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		base := name
		if len(base)+len(suffix) > sink.MaxIdentifierLen {
			base = base[:sink.MaxIdentifierLen-len(suffix)]
		}
		candidate = base + suffix
	}
	return candidate
}

func uniqueColumn(columns []string, name string) string {
	taken := make(map[string]bool, len(columns))
	for _, c := range columns {
		taken[strings.ToLower(c)] = true
	}
	candidate := name
	for n := 2; taken[candidate]; n++ {
		candidate = fmt.Sprintf("%s_%d", name, n)
	}
	return candidate
}
