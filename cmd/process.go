// =============================================================================
// TPA Claim Loader - Process Command
// =============================================================================
//
// This file defines the 'process' command, which is the main command for
// loading TPA files. It orchestrates the entire pipeline.
//
// COMMAND USAGE:
//   claimloader process [flags]
//
// FLAGS:
//   --dry-run : Read and detect headers without loading or archiving
//   --file    : Process a single file instead of the input directory
//   --sheet   : Process only the sheet with this name
//   --sink    : Override the configured sink ("postgres" or "xml")
//
// PROCESSING PIPELINE:
//   1. Load .env secrets and configuration
//   2. Discover .xlsx/.csv files in the input directory
//   3. For each file (concurrently, up to max_concurrency):
//      a. Parse TPA name and date from the file name
//      b. Locate each sheet's header row
//      c. Read the table and load it into the sink
//   4. Archive files whose sheets all loaded
//   5. Print and write the summary report
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"github.com/ginjaninja78/tpa-claim-loader/internal/config"
	"github.com/ginjaninja78/tpa-claim-loader/internal/logging"
	"github.com/ginjaninja78/tpa-claim-loader/internal/pipeline"
	"github.com/ginjaninja78/tpa-claim-loader/internal/workbook"
	"github.com/ginjaninja78/tpa-claim-loader/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun reads every sheet without loading or archiving anything.
var dryRun bool

// filePath is the path to a specific file to process.
var filePath string

// sheetName restricts processing to one sheet.
var sheetName string

// sinkKind overrides the configured sink.
var sinkKind string

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Load TPA claim files into the configured sink",
	Long: `The process command scans the input directory for .xlsx and .csv files,
detects the header row of every sheet, and loads each sheet into its own
table, replacing any previous load of that table.

Files are processed concurrently. A flagged or failed sheet does not stop
the other sheets of the same file.

When every sheet of a file loads:
  - The file is moved to the input archive (YYYY/MM/DD subdirectories)

Otherwise:
  - The file remains in the input directory
  - The reason is printed and written to the summary report

The command exits non-zero if any file had a flagged or failed sheet.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Read and detect headers without loading or archiving",
	)

	processCmd.Flags().StringVar(
		&filePath,
		"file",
		"",
		"Path to a specific file to process",
	)

	processCmd.Flags().StringVar(
		&sheetName,
		"sheet",
		"",
		"Process only the sheet with this name",
	)

	processCmd.Flags().StringVar(
		&sinkKind,
		"sink",
		"",
		`Override the configured sink ("postgres" or "xml")`,
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(cmd *cobra.Command) error {
	startTime := time.Now()
	out := cmd.OutOrStdout()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	fmt.Fprintln(out, "=== TPA Claim Loader ===")

	mainConfig, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if sinkKind != "" {
		mainConfig.Sink = sinkKind
	}
	if err := mainConfig.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := newLogger(mainConfig, true)
	if err != nil {
		return err
	}
	defer logger.Close()

	fm := utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir, mainConfig.InputArchiveDir)
	fm.ArchiveOnSuccess = mainConfig.ShouldArchive() && !dryRun

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	inputFiles, err := discoverInputFiles(fm)
	if err != nil {
		return err
	}
	if len(inputFiles) == 0 {
		fmt.Fprintf(out, "No .xlsx or .csv files found in %s\n", mainConfig.InputDir)
		return nil
	}
	fmt.Fprintf(out, "Found %d file(s) to process\n", len(inputFiles))

	// =========================================================================
	// STEP 3: PROCESS FILES CONCURRENTLY
	// =========================================================================

	processor, closeSink, err := newProcessor(ctx, mainConfig, logger, pipeline.Options{
		DryRun: dryRun,
		Sheet:  sheetName,
	})
	if err != nil {
		return err
	}
	defer closeSink()

	results := processAll(ctx, processor, inputFiles, mainConfig.MaxConcurrency, mainConfig.ShouldContinueOnError())

	// =========================================================================
	// STEP 4: ARCHIVE AND SUMMARIZE
	// =========================================================================

	summary := utils.ProcessingSummary{
		StartTime:  startTime,
		Sink:       mainConfig.Sink,
		DryRun:     dryRun,
		TotalFiles: len(inputFiles),
	}

	for _, result := range results {
		archivePath := ""
		if result.Success() && !dryRun {
			path, err := fm.ArchiveInputFile(result.FilePath)
			if err != nil {
				logger.Warn("Failed to archive %s: %v", result.FilePath, err)
			} else if path != result.FilePath {
				archivePath = path
			}
		}

		if result.Success() {
			summary.SuccessfulFiles++
		} else {
			summary.FailedFiles++
		}
		summary.SheetsLoaded += result.Count(pipeline.StatusLoaded)
		summary.RowsLoaded += result.RowsLoaded()
		for _, s := range result.Sheets {
			if s.Status.Failed() {
				summary.SheetsFlagged++
			}
		}
		summary.Files = append(summary.Files, summarizeFile(result, archivePath))

		printFileResult(out, result)
	}
	summary.EndTime = time.Now()

	// =========================================================================
	// STEP 5: PRINT SUMMARY
	// =========================================================================

	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Total files:     %d\n", summary.TotalFiles)
	fmt.Fprintf(out, "Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Fprintf(out, "With errors:     %d\n", summary.FailedFiles)
	fmt.Fprintf(out, "Sheets loaded:   %d\n", summary.SheetsLoaded)
	fmt.Fprintf(out, "Sheets flagged:  %d\n", summary.SheetsFlagged)
	fmt.Fprintf(out, "Rows loaded:     %d\n", summary.RowsLoaded)
	fmt.Fprintf(out, "Time elapsed:    %s\n", summary.EndTime.Sub(startTime))

	summaryPath, err := utils.WriteSummaryLog(summary, mainConfig.OutputDir)
	if err != nil {
		logger.Warn("Failed to write summary: %v", err)
	} else {
		fmt.Fprintf(out, "Summary written to %s\n", summaryPath)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("processing interrupted: %w", err)
	}
	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) had flagged or failed sheets", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// discoverInputFiles returns --file if set, else the input directory listing.
func discoverInputFiles(fm *utils.FileManager) ([]string, error) {
	if filePath == "" {
		files, err := fm.DiscoverInputFiles()
		if err != nil {
			return nil, fmt.Errorf("failed to discover input files: %w", err)
		}
		return files, nil
	}

	if !utils.FileExists(filePath) {
		return nil, fmt.Errorf("file not found: %s", filePath)
	}
	if !workbook.IsSupported(filePath) {
		return nil, fmt.Errorf("%w: %s", workbook.ErrUnsupportedFormat, filePath)
	}
	return []string{filePath}, nil
}

// newProcessor opens the configured sink (unless this is a dry run) and
// builds a Processor around it. The returned func closes the sink.
func newProcessor(ctx context.Context, mainConfig *config.MainConfig, logger logging.Logger, opts pipeline.Options) (*pipeline.Processor, func(), error) {
	opts.TableNameFormat = mainConfig.TableNameFormat
	opts.ProvenanceColumns = mainConfig.ProvenanceColumns
	opts.Workbook = workbook.Options{CSVDelimiter: mainConfig.CSVDelimiter}

	if opts.DryRun {
		return pipeline.New(mainConfig.Locator(), nil, logger, opts), func() {}, nil
	}

	s, err := openSink(ctx, mainConfig, mainConfig.Sink)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s sink: %w", mainConfig.Sink, err)
	}
	closeSink := func() {
		if err := s.Close(); err != nil {
			logger.Warn("Failed to close sink: %v", err)
		}
	}
	return pipeline.New(mainConfig.Locator(), s, logger, opts), closeSink, nil
}

// processAll runs the processor over files with at most concurrency files
// in flight and returns the results sorted by file path. Without
// continueOnError the first unsuccessful file cancels files not yet started.
func processAll(ctx context.Context, processor *pipeline.Processor, files []string, concurrency int, continueOnError bool) []pipeline.FileResult {
	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	sem := semaphore.NewWeighted(int64(concurrency))
	results := make(chan pipeline.FileResult, len(files))

	for _, file := range files {
		wg.Add(1)

		go func(path string) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				results <- pipeline.FileResult{FilePath: path, Err: err}
				return
			}
			defer sem.Release(1)

			result := processor.ProcessFile(ctx, path)
			if !result.Success() && !continueOnError {
				cancel()
			}
			results <- result
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var collected []pipeline.FileResult
	for result := range results {
		collected = append(collected, result)
	}
	sort.Slice(collected, func(i, j int) bool {
		return collected[i].FilePath < collected[j].FilePath
	})
	return collected
}

// printFileResult prints one line per file and one per sheet.
func printFileResult(w io.Writer, result pipeline.FileResult) {
	name := filepath.Base(result.FilePath)
	mark := "✓"
	if !result.Success() {
		mark = "✗"
	}

	fmt.Fprintf(w, "  %s %s [TPA %q, %s", mark, name, result.Metadata.EntityName, result.Metadata.Date)
	if result.Metadata.UsedFallback() {
		fmt.Fprintf(w, " (%s)", result.Metadata.Fallback)
	}
	fmt.Fprintln(w, "]")

	if result.Err != nil {
		fmt.Fprintf(w, "      error: %v\n", result.Err)
	}
	for _, s := range result.Sheets {
		switch {
		case s.Status.Failed():
			fmt.Fprintf(w, "      %-20s %-17s %v\n", s.Sheet, s.Status, s.Err)
		default:
			fmt.Fprintf(w, "      %-20s %-17s header row %d, %d rows -> %s\n", s.Sheet, s.Status, s.HeaderRow, s.Rows, s.TableName)
		}
	}
}

// summarizeFile converts a pipeline result into its summary report entry.
func summarizeFile(result pipeline.FileResult, archivePath string) utils.FileSummary {
	fs := utils.FileSummary{
		InputFile:   result.FilePath,
		TPAName:     result.Metadata.EntityName,
		FileDate:    result.Metadata.Date,
		LoadID:      result.LoadID,
		ArchivePath: archivePath,
		ProcessTime: result.ProcessingTime,
	}
	if result.Metadata.UsedFallback() {
		fs.DateFallback = result.Metadata.Fallback.String()
	}
	if result.Err != nil {
		fs.Error = result.Err.Error()
	}
	for _, s := range result.Sheets {
		ss := utils.SheetSummary{
			Sheet:     s.Sheet,
			HeaderRow: s.HeaderRow,
			TableName: s.TableName,
			Status:    string(s.Status),
			Rows:      s.Rows,
		}
		if s.Err != nil {
			ss.Error = s.Err.Error()
		}
		fs.Sheets = append(fs.Sheets, ss)
	}
	return fs
}
