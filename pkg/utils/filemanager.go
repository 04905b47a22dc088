// =============================================================================
// TPA Claim Loader - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the loader, including:
//   - Input discovery (.xlsx and .csv exports)
//   - Archival of fully loaded input files
//   - Processing summary generation
//   - Output file naming
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to input_archive/YYYY/MM/DD after every sheet
//     loaded
//   - Files with any flagged or failed sheet stay in the input directory so
//     they are picked up again after the TPA export is fixed
//   - An archived name that already exists gets a short unique suffix
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the loader.
type FileManager struct {
	// InputDir is the directory where TPA files are dropped.
	InputDir string

	// OutputDir receives summaries (and XML tables when that sink is used).
	OutputDir string

	// InputArchiveDir is the directory for archived input files.
	InputArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: input_archive/2024/08/15/John Eastern 08.15.2024.xlsx
	UseTimestampSubdirs bool

	// ArchiveOnSuccess determines whether to archive files after successful processing.
	ArchiveOnSuccess bool

	now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:            inputDir,
		OutputDir:           outputDir,
		InputArchiveDir:     inputArchiveDir,
		UseTimestampSubdirs: true,
		ArchiveOnSuccess:    true,
		now:                 time.Now,
	}
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// inputExtensions lists the file types the loader reads.
var inputExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xltx": true,
	".xltm": true,
	".csv":  true,
}

// DiscoverInputFiles lists loadable files directly inside the input
// directory, sorted by name. Subdirectories, hidden files and Excel lock
// files ("~$Book.xlsx") are skipped.
func (fm *FileManager) DiscoverInputFiles() ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		if !inputExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		files = append(files, filepath.Join(fm.InputDir, name))
	}

	sort.Strings(files)
	return files, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory and returns
// its new path. With ArchiveOnSuccess off the file is left in place.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// If rename fails (e.g., cross-device), try copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// getArchivePath constructs a free archive path for a file.
func (fm *FileManager) getArchivePath(filePath string) string {
	dir := fm.InputArchiveDir
	if fm.UseTimestampSubdirs {
		now := fm.clock()
		dir = filepath.Join(
			dir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
	}

	fileName := filepath.Base(filePath)
	archivePath := filepath.Join(dir, fileName)
	if !FileExists(archivePath) {
		return archivePath
	}

	// Same TPA file uploaded twice on one day: keep both.
	ext := filepath.Ext(fileName)
	stem := strings.TrimSuffix(fileName, ext)
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", stem, uuid.New().String()[:8], ext))
}

func (fm *FileManager) clock() time.Time {
	if fm.now == nil {
		return time.Now()
	}
	return fm.now()
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a unique output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//   - params: Extra placeholder values, keyed without braces.
//   - ext: The extension to ensure, e.g. ".txt".
//
// EXAMPLE:
//   format: "{tpa}_{timestamp}_{uuid}"
//   params: {"tpa": "eastern"}
//   ext:    ".txt"
//   output: "eastern_20240115_143022_a1b2c3d4-e5f6-7890-abcd-ef1234567890.txt"
func GenerateOutputFileName(format string, params map[string]string, ext string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}

	return result
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a processing run.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	Sink            string
	DryRun          bool
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	SheetsLoaded    int
	SheetsFlagged   int
	RowsLoaded      int
	Files           []FileSummary
}

// FileSummary describes one processed file.
type FileSummary struct {
	InputFile    string
	TPAName      string
	FileDate     string
	DateFallback string
	LoadID       string
	ArchivePath  string
	Error        string
	ProcessTime  time.Duration
	Sheets       []SheetSummary
}

// SheetSummary describes one processed sheet.
type SheetSummary struct {
	Sheet     string
	HeaderRow int
	TableName string
	Status    string
	Rows      int
	Error     string
}

// WriteSummaryLog writes a processing summary to a log file in outputDir and
// returns its path.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	summaryFileName := GenerateOutputFileName("processing_summary_{timestamp}", nil, ".txt")
	summaryPath := filepath.Join(outputDir, summaryFileName)

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	if err := writeSummary(file, summary); err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}

	return summaryPath, nil
}

func writeSummary(w io.Writer, summary ProcessingSummary) error {
	writer := bufio.NewWriter(w)
	rule := strings.Repeat("=", 80) + "\n"
	thin := strings.Repeat("-", 80) + "\n"

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "TPA Claim Loader - Processing Summary\n"+rule+"\n"+
		"Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Sink:           %s\n"+
		"  Dry Run:        %t\n\n"+
		"Statistics:\n"+
		"  Total Files:    %d\n"+
		"  Successful:     %d\n"+
		"  Failed:         %d\n"+
		"  Sheets Loaded:  %d\n"+
		"  Sheets Flagged: %d\n"+
		"  Rows Loaded:    %d\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.Sink,
		summary.DryRun,
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.SheetsLoaded,
		summary.SheetsFlagged,
		summary.RowsLoaded)

	if len(summary.Files) > 0 {
		writer.WriteString("Files:\n" + thin)
	}
	for _, f := range summary.Files {
		fmt.Fprintf(writer, "  Input:        %s\n", f.InputFile)
		fmt.Fprintf(writer, "  TPA:          %s\n", f.TPAName)
		fmt.Fprintf(writer, "  File Date:    %s\n", f.FileDate)
		if f.DateFallback != "" {
			fmt.Fprintf(writer, "  Date Source:  %s\n", f.DateFallback)
		}
		fmt.Fprintf(writer, "  Load ID:      %s\n", f.LoadID)
		if f.ArchivePath != "" {
			fmt.Fprintf(writer, "  Archived To:  %s\n", f.ArchivePath)
		}
		if f.Error != "" {
			fmt.Fprintf(writer, "  Error:        %s\n", f.Error)
		}
		fmt.Fprintf(writer, "  Process Time: %s\n", f.ProcessTime.String())

		for _, s := range f.Sheets {
			fmt.Fprintf(writer, "    Sheet %q: %s", s.Sheet, s.Status)
			if s.HeaderRow >= 0 {
				fmt.Fprintf(writer, ", header row %d", s.HeaderRow)
			}
			if s.TableName != "" {
				fmt.Fprintf(writer, ", %d rows -> %s", s.Rows, s.TableName)
			}
			if s.Error != "" {
				fmt.Fprintf(writer, " (%s)", s.Error)
			}
			writer.WriteString("\n")
		}
		writer.WriteString("\n")
	}

	writer.WriteString(rule + "End of Summary\n")

	return writer.Flush()
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
