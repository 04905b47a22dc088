package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))
}

func TestDiscoverInputFiles(t *testing.T) {
	in := t.TempDir()
	for _, name := range []string{
		"b Eastern 08.15.2024.xlsx",
		"a Acme.CSV",
		"notes.txt",
		"~$b Eastern 08.15.2024.xlsx",
		".hidden.xlsx",
		"nested/c.xlsx",
	} {
		touch(t, filepath.Join(in, name))
	}

	fm := NewFileManager(in, t.TempDir(), t.TempDir())
	files, err := fm.DiscoverInputFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(in, "a Acme.CSV"),
		filepath.Join(in, "b Eastern 08.15.2024.xlsx"),
	}, files)
}

func TestDiscoverInputFilesMissingDir(t *testing.T) {
	fm := NewFileManager(filepath.Join(t.TempDir(), "absent"), "", "")
	_, err := fm.DiscoverInputFiles()
	assert.Error(t, err)
}

func TestArchiveInputFile(t *testing.T) {
	in, archive := t.TempDir(), t.TempDir()
	fm := NewFileManager(in, t.TempDir(), archive)
	fm.now = func() time.Time { return time.Date(2024, 8, 15, 9, 0, 0, 0, time.UTC) }

	src := filepath.Join(in, "Eastern 08.15.2024.xlsx")
	touch(t, src)

	dst, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(archive, "2024", "08", "15", "Eastern 08.15.2024.xlsx"), dst)
	assert.FileExists(t, dst)
	assert.NoFileExists(t, src)

	// A second upload of the same name does not overwrite the first.
	touch(t, src)
	dst2, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.NotEqual(t, dst, dst2)
	assert.True(t, strings.HasPrefix(filepath.Base(dst2), "Eastern 08.15.2024_"))
	assert.Equal(t, ".xlsx", filepath.Ext(dst2))
	assert.FileExists(t, dst)
}

func TestArchiveDisabled(t *testing.T) {
	in := t.TempDir()
	fm := NewFileManager(in, t.TempDir(), t.TempDir())
	fm.ArchiveOnSuccess = false

	src := filepath.Join(in, "a.csv")
	touch(t, src)

	dst, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.Equal(t, src, dst)
	assert.FileExists(t, src)
}

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{tpa}_{uuid}", map[string]string{"tpa": "eastern"}, ".txt")
	assert.True(t, strings.HasPrefix(name, "eastern_"))
	assert.True(t, strings.HasSuffix(name, ".txt"))
	assert.NotContains(t, name, "{")

	assert.Equal(t, "summary.TXT", GenerateOutputFileName("summary.TXT", nil, ".txt"))
}

func TestWriteSummaryLog(t *testing.T) {
	out := t.TempDir()
	start := time.Date(2024, 8, 15, 9, 0, 0, 0, time.UTC)

	summary := ProcessingSummary{
		StartTime:     start,
		EndTime:       start.Add(2 * time.Second),
		Sink:          "xml",
		TotalFiles:    1,
		FailedFiles:   1,
		SheetsLoaded:  1,
		SheetsFlagged: 1,
		RowsLoaded:    2,
		Files: []FileSummary{{
			InputFile: "Eastern 08.15.2024.xlsx",
			TPAName:   "Eastern",
			FileDate:  "08-15-2024",
			LoadID:    "load-1",
			Sheets: []SheetSummary{
				{Sheet: "Claims", HeaderRow: 2, TableName: "eastern_claims", Status: "loaded", Rows: 2},
				{Sheet: "Notes", HeaderRow: -1, Status: "header_not_found", Error: "no header row found in sample window"},
			},
		}},
	}

	path, err := WriteSummaryLog(summary, out)
	require.NoError(t, err)
	assert.Equal(t, out, filepath.Dir(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(b)
	assert.Contains(t, text, "Duration:       2s")
	assert.Contains(t, text, `Sheet "Claims": loaded, header row 2, 2 rows -> eastern_claims`)
	assert.Contains(t, text, `Sheet "Notes": header_not_found (no header row found in sample window)`)
	assert.True(t, strings.HasSuffix(text, "End of Summary\n"))
}

func TestWriteSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSummary(&buf, ProcessingSummary{}))
	assert.Contains(t, buf.String(), "Total Files:    0\n")
	assert.NotContains(t, buf.String(), "\nFiles:\n")
	assert.NotContains(t, buf.String(), "Input:")
}
