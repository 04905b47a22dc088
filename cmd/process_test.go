package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/tpa-claim-loader/internal/header"
	"github.com/ginjaninja78/tpa-claim-loader/internal/pipeline"
	"github.com/ginjaninja78/tpa-claim-loader/internal/sink"
)

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestProcessAll(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	good := writeInput(t, in, "Acme 08.15.2024.csv", "Claim,Amount\nA-1,3\nA-2,4\n")
	flagged := writeInput(t, in, "Zenith 2024-01-31.csv", "Claim,\n,4\n")

	p := pipeline.New(header.DefaultLocator(), sink.NewXMLSink(out), nil, pipeline.Options{})
	results := processAll(context.Background(), p, []string{flagged, good}, 2, true)

	require.Len(t, results, 2)
	assert.Equal(t, good, results[0].FilePath)
	assert.True(t, results[0].Success())
	assert.Equal(t, 2, results[0].RowsLoaded())

	assert.Equal(t, flagged, results[1].FilePath)
	assert.False(t, results[1].Success())
	require.Len(t, results[1].Sheets, 1)
	assert.Equal(t, pipeline.StatusHeaderNotFound, results[1].Sheets[0].Status)

	assert.FileExists(t, filepath.Join(out, "acme_acme_08_15_2024.xml"))
}

func TestSummarizeFile(t *testing.T) {
	in := t.TempDir()
	path := writeInput(t, in, "Claims.csv", "Claim,Amount\nA-1,3\n")

	p := pipeline.New(header.DefaultLocator(), nil, nil, pipeline.Options{DryRun: true})
	result := p.ProcessFile(context.Background(), path)

	fs := summarizeFile(result, "")
	assert.Equal(t, "Claims", fs.TPAName)
	assert.NotEmpty(t, fs.DateFallback)
	require.Len(t, fs.Sheets, 1)
	assert.Equal(t, "skipped", fs.Sheets[0].Status)
	assert.Equal(t, 0, fs.Sheets[0].HeaderRow)

	var buf bytes.Buffer
	printFileResult(&buf, result)
	assert.Contains(t, buf.String(), "✓ Claims.csv")
	assert.Contains(t, buf.String(), "header row 0, 1 rows -> claims_claims")
}

func TestProcessCommand(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "input")
	require.NoError(t, os.MkdirAll(in, 0755))
	writeInput(t, in, "Acme 08.15.2024.csv", "Acme claims export\n\nClaim,Amount\nA-1,3\n")

	cfg := writeInput(t, root, "config.yaml", fmt.Sprintf(`
input_dir: %q
input_archive_dir: %q
output_dir: %q
log_file: %q
sink: xml
`, in, filepath.Join(root, "archive"), filepath.Join(root, "output"), filepath.Join(root, "logs", "run.log")))

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"process", "--config", cfg})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		cfgFile, dryRun, filePath, sheetName, sinkKind = "config.yaml", false, "", "", ""
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	assert.Contains(t, buf.String(), "Sheets loaded:   1")
	assert.FileExists(t, filepath.Join(root, "output", "acme_acme_08_15_2024.xml"))
	assert.NoFileExists(t, filepath.Join(in, "Acme 08.15.2024.csv"))

	archived, err := filepath.Glob(filepath.Join(root, "archive", "*", "*", "*", "Acme 08.15.2024.csv"))
	require.NoError(t, err)
	assert.Len(t, archived, 1)

	summaries, err := filepath.Glob(filepath.Join(root, "output", "processing_summary_*.txt"))
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}
