package sink

import (
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/tpa-claim-loader/internal/filename"
	"github.com/ginjaninja78/tpa-claim-loader/internal/types"
)

func sampleTable() *types.Table {
	return &types.Table{
		Columns: []string{"Claim ID", "Amount"},
		Rows: [][]string{
			{"C-1", "120.5"},
			{"C-2", "<80 & up>"},
		},
		Sheet: "Claims",
	}
}

func TestTableName(t *testing.T) {
	meta := filename.Metadata{EntityName: "John Eastern", Date: "08-15-2024"}

	tests := []struct {
		name     string
		format   string
		meta     filename.Metadata
		sheet    string
		expected string
	}{
		{"Default format", "", meta, "Claims 2024", "john_eastern_claims_2024"},
		{"Date placeholder", "{tpa}_{date}", meta, "S", "john_eastern_08_15_2024"},
		{"Leading digit prefixed", "{date}_{tpa}", meta, "S", "t_08_15_2024_john_eastern"},
		{"Empty result", "{tpa}", filename.Metadata{}, "S", "tpa_import"},
		{"Punctuation collapsed", "{tpa}", filename.Metadata{EntityName: "Report_"}, "", "report"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TableName(tt.format, tt.meta, tt.sheet))
		})
	}
}

func TestTableNameTruncated(t *testing.T) {
	meta := filename.Metadata{EntityName: strings.Repeat("a", 100)}
	got := TableName("{tpa}", meta, "")
	assert.Len(t, got, MaxIdentifierLen)
}

func TestCheckTable(t *testing.T) {
	assert.NoError(t, checkTable("t", sampleTable()))
	assert.Error(t, checkTable("", sampleTable()))
	assert.Error(t, checkTable("t", &types.Table{}))
	assert.Error(t, checkTable("t", &types.Table{Columns: []string{"a"}, Rows: [][]string{{"1", "2"}}}))
}

func TestPostgresStatements(t *testing.T) {
	assert.Equal(t, `DROP TABLE IF EXISTS "eastern_claims"`, dropTableSQL("eastern_claims"))
	assert.Equal(t,
		`CREATE TABLE "eastern_claims" ("Claim ID" TEXT, "Amo""unt" TEXT)`,
		createTableSQL("eastern_claims", []string{"Claim ID", `Amo"unt`}),
	)
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "postgres", "")
	assert.Error(t, err)
}

func TestPostgresSinkLoad(t *testing.T) {
	dsn := os.Getenv("CLAIMLOADER_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("CLAIMLOADER_TEST_DATABASE_DSN not set")
	}

	ctx := context.Background()
	s, err := OpenPostgres(ctx, "postgres", dsn)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Load(ctx, "claimloader_sink_test", sampleTable()))
	// Loading again replaces the table instead of appending.
	require.NoError(t, s.Load(ctx, "claimloader_sink_test", sampleTable()))

	var count int
	require.NoError(t, s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM claimloader_sink_test`))
	assert.Equal(t, 2, count)

	_, err = s.db.ExecContext(ctx, dropTableSQL("claimloader_sink_test"))
	require.NoError(t, err)
}

func TestXMLSinkLoad(t *testing.T) {
	dir := t.TempDir()
	s := NewXMLSink(dir)

	require.NoError(t, s.Load(context.Background(), "eastern_claims", sampleTable()))

	data, err := os.ReadFile(filepath.Join(dir, "eastern_claims.xml"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), xml.Header))

	var doc xmlTable
	require.NoError(t, xml.Unmarshal(data, &doc))
	assert.Equal(t, "eastern_claims", doc.Name)
	assert.Equal(t, "Claims", doc.Sheet)
	assert.Equal(t, 2, doc.Rows)
	require.Len(t, doc.Row, 2)
	assert.Equal(t, "Amount", doc.Row[1].Cells[1].Column)
	assert.Equal(t, "<80 & up>", doc.Row[1].Cells[1].Value)
}

func TestXMLSinkReplaces(t *testing.T) {
	dir := t.TempDir()
	s := NewXMLSink(dir)
	ctx := context.Background()

	require.NoError(t, s.Load(ctx, "t", sampleTable()))
	require.NoError(t, s.Load(ctx, "t", &types.Table{
		Columns: []string{"only"},
		Rows:    [][]string{{"x"}},
	}))

	data, err := os.ReadFile(s.Path("t"))
	require.NoError(t, err)

	var doc xmlTable
	require.NoError(t, xml.Unmarshal(data, &doc))
	assert.Equal(t, 1, doc.Rows)
	assert.Equal(t, "only", doc.Row[0].Cells[0].Column)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestXMLSinkCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewXMLSink(t.TempDir()).Load(ctx, "t", sampleTable())
	assert.ErrorIs(t, err, context.Canceled)
}
