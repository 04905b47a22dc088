// =============================================================================
// TPA Claim Loader - Table Sinks
// =============================================================================
//
// A sink durably stores one rectangular, all-text table under a name,
// replacing whatever was stored under that name before. The pipeline only
// depends on that contract; storage technology is chosen by configuration:
//   - postgres : DROP + CREATE + COPY inside one transaction
//   - xml      : one XML document per table in the output directory
//
// =============================================================================

package sink

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ginjaninja78/tpa-claim-loader/internal/filename"
	"github.com/ginjaninja78/tpa-claim-loader/internal/types"
)

// Sink stores tables by name, replacing any prior contents.
type Sink interface {
	Load(ctx context.Context, tableName string, table *types.Table) error
	Close() error
}

// Kind names a sink implementation in configuration.
const (
	KindPostgres = "postgres"
	KindXML      = "xml"
)

// MaxIdentifierLen is the Postgres identifier limit (NAMEDATALEN - 1).
const MaxIdentifierLen = 63

var nonIdentifierChars = regexp.MustCompile(`[^a-z0-9_]+`)

// TableName expands format with the file metadata and sheet name and
// sanitizes the result into a lowercase identifier of at most 63 bytes.
//
// Placeholders: {tpa}, {sheet}, {date} (the MM-DD-YYYY date).
func TableName(format string, meta filename.Metadata, sheet string) string {
	if format == "" {
		format = "{tpa}_{sheet}"
	}

	name := strings.NewReplacer(
		"{tpa}", meta.EntityName,
		"{sheet}", sheet,
		"{date}", meta.Date,
	).Replace(format)

	name = nonIdentifierChars.ReplaceAllString(strings.ToLower(name), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "tpa_import"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "t_" + name
	}
	if len(name) > MaxIdentifierLen {
		name = strings.TrimRight(name[:MaxIdentifierLen], "_")
	}
	return name
}

// checkTable rejects tables a sink cannot store.
func checkTable(tableName string, table *types.Table) error {
	if tableName == "" {
		return fmt.Errorf("table name is empty")
	}
	if table == nil || len(table.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", tableName)
	}
	for i, row := range table.Rows {
		if len(row) != len(table.Columns) {
			return fmt.Errorf("table %s row %d has %d cells, want %d", tableName, i+1, len(row), len(table.Columns))
		}
	}
	return nil
}
