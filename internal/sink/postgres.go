package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ginjaninja78/tpa-claim-loader/internal/types"
)

// PostgresSink replaces a table in a single transaction so readers never see
// a half-loaded table.
type PostgresSink struct {
	db *sqlx.DB
}

// NewPostgresSink wraps an existing connection pool.
func NewPostgresSink(db *sqlx.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// OpenPostgres connects and pings the database.
func OpenPostgres(ctx context.Context, driver, dsn string) (*PostgresSink, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required for the postgres sink")
	}
	if driver == "" {
		driver = "postgres"
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewPostgresSink(db), nil
}

// Load drops tableName, recreates it with one TEXT column per table column
// and bulk copies the rows.
func (s *PostgresSink) Load(ctx context.Context, tableName string, table *types.Table) (err error) {
	if err := checkTable(tableName, table); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, dropTableSQL(tableName)); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", tableName, err)
	}
	if _, err = tx.ExecContext(ctx, createTableSQL(tableName, table.Columns)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(tableName, table.Columns...))
	if err != nil {
		return fmt.Errorf("failed to prepare copy into %s: %w", tableName, err)
	}

	args := make([]any, len(table.Columns))
	for i, row := range table.Rows {
		for j, cell := range row {
			args[j] = cell
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("failed to copy row %d into %s: %w", i+1, tableName, err)
		}
	}
	if _, err = stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("failed to flush copy into %s: %w", tableName, err)
	}
	if err = stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy into %s: %w", tableName, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit load of %s: %w", tableName, err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	return s.db.Close()
}

func dropTableSQL(tableName string) string {
	return "DROP TABLE IF EXISTS " + pq.QuoteIdentifier(tableName)
}

func createTableSQL(tableName string, columns []string) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = pq.QuoteIdentifier(col) + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", pq.QuoteIdentifier(tableName), strings.Join(defs, ", "))
}
