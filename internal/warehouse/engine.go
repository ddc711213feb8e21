package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/frostbench/frostbench/internal/cell"
)

// Config selects the warehouse driver and connection pool shape. Supported
// drivers are "pgx" (Postgres-protocol engines) and "duckdb" (local files or
// in-memory, the dev profile default).
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// Engine wraps one warehouse connection pool and hands out streaming
// cursors.
type Engine struct {
	db  *sql.DB
	cfg Config
}

func Open(ctx context.Context, cfg Config) (*Engine, error) {
	switch cfg.Driver {
	case "pgx", "duckdb":
	default:
		return nil, fmt.Errorf("unsupported warehouse driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}

	return &Engine{db: db, cfg: cfg}, nil
}

// NewWithDB wraps an existing pool; tests inject sqlmock through it.
func NewWithDB(db *sql.DB, cfg Config) *Engine {
	return &Engine{db: db, cfg: cfg}
}

func (e *Engine) Close() error {
	return e.db.Close()
}

// OpenCursor executes the statement and returns a forward-only streaming
// cursor. The column schema is read once at open time. Cancelling ctx aborts
// the remote query through the driver.
func (e *Engine) OpenCursor(ctx context.Context, sqlText string) (*Cursor, error) {
	sqlText = stripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return nil, fmt.Errorf("sql is required")
	}

	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}

	schema, err := schemaFromRows(rows)
	if err != nil {
		_ = rows.Close()
		return nil, err
	}

	return &Cursor{rows: rows, schema: schema}, nil
}

func schemaFromRows(rows *sql.Rows) (cell.Schema, error) {
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	schema := make(cell.Schema, len(columnTypes))
	for i, ct := range columnTypes {
		nullable, ok := ct.Nullable()
		if !ok {
			nullable = true
		}
		schema[i] = cell.Column{
			Name:     ct.Name(),
			Type:     cell.TypeFromDatabase(ct.DatabaseTypeName()),
			Nullable: nullable,
		}
	}
	return schema, nil
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
