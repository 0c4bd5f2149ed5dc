package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// SQLiteConfig holds settings for a SQLite file connection.
type SQLiteConfig struct {
	// Path is the database file. It must already exist.
	Path string

	// ReadOnly opens the file with mode=ro so no statement can modify it.
	// Default: true via OpenReadOnly
	ReadOnly bool

	// BusyTimeout bounds how long a statement waits on a locked file.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLite implements the Database interface on top of modernc.org/sqlite.
type SQLite struct {
	db     *sql.DB
	config SQLiteConfig
}

// OpenReadOnly opens the SQLite file at path for queries only.
// It matches the Opener signature.
func OpenReadOnly(path string) (Database, error) {
	return NewSQLiteWithConfig(SQLiteConfig{Path: path, ReadOnly: true})
}

// NewSQLiteWithConfig opens a SQLite database and verifies the connection.
func NewSQLiteWithConfig(config SQLiteConfig) (*SQLite, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5 * time.Second
	}

	dsn, err := buildDSN(config)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLite{db: db, config: config}, nil
}

// buildDSN renders a file: URI. The path is escaped so '#', '?' and '%' in directory names survive.
func buildDSN(config SQLiteConfig) (string, error) {
	abs, err := filepath.Abs(config.Path)
	if err != nil {
		return "", fmt.Errorf("resolve sqlite path failed: %w", err)
	}
	params := url.Values{}
	if config.ReadOnly {
		params.Set("mode", "ro")
	}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", config.BusyTimeout.Milliseconds()))
	dsn := url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: params.Encode()}
	return dsn.String(), nil
}

// Query executes a query that returns rows
func (s *SQLite) Query(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return &SQLiteRows{rows: rows}, nil
}

// QueryRow executes a query that returns at most one row
func (s *SQLite) QueryRow(ctx context.Context, query string, args ...interface{}) Row {
	return &SQLiteRow{row: s.db.QueryRowContext(ctx, query, args...)}
}

// Close closes the database connection
func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close failed: %w", err)
	}
	return nil
}

// SQLiteRows implements the Rows interface
type SQLiteRows struct {
	rows *sql.Rows
}

// Next prepares the next result row
func (r *SQLiteRows) Next() bool {
	return r.rows.Next()
}

// Scan copies the columns from the current row into the values
func (r *SQLiteRows) Scan(dest ...interface{}) error {
	if err := r.rows.Scan(dest...); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	return nil
}

// Columns returns the column names
func (r *SQLiteRows) Columns() ([]string, error) {
	cols, err := r.rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("get columns failed: %w", err)
	}
	return cols, nil
}

// Err returns the error encountered during iteration
func (r *SQLiteRows) Err() error {
	return r.rows.Err()
}

// Close closes the Rows
func (r *SQLiteRows) Close() error {
	if err := r.rows.Close(); err != nil {
		return fmt.Errorf("close rows failed: %w", err)
	}
	return nil
}

// SQLiteRow implements the Row interface
type SQLiteRow struct {
	row *sql.Row
}

// Scan copies the columns from the matched row
func (r *SQLiteRow) Scan(dest ...interface{}) error {
	if err := r.row.Scan(dest...); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	return nil
}
