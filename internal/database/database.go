package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"video-fetcher/internal/logging"
	"video-fetcher/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// ErrNotFound is returned when a fetch record does not exist.
var ErrNotFound = errors.New("fetch record not found")

// Database stores the fetch history.
type Database struct {
	db     *sql.DB
	dbPath string
}

// New creates a new Database instance. dbPath must be the full path to the
// database file and its parent directory must already exist and be writable;
// use startup.LoadConfig() for that validation.
func New(dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	// WAL mode for concurrent reads during fetches; busy_timeout guards
	// against "database is locked" under writer contention.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	d := &Database{db: db, dbPath: dbPath}

	if err := d.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return d, nil
}

// createSchema creates the fetches table and its indexes if missing.
func (d *Database) createSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS fetches (
		id               TEXT PRIMARY KEY,
		url              TEXT NOT NULL,
		title            TEXT NOT NULL DEFAULT '',
		status           TEXT NOT NULL DEFAULT 'pending',
		error            TEXT NOT NULL DEFAULT '',
		original_bytes   INTEGER NOT NULL DEFAULT 0,
		final_bytes      INTEGER NOT NULL DEFAULT 0,
		duration_seconds REAL NOT NULL DEFAULT 0,
		width            INTEGER NOT NULL DEFAULT 0,
		height           INTEGER NOT NULL DEFAULT 0,
		codec            TEXT NOT NULL DEFAULT '',
		container        TEXT NOT NULL DEFAULT '',
		compressed       INTEGER NOT NULL DEFAULT 0,
		file_path        TEXT NOT NULL DEFAULT '',
		thumb_path       TEXT NOT NULL DEFAULT '',
		created_at       DATETIME NOT NULL,
		completed_at     DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_fetches_status ON fetches(status);
	CREATE INDEX IF NOT EXISTS idx_fetches_created_at ON fetches(created_at);
	`

	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// Ping verifies the database connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the database connection.
func (d *Database) Close() error {
	logging.Debug("Closing database: %s", d.dbPath)
	return d.db.Close()
}

// timed runs a database operation with the default timeout and records
// query metrics for it.
func (d *Database) timed(operation string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	metrics.RecordDBQuery(operation, time.Since(start).Seconds(), err)
	return err
}
