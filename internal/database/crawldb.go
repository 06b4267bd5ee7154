package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/scopecrawl/internal/model"
)

// CrawlDB provides SQLite-based storage for crawl sessions and their
// page records.
//
// Design decision: We use a single database file for all sessions rather
// than one file per crawl. This keeps history queries simple and makes
// backup/restore a single-file operation.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, "scopecrawl.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite uses a different connection string format.
	// mode=rw prevents creating new files; mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer, so keep a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Sessions store one row per crawl run
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		pages_attempted INTEGER NOT NULL,
		pages_failed INTEGER NOT NULL,
		config_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_seed ON sessions(seed);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);

	-- Pages store the extracted record for each crawled page
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		status_code INTEGER,
		title TEXT,
		record_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pages_session ON pages(session_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveCrawl stores a crawl result and its page records in one transaction.
// configJSON is an optional snapshot of the effective configuration and
// may be empty. Returns the new session ID.
func (cdb *CrawlDB) SaveCrawl(ctx context.Context, result *model.CrawlResult, configJSON string) (int64, error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	res, err := tx.ExecContext(ctx, `
	INSERT INTO sessions (seed, started_at, finished_at, pages_attempted, pages_failed, config_json)
	VALUES (?, ?, ?, ?, ?, ?)`,
		result.Seed,
		result.StartedAt.UTC().Format(time.RFC3339),
		result.FinishedAt.UTC().Format(time.RFC3339),
		result.PagesAttempted,
		result.PagesFailed,
		configJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}

	sessionID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get session ID: %w", err)
	}

	for i := range result.Records {
		record := &result.Records[i]
		recordJSON, err := json.Marshal(record)
		if err != nil {
			return 0, fmt.Errorf("failed to serialize page record: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
		INSERT INTO pages (session_id, url, status_code, title, record_json)
		VALUES (?, ?, ?, ?, ?)`,
			sessionID,
			record.URL,
			record.StatusCode,
			record.Title,
			string(recordJSON),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert page record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit crawl: %w", err)
	}
	return sessionID, nil
}

// SessionMetadata contains summary information about a stored crawl.
// This is used for displaying history without loading the page records.
type SessionMetadata struct {
	// ID is the unique identifier of the session in the database.
	ID int64

	// Seed is the crawl's starting URL.
	Seed string

	// StartedAt is when the crawl began.
	StartedAt time.Time

	// FinishedAt is when the crawl ended.
	FinishedAt time.Time

	// PagesAttempted counts all fetches, including failures.
	PagesAttempted int

	// PagesFailed counts fetches that produced no record.
	PagesFailed int
}

// ListSessions returns stored sessions, newest first. An empty seed
// returns every session; a non-empty seed filters to that seed only.
func (cdb *CrawlDB) ListSessions(ctx context.Context, seed string) ([]SessionMetadata, error) {
	query := `
	SELECT id, seed, started_at, finished_at, pages_attempted, pages_failed
	FROM sessions
	`
	args := make([]any, 0, 1)
	if seed != "" {
		query += " WHERE seed = ?"
		args = append(args, seed)
	}
	query += " ORDER BY started_at DESC, id DESC"

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionMetadata
	for rows.Next() {
		var meta SessionMetadata
		var startedAt, finishedAt string

		if err := rows.Scan(&meta.ID, &meta.Seed, &startedAt, &finishedAt,
			&meta.PagesAttempted, &meta.PagesFailed); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		meta.StartedAt = parseTimestamp(startedAt)
		meta.FinishedAt = parseTimestamp(finishedAt)
		sessions = append(sessions, meta)
	}

	return sessions, rows.Err()
}

// ListSeeds returns the distinct seed URLs with stored sessions.
func (cdb *CrawlDB) ListSeeds(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT DISTINCT seed FROM sessions ORDER BY seed`)
	if err != nil {
		return nil, fmt.Errorf("failed to list seeds: %w", err)
	}
	defer rows.Close()

	var seeds []string
	for rows.Next() {
		var seed string
		if err := rows.Scan(&seed); err != nil {
			return nil, fmt.Errorf("failed to scan seed: %w", err)
		}
		seeds = append(seeds, seed)
	}

	return seeds, rows.Err()
}

// GetSession retrieves a session's metadata by ID.
// Returns nil without error when the session does not exist.
func (cdb *CrawlDB) GetSession(ctx context.Context, id int64) (*SessionMetadata, error) {
	var meta SessionMetadata
	var startedAt, finishedAt string

	err := cdb.db.QueryRowContext(ctx, `
	SELECT id, seed, started_at, finished_at, pages_attempted, pages_failed
	FROM sessions WHERE id = ?`, id).Scan(
		&meta.ID, &meta.Seed, &startedAt, &finishedAt,
		&meta.PagesAttempted, &meta.PagesFailed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	meta.StartedAt = parseTimestamp(startedAt)
	meta.FinishedAt = parseTimestamp(finishedAt)
	return &meta, nil
}

// GetSessionRecords retrieves the page records of a session in crawl order.
func (cdb *CrawlDB) GetSessionRecords(ctx context.Context, sessionID int64) ([]model.PageRecord, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT record_json FROM pages
	WHERE session_id = ?
	ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session records: %w", err)
	}
	defer rows.Close()

	var records []model.PageRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("failed to scan page record: %w", err)
		}

		var record model.PageRecord
		if err := json.Unmarshal([]byte(recordJSON), &record); err != nil {
			continue // Skip malformed records
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339,              // Format used by SaveCrawl
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
