package usage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const usageSchema = `
CREATE TABLE IF NOT EXISTS usage_records (
	id TEXT PRIMARY KEY,
	request_id TEXT NOT NULL,
	key_prefix TEXT NOT NULL,
	model TEXT NOT NULL,
	stream INTEGER NOT NULL,
	status INTEGER NOT NULL,
	category TEXT NOT NULL,
	success INTEGER NOT NULL,
	prompt_tokens INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	total_tokens INTEGER NOT NULL,
	frames INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	recorded_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_recorded_at ON usage_records(recorded_at);
CREATE INDEX IF NOT EXISTS idx_usage_key_model ON usage_records(key_prefix, model);
`

const insertRecord = `
INSERT INTO usage_records (
	id, request_id, key_prefix, model, stream,
	status, category, success,
	prompt_tokens, completion_tokens, total_tokens,
	frames, duration_ms, recorded_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const summarizeRecords = `
SELECT key_prefix, model,
	COUNT(*),
	SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END),
	SUM(prompt_tokens),
	SUM(completion_tokens)
FROM usage_records
WHERE recorded_at >= ?
GROUP BY key_prefix, model
ORDER BY key_prefix, model
`

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Path is the database file path. Parent directories are created.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteStore persists records in SQLite using WAL journaling.
type SQLiteStore struct {
	db         *sql.DB
	insertStmt *sql.Stmt
	path       string
	closeOnce  sync.Once
	logger     *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at cfg.Path and ensures the
// schema exists.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, newStorageError("sqlite", "open", fmt.Errorf("db path cannot be empty"))
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, newStorageError("sqlite", "open", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, newStorageError("sqlite", "open", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(usageSchema); err != nil {
		db.Close()
		return nil, newStorageError("sqlite", "create_schema", err)
	}

	insertStmt, err := db.Prepare(insertRecord)
	if err != nil {
		db.Close()
		return nil, newStorageError("sqlite", "prepare", err)
	}

	s := &SQLiteStore{
		db:         db,
		insertStmt: insertStmt,
		path:       cfg.Path,
		logger:     slog.Default().With("component", "usage.sqlite"),
	}

	s.logger.Info("usage store opened", "path", cfg.Path, "busy_timeout", cfg.BusyTimeout)
	return s, nil
}

// Store implements Store.
func (s *SQLiteStore) Store(ctx context.Context, record *Record) error {
	_, err := s.insertStmt.ExecContext(ctx,
		record.ID, record.RequestID, record.KeyPrefix, record.Model, record.Stream,
		record.Status, record.Category, record.Success,
		record.PromptTokens, record.CompletionTokens, record.TotalTokens,
		record.Frames, record.Duration.Milliseconds(), record.RecordedAt.UnixNano(),
	)
	if err != nil {
		return newStorageError("sqlite", "store", err)
	}
	return nil
}

// Summarize implements Store.
func (s *SQLiteStore) Summarize(ctx context.Context, since time.Time) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, summarizeRecords, since.UnixNano())
	if err != nil {
		return nil, newStorageError("sqlite", "summarize", err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var summary Summary
		if err := rows.Scan(
			&summary.KeyPrefix, &summary.Model,
			&summary.Requests, &summary.Failures,
			&summary.PromptTokens, &summary.CompletionTokens,
		); err != nil {
			return nil, newStorageError("sqlite", "scan", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError("sqlite", "summarize", err)
	}
	return summaries, nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM usage_records").Scan(&count); err != nil {
		return 0, newStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Close checkpoints the WAL and closes the database. It is safe to call more
// than once.
func (s *SQLiteStore) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		s.insertStmt.Close()

		if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			s.logger.Warn("wal checkpoint failed", "error", err)
		}
		if err := s.db.Close(); err != nil {
			closeErr = newStorageError("sqlite", "close", err)
			return
		}
		s.logger.Info("usage store closed", "path", s.path)
	})
	return closeErr
}
