package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/pagesnap/pagesnap/internal/models"
)

// SQLiteStore persists cookie sets in a SQLite database. TTL is enforced by
// an expires_at column: expired rows are treated as absent on read and swept
// by a background cleanup loop.
type SQLiteStore struct {
	db       *sql.DB
	logger   *slog.Logger
	isMemory bool
	now      func() time.Time
}

// NewSQLiteStore creates a new SQLite-backed cookie store.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	var connStr string
	isMemory := dbPath == ":memory:"

	if isMemory {
		// In-memory database - no WAL mode, use shared cache for same connection
		connStr = "file::memory:?cache=shared&_timeout=5000&_busy_timeout=5000"
		logger.Info("using in-memory SQLite database")
	} else {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory: %w", err)
			}
		}
		connStr = dbPath + "?_journal=WAL&_timeout=5000&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:       db,
		logger:   logger,
		isMemory: isMemory,
		now:      time.Now,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("SQLite cookie store initialized", "path", dbPath, "in_memory", isMemory)
	return s, nil
}

// migrate creates the necessary tables.
func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cookie_sessions (
		key TEXT PRIMARY KEY,
		cookies_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		expires_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cookie_sessions_expires_at ON cookie_sessions(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Load retrieves a cookie set. Expired rows are treated as absent even before
// the cleanup loop removes them.
func (s *SQLiteStore) Load(ctx context.Context, key string) (models.CookieSet, error) {
	var cookiesJSON, expiresAtStr string

	err := s.db.QueryRowContext(ctx,
		"SELECT cookies_json, expires_at FROM cookie_sessions WHERE key = ?", key,
	).Scan(&cookiesJSON, &expiresAtStr)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cookie set: %w", err)
	}

	expiresAt, err := time.Parse(time.RFC3339, expiresAtStr)
	if err != nil || !s.now().Before(expiresAt) {
		return nil, nil
	}

	cookies, err := models.DecodeCookieSet([]byte(cookiesJSON))
	if err != nil {
		s.logger.Warn("failed to decode stored cookie set", "key", key, "error", err)
		return nil, nil
	}

	return cookies, nil
}

// Save persists a cookie set with the given TTL.
func (s *SQLiteStore) Save(ctx context.Context, key string, cookies models.CookieSet, ttl time.Duration) error {
	data, err := cookies.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode cookie set: %w", err)
	}

	now := s.now()
	query := `
	INSERT INTO cookie_sessions (key, cookies_json, created_at, expires_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		cookies_json = excluded.cookies_json,
		created_at = excluded.created_at,
		expires_at = excluded.expires_at
	`

	_, err = s.db.ExecContext(ctx, query,
		key,
		string(data),
		now.Format(time.RFC3339),
		now.Add(ttl).Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save cookie set: %w", err)
	}

	s.logger.Debug("cookie set persisted", "key", key, "cookies", len(cookies), "ttl", ttl)
	return nil
}

// Delete removes a cookie set.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cookie_sessions WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete cookie set: %w", err)
	}
	s.logger.Debug("cookie set deleted", "key", key)
	return nil
}

// CleanupExpired removes rows whose TTL has elapsed.
func (s *SQLiteStore) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM cookie_sessions WHERE expires_at <= ?",
		s.now().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired cookie sets: %w", err)
	}

	count, _ := result.RowsAffected()
	if count > 0 {
		s.logger.Info("cleaned up expired cookie sets", "count", count)
	}
	return count, nil
}

// StartCleanup runs CleanupExpired periodically until the context is done.
func (s *SQLiteStore) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CleanupExpired(ctx); err != nil {
				s.logger.Error("cookie store cleanup failed", "error", err)
			}
		}
	}
}

// Close closes the database connection.
// Performs a WAL checkpoint first to ensure all data is flushed to the main DB file.
func (s *SQLiteStore) Close() error {
	if !s.isMemory {
		if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			s.logger.Warn("failed to checkpoint WAL before close", "error", err)
		}
	}
	s.logger.Debug("SQLite cookie store closing", "in_memory", s.isMemory)
	return s.db.Close()
}
