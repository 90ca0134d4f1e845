package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/IgorGrieder/shorty/internal/infrastructure/logger"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS links (
	code TEXT PRIMARY KEY,
	target TEXT NOT NULL,
	clicks INTEGER NOT NULL DEFAULT 0,
	last_clicked INTEGER,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_links_created_at ON links(created_at DESC);
`

type SQLite struct {
	DB *sql.DB
}

// OpenSQLite opens the database file at path and creates the links table
// if it does not exist yet.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", FormatSQLitePath(path))
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite: %w", err)
	}

	// A single writer keeps SQLITE_BUSY out of the request path.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to ping sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to create sqlite schema: %w", err)
	}

	logger.Info("SQLite ready", zap.String("path", path))
	return &SQLite{DB: db}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// FormatSQLitePath turns a plain file path into a modernc DSN with pragmas.
// See: https://pkg.go.dev/modernc.org/sqlite#pkg-overview
func FormatSQLitePath(path string) string {
	if path == "" {
		path = "shorty.db"
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}

	params := url.Values{}
	params.Set("mode", "rwc")
	params.Set("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "synchronous(NORMAL)")
	params.Add("_pragma", "busy_timeout(5000)")

	return path + "?" + params.Encode()
}
