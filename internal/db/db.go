package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/krisyotam/krisyotam.com-sub010/internal/config"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// FileName is the database file created under the home directory.
const FileName = "site.db"

// Init initializes the SQLite database at baseDir/site.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.site.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	exportsDir := filepath.Join(baseDir, "exports")
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}

	// Pragmas in the connection string apply to every pooled connection
	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: items, categories, tags, sequences
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS categories (
		  slug        TEXT PRIMARY KEY,
		  title       TEXT NOT NULL,
		  description TEXT,
		  preview     TEXT,
		  importance  INTEGER NOT NULL DEFAULT 0,
		  sort_order  INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS tags (
		  slug  TEXT PRIMARY KEY,
		  title TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS content_items (
		  id          TEXT PRIMARY KEY,
		  type        TEXT NOT NULL,
		  slug        TEXT NOT NULL,
		  title       TEXT NOT NULL,
		  subtitle    TEXT,
		  preview     TEXT,
		  start_date  TEXT NOT NULL DEFAULT '',
		  end_date    TEXT,
		  category    TEXT NOT NULL DEFAULT '',
		  status      TEXT,
		  confidence  TEXT,
		  importance  INTEGER,
		  state       TEXT NOT NULL DEFAULT 'active',
		  cover_image TEXT,
		  body        TEXT,
		  created_at  INTEGER NOT NULL,
		  updated_at  INTEGER NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_content_items_type_slug
		ON content_items(type, slug);

		CREATE INDEX IF NOT EXISTS idx_content_items_type_state
		ON content_items(type, state);

		CREATE TABLE IF NOT EXISTS content_tags (
		  item_id  TEXT NOT NULL REFERENCES content_items(id) ON DELETE CASCADE,
		  position INTEGER NOT NULL,
		  tag      TEXT NOT NULL,
		  PRIMARY KEY (item_id, position)
		);

		CREATE INDEX IF NOT EXISTS idx_content_tags_tag
		ON content_tags(tag);

		CREATE TABLE IF NOT EXISTS sequences (
		  slug        TEXT PRIMARY KEY,
		  title       TEXT NOT NULL,
		  subtitle    TEXT,
		  preview     TEXT,
		  start_date  TEXT NOT NULL DEFAULT '',
		  end_date    TEXT,
		  status      TEXT,
		  confidence  TEXT,
		  importance  INTEGER,
		  state       TEXT NOT NULL DEFAULT 'active',
		  cover_image TEXT
		);

		CREATE TABLE IF NOT EXISTS sequence_sections (
		  sequence_slug TEXT NOT NULL REFERENCES sequences(slug) ON DELETE CASCADE,
		  position      INTEGER NOT NULL,
		  title         TEXT NOT NULL,
		  PRIMARY KEY (sequence_slug, position)
		);

		-- section_position -1 holds the flat post list
		CREATE TABLE IF NOT EXISTS sequence_posts (
		  sequence_slug    TEXT NOT NULL REFERENCES sequences(slug) ON DELETE CASCADE,
		  section_position INTEGER NOT NULL,
		  post_order       INTEGER NOT NULL,
		  post_type        TEXT NOT NULL,
		  post_slug        TEXT NOT NULL,
		  PRIMARY KEY (sequence_slug, section_position, post_order)
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any error.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
