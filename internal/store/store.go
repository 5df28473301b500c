// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package store persists analyses, daily statistics and custom patterns
// in SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"toxic-scan/internal/logging"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateName = errors.New("pattern name already exists")
)

// DateLayout formats statistics dates
const DateLayout = "2006-01-02"

// Store is the SQLite backed repository
type Store struct {
	db  *sqlx.DB
	log logging.Logger
	now func() time.Time
}

// Open connects to the database at path, creating the schema when needed.
// ":memory:" opens a private in-memory database.
func Open(path string, log logging.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if log == nil {
		log = logging.NewNop()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path)
	if path == ":memory:" {
		dsn = "file::memory:?_pragma=busy_timeout(5000)"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, log: log.With(logging.String("component", "store")), now: time.Now}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		source_type TEXT NOT NULL DEFAULT 'text',
		file_name TEXT NOT NULL DEFAULT '',
		file_type TEXT NOT NULL DEFAULT '',
		is_toxic INTEGER NOT NULL,
		level TEXT NOT NULL,
		state TEXT NOT NULL,
		confidence REAL NOT NULL,
		types TEXT NOT NULL,
		matched_patterns TEXT NOT NULL,
		detected_words TEXT NOT NULL,
		highlighted_text TEXT NOT NULL,
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		created_date TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
	CREATE INDEX IF NOT EXISTS idx_analyses_created_date ON analyses(created_date);
	CREATE INDEX IF NOT EXISTS idx_analyses_level ON analyses(level);

	CREATE TABLE IF NOT EXISTS analysis_statistics (
		date TEXT PRIMARY KEY,
		total_analyses INTEGER NOT NULL DEFAULT 0,
		toxic_analyses INTEGER NOT NULL DEFAULT 0,
		safe_analyses INTEGER NOT NULL DEFAULT 0,
		low_toxicity INTEGER NOT NULL DEFAULT 0,
		medium_toxicity INTEGER NOT NULL DEFAULT 0,
		extreme_toxicity INTEGER NOT NULL DEFAULT 0,
		insults_count INTEGER NOT NULL DEFAULT 0,
		threats_count INTEGER NOT NULL DEFAULT 0,
		hate_count INTEGER NOT NULL DEFAULT 0,
		harassment_count INTEGER NOT NULL DEFAULT 0,
		profanity_count INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS toxic_patterns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		pattern TEXT NOT NULL,
		category TEXT NOT NULL,
		level TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
