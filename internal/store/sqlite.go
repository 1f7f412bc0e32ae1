package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mjansen/bijleslab/internal/tutor"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		dark_mode INTEGER NOT NULL DEFAULT 0,
		accent_color TEXT NOT NULL,
		sidebar_theme TEXT NOT NULL,
		tutor TEXT NOT NULL,
		theme TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transcripts (
		id TEXT PRIMARY KEY,
		tutor TEXT NOT NULL,
		theme TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		saved_at INTEGER NOT NULL,
		messages_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcripts_saved ON transcripts(saved_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetSettings returns the stored settings, or the defaults when nothing
// has been saved yet.
func (s *SQLiteStore) GetSettings(ctx context.Context) (*tutor.Settings, error) {
	query := `
		SELECT dark_mode, accent_color, sidebar_theme, tutor, theme, updated_at
		FROM settings WHERE id = 1`

	row := s.db.QueryRowContext(ctx, query)

	var settings tutor.Settings
	var darkMode int
	var updatedAt int64

	err := row.Scan(&darkMode, &settings.AccentColor, &settings.SidebarTheme,
		&settings.Tutor, &settings.Theme, &updatedAt)
	if err == sql.ErrNoRows {
		return tutor.DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan settings row: %w", err)
	}

	settings.DarkMode = darkMode != 0
	settings.UpdatedAt = time.Unix(updatedAt, 0)
	return &settings, nil
}

// SaveSettings replaces the stored settings. Last write wins.
func (s *SQLiteStore) SaveSettings(ctx context.Context, settings *tutor.Settings) error {
	query := `
	INSERT INTO settings (id, dark_mode, accent_color, sidebar_theme, tutor, theme, updated_at)
	VALUES (1, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		dark_mode = excluded.dark_mode,
		accent_color = excluded.accent_color,
		sidebar_theme = excluded.sidebar_theme,
		tutor = excluded.tutor,
		theme = excluded.theme,
		updated_at = excluded.updated_at`

	darkMode := 0
	if settings.DarkMode {
		darkMode = 1
	}
	updatedAt := settings.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	err := s.execRetry(ctx, query,
		darkMode, settings.AccentColor, settings.SidebarTheme,
		settings.Tutor, settings.Theme, updatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// SaveTranscript stores a conversation for later review.
func (s *SQLiteStore) SaveTranscript(ctx context.Context, transcript *Transcript) error {
	messages, err := json.Marshal(transcript.Messages)
	if err != nil {
		return fmt.Errorf("marshal transcript messages: %w", err)
	}

	savedAt := transcript.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	query := `
	INSERT INTO transcripts (id, tutor, theme, started_at, saved_at, messages_json)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		saved_at = excluded.saved_at,
		messages_json = excluded.messages_json`

	err = s.execRetry(ctx, query,
		transcript.ID, transcript.Tutor, transcript.Theme,
		transcript.StartedAt.Unix(), savedAt.Unix(), string(messages),
	)
	if err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}

// ListTranscripts returns saved transcripts, newest first.
func (s *SQLiteStore) ListTranscripts(ctx context.Context, limit int) ([]*Transcript, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, tutor, theme, started_at, saved_at, messages_json
		FROM transcripts ORDER BY saved_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	var transcripts []*Transcript
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		transcripts = append(transcripts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcripts: %w", err)
	}
	return transcripts, nil
}

// GetTranscript retrieves one transcript by id. Returns nil when it
// does not exist.
func (s *SQLiteStore) GetTranscript(ctx context.Context, id string) (*Transcript, error) {
	query := `
		SELECT id, tutor, theme, started_at, saved_at, messages_json
		FROM transcripts WHERE id = ?`

	t, err := scanTranscript(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// execRetry runs a write statement, retrying with backoff when SQLite
// reports a concurrency conflict. WAL mode makes these rare but not
// impossible when the CLI and a serve instance share one database file.
func (s *SQLiteStore) execRetry(ctx context.Context, query string, args ...any) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			}
		}
		_, err = s.db.ExecContext(ctx, query, args...)
		if err == nil || !isConflict(err) {
			return err
		}
	}
	return err
}

// isConflict reports SQLITE_BUSY and "database is locked" errors, the
// two forms SQLite uses for lock contention.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTranscript(row rowScanner) (*Transcript, error) {
	var t Transcript
	var startedAt, savedAt int64
	var messages string

	err := row.Scan(&t.ID, &t.Tutor, &t.Theme, &startedAt, &savedAt, &messages)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan transcript row: %w", err)
	}

	t.StartedAt = time.Unix(startedAt, 0)
	t.SavedAt = time.Unix(savedAt, 0)
	if err := json.Unmarshal([]byte(messages), &t.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal transcript messages: %w", err)
	}
	return &t, nil
}
