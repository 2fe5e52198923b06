package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05"

var ErrNotFound = errors.New("record not found")

// EventRecord is one calendar event created on behalf of a user.
type EventRecord struct {
	ID            int64
	UserID        int64
	CalendarID    string
	GoogleEventID string
	Summary       string
	CreatedAt     time.Time
}

// Store keeps per-user timezone state and the history of created events.
type Store struct {
	db          *sql.DB
	defaultZone string
	now         func() time.Time
	log         *zap.Logger
}

// Open creates the database file and its tables if needed.
func Open(path, defaultZone string, log *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, defaultZone: defaultZone, now: time.Now, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("🗄️ Database ready", zap.String("path", path))
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS user_state (
		user_id INTEGER PRIMARY KEY,
		current_timezone TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS event_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		calendar_id TEXT NOT NULL,
		google_event_id TEXT NOT NULL,
		summary TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_event_history_user ON event_history (user_id);`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("run migration: %w", err)
	}
	return nil
}

// UserZone returns the user's current timezone, or the default zone for
// users who never changed it.
func (s *Store) UserZone(ctx context.Context, userID int64) (string, error) {
	var zone string
	err := s.db.QueryRowContext(ctx,
		`SELECT current_timezone FROM user_state WHERE user_id = ?`, userID).Scan(&zone)
	if errors.Is(err, sql.ErrNoRows) {
		return s.defaultZone, nil
	}
	if err != nil {
		return "", fmt.Errorf("get user zone: %w", err)
	}
	return zone, nil
}

func (s *Store) SetUserZone(ctx context.Context, userID int64, zone string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_state (user_id, current_timezone, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			current_timezone = excluded.current_timezone,
			updated_at = excluded.updated_at`,
		userID, zone, s.stamp())
	if err != nil {
		return fmt.Errorf("set user zone: %w", err)
	}
	s.log.Info("🌍 User timezone updated", zap.Int64("user_id", userID), zap.String("zone", zone))
	return nil
}

// SaveEvent records rec and returns its row ID.
func (s *Store) SaveEvent(ctx context.Context, rec EventRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO event_history (user_id, calendar_id, google_event_id, summary, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.UserID, rec.CalendarID, rec.GoogleEventID, rec.Summary, s.stamp())
	if err != nil {
		return 0, fmt.Errorf("save event: %w", err)
	}
	return res.LastInsertId()
}

// Event returns the record with the given row ID.
func (s *Store) Event(ctx context.Context, id int64) (*EventRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, calendar_id, google_event_id, summary, created_at
		FROM event_history WHERE id = ?`, id)
	return scanEvent(row)
}

// LastEvent returns the user's most recently saved event.
func (s *Store) LastEvent(ctx context.Context, userID int64) (*EventRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, calendar_id, google_event_id, summary, created_at
		FROM event_history WHERE user_id = ? ORDER BY id DESC LIMIT 1`, userID)
	return scanEvent(row)
}

func scanEvent(row *sql.Row) (*EventRecord, error) {
	var (
		rec       EventRecord
		summary   sql.NullString
		createdAt string
	)
	err := row.Scan(&rec.ID, &rec.UserID, &rec.CalendarID, &rec.GoogleEventID, &summary, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	rec.Summary = summary.String

	rec.CreatedAt, err = time.ParseInLocation(timeLayout, createdAt, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return &rec, nil
}

func (s *Store) stamp() string {
	return s.now().UTC().Format(timeLayout)
}
