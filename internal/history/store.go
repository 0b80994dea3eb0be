package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// ErrSessionNotFound is returned when a session ID is unknown.
var ErrSessionNotFound = errors.New("session not found")

// Session outcomes
const (
	OutcomeRunning = "running"
	OutcomeStopped = "stopped"
	OutcomeFailed  = "failed"
)

// Store keeps a log of scan sessions and the devices each one saw.
type Store struct {
	db   *sql.DB
	path string
}

// Sighting is one device seen during a session. Only the first sighting of
// an identity in a session is stored.
type Sighting struct {
	Identity    string
	Label       string
	Address     string
	RSSI        int
	Source      string
	Highlighted bool
	SeenAt      time.Time
}

// SessionSummary describes a past or running session.
type SessionSummary struct {
	ID        string
	Backend   string
	StartedAt time.Time
	EndedAt   time.Time // zero while running
	Outcome   string
	Reason    string
	Devices   int
}

// Duration returns how long the session ran, or zero while running.
func (s SessionSummary) Duration() time.Duration {
	if s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: path}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		backend TEXT NOT NULL,
		started_at TEXT NOT NULL,
		ended_at TEXT,
		outcome TEXT NOT NULL,
		reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);

	CREATE TABLE IF NOT EXISTS sightings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		identity TEXT NOT NULL,
		label TEXT NOT NULL,
		address TEXT,
		rssi INTEGER,
		source TEXT,
		highlighted INTEGER DEFAULT 0,
		seen_at TEXT NOT NULL,
		UNIQUE(session_id, identity)
	);

	CREATE INDEX IF NOT EXISTS idx_sightings_identity ON sightings(identity);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// BeginSession starts a new session and returns its ID.
func (s *Store) BeginSession(ctx context.Context, backend string, startedAt time.Time) (string, error) {
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, backend, started_at, outcome) VALUES (?, ?, ?, ?)`,
		id, backend, formatTime(startedAt), OutcomeRunning,
	)
	if err != nil {
		return "", fmt.Errorf("failed to begin session: %w", err)
	}
	return id, nil
}

// RecordSighting stores a sighting for a session. A second sighting of the
// same identity in the same session is ignored.
func (s *Store) RecordSighting(ctx context.Context, sessionID string, sg Sighting) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO sightings (session_id, identity, label, address, rssi, source, highlighted, seen_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id, identity) DO NOTHING`,
		sessionID, sg.Identity, sg.Label, sg.Address, sg.RSSI, sg.Source, sg.Highlighted, formatTime(sg.SeenAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record sighting: %w", err)
	}
	return nil
}

// FinishSession records how a session ended.
func (s *Store) FinishSession(ctx context.Context, sessionID, outcome, reason string, endedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?, outcome = ?, reason = ? WHERE id = ?`,
		formatTime(endedAt), outcome, reason, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

// RecentSessions returns up to limit sessions, newest first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT s.id, s.backend, s.started_at, COALESCE(s.ended_at, ''), s.outcome, COALESCE(s.reason, ''),
		(SELECT COUNT(*) FROM sightings g WHERE g.session_id = s.id)
	FROM sessions s
	ORDER BY s.started_at DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var (
			sum            SessionSummary
			started, ended string
		)
		if err := rows.Scan(&sum.ID, &sum.Backend, &started, &ended, &sum.Outcome, &sum.Reason, &sum.Devices); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sum.StartedAt = parseTime(started)
		sum.EndedAt = parseTime(ended)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Sightings returns a session's sightings in first-seen order.
func (s *Store) Sightings(ctx context.Context, sessionID string) ([]Sighting, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT identity, label, COALESCE(address, ''), COALESCE(rssi, 0), COALESCE(source, ''), highlighted, seen_at
	FROM sightings
	WHERE session_id = ?
	ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sightings: %w", err)
	}
	defer rows.Close()

	var out []Sighting
	for rows.Next() {
		var (
			sg   Sighting
			seen string
		)
		if err := rows.Scan(&sg.Identity, &sg.Label, &sg.Address, &sg.RSSI, &sg.Source, &sg.Highlighted, &seen); err != nil {
			return nil, fmt.Errorf("failed to scan sighting: %w", err)
		}
		sg.SeenAt = parseTime(seen)
		out = append(out, sg)
	}
	return out, rows.Err()
}

// timeFormat has a fixed width so stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
