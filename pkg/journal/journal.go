// Package journal records proxied frames in SQLite so a session can be
// inspected or replayed after the fact.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Direction tells which way a frame travelled through the proxy.
type Direction string

const (
	// Inbound frames went from the parent to the child.
	Inbound Direction = "in"
	// Outbound frames went from the child to the parent.
	Outbound Direction = "out"
)

// Entry is one recorded frame.
type Entry struct {
	Seq        int64           `json:"seq"`
	Session    string          `json:"session"`
	Direction  Direction       `json:"direction"`
	Frame      json.RawMessage `json:"frame"`
	RecordedAt int64           `json:"recordedAt"`
}

// Session describes one proxy run.
type Session struct {
	ID        string `json:"id"`
	Command   string `json:"command"`
	StartedAt int64  `json:"startedAt"`
	EndedAt   *int64 `json:"endedAt,omitempty"`
	ExitCode  *int   `json:"exitCode,omitempty"`
	Frames    int    `json:"frames"`
}

// Options tunes SQLite pragmas.
type Options struct {
	JournalMode string
	Synchronous string
}

var (
	journalModes = map[string]bool{"DELETE": true, "TRUNCATE": true, "PERSIST": true, "MEMORY": true, "WAL": true, "OFF": true}
	syncModes    = map[string]bool{"OFF": true, "NORMAL": true, "FULL": true, "EXTRA": true}
)

// Store owns the journal database.
type Store struct {
	db   *sql.DB
	path string
	opts Options
}

// Path returns the underlying SQLite file path.
func (s *Store) Path() string {
	return s.path
}

// Open opens (creating if needed) the journal at path.
func Open(path string, opts Options) (*Store, error) {
	opts.JournalMode = strings.ToUpper(opts.JournalMode)
	opts.Synchronous = strings.ToUpper(opts.Synchronous)
	if opts.JournalMode == "" {
		opts.JournalMode = "WAL"
	}
	if opts.Synchronous == "" {
		opts.Synchronous = "NORMAL"
	}
	if !journalModes[opts.JournalMode] {
		return nil, fmt.Errorf("unknown journal mode %q", opts.JournalMode)
	}
	if !syncModes[opts.Synchronous] {
		return nil, fmt.Errorf("unknown synchronous mode %q", opts.Synchronous)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Both proxy directions write; one connection serializes them.
	db.SetMaxOpenConns(1)
	return &Store{db: db, path: path, opts: opts}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Init applies pragmas and the schema.
func (s *Store) Init(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("nil store")
	}
	pragmas := []string{
		"PRAGMA journal_mode = " + s.opts.JournalMode + ";",
		"PRAGMA synchronous = " + s.opts.Synchronous + ";",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, stmt := range pragmas {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES ('schemaVersion','1');`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			command TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			ended_at INTEGER,
			exit_code INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS frames (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			direction TEXT NOT NULL CHECK (direction IN ('in','out')),
			frame TEXT NOT NULL,
			recorded_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_frames_session_seq ON frames(session_id, seq);`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// BeginSession registers a proxy run.
func (s *Store) BeginSession(ctx context.Context, id, command string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(id, command, started_at) VALUES(?,?,?)`,
		id, command, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	return nil
}

// EndSession stores the child's exit code.
func (s *Store) EndSession(ctx context.Context, id string, exitCode int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?, exit_code = ? WHERE id = ?`,
		time.Now().UnixMilli(), exitCode, id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("end session: unknown session %q", id)
	}
	return nil
}

// Record appends one frame to a session.
func (s *Store) Record(ctx context.Context, session string, dir Direction, frame []byte) error {
	if dir != Inbound && dir != Outbound {
		return fmt.Errorf("record: invalid direction %q", dir)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO frames(session_id, direction, frame, recorded_at) VALUES(?,?,?,?)`,
		session, string(dir), string(frame), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("record frame: %w", err)
	}
	return nil
}

// List returns up to limit frames of a session in recording order. A limit
// of zero or less returns every frame.
func (s *Store) List(ctx context.Context, session string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, session_id, direction, frame, recorded_at
		FROM frames
		WHERE session_id = ?
		ORDER BY seq
		LIMIT ?;
	`, session, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e     Entry
			dir   string
			frame string
		)
		if err := rows.Scan(&e.Seq, &e.Session, &dir, &frame, &e.RecordedAt); err != nil {
			return nil, err
		}
		e.Direction = Direction(dir)
		e.Frame = json.RawMessage(frame)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Sessions lists every session, newest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.command, s.started_at, s.ended_at, s.exit_code, COUNT(f.seq)
		FROM sessions s
		LEFT JOIN frames f ON f.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC, s.id DESC;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			sess     Session
			ended    sql.NullInt64
			exitCode sql.NullInt64
		)
		if err := rows.Scan(&sess.ID, &sess.Command, &sess.StartedAt, &ended, &exitCode, &sess.Frames); err != nil {
			return nil, err
		}
		if ended.Valid {
			sess.EndedAt = &ended.Int64
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			sess.ExitCode = &code
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
