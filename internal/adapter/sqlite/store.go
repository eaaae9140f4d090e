// Package sqlite provides the hook-mode session and audit stores on a local
// SQLite file (modernc.org/sqlite, pure Go, no CGO). One-shot invocations
// share state through the file; the busy timeout serializes overlapping
// hooks from concurrent host sessions.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Strob0t/ReviewForge/internal/domain"
	"github.com/Strob0t/ReviewForge/internal/domain/session"

	_ "modernc.org/sqlite"
)

const staleLockAfter = 5 * time.Minute

// Store implements statestore.Store and holds the audit table for hook mode.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at the given path and ensures
// the schema exists.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single connection
	// serializes all access through Go's connection pool.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database file.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle so the audit store can share the file.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id  TEXT PRIMARY KEY,
			state       TEXT NOT NULL,
			version     INTEGER NOT NULL DEFAULT 0,
			locked      INTEGER NOT NULL DEFAULT 0,
			locked_at   INTEGER,
			updated_at  INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS audit_records (
			id             TEXT PRIMARY KEY,
			session_id     TEXT NOT NULL,
			stage          TEXT NOT NULL DEFAULT '',
			action         TEXT NOT NULL,
			reason         TEXT NOT NULL DEFAULT '',
			final_severity TEXT NOT NULL DEFAULT '',
			policy_used    TEXT NOT NULL DEFAULT '',
			retry_count    INTEGER NOT NULL DEFAULT 0,
			duration_ns    INTEGER NOT NULL DEFAULT 0,
			verdicts       TEXT,
			created_at     INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_records (session_id, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Acquire loads or creates the session row and takes its lock.
func (s *Store) Acquire(ctx context.Context, sessionID string) (*session.State, error) {
	now := time.Now()
	fresh := session.New(sessionID, now)
	freshJSON, err := json.Marshal(fresh)
	if err != nil {
		return nil, fmt.Errorf("marshal fresh state: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (session_id, state, updated_at) VALUES (?, ?, ?)`,
		sessionID, string(freshJSON), now.UnixNano()); err != nil {
		return nil, fmt.Errorf("ensure session %s: %w", sessionID, err)
	}

	stale := now.Add(-staleLockAfter).UnixNano()
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET locked = 1, locked_at = ?
		 WHERE session_id = ? AND (locked = 0 OR locked_at < ?)`,
		now.UnixNano(), sessionID, stale)
	if err != nil {
		return nil, fmt.Errorf("acquire session %s: %w", sessionID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("acquire session %s: %w", sessionID, err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("acquire session %s: %w", sessionID, domain.ErrStateContention)
	}

	return s.load(ctx, sessionID)
}

// Commit persists the whole record atomically and releases the lock.
func (s *Store) Commit(ctx context.Context, st *session.State) error {
	stateJSON, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET state = ?, version = version + 1, locked = 0, updated_at = ?
		 WHERE session_id = ? AND locked = 1`,
		string(stateJSON), time.Now().UnixNano(), st.SessionID)
	if err != nil {
		return fmt.Errorf("commit session %s: %w", st.SessionID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("commit session %s: %w", st.SessionID, err)
	}
	if affected == 0 {
		return fmt.Errorf("commit session %s: not acquired", st.SessionID)
	}
	return nil
}

// Release unlocks the session without persisting anything.
func (s *Store) Release(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET locked = 0 WHERE session_id = ? AND locked = 1`, sessionID)
	if err != nil {
		return fmt.Errorf("release session %s: %w", sessionID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release session %s: %w", sessionID, err)
	}
	if affected == 0 {
		return fmt.Errorf("release session %s: not acquired", sessionID)
	}
	return nil
}

// Get returns a snapshot without taking the lock.
func (s *Store) Get(ctx context.Context, sessionID string) (*session.State, error) {
	return s.load(ctx, sessionID)
}

// List returns snapshots of all sessions, ordered by session id.
func (s *Store) List(ctx context.Context) ([]*session.State, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT state, version FROM sessions ORDER BY session_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*session.State
	for rows.Next() {
		var stateJSON string
		var version int64
		if err := rows.Scan(&stateJSON, &version); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		st, err := unmarshalState(stateJSON, version)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Cleanup removes unlocked sessions not updated since the cutoff.
func (s *Store) Cleanup(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE locked = 0 AND updated_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	return int(affected), nil
}

func (s *Store) load(ctx context.Context, sessionID string) (*session.State, error) {
	var stateJSON string
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT state, version FROM sessions WHERE session_id = ?`, sessionID).
		Scan(&stateJSON, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return unmarshalState(stateJSON, version)
}

func unmarshalState(data string, version int64) (*session.State, error) {
	var st session.State
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	st.Version = version
	return &st, nil
}
