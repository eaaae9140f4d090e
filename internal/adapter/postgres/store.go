package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/ReviewForge/internal/domain"
	"github.com/Strob0t/ReviewForge/internal/domain/session"
)

// staleLockAfter bounds how long a crashed process can hold a session lock.
// A lock older than this is treated as abandoned and re-acquirable.
const staleLockAfter = 5 * time.Minute

// Store implements statestore.Store on PostgreSQL. The session record is one
// jsonb column; the lock lives on the row so overlapping triggers across
// processes contend on the database, not on process memory.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a session store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Acquire loads or creates the session row and takes its lock. A lock held
// by a live process surfaces as domain.ErrStateContention.
func (s *Store) Acquire(ctx context.Context, sessionID string) (*session.State, error) {
	fresh := session.New(sessionID, time.Now())
	freshJSON, err := json.Marshal(fresh)
	if err != nil {
		return nil, fmt.Errorf("marshal fresh state: %w", err)
	}

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (session_id, state) VALUES ($1, $2)
		 ON CONFLICT (session_id) DO NOTHING`,
		sessionID, freshJSON); err != nil {
		return nil, fmt.Errorf("ensure session %s: %w", sessionID, err)
	}

	var stateJSON []byte
	var version int64
	err = s.pool.QueryRow(ctx,
		`UPDATE sessions SET locked = true, locked_at = now()
		 WHERE session_id = $1 AND (NOT locked OR locked_at < now() - $2::interval)
		 RETURNING state, version`,
		sessionID, staleLockAfter.String()).Scan(&stateJSON, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("acquire session %s: %w", sessionID, domain.ErrStateContention)
		}
		return nil, fmt.Errorf("acquire session %s: %w", sessionID, err)
	}

	st, err := unmarshalState(stateJSON, version)
	if err != nil {
		return nil, fmt.Errorf("acquire session %s: %w", sessionID, err)
	}
	return st, nil
}

// Commit persists the whole record atomically and releases the lock.
func (s *Store) Commit(ctx context.Context, st *session.State) error {
	stateJSON, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET state = $2, version = version + 1, locked = false, updated_at = now()
		 WHERE session_id = $1 AND locked`,
		st.SessionID, stateJSON)
	if err != nil {
		return fmt.Errorf("commit session %s: %w", st.SessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("commit session %s: not acquired", st.SessionID)
	}
	return nil
}

// Release unlocks the session without persisting anything.
func (s *Store) Release(ctx context.Context, sessionID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET locked = false WHERE session_id = $1 AND locked`, sessionID)
	if err != nil {
		return fmt.Errorf("release session %s: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("release session %s: not acquired", sessionID)
	}
	return nil
}

// Get returns a snapshot without taking the lock.
func (s *Store) Get(ctx context.Context, sessionID string) (*session.State, error) {
	var stateJSON []byte
	var version int64
	err := s.pool.QueryRow(ctx,
		`SELECT state, version FROM sessions WHERE session_id = $1`, sessionID).
		Scan(&stateJSON, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}

	st, err := unmarshalState(stateJSON, version)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return st, nil
}

// List returns snapshots of all sessions, ordered by session id.
func (s *Store) List(ctx context.Context) ([]*session.State, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT state, version FROM sessions ORDER BY session_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*session.State
	for rows.Next() {
		var stateJSON []byte
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
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM sessions WHERE NOT locked AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func unmarshalState(data []byte, version int64) (*session.State, error) {
	var st session.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	st.Version = version
	return &st, nil
}
