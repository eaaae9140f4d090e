// Package statestore defines the session state store port (interface).
package statestore

import (
	"context"
	"time"

	"github.com/Strob0t/ReviewForge/internal/domain/session"
)

// Store is the port interface for durable per-session state.
//
// Acquire/Commit/Release give overlapping triggers for the same session_id
// mutual exclusion without any global lock: Acquire locks exactly one
// session, Commit persists the whole record atomically and unlocks, Release
// unlocks without persisting (used when a decision is cancelled). A lock
// held elsewhere surfaces as domain.ErrStateContention — the caller retries
// the trigger rather than silently skipping the review.
type Store interface {
	// Acquire loads the state for sessionID, creating a fresh record on
	// first contact, and locks it against overlapping triggers.
	Acquire(ctx context.Context, sessionID string) (*session.State, error)

	// Commit atomically persists st in full and releases its lock.
	Commit(ctx context.Context, st *session.State) error

	// Release unlocks sessionID without persisting anything.
	Release(ctx context.Context, sessionID string) error

	// Get returns a read-only snapshot without taking the lock.
	Get(ctx context.Context, sessionID string) (*session.State, error)

	// List returns snapshots of all known sessions.
	List(ctx context.Context) ([]*session.State, error)

	// Cleanup deletes sessions not updated since the cutoff and returns
	// how many were removed. Retention is an explicit operation, never an
	// implicit side effect.
	Cleanup(ctx context.Context, cutoff time.Time) (int, error)
}
