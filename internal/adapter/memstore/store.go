// Package memstore provides an in-memory session state store. It backs
// tests and single-process deployments that run without a database.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Strob0t/ReviewForge/internal/domain"
	"github.com/Strob0t/ReviewForge/internal/domain/session"
)

type entry struct {
	locked bool
	state  *session.State
}

// Store implements statestore.Store with a per-session lock flag. The
// store-level mutex only guards the lock table; it is never held across a
// review, so sessions stay independent.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time // for testing
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Acquire loads or creates the session state and locks it.
func (s *Store) Acquire(_ context.Context, sessionID string) (*session.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionID]
	if !ok {
		e = &entry{state: session.New(sessionID, s.now())}
		s.entries[sessionID] = e
	}
	if e.locked {
		return nil, fmt.Errorf("acquire session %s: %w", sessionID, domain.ErrStateContention)
	}
	e.locked = true
	return e.state.Clone(), nil
}

// Commit atomically replaces the stored state and releases the lock.
func (s *Store) Commit(_ context.Context, st *session.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[st.SessionID]
	if !ok || !e.locked {
		return fmt.Errorf("commit session %s: not acquired", st.SessionID)
	}
	committed := st.Clone()
	committed.Version = e.state.Version + 1
	committed.UpdatedAt = s.now()
	e.state = committed
	e.locked = false
	return nil
}

// Release unlocks the session without persisting anything.
func (s *Store) Release(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionID]
	if !ok || !e.locked {
		return fmt.Errorf("release session %s: not acquired", sessionID)
	}
	e.locked = false
	return nil
}

// Get returns a snapshot without locking.
func (s *Store) Get(_ context.Context, sessionID string) (*session.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	return e.state.Clone(), nil
}

// List returns snapshots of all sessions, ordered by session id.
func (s *Store) List(_ context.Context) ([]*session.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*session.State, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.state.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

// Cleanup removes unlocked sessions not updated since the cutoff.
func (s *Store) Cleanup(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if !e.locked && e.state.UpdatedAt.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}
