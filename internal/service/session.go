package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/ReviewForge/internal/domain/event"
	"github.com/Strob0t/ReviewForge/internal/domain/session"
	"github.com/Strob0t/ReviewForge/internal/port/auditsink"
	"github.com/Strob0t/ReviewForge/internal/port/statestore"
)

var errEmptyOverrideReason = errors.New("override reason must not be empty")

// SessionService exposes session state reads, operator override control, and
// explicit retention cleanup.
type SessionService struct {
	store statestore.Store
	audit auditsink.Sink
	now   func() time.Time // for testing
}

// NewSessionService creates the service over the state store.
func NewSessionService(store statestore.Store, audit auditsink.Sink) *SessionService {
	return &SessionService{store: store, audit: audit, now: time.Now}
}

// Get returns a read-only snapshot of one session.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*session.State, error) {
	return s.store.Get(ctx, sessionID)
}

// List returns snapshots of all known sessions.
func (s *SessionService) List(ctx context.Context) ([]*session.State, error) {
	return s.store.List(ctx)
}

// SetOverride arms a session's override window. The reason is mandatory:
// a skip the audit trail cannot explain is a contract violation.
func (s *SessionService) SetOverride(ctx context.Context, sessionID string, until time.Time, reason string) error {
	if reason == "" {
		return errEmptyOverrideReason
	}

	st, err := s.store.Acquire(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("acquire session: %w", err)
	}
	st.SetOverride(until, reason)
	if err := s.store.Commit(ctx, st); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}

	s.emit(ctx, &event.AuditRecord{
		SessionID: sessionID,
		Action:    event.ActionOverrideArmed,
		Reason:    fmt.Sprintf("until %s: %s", until.Format(time.RFC3339), reason),
	})
	return nil
}

// ClearOverride disarms a session's override window.
func (s *SessionService) ClearOverride(ctx context.Context, sessionID string) error {
	st, err := s.store.Acquire(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("acquire session: %w", err)
	}
	st.ClearOverride()
	if err := s.store.Commit(ctx, st); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}

	s.emit(ctx, &event.AuditRecord{
		SessionID: sessionID,
		Action:    event.ActionOverrideCleared,
		Reason:    "override cleared by operator",
	})
	return nil
}

// Cleanup deletes sessions idle longer than the TTL. It is invoked from the
// admin command only; retention never runs implicitly.
func (s *SessionService) Cleanup(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := s.now().Add(-ttl)
	removed, err := s.store.Cleanup(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	if removed > 0 {
		s.emit(ctx, &event.AuditRecord{
			Action: event.ActionSessionCleanedUp,
			Reason: fmt.Sprintf("%d sessions idle since %s removed", removed, cutoff.Format(time.RFC3339)),
		})
	}
	return removed, nil
}

func (s *SessionService) emit(ctx context.Context, rec *event.AuditRecord) {
	rec.ID = uuid.NewString()
	rec.Timestamp = s.now()
	_ = s.audit.Emit(ctx, rec)
}
