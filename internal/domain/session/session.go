// Package session defines the per-session state the rework controller
// reads and mutates between lifecycle events.
package session

import (
	"time"

	"github.com/Strob0t/ReviewForge/internal/domain/review"
)

// StageStatus represents where one stage of a session sits in the review
// state machine for the current trigger.
type StageStatus string

const (
	StageIdle          StageStatus = "idle"
	StageTriggered     StageStatus = "triggered"
	StageReviewing     StageStatus = "reviewing"
	StageDecided       StageStatus = "decided"
	StageProceeding    StageStatus = "proceeding"
	StageRetrying      StageStatus = "retrying"
	StageExhaustedWarn StageStatus = "exhausted_warn"
)

// Terminal reports whether the status ends the current trigger. Retrying is
// not terminal: it loops back to Triggered for the retry target stage.
func (s StageStatus) Terminal() bool {
	return s == StageProceeding || s == StageExhaustedWarn
}

// StageState tracks one stage's counters inside a session.
type StageState struct {
	Status          StageStatus `json:"status"`
	RetryCount      int         `json:"retry_count"`
	LastTriggerTime time.Time   `json:"last_trigger_time,omitempty"`
}

// State is the durable per-session record. It is created on the first event
// for a session_id and mutated only under the store's per-session lock;
// decisions commit to it atomically, in full, or not at all.
type State struct {
	SessionID       string                       `json:"session_id"`
	Stages          map[review.Stage]*StageState `json:"stages"`
	OverrideUntil   time.Time                    `json:"override_until,omitempty"`
	OverrideReason  string                       `json:"override_reason,omitempty"`
	CompletionCount int                          `json:"completion_count"`
	TodoSnapshot    string                       `json:"todo_snapshot,omitempty"`
	Version         int64                        `json:"version"`
	CreatedAt       time.Time                    `json:"created_at"`
	UpdatedAt       time.Time                    `json:"updated_at"`
}

// New returns a fresh State with every stage Idle.
func New(sessionID string, now time.Time) *State {
	st := &State{
		SessionID: sessionID,
		Stages:    make(map[review.Stage]*StageState, len(review.Stages)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, stage := range review.Stages {
		st.Stages[stage] = &StageState{Status: StageIdle}
	}
	return st
}

// Stage returns the state for one stage, creating an Idle entry if the
// record predates that stage or was loaded from a sparse row.
func (s *State) Stage(stage review.Stage) *StageState {
	if s.Stages == nil {
		s.Stages = make(map[review.Stage]*StageState, len(review.Stages))
	}
	ss, ok := s.Stages[stage]
	if !ok {
		ss = &StageState{Status: StageIdle}
		s.Stages[stage] = ss
	}
	return ss
}

// OverrideActive reports whether a standing override covers the given time.
func (s *State) OverrideActive(now time.Time) bool {
	return !s.OverrideUntil.IsZero() && now.Before(s.OverrideUntil)
}

// SetOverride arms the override window with its mandatory reason.
func (s *State) SetOverride(until time.Time, reason string) {
	s.OverrideUntil = until
	s.OverrideReason = reason
}

// ClearOverride disarms any standing override.
func (s *State) ClearOverride() {
	s.OverrideUntil = time.Time{}
	s.OverrideReason = ""
}

// Clone returns a deep copy so a decision can be prepared off the live
// record and committed atomically.
func (s *State) Clone() *State {
	cp := *s
	cp.Stages = make(map[review.Stage]*StageState, len(s.Stages))
	for stage, ss := range s.Stages {
		dup := *ss
		cp.Stages[stage] = &dup
	}
	return &cp
}
