// Package lifecycle defines the inbound event envelope and the outbound
// decision shared by the HTTP API and one-shot hook mode.
package lifecycle

import (
	"errors"
	"time"

	"github.com/Strob0t/ReviewForge/internal/domain/review"
)

// Todo is one entry of the host session's task list, carried on completion
// events so the engine can veto premature completion claims.
type Todo struct {
	Content string `json:"content"`
	Status  string `json:"status"` // "pending" | "in_progress" | "completed"
}

// TodoStatusCompleted is the terminal status of a host task entry.
const TodoStatusCompleted = "completed"

// Event is one lifecycle notification from a host session. The artifact is
// opaque text (diff, plan, test output); the prompt carries recent user text
// for override keyword scanning and intent extraction.
type Event struct {
	SessionID  string    `json:"session_id"`
	Stage      string    `json:"stage"`
	Artifact   string    `json:"artifact,omitempty"`
	Prompt     string    `json:"prompt,omitempty"`
	PromptID   string    `json:"prompt_id,omitempty"`
	Completion bool      `json:"completion,omitempty"`
	Todos      []Todo    `json:"todos,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

var ErrMissingSessionID = errors.New("session_id is required")

// Validate checks the fields the engine cannot default.
func (e *Event) Validate() error {
	if e.SessionID == "" {
		return ErrMissingSessionID
	}
	if _, err := review.ParseStage(e.Stage); err != nil {
		return err
	}
	return nil
}

// Normalize fills host-optional fields: an empty stage defaults to code and
// a zero timestamp is stamped with now. Call before Validate.
func (e *Event) Normalize(now time.Time) {
	if e.Stage == "" {
		e.Stage = string(review.StageCode)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
}

// ReviewStage returns the parsed stage. Only meaningful after Validate.
func (e *Event) ReviewStage() review.Stage {
	return review.Stage(e.Stage)
}

// Decision is the engine's reply to one lifecycle event, shaped for direct
// serialization back to the host. Continue=false tells the host to stop and
// rework; everything else is advisory detail.
type Decision struct {
	Continue      bool   `json:"continue"`
	SystemMessage string `json:"systemMessage,omitempty"`
	Severity      string `json:"severity,omitempty"`
	Action        string `json:"action,omitempty"`
	RetryStage    string `json:"retry_stage,omitempty"`
	RetryCount    int    `json:"retry_count,omitempty"`
	BackoffMs     int64  `json:"backoff_ms,omitempty"`
	Pending       bool   `json:"pending,omitempty"`
}

// Proceed returns a continue decision with an optional host message.
func Proceed(msg string) Decision {
	return Decision{Continue: true, SystemMessage: msg}
}

// Block returns a rework decision; the host must not proceed past it.
func Block(msg string) Decision {
	return Decision{Continue: false, SystemMessage: msg}
}

// PendingDecision reports an open debounce window: the event was absorbed
// and a review may still fire once the window closes.
func PendingDecision() Decision {
	return Decision{Continue: true, Pending: true}
}
