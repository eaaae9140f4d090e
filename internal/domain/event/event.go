// Package event defines the append-only audit record emitted per decision.
package event

import (
	"time"

	"github.com/Strob0t/ReviewForge/internal/domain/decision"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
)

// Action identifies what the engine did with a lifecycle event.
type Action string

const (
	ActionSkippedOverride  Action = "skipped.override"
	ActionSkippedDebounce  Action = "skipped.debounce"
	ActionProceeding       Action = "proceeding"
	ActionRetrying         Action = "retrying"
	ActionExhaustedWarn    Action = "exhausted_warn"
	ActionNoReviewers      Action = "no_reviewers"
	ActionAbandoned        Action = "abandoned"
	ActionOverrideArmed    Action = "override.armed"
	ActionOverrideCleared  Action = "override.cleared"
	ActionSessionCleanedUp Action = "session.cleaned_up"
)

// AuditRecord is one immutable entry handed to the audit sink after every
// decision or skip. Records are append-only; nothing updates them.
type AuditRecord struct {
	ID            string              `json:"id"`
	Timestamp     time.Time           `json:"timestamp"`
	SessionID     string              `json:"session_id"`
	Stage         review.Stage        `json:"stage,omitempty"`
	Verdicts      []review.Verdict    `json:"verdicts,omitempty"`
	FinalSeverity review.Severity     `json:"final_severity,omitempty"`
	PolicyUsed    decision.PolicyName `json:"policy_used,omitempty"`
	Action        Action              `json:"action_taken"`
	Reason        string              `json:"reason,omitempty"`
	RetryCount    int                 `json:"retry_count"`
	Duration      time.Duration       `json:"duration_ns"`
}
