// Package review defines the severity model and core review types.
package review

import (
	"errors"
	"fmt"
	"time"
)

// Severity classifies how serious the findings of a review are.
// The order is OK < LOW < MEDIUM < HIGH < CRITICAL.
type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists all levels from least to most severe.
var Severities = []Severity{SeverityOK, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// severityRanks maps each severity to its position in the total order.
var severityRanks = map[Severity]int{
	SeverityOK:       0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

var ErrInvalidSeverity = errors.New("invalid severity")

// Rank returns the severity's position in the total order (OK=0 .. CRITICAL=4).
// Unknown severities rank below OK so they can never win an aggregation.
func (s Severity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return -1
}

// Valid reports whether s is one of the five recognized levels.
func (s Severity) Valid() bool {
	_, ok := severityRanks[s]
	return ok
}

// AtLeast reports whether s is equal to or more severe than other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// MaxSeverity returns the more severe of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// ParseSeverity converts a string into a Severity.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
	}
	return sev, nil
}

// Stage identifies one phase of a development session's lifecycle.
type Stage string

const (
	StagePlan  Stage = "plan"
	StageCode  Stage = "code"
	StageTest  Stage = "test"
	StageFinal Stage = "final"
)

// Stages lists all lifecycle stages in execution order.
var Stages = []Stage{StagePlan, StageCode, StageTest, StageFinal}

var ErrInvalidStage = errors.New("invalid stage")

// Valid reports whether st is a recognized lifecycle stage.
func (st Stage) Valid() bool {
	switch st {
	case StagePlan, StageCode, StageTest, StageFinal:
		return true
	}
	return false
}

// ParseStage converts a string into a Stage.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStage, s)
	}
	return st, nil
}

// Request is one immutable review request, constructed fresh per trigger.
type Request struct {
	SessionID string    `json:"session_id"`
	Stage     Stage     `json:"stage"`
	Artifact  string    `json:"artifact"`
	Intent    string    `json:"intent,omitempty"`
	PromptID  string    `json:"prompt_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Issue is a single finding inside a verdict.
type Issue struct {
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Location    string   `json:"location,omitempty"`
	Suggestion  string   `json:"suggestion,omitempty"`
}

// Verdict is one reviewer backend's judgement for a single request.
// It is produced by exactly one adapter call and never mutated afterwards.
type Verdict struct {
	ReviewerID  string        `json:"reviewer_id"`
	Severity    Severity      `json:"severity"`
	Explanation string        `json:"explanation"`
	Issues      []Issue       `json:"issues,omitempty"`
	Latency     time.Duration `json:"latency_ns"`
	Succeeded   bool          `json:"succeeded"`
	Err         string        `json:"error,omitempty"`
	SelfReview  bool          `json:"self_review,omitempty"`
}

// FailedVerdict builds a verdict for an adapter call that did not produce
// a usable review. The severity is OK so a failure can never drive rework
// on its own; failed verdicts are excluded from aggregation anyway.
func FailedVerdict(reviewerID string, latency time.Duration, err error) Verdict {
	v := Verdict{
		ReviewerID: reviewerID,
		Severity:   SeverityOK,
		Latency:    latency,
		Succeeded:  false,
	}
	if err != nil {
		v.Err = err.Error()
	}
	return v
}
