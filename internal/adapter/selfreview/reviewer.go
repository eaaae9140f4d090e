// Package selfreview implements the always-available fallback reviewer. It
// never judges the artifact itself: it hands the host session a structured
// self-review checklist so the engine still produces a decision when every
// remote reviewer is down.
package selfreview

import (
	"context"
	"strings"
	"time"

	"github.com/Strob0t/ReviewForge/internal/domain/review"
	"github.com/Strob0t/ReviewForge/internal/port/reviewer"
)

func init() {
	reviewer.Register("self", func(id string, _ map[string]string) (reviewer.Reviewer, error) {
		return New(id), nil
	})
}

// checklists holds the per-stage self-review instructions returned to the host.
var checklists = map[review.Stage][]string{
	review.StagePlan: {
		"Does every planned step trace back to something the user asked for?",
		"Is anything missing that the request clearly implies?",
	},
	review.StageCode: {
		"Re-read the diff: does each change do what its surroundings suggest?",
		"Are errors handled on every new call path?",
		"Would any of these changes surprise a reviewer who knows this codebase?",
	},
	review.StageTest: {
		"Do the tests exercise the behavior that just changed?",
		"Did any previously passing test get weakened to make it pass?",
	},
	review.StageFinal: {
		"Walk the original request once more: is every part delivered?",
		"Is anything left half-done behind a flag or TODO?",
	},
}

// Reviewer is the self-review adapter. Severity is always OK: self-review
// guides the host, it never drives rework on its own.
type Reviewer struct {
	id string
}

// New builds a self-review adapter.
func New(id string) *Reviewer { return &Reviewer{id: id} }

// ID implements reviewer.Reviewer.
func (r *Reviewer) ID() string { return r.id }

// IsAvailable always reports true.
func (r *Reviewer) IsAvailable() bool { return true }

// Review implements reviewer.Reviewer.
func (r *Reviewer) Review(_ context.Context, req review.Request) review.Verdict {
	start := time.Now()

	items := checklists[req.Stage]
	if len(items) == 0 {
		items = checklists[review.StageCode]
	}

	var sb strings.Builder
	sb.WriteString("Self-review checklist (")
	sb.WriteString(string(req.Stage))
	sb.WriteString(" stage):\n")
	for _, item := range items {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	if req.Intent != "" {
		sb.WriteString("Original intent: ")
		sb.WriteString(req.Intent)
		sb.WriteString("\n")
	}

	return review.Verdict{
		ReviewerID:  r.id,
		Severity:    review.SeverityOK,
		Explanation: sb.String(),
		Latency:     time.Since(start),
		Succeeded:   true,
		SelfReview:  true,
	}
}
