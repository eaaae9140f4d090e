package event

import (
	"time"

	"github.com/Strob0t/ReviewForge/internal/domain/decision"
)

// Replay re-derives the decision recorded in an audit entry by running its
// stored verdicts back through the stored policy. A decision is derived
// state: replaying the same verdicts under the same policy must reproduce
// the same final severity.
func Replay(rec *AuditRecord, weights map[string]float64) (decision.Resolved, error) {
	p := decision.Policy{
		Name:    rec.PolicyUsed,
		Weights: weights,
	}
	return decision.Resolve(rec.Stage, rec.Verdicts, p)
}

// Matches reports whether a replayed decision agrees with the record.
func Matches(rec *AuditRecord, replayed decision.Resolved) bool {
	return replayed.FinalSeverity == rec.FinalSeverity
}

// AuditFilter controls which audit records are returned from the store.
type AuditFilter struct {
	SessionID string     `json:"session_id,omitempty"`
	Stage     string     `json:"stage,omitempty"`
	Action    string     `json:"action,omitempty"`
	After     *time.Time `json:"after,omitempty"`
	Before    *time.Time `json:"before,omitempty"`
}

// AuditPage is a cursor-paginated page of audit records.
type AuditPage struct {
	Records []AuditRecord `json:"records"`
	Cursor  string        `json:"cursor"`
	HasMore bool          `json:"has_more"`
}
