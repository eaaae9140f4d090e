package ws

// Event type constants for WebSocket messages.
const (
	EventDecision       = "review.decision"
	EventReviewerStatus = "reviewer.status"
	EventOverride       = "session.override"
)

// ReviewerStatusEvent is broadcast when a reviewer's availability changes
// (breaker open, quota cooldown, recovery).
type ReviewerStatusEvent struct {
	ReviewerID string `json:"reviewer_id"`
	Available  bool   `json:"available"`
	Detail     string `json:"detail,omitempty"`
}

// OverrideEvent is broadcast when an operator arms or clears an override.
type OverrideEvent struct {
	SessionID string `json:"session_id"`
	Active    bool   `json:"active"`
	Reason    string `json:"reason,omitempty"`
}
