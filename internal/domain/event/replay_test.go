package event_test

import (
	"testing"

	"github.com/Strob0t/ReviewForge/internal/domain/decision"
	"github.com/Strob0t/ReviewForge/internal/domain/event"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
)

func verdict(id string, sev review.Severity) review.Verdict {
	return review.Verdict{ReviewerID: id, Severity: sev, Succeeded: true}
}

// A decision is derived state: feeding a record's verdicts back through its
// recorded policy must land on the same final severity.
func TestReplayReproducesRecordedDecision(t *testing.T) {
	weights := map[string]float64{"gemini": 2.0, "copilot": 1.0}

	tests := []struct {
		name     string
		policy   decision.PolicyName
		verdicts []review.Verdict
	}{
		{
			name:   "conservative takes max",
			policy: decision.PolicyConservative,
			verdicts: []review.Verdict{
				verdict("gemini", review.SeverityMedium),
				verdict("copilot", review.SeverityCritical),
			},
		},
		{
			name:   "majority with tie break",
			policy: decision.PolicyMajorityVote,
			verdicts: []review.Verdict{
				verdict("gemini", review.SeverityLow),
				verdict("copilot", review.SeverityHigh),
			},
		},
		{
			name:   "weighted favors heavier reviewer",
			policy: decision.PolicyWeightedVote,
			verdicts: []review.Verdict{
				verdict("gemini", review.SeverityMedium),
				verdict("copilot", review.SeverityCritical),
			},
		},
		{
			name:   "failed verdicts stay excluded on replay",
			policy: decision.PolicyConservative,
			verdicts: []review.Verdict{
				verdict("gemini", review.SeverityLow),
				{ReviewerID: "copilot", Severity: review.SeverityOK, Succeeded: false, Err: "timeout"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := decision.Policy{Name: tt.policy, Weights: weights}
			res, err := decision.Resolve(review.StageCode, tt.verdicts, p)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}

			rec := &event.AuditRecord{
				SessionID:     "s1",
				Stage:         res.Stage,
				Verdicts:      res.Verdicts,
				FinalSeverity: res.FinalSeverity,
				PolicyUsed:    res.PolicyUsed,
			}

			replayed, err := event.Replay(rec, weights)
			if err != nil {
				t.Fatalf("Replay failed: %v", err)
			}
			if !event.Matches(rec, replayed) {
				t.Fatalf("replay disagrees with record: recorded %s, replayed %s",
					rec.FinalSeverity, replayed.FinalSeverity)
			}
		})
	}
}

func TestMatchesDetectsTamperedRecord(t *testing.T) {
	verdicts := []review.Verdict{verdict("gemini", review.SeverityCritical)}
	p := decision.Policy{Name: decision.PolicyConservative}
	res, err := decision.Resolve(review.StageCode, verdicts, p)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	rec := &event.AuditRecord{
		Stage:         res.Stage,
		Verdicts:      res.Verdicts,
		FinalSeverity: review.SeverityOK, // does not follow from the verdicts
		PolicyUsed:    res.PolicyUsed,
	}

	replayed, err := event.Replay(rec, nil)
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if event.Matches(rec, replayed) {
		t.Fatal("a record whose severity does not follow from its verdicts must not match")
	}
}
