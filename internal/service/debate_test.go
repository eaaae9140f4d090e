package service

import (
	"context"
	"strings"
	"testing"

	"github.com/Strob0t/ReviewForge/internal/domain/review"
	"github.com/Strob0t/ReviewForge/internal/port/reviewer"
)

func verdictOf(id string, sev review.Severity) review.Verdict {
	return review.Verdict{ReviewerID: id, Severity: sev, Succeeded: true}
}

func TestNeedsDebate(t *testing.T) {
	cases := []struct {
		name     string
		verdicts []review.Verdict
		want     bool
	}{
		{"agreement on low", []review.Verdict{
			verdictOf("a", review.SeverityLow), verdictOf("b", review.SeverityLow),
		}, false},
		{"any high verdict", []review.Verdict{
			verdictOf("a", review.SeverityOK), verdictOf("b", review.SeverityHigh),
		}, true},
		{"two-level spread", []review.Verdict{
			verdictOf("a", review.SeverityOK), verdictOf("b", review.SeverityMedium),
		}, true},
		{"one-level spread", []review.Verdict{
			verdictOf("a", review.SeverityLow), verdictOf("b", review.SeverityMedium),
		}, false},
		{"self reviews ignored", []review.Verdict{
			{ReviewerID: "self", Severity: review.SeverityOK, Succeeded: true, SelfReview: true},
			verdictOf("a", review.SeverityMedium),
		}, false},
		{"all failed", []review.Verdict{
			review.FailedVerdict("a", 0, context.DeadlineExceeded),
		}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := needsDebate(tc.verdicts); got != tc.want {
				t.Fatalf("got %v", got)
			}
		})
	}
}

func TestDebateRoundRevisesAndKeepsFailed(t *testing.T) {
	// "softener" revises down; "flaky" fails its second call.
	softener := &fakeReviewer{id: "softener", severity: review.SeverityLow}
	flaky := &fakeReviewer{id: "flaky", fail: true}

	first := []review.Verdict{
		verdictOf("softener", review.SeverityCritical),
		verdictOf("flaky", review.SeverityMedium),
	}

	revised := debateRound(context.Background(),
		[]reviewer.Reviewer{softener, flaky},
		review.Request{SessionID: "s1", Stage: review.StageCode, Artifact: "diff"},
		first)

	if revised[0].Severity != review.SeverityLow {
		t.Fatalf("revision must replace the first verdict, got %s", revised[0].Severity)
	}
	if revised[1].Severity != review.SeverityMedium || !revised[1].Succeeded {
		t.Fatal("a failed revision must keep the first-round verdict")
	}
}

func TestDebateRoundCarriesPeerVerdicts(t *testing.T) {
	var seen string
	r := &fakeReviewer{id: "a", severity: review.SeverityOK}

	// Capture what the reviewer is shown by wrapping it.
	capture := reviewerFunc{
		id: "a",
		fn: func(_ context.Context, req review.Request) review.Verdict {
			seen = req.Artifact
			return r.Review(context.Background(), req)
		},
	}

	first := []review.Verdict{
		verdictOf("a", review.SeverityCritical),
		verdictOf("b", review.SeverityOK),
	}
	debateRound(context.Background(), []reviewer.Reviewer{capture},
		review.Request{Stage: review.StageCode, Artifact: "the diff"}, first)

	if !strings.Contains(seen, "the diff") {
		t.Fatal("revision request must keep the artifact")
	}
	if !strings.Contains(seen, "b") || !strings.Contains(seen, "critical") {
		t.Fatalf("revision request must carry peer verdicts, got %q", seen)
	}
}

type reviewerFunc struct {
	id string
	fn func(ctx context.Context, req review.Request) review.Verdict
}

func (r reviewerFunc) ID() string        { return r.id }
func (r reviewerFunc) IsAvailable() bool { return true }
func (r reviewerFunc) Review(ctx context.Context, req review.Request) review.Verdict {
	return r.fn(ctx, req)
}

func TestDebateConsensus(t *testing.T) {
	sev, ok := debateConsensus([]review.Verdict{
		verdictOf("a", review.SeverityMedium), verdictOf("b", review.SeverityHigh),
	})
	if !ok || sev != review.SeverityHigh {
		t.Fatalf("adjacent severities must converge on the higher, got %s ok=%v", sev, ok)
	}

	if _, ok := debateConsensus([]review.Verdict{
		verdictOf("a", review.SeverityOK), verdictOf("b", review.SeverityCritical),
	}); ok {
		t.Fatal("a two-level split is not consensus")
	}

	if _, ok := debateConsensus(nil); ok {
		t.Fatal("no verdicts is not consensus")
	}
}
