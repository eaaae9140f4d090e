package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Strob0t/ReviewForge/internal/config"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
	"github.com/Strob0t/ReviewForge/internal/port/reviewer"
)

// fakeReviewer is the shared test double for reviewer backends.
type fakeReviewer struct {
	id          string
	severity    review.Severity
	explanation string
	fail        bool
	unavailable bool
	delay       time.Duration
	selfReview  bool
	calls       atomic.Int32
}

func (f *fakeReviewer) ID() string        { return f.id }
func (f *fakeReviewer) IsAvailable() bool { return !f.unavailable }

func (f *fakeReviewer) Review(ctx context.Context, _ review.Request) review.Verdict {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return review.FailedVerdict(f.id, f.delay, ctx.Err())
		}
	}
	if f.fail {
		return review.FailedVerdict(f.id, time.Millisecond, context.DeadlineExceeded)
	}
	return review.Verdict{
		ReviewerID:  f.id,
		Severity:    f.severity,
		Explanation: f.explanation,
		Succeeded:   true,
		SelfReview:  f.selfReview,
	}
}

func testEngineCfg() config.Engine {
	return config.Engine{
		Policy:            "conservative",
		FallbackSeverity:  "medium",
		DefaultMaxRetries: 3,
		ReviewTimeout:     time.Second,
		BackoffBase:       time.Second,
		MaxConcurrent:     8,
		CompletionReviews: 3,
	}
}

func TestDispatchCollectsAllInOrder(t *testing.T) {
	d := NewDispatcher(testEngineCfg())

	fast := &fakeReviewer{id: "fast", severity: review.SeverityLow}
	slow := &fakeReviewer{id: "slow", severity: review.SeverityCritical, delay: 50 * time.Millisecond}

	verdicts, err := d.Dispatch(context.Background(), []reviewer.Reviewer{fast, slow},
		review.Request{SessionID: "s1", Stage: review.StageCode})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if len(verdicts) != 2 {
		t.Fatalf("expected 2 verdicts, got %d", len(verdicts))
	}
	// Join-all: the slow verdict is present, in dispatch order.
	if verdicts[0].ReviewerID != "fast" || verdicts[1].ReviewerID != "slow" {
		t.Fatalf("verdict order must match dispatch order, got %s, %s",
			verdicts[0].ReviewerID, verdicts[1].ReviewerID)
	}
	if !verdicts[1].Succeeded {
		t.Fatal("slow reviewer inside the deadline must succeed")
	}
}

func TestDispatchSlowReviewerDegradesToFailure(t *testing.T) {
	cfg := testEngineCfg()
	cfg.ReviewTimeout = 30 * time.Millisecond
	d := NewDispatcher(cfg)

	ok := &fakeReviewer{id: "ok", severity: review.SeverityOK}
	dead := &fakeReviewer{id: "dead", severity: review.SeverityOK, delay: time.Second}

	verdicts, err := d.Dispatch(context.Background(), []reviewer.Reviewer{ok, dead},
		review.Request{SessionID: "s1", Stage: review.StageCode})
	if err != nil {
		t.Fatalf("a round timeout must not void the round: %v", err)
	}

	if !verdicts[0].Succeeded {
		t.Fatal("fast reviewer must succeed")
	}
	if verdicts[1].Succeeded {
		t.Fatal("reviewer past the deadline must come back failed, not dropped")
	}
	if verdicts[1].Err == "" {
		t.Fatal("failed verdict must carry an error")
	}
}

func TestDispatchSkipsUnavailable(t *testing.T) {
	d := NewDispatcher(testEngineCfg())

	up := &fakeReviewer{id: "up", severity: review.SeverityOK}
	down := &fakeReviewer{id: "down", unavailable: true}

	verdicts, err := d.Dispatch(context.Background(), []reviewer.Reviewer{down, up},
		review.Request{SessionID: "s1", Stage: review.StageCode})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if len(verdicts) != 1 || verdicts[0].ReviewerID != "up" {
		t.Fatalf("unavailable reviewers must not be dispatched, got %v", verdicts)
	}
	if down.calls.Load() != 0 {
		t.Fatal("unavailable reviewer was called")
	}
}

func TestDispatchNoAvailableReviewers(t *testing.T) {
	d := NewDispatcher(testEngineCfg())

	verdicts, err := d.Dispatch(context.Background(),
		[]reviewer.Reviewer{&fakeReviewer{id: "down", unavailable: true}},
		review.Request{SessionID: "s1", Stage: review.StageCode})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if verdicts != nil {
		t.Fatalf("expected no verdicts, got %v", verdicts)
	}
}

func TestDispatchHostCancellationVoidsRound(t *testing.T) {
	d := NewDispatcher(testEngineCfg())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := d.Dispatch(ctx, []reviewer.Reviewer{
		&fakeReviewer{id: "slow", severity: review.SeverityOK, delay: time.Second},
	}, review.Request{SessionID: "s1", Stage: review.StageCode})

	if err == nil {
		t.Fatal("host cancellation must void the round")
	}
}
