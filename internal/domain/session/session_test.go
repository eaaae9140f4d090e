package session_test

import (
	"testing"
	"time"

	"github.com/Strob0t/ReviewForge/internal/domain/review"
	"github.com/Strob0t/ReviewForge/internal/domain/session"
)

func TestNew_AllStagesIdle(t *testing.T) {
	st := session.New("sess-1", time.Now())
	for _, stage := range review.Stages {
		ss := st.Stage(stage)
		if ss.Status != session.StageIdle {
			t.Errorf("stage %q: expected idle, got %q", stage, ss.Status)
		}
		if ss.RetryCount != 0 {
			t.Errorf("stage %q: expected zero retries, got %d", stage, ss.RetryCount)
		}
	}
}

func TestStage_CreatesMissingEntry(t *testing.T) {
	st := &session.State{SessionID: "sparse"}
	ss := st.Stage(review.StageCode)
	if ss == nil {
		t.Fatal("expected stage state")
	}
	if ss.Status != session.StageIdle {
		t.Errorf("expected idle, got %q", ss.Status)
	}
	ss.RetryCount = 2
	if st.Stage(review.StageCode).RetryCount != 2 {
		t.Error("stage entry should persist on the state")
	}
}

func TestOverrideActive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st := session.New("sess-1", now)

	if st.OverrideActive(now) {
		t.Error("fresh state should have no override")
	}

	st.SetOverride(now.Add(time.Hour), "user requested skip")
	if !st.OverrideActive(now) {
		t.Error("override should be active before its deadline")
	}
	if st.OverrideActive(now.Add(2 * time.Hour)) {
		t.Error("override should expire after its deadline")
	}

	st.ClearOverride()
	if st.OverrideActive(now) {
		t.Error("cleared override should be inactive")
	}
	if st.OverrideReason != "" {
		t.Errorf("cleared override should drop its reason, got %q", st.OverrideReason)
	}
}

func TestTerminal(t *testing.T) {
	terminal := []session.StageStatus{session.StageProceeding, session.StageExhaustedWarn}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%q should be terminal", s)
		}
	}
	nonTerminal := []session.StageStatus{
		session.StageIdle, session.StageTriggered, session.StageReviewing,
		session.StageDecided, session.StageRetrying,
	}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Errorf("%q should not be terminal", s)
		}
	}
}

func TestClone_Independent(t *testing.T) {
	now := time.Now()
	st := session.New("sess-1", now)
	st.Stage(review.StageCode).RetryCount = 1

	cp := st.Clone()
	cp.Stage(review.StageCode).RetryCount = 5
	cp.SetOverride(now.Add(time.Hour), "copy only")

	if st.Stage(review.StageCode).RetryCount != 1 {
		t.Error("mutating the clone must not touch the original")
	}
	if st.OverrideActive(now) {
		t.Error("override on the clone leaked into the original")
	}
}
