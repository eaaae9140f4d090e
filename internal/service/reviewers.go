package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Strob0t/ReviewForge/internal/config"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
	"github.com/Strob0t/ReviewForge/internal/port/reviewer"
	"github.com/Strob0t/ReviewForge/internal/resilience"
)

// triggerConfigurable is implemented by adapters whose free-text classifier
// accepts configured keyword sets.
type triggerConfigurable interface {
	SetTriggers(review.Triggers)
}

// guardedReviewer wraps a concrete reviewer with the circuit breaker and the
// quota monitor. Guarding stays out of the adapters so every backend gets
// the same protection.
type guardedReviewer struct {
	inner   reviewer.Reviewer
	breaker *resilience.Breaker
	quota   *QuotaMonitor
}

func (g *guardedReviewer) ID() string { return g.inner.ID() }

func (g *guardedReviewer) IsAvailable() bool {
	return g.quota.Available(g.inner.ID()) && g.inner.IsAvailable()
}

func (g *guardedReviewer) Review(ctx context.Context, req review.Request) review.Verdict {
	var verdict review.Verdict

	err := g.breaker.Execute(func() error {
		verdict = g.inner.Review(ctx, req)
		if !verdict.Succeeded {
			return fmt.Errorf("reviewer %s: %s", g.inner.ID(), verdict.Err)
		}
		return nil
	})

	if err != nil {
		if verdict.ReviewerID == "" {
			// Breaker rejected the call before it started.
			verdict = review.FailedVerdict(g.inner.ID(), 0, err)
		}
		g.quota.RecordFailure(g.inner.ID(), verdict.Err)
		return verdict
	}

	g.quota.RecordSuccess(g.inner.ID())
	return verdict
}

// ReviewerStatus is one reviewer's row on the availability surface.
type ReviewerStatus struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Available     bool      `json:"available"`
	Weight        float64   `json:"weight"`
	Breaker       string    `json:"breaker"`
	Successes     int64     `json:"successes"`
	Failures      int64     `json:"failures"`
	CooldownUntil time.Time `json:"cooldown_until,omitempty"`
}

type reviewerEntry struct {
	guarded *guardedReviewer
	kind    string
	weight  float64
}

// ReviewerSet holds the ordered, guarded reviewers built from configuration.
// Order is dispatch order and therefore verdict order.
type ReviewerSet struct {
	entries []reviewerEntry
	weights map[string]float64
	quota   *QuotaMonitor
}

// NewReviewerSet constructs every enabled reviewer from config, wires the
// configured trigger keywords into adapters that take them, and wraps each
// in its own breaker plus the shared quota monitor.
func NewReviewerSet(cfgs []config.Reviewer, breakerCfg config.Breaker, quota *QuotaMonitor, triggers review.Triggers) (*ReviewerSet, error) {
	set := &ReviewerSet{
		weights: make(map[string]float64, len(cfgs)),
		quota:   quota,
	}

	for _, rc := range cfgs {
		if !rc.Enabled {
			continue
		}
		kind := rc.Kind
		if kind == "" {
			kind = rc.ID
		}

		inner, err := reviewer.New(kind, rc.ID, rc.Params)
		if err != nil {
			return nil, fmt.Errorf("build reviewer %q: %w", rc.ID, err)
		}
		if tc, ok := inner.(triggerConfigurable); ok {
			tc.SetTriggers(triggers)
		}

		weight := rc.Weight
		if weight == 0 {
			weight = 1.0
		}
		set.weights[rc.ID] = weight
		set.entries = append(set.entries, reviewerEntry{
			guarded: &guardedReviewer{
				inner:   inner,
				breaker: resilience.NewBreaker(breakerCfg.MaxFailures, breakerCfg.Timeout),
				quota:   quota,
			},
			kind:   kind,
			weight: weight,
		})
	}

	return set, nil
}

// Ordered returns the reviewers in dispatch order.
func (s *ReviewerSet) Ordered() []reviewer.Reviewer {
	out := make([]reviewer.Reviewer, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.guarded
	}
	return out
}

// Weights returns the reviewer_id -> weight map for the weighted_vote policy.
func (s *ReviewerSet) Weights() map[string]float64 { return s.weights }

// Status reports every configured reviewer's availability for the API.
func (s *ReviewerSet) Status() []ReviewerStatus {
	out := make([]ReviewerStatus, 0, len(s.entries))
	for _, e := range s.entries {
		qs := s.quota.Status(e.guarded.ID())
		out = append(out, ReviewerStatus{
			ID:            e.guarded.ID(),
			Kind:          e.kind,
			Available:     e.guarded.IsAvailable(),
			Weight:        e.weight,
			Breaker:       e.guarded.breaker.State(),
			Successes:     qs.Successes,
			Failures:      qs.Failures,
			CooldownUntil: qs.CooldownUntil,
		})
	}
	return out
}
