package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	rfotel "github.com/Strob0t/ReviewForge/internal/adapter/otel"
	"github.com/Strob0t/ReviewForge/internal/config"
	"github.com/Strob0t/ReviewForge/internal/domain"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
	"github.com/Strob0t/ReviewForge/internal/port/reviewer"
)

// Dispatcher fans one review request out to every available reviewer in
// parallel and joins all verdicts before returning. Partial results are
// never resolved: first-completed-wins would defeat multi-reviewer
// cross-checking, so slow reviewers degrade to failed verdicts at the
// deadline instead of being dropped.
type Dispatcher struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewDispatcher creates a dispatcher with the per-round timeout and the
// process-wide concurrency cap from config.
func NewDispatcher(cfg config.Engine) *Dispatcher {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	timeout := cfg.ReviewTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Dispatcher{
		sem:     semaphore.NewWeighted(maxConcurrent),
		timeout: timeout,
	}
}

// Dispatch runs one review round. Verdicts come back in dispatch order, one
// per available reviewer, failures included. The only error return is host
// cancellation: the round is then void and the caller must not commit any
// state derived from it.
func (d *Dispatcher) Dispatch(ctx context.Context, reviewers []reviewer.Reviewer, req review.Request) ([]review.Verdict, error) {
	available := make([]reviewer.Reviewer, 0, len(reviewers))
	for _, r := range reviewers {
		if r.IsAvailable() {
			available = append(available, r)
		}
	}
	if len(available) == 0 {
		return nil, nil
	}

	roundCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	verdicts := make([]review.Verdict, len(available))
	var wg sync.WaitGroup
	for i, r := range available {
		wg.Add(1)
		go func(i int, r reviewer.Reviewer) {
			defer wg.Done()
			start := time.Now()

			// Backpressure across concurrent events, not just this round.
			if err := d.sem.Acquire(roundCtx, 1); err != nil {
				verdicts[i] = review.FailedVerdict(r.ID(), time.Since(start),
					fmt.Errorf("waiting for dispatch slot: %w", domain.ErrAdapterTimeout))
				return
			}
			defer d.sem.Release(1)

			callCtx, span := rfotel.StartReviewerCallSpan(roundCtx, r.ID(), string(req.Stage))
			defer span.End()
			verdicts[i] = r.Review(callCtx, req)
		}(i, r)
	}
	wg.Wait()

	// A cancelled host voids the round; a mere round timeout does not.
	if ctx.Err() != nil {
		return nil, fmt.Errorf("review round cancelled: %w", ctx.Err())
	}
	return verdicts, nil
}
