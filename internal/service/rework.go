package service

import (
	"time"

	"github.com/Strob0t/ReviewForge/internal/config"
	"github.com/Strob0t/ReviewForge/internal/domain/decision"
	"github.com/Strob0t/ReviewForge/internal/domain/event"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
	"github.com/Strob0t/ReviewForge/internal/domain/session"
)

// Outcome is the rework controller's ruling for one decided review.
type Outcome struct {
	Action      event.Action
	RetryTarget review.Stage
	RetryCount  int
	MaxRetries  int
	Backoff     time.Duration
}

// Continue reports whether the host may proceed. Only a Retrying outcome
// blocks; exhaustion always lets the host through under warning.
func (o Outcome) Continue() bool {
	return o.Action != event.ActionRetrying
}

// ReworkController applies a resolved decision to session state: proceed,
// retry with backoff, or warn-and-proceed once the retry budget is spent.
type ReworkController struct {
	cfg *config.Engine
}

// NewReworkController creates a controller over the engine config.
func NewReworkController(cfg *config.Engine) *ReworkController {
	return &ReworkController{cfg: cfg}
}

// Apply mutates st for one decided stage and returns the outcome. The caller
// commits st atomically afterwards; Apply itself never touches the store, so
// a cancelled decision leaves no trace.
func (c *ReworkController) Apply(st *session.State, res *decision.Resolved, now time.Time) Outcome {
	ss := st.Stage(res.Stage)
	ss.Status = session.StageDecided

	if !res.ShouldRework {
		ss.Status = session.StageProceeding
		ss.RetryCount = 0
		return Outcome{Action: event.ActionProceeding, MaxRetries: c.cfg.MaxRetriesFor(string(res.Stage))}
	}

	maxRetries := c.cfg.MaxRetriesFor(string(res.Stage))
	if ss.RetryCount >= maxRetries {
		// Budget spent: warn and let the host through, never loop again for
		// this trigger.
		ss.Status = session.StageExhaustedWarn
		ss.RetryCount = 0
		return Outcome{Action: event.ActionExhaustedWarn, MaxRetries: maxRetries}
	}

	ss.Status = session.StageRetrying
	ss.RetryCount++

	target := review.Stage(c.cfg.RetryTargetFor(string(res.Stage)))
	if target != res.Stage {
		// Reworking an earlier stage re-arms it for the host's next event.
		st.Stage(target).Status = session.StageTriggered
		st.Stage(target).LastTriggerTime = now
	}

	return Outcome{
		Action:      event.ActionRetrying,
		RetryTarget: target,
		RetryCount:  ss.RetryCount,
		MaxRetries:  maxRetries,
		Backoff:     backoffDelay(c.cfg.BackoffBase, ss.RetryCount),
	}
}

// backoffDelay computes base * 2^(retry-1). The controller never sleeps: the
// delay is reported to the host, which re-invokes no earlier than it.
func backoffDelay(base time.Duration, retry int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if retry < 1 {
		retry = 1
	}
	return base << uint(retry-1)
}
