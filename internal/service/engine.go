package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	rfotel "github.com/Strob0t/ReviewForge/internal/adapter/otel"
	"github.com/Strob0t/ReviewForge/internal/config"
	"github.com/Strob0t/ReviewForge/internal/domain"
	"github.com/Strob0t/ReviewForge/internal/domain/decision"
	"github.com/Strob0t/ReviewForge/internal/domain/event"
	"github.com/Strob0t/ReviewForge/internal/domain/lifecycle"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
	"github.com/Strob0t/ReviewForge/internal/domain/session"
	"github.com/Strob0t/ReviewForge/internal/logger"
	"github.com/Strob0t/ReviewForge/internal/port/auditsink"
	"github.com/Strob0t/ReviewForge/internal/port/broadcast"
	"github.com/Strob0t/ReviewForge/internal/port/cache"
	"github.com/Strob0t/ReviewForge/internal/port/statestore"
	"github.com/Strob0t/ReviewForge/internal/redact"
)

// Recorder receives engine metrics. Implemented by the otel adapter; a nil
// Recorder disables recording.
type Recorder interface {
	RecordReview(ctx context.Context, stage string, duration time.Duration, failedVerdicts int)
	RecordDecision(ctx context.Context, action, severity string)
}

// Engine is the review-orchestration core: one lifecycle event in, one
// decision out. It is call-triggered and re-entrant per event; the only
// shared mutable resource is session state behind the store's per-session
// lock.
type Engine struct {
	cfg        *config.Config
	store      statestore.Store
	reviewers  *ReviewerSet
	dispatcher *Dispatcher
	rework     *ReworkController
	override   *OverrideGate
	intent     *IntentExtractor
	debouncer  *Debouncer
	audit      auditsink.Sink
	masker     *redact.Masker
	policy     decision.Policy

	hub     broadcast.Broadcaster
	cache   cache.Cache
	metrics Recorder

	// Retry knobs for a debounced review colliding with a held session lock.
	contentionDelay time.Duration
	contentionMax   int

	now func() time.Time // for testing
}

// NewEngine wires the engine from config and its ports.
func NewEngine(cfg *config.Config, store statestore.Store, reviewers *ReviewerSet, audit auditsink.Sink) *Engine {
	fallback, _ := review.ParseSeverity(cfg.Engine.FallbackSeverity)

	return &Engine{
		cfg:        cfg,
		store:      store,
		reviewers:  reviewers,
		dispatcher: NewDispatcher(cfg.Engine),
		rework:     NewReworkController(&cfg.Engine),
		override:   NewOverrideGate(cfg.Override),
		intent:     NewIntentExtractor(cfg.Intent),
		debouncer:  NewDebouncer(),
		audit:      audit,
		masker:     redact.NewMasker(nil),
		policy: decision.Policy{
			Name:     decision.PolicyName(cfg.Engine.Policy),
			Weights:  reviewers.Weights(),
			Fallback: fallback,
		},
		contentionDelay: 250 * time.Millisecond,
		contentionMax:   5,
		now:             time.Now,
	}
}

// SetHub attaches a broadcaster for decision events.
func (e *Engine) SetHub(hub broadcast.Broadcaster) { e.hub = hub }

// SetCache attaches the seen-artifact decision cache.
func (e *Engine) SetCache(c cache.Cache) { e.cache = c }

// SetMetrics attaches the metrics recorder.
func (e *Engine) SetMetrics(m Recorder) { e.metrics = m }

// Reviewers exposes the reviewer set for the status surfaces.
func (e *Engine) Reviewers() *ReviewerSet { return e.reviewers }

// Store exposes the session store for the read-only API surfaces.
func (e *Engine) Store() statestore.Store { return e.store }

// Close cancels all pending debounce triggers.
func (e *Engine) Close() { e.debouncer.Close() }

// Submit is the server-mode entry point. Stages with a configured quiet
// window return a pending decision immediately; the review fires only after
// the window closes with no newer event for the same (session, stage) key,
// and its decision reaches the host over the broadcast hub.
func (e *Engine) Submit(ctx context.Context, ev *lifecycle.Event) (lifecycle.Decision, error) {
	ev.Normalize(e.now())
	if err := ev.Validate(); err != nil {
		return lifecycle.Decision{}, err
	}

	window := e.cfg.Engine.DebounceFor(ev.Stage)
	if window <= 0 {
		return e.Process(ctx, ev)
	}

	key := ev.SessionID + "/" + ev.Stage
	pending := *ev
	e.debouncer.Schedule(key, window, func() {
		e.runDeferred(key, &pending, 0)
	})

	return lifecycle.PendingDecision(), nil
}

// runDeferred runs a review whose quiet window closed. The submitting request
// is long gone, so the review runs on its own context and reaches the host
// via the hub. The host was told the review is pending, so a session lock
// held by an overlapping trigger is retried after a short delay rather than
// dropped; a newer event for the same key supersedes the retry like any other
// scheduled trigger.
func (e *Engine) runDeferred(key string, ev *lifecycle.Event, attempt int) {
	_, err := e.Process(context.Background(), ev)
	if err == nil {
		return
	}

	if errors.Is(err, domain.ErrStateContention) && attempt < e.contentionMax {
		e.debouncer.Schedule(key, e.contentionDelay, func() {
			e.runDeferred(key, ev, attempt+1)
		})
		return
	}

	slog.Error("debounced review abandoned", "session_id", ev.SessionID,
		"stage", ev.Stage, "attempts", attempt+1, "error", err)
	e.emitAudit(context.Background(), &event.AuditRecord{
		SessionID: ev.SessionID,
		Stage:     ev.ReviewStage(),
		Action:    event.ActionAbandoned,
		Reason:    err.Error(),
	})
}

// ProcessOnce is the one-shot hook-mode entry point. No timer survives the
// invocation, so the quiet window is enforced against the persisted
// last-trigger time: events inside the window are absorbed and the host told
// to continue.
func (e *Engine) ProcessOnce(ctx context.Context, ev *lifecycle.Event) (lifecycle.Decision, error) {
	ev.Normalize(e.now())
	if err := ev.Validate(); err != nil {
		return lifecycle.Decision{}, err
	}

	window := e.cfg.Engine.DebounceFor(ev.Stage)
	if window <= 0 {
		return e.Process(ctx, ev)
	}

	st, err := e.store.Acquire(ctx, ev.SessionID)
	if err != nil {
		return lifecycle.Decision{}, fmt.Errorf("acquire session: %w", err)
	}

	stage := ev.ReviewStage()
	ss := st.Stage(stage)
	if !AdmitAfterQuiet(ss.LastTriggerTime, window, e.now()) {
		ss.LastTriggerTime = e.now()
		if err := e.store.Commit(ctx, st); err != nil {
			return lifecycle.Decision{}, fmt.Errorf("commit session: %w", err)
		}
		e.emitAudit(ctx, &event.AuditRecord{
			SessionID: ev.SessionID,
			Stage:     stage,
			Action:    event.ActionSkippedDebounce,
			Reason:    fmt.Sprintf("event inside %s quiet window", window),
		})
		return lifecycle.PendingDecision(), nil
	}

	if err := e.store.Release(ctx, ev.SessionID); err != nil {
		return lifecycle.Decision{}, fmt.Errorf("release session: %w", err)
	}
	return e.Process(ctx, ev)
}

// Process runs the full pipeline for one admitted event: override gate,
// fan-out, conflict resolution, optional debate round, rework ruling, state
// commit, audit. State mutations commit atomically at the end or not at all.
func (e *Engine) Process(ctx context.Context, ev *lifecycle.Event) (lifecycle.Decision, error) {
	dec, err := e.process(ctx, ev)
	if err == nil {
		e.broadcastDecision(ctx, ev, dec)
	}
	return dec, err
}

func (e *Engine) process(ctx context.Context, ev *lifecycle.Event) (lifecycle.Decision, error) {
	start := e.now()
	stage := ev.ReviewStage()
	ctx = logger.WithSessionID(logger.WithStage(ctx, ev.Stage), ev.SessionID)
	ctx, span := rfotel.StartReviewCycleSpan(ctx, ev.SessionID, ev.Stage)
	defer span.End()

	st, err := e.store.Acquire(ctx, ev.SessionID)
	if err != nil {
		return lifecycle.Decision{}, fmt.Errorf("acquire session: %w", err)
	}

	if dec, done, err := e.applyGates(ctx, ev, st, stage); done || err != nil {
		return dec, err
	}

	ss := st.Stage(stage)
	ss.Status = session.StageTriggered
	ss.LastTriggerTime = e.now()

	req := review.Request{
		SessionID: ev.SessionID,
		Stage:     stage,
		Artifact:  e.masker.Mask(ev.Artifact),
		Intent:    e.intent.Extract(ev.Prompt),
		PromptID:  ev.PromptID,
		Timestamp: ev.Timestamp,
	}

	if dec, ok := e.cachedDecision(ctx, st, &req); ok {
		return dec, nil
	}

	ss.Status = session.StageReviewing
	verdicts, err := e.dispatcher.Dispatch(ctx, e.reviewers.Ordered(), req)
	if err != nil {
		// Host abort: discard the round without mutating state.
		if rerr := e.store.Release(ctx, ev.SessionID); rerr != nil {
			slog.Error("release after cancelled round failed", "session_id", ev.SessionID, "error", rerr)
		}
		return lifecycle.Decision{}, err
	}
	if len(verdicts) == 0 {
		return e.noReviewers(ctx, st, stage)
	}

	res := e.resolve(ctx, &req, verdicts)
	res.Duration = e.now().Sub(start)

	out := e.rework.Apply(st, &res, e.now())
	if err := e.store.Commit(ctx, st); err != nil {
		return lifecycle.Decision{}, fmt.Errorf("commit session: %w", err)
	}

	dec := e.finishDecision(ctx, ev, st, &res, out)
	return dec, nil
}

// applyGates runs the override and completion gates. done=true means the
// event was fully handled (state committed, audit emitted).
func (e *Engine) applyGates(ctx context.Context, ev *lifecycle.Event, st *session.State, stage review.Stage) (lifecycle.Decision, bool, error) {
	if skip, reason := e.override.ShouldSkip(st, ev.Prompt, e.now()); skip {
		st.Stage(stage).Status = session.StageIdle
		if err := e.store.Commit(ctx, st); err != nil {
			return lifecycle.Decision{}, true, fmt.Errorf("commit session: %w", err)
		}
		e.emitAudit(ctx, &event.AuditRecord{
			SessionID: ev.SessionID,
			Stage:     stage,
			Action:    event.ActionSkippedOverride,
			Reason:    reason,
		})
		return lifecycle.Proceed(fmt.Sprintf("[review-%s] skipped: %s", stage, reason)), true, nil
	}

	if stage == review.StageFinal && len(ev.Todos) > 0 {
		if !justCompleted(st, ev.Todos) {
			st.TodoSnapshot = todoSnapshot(ev.Todos)
			if err := e.store.Commit(ctx, st); err != nil {
				return lifecycle.Decision{}, true, fmt.Errorf("commit session: %w", err)
			}
			return lifecycle.Proceed(""), true, nil
		}
		if st.CompletionCount >= e.cfg.Engine.CompletionReviews {
			st.TodoSnapshot = todoSnapshot(ev.Todos)
			if err := e.store.Commit(ctx, st); err != nil {
				return lifecycle.Decision{}, true, fmt.Errorf("commit session: %w", err)
			}
			reason := fmt.Sprintf("completion review cap (%d) reached", e.cfg.Engine.CompletionReviews)
			e.emitAudit(ctx, &event.AuditRecord{
				SessionID: ev.SessionID,
				Stage:     stage,
				Action:    event.ActionSkippedOverride,
				Reason:    reason,
			})
			return lifecycle.Proceed(fmt.Sprintf("[review-%s] %s, proceeding", stage, reason)), true, nil
		}
		st.CompletionCount++
		st.TodoSnapshot = todoSnapshot(ev.Todos)
	}

	return lifecycle.Decision{}, false, nil
}

// resolve applies the conflict policy, then the optional debate round when
// first-round verdicts disagree enough.
func (e *Engine) resolve(ctx context.Context, req *review.Request, verdicts []review.Verdict) decision.Resolved {
	res, rerr := decision.Resolve(req.Stage, verdicts, e.policy)
	if rerr != nil {
		slog.Warn("conflict resolution degraded", "session_id", req.SessionID,
			"stage", req.Stage, "detail", rerr)
	}

	if !e.cfg.Debate.EnabledFor(string(req.Stage)) || !needsDebate(verdicts) {
		return res
	}

	revised := debateRound(ctx, e.reviewers.Ordered(), *req, verdicts)
	if sev, ok := debateConsensus(revised); ok {
		res.Verdicts = revised
		res.FinalSeverity = sev
		res.ShouldRework = sev.AtLeast(review.SeverityHigh)
		return res
	}

	res2, rerr := decision.Resolve(req.Stage, revised, e.policy)
	if rerr != nil {
		slog.Warn("post-debate resolution degraded", "session_id", req.SessionID,
			"stage", req.Stage, "detail", rerr)
	}
	return res2
}

// noReviewers commits the idle state and lets the host through: a review
// that cannot happen must never block the session.
func (e *Engine) noReviewers(ctx context.Context, st *session.State, stage review.Stage) (lifecycle.Decision, error) {
	st.Stage(stage).Status = session.StageIdle
	if err := e.store.Commit(ctx, st); err != nil {
		return lifecycle.Decision{}, fmt.Errorf("commit session: %w", err)
	}
	e.emitAudit(ctx, &event.AuditRecord{
		SessionID: st.SessionID,
		Stage:     stage,
		Action:    event.ActionNoReviewers,
		Reason:    "no reviewer available",
	})
	return lifecycle.Proceed(fmt.Sprintf("[review-%s] no reviewers available, proceeding", stage)), nil
}

// finishDecision builds the host decision and emits audit, metrics, cache
// and broadcast side effects. State is already committed.
func (e *Engine) finishDecision(ctx context.Context, ev *lifecycle.Event, st *session.State, res *decision.Resolved, out Outcome) lifecycle.Decision {
	explanation := buildExplanation(res, out)
	if len(res.Succeeded()) == 0 {
		explanation = buildFailureNote(res)
	}

	failedCount := len(res.Verdicts) - len(res.Succeeded())
	rec := &event.AuditRecord{
		SessionID:     ev.SessionID,
		Stage:         res.Stage,
		Verdicts:      res.Verdicts,
		FinalSeverity: res.FinalSeverity,
		PolicyUsed:    res.PolicyUsed,
		Action:        out.Action,
		RetryCount:    out.RetryCount,
		Duration:      res.Duration,
	}
	if out.Action == event.ActionExhaustedWarn {
		rec.Reason = domain.ErrRetryExhausted.Error()
		slog.Warn("proceeding under warning", "session_id", ev.SessionID,
			"stage", res.Stage, "error", domain.ErrRetryExhausted)
	}
	e.emitAudit(ctx, rec)
	if e.metrics != nil {
		e.metrics.RecordReview(ctx, string(res.Stage), res.Duration, failedCount)
		e.metrics.RecordDecision(ctx, string(out.Action), string(res.FinalSeverity))
	}

	dec := lifecycle.Decision{
		Continue:      out.Continue(),
		SystemMessage: explanation,
		Severity:      string(res.FinalSeverity),
		Action:        string(out.Action),
		RetryCount:    out.RetryCount,
		BackoffMs:     out.Backoff.Milliseconds(),
	}
	if out.Action == event.ActionRetrying {
		dec.RetryStage = string(out.RetryTarget)
	}

	if out.Action == event.ActionProceeding {
		e.storeCached(ctx, res.Stage, ev, dec)
	}
	return dec
}

func (e *Engine) emitAudit(ctx context.Context, rec *event.AuditRecord) {
	rec.ID = uuid.NewString()
	rec.Timestamp = e.now()
	if err := e.audit.Emit(ctx, rec); err != nil {
		// Emission failures never change the decision already made.
		slog.Error("audit emission failed", "session_id", rec.SessionID,
			"action", rec.Action, "error", err)
	}
}

func (e *Engine) broadcastDecision(ctx context.Context, ev *lifecycle.Event, dec lifecycle.Decision) {
	if e.hub == nil {
		return
	}
	e.hub.BroadcastEvent(ctx, "review.decision", map[string]any{
		"session_id": ev.SessionID,
		"stage":      ev.Stage,
		"decision":   dec,
	})
}

// artifactKey hashes the reviewed artifact for the idempotency cache.
func artifactKey(stage review.Stage, artifact string) string {
	sum := sha256.Sum256([]byte(artifact))
	return "decision:" + string(stage) + ":" + hex.EncodeToString(sum[:])
}

// cachedDecision short-circuits a review whose identical artifact was
// accepted recently. Only proceed decisions are ever cached, so a replay can
// never skip a pending rework loop.
func (e *Engine) cachedDecision(ctx context.Context, st *session.State, req *review.Request) (lifecycle.Decision, bool) {
	if e.cache == nil || req.Artifact == "" {
		return lifecycle.Decision{}, false
	}
	data, ok, err := e.cache.Get(ctx, artifactKey(req.Stage, req.Artifact))
	if err != nil || !ok {
		return lifecycle.Decision{}, false
	}
	var dec lifecycle.Decision
	if err := json.Unmarshal(data, &dec); err != nil {
		return lifecycle.Decision{}, false
	}

	st.Stage(req.Stage).Status = session.StageProceeding
	if err := e.store.Commit(ctx, st); err != nil {
		slog.Error("commit after cache hit failed", "session_id", st.SessionID, "error", err)
		return lifecycle.Decision{}, false
	}
	e.emitAudit(ctx, &event.AuditRecord{
		SessionID:     st.SessionID,
		Stage:         req.Stage,
		FinalSeverity: review.Severity(dec.Severity),
		Action:        event.ActionProceeding,
		Reason:        "identical artifact reviewed recently",
	})
	return dec, true
}

func (e *Engine) storeCached(ctx context.Context, stage review.Stage, ev *lifecycle.Event, dec lifecycle.Decision) {
	if e.cache == nil || !e.cfg.Cache.Enabled || ev.Artifact == "" {
		return
	}
	data, err := json.Marshal(dec)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, artifactKey(stage, e.masker.Mask(ev.Artifact)), data, e.cfg.Cache.TTL); err != nil {
		slog.Debug("decision cache set failed", "error", err)
	}
}
