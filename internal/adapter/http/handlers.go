package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Strob0t/ReviewForge/internal/adapter/ws"
	"github.com/Strob0t/ReviewForge/internal/domain/event"
	"github.com/Strob0t/ReviewForge/internal/domain/lifecycle"
	"github.com/Strob0t/ReviewForge/internal/port/auditsink"
	"github.com/Strob0t/ReviewForge/internal/service"
)

// eventBodyLimit bounds lifecycle event payloads. Artifacts are diffs and
// test output, not repository dumps.
const eventBodyLimit = 4 << 20

const smallBodyLimit = 64 << 10

// Handlers carries the dependencies for all HTTP handlers.
type Handlers struct {
	engine   *service.Engine
	sessions *service.SessionService
	audit    auditsink.Reader // nil when no queryable audit store is configured
	hub      *ws.Hub
}

// NewHandlers creates the handler set.
func NewHandlers(engine *service.Engine, sessions *service.SessionService, audit auditsink.Reader, hub *ws.Hub) *Handlers {
	return &Handlers{
		engine:   engine,
		sessions: sessions,
		audit:    audit,
		hub:      hub,
	}
}

// HandleEvent ingests one lifecycle event and replies with the engine's
// decision. A debounced event answers 202 with pending=true; the final
// decision for it is delivered over the WebSocket hub.
func (h *Handlers) HandleEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := readJSON[lifecycle.Event](w, r, eventBodyLimit)
	if !ok {
		return
	}

	ev.Normalize(time.Now().UTC())
	if err := ev.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dec, err := h.engine.Submit(r.Context(), &ev)
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}

	status := http.StatusOK
	if dec.Pending {
		status = http.StatusAccepted
	}
	writeJSON(w, status, dec)
}

// ListSessions returns snapshots of all known sessions.
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	states, err := h.sessions.List(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, states)
}

// GetSession returns one session's state.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	st, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type overrideRequest struct {
	Reason     string `json:"reason"`
	TTLSeconds int    `json:"ttl_seconds"`
}

// SetOverride arms a session's override window for ttl_seconds. The reason
// is mandatory; it ends up verbatim in the audit trail.
func (h *Handlers) SetOverride(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	req, ok := readJSON[overrideRequest](w, r, smallBodyLimit)
	if !ok {
		return
	}
	if !requireField(w, req.Reason, "reason") {
		return
	}
	if req.TTLSeconds <= 0 {
		writeError(w, http.StatusBadRequest, "ttl_seconds must be positive")
		return
	}

	until := time.Now().UTC().Add(time.Duration(req.TTLSeconds) * time.Second)
	if err := h.sessions.SetOverride(r.Context(), id, until, req.Reason); err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":     id,
		"override_until": until,
	})
}

// GetOverride reports a session's override window.
func (h *Handlers) GetOverride(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	st, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}

	resp := map[string]any{
		"session_id": id,
		"active":     st.OverrideActive(time.Now().UTC()),
	}
	if !st.OverrideUntil.IsZero() {
		resp["override_until"] = st.OverrideUntil
		resp["reason"] = st.OverrideReason
	}
	writeJSON(w, http.StatusOK, resp)
}

// ClearOverride disarms a session's override window.
func (h *Handlers) ClearOverride(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if err := h.sessions.ClearOverride(r.Context(), id); err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// QueryAudit returns a cursor-paginated page of audit records.
func (h *Handlers) QueryAudit(w http.ResponseWriter, r *http.Request) {
	h.queryAudit(w, r, r.URL.Query().Get("session_id"))
}

// SessionAudit returns the audit trail scoped to one session.
func (h *Handlers) SessionAudit(w http.ResponseWriter, r *http.Request) {
	h.queryAudit(w, r, urlParam(r, "id"))
}

func (h *Handlers) queryAudit(w http.ResponseWriter, r *http.Request, sessionID string) {
	if h.audit == nil {
		writeError(w, http.StatusServiceUnavailable, "no queryable audit store configured")
		return
	}

	q := r.URL.Query()
	filter := event.AuditFilter{
		SessionID: sessionID,
		Stage:     q.Get("stage"),
		Action:    q.Get("action"),
	}
	if v := q.Get("after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "after must be RFC3339")
			return
		}
		filter.After = &t
	}
	if v := q.Get("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "before must be RFC3339")
			return
		}
		filter.Before = &t
	}

	limit := 50
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > 200 {
			n = 200
		}
		limit = n
	}

	page, err := h.audit.Query(r.Context(), filter, q.Get("cursor"), limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ListReviewers returns the configured reviewers with breaker and quota state.
func (h *Handlers) ListReviewers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Reviewers().Status())
}

// Health reports liveness and the number of connected dashboards.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"ws_clients": h.hub.ConnectionCount(),
		"reviewers":  len(h.engine.Reviewers().Status()),
	})
}
