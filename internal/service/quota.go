package service

import (
	"strings"
	"sync"
	"time"

	"github.com/Strob0t/ReviewForge/internal/config"
)

// quotaSignatures are error fragments that mean a backend's quota is gone,
// not merely flaky. Any of them triggers an immediate cooldown.
var quotaSignatures = []string{"429", "quota", "rate limit", "resource_exhausted", "resource has been exhausted"}

type quotaEntry struct {
	consecutiveFailures int
	cooldownUntil       time.Time
	successes           int64
	failures            int64
	lastReset           time.Time
}

// QuotaMonitor tracks per-reviewer failure streaks and places exhausted
// backends in cooldown so they stop being dispatched until they recover.
// Counters reset daily.
type QuotaMonitor struct {
	mu             sync.Mutex
	entries        map[string]*quotaEntry
	maxConsecutive int
	cooldown       time.Duration
	now            func() time.Time // for testing
}

// NewQuotaMonitor creates a monitor from config.
func NewQuotaMonitor(cfg config.Quota) *QuotaMonitor {
	maxConsecutive := cfg.MaxConsecutiveFailures
	if maxConsecutive <= 0 {
		maxConsecutive = 3
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Minute
	}
	return &QuotaMonitor{
		entries:        make(map[string]*quotaEntry),
		maxConsecutive: maxConsecutive,
		cooldown:       cooldown,
		now:            time.Now,
	}
}

func (q *QuotaMonitor) entry(id string) *quotaEntry {
	e, ok := q.entries[id]
	if !ok {
		e = &quotaEntry{lastReset: q.now()}
		q.entries[id] = e
	}
	// Daily reset keeps one bad day from blacklisting a backend forever.
	if now := q.now(); now.YearDay() != e.lastReset.YearDay() || now.Year() != e.lastReset.Year() {
		*e = quotaEntry{lastReset: now}
	}
	return e
}

// Available reports whether the reviewer is outside any cooldown window.
func (q *QuotaMonitor) Available(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.now().Before(q.entry(id).cooldownUntil)
}

// RecordSuccess clears the reviewer's failure streak.
func (q *QuotaMonitor) RecordSuccess(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := q.entry(id)
	e.successes++
	e.consecutiveFailures = 0
}

// RecordFailure counts a failed call. A quota-exhausted error signature or a
// full failure streak starts the cooldown.
func (q *QuotaMonitor) RecordFailure(id, errText string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := q.entry(id)
	e.failures++
	e.consecutiveFailures++

	if e.consecutiveFailures >= q.maxConsecutive || isQuotaError(errText) {
		e.cooldownUntil = q.now().Add(q.cooldown)
		e.consecutiveFailures = 0
	}
}

// QuotaStatus is one reviewer's quota snapshot for the status surface.
type QuotaStatus struct {
	ReviewerID    string    `json:"reviewer_id"`
	Successes     int64     `json:"successes"`
	Failures      int64     `json:"failures"`
	CooldownUntil time.Time `json:"cooldown_until,omitempty"`
}

// Status returns the snapshot for one reviewer.
func (q *QuotaMonitor) Status(id string) QuotaStatus {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := q.entry(id)
	return QuotaStatus{
		ReviewerID:    id,
		Successes:     e.successes,
		Failures:      e.failures,
		CooldownUntil: e.cooldownUntil,
	}
}

func isQuotaError(errText string) bool {
	lower := strings.ToLower(errText)
	for _, sig := range quotaSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
