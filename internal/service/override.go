package service

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Strob0t/ReviewForge/internal/config"
	"github.com/Strob0t/ReviewForge/internal/domain/session"
)

// OverrideGate short-circuits review when the user explicitly opted out.
// Every skip carries a non-empty reason: skipping without recording why is a
// contract violation against the audit boundary.
type OverrideGate struct {
	keywords []string
	envVar   string
	ttl      time.Duration

	// getenv is swapped in tests.
	getenv func(string) string
}

// NewOverrideGate creates the gate from config.
func NewOverrideGate(cfg config.Override) *OverrideGate {
	return &OverrideGate{
		keywords: cfg.Keywords,
		envVar:   cfg.EnvVar,
		ttl:      cfg.TTL,
		getenv:   os.Getenv,
	}
}

// ShouldSkip checks the skip conditions in order: skip keyword in the recent
// user text, environment bypass flag, then a standing override window on the
// session. A keyword match also arms the override window on st so rapid
// follow-up events stay skipped.
func (g *OverrideGate) ShouldSkip(st *session.State, recentUserText string, now time.Time) (bool, string) {
	if kw := g.matchKeyword(recentUserText); kw != "" {
		if g.ttl > 0 {
			st.SetOverride(now.Add(g.ttl), fmt.Sprintf("user requested skip (%q)", kw))
		}
		return true, fmt.Sprintf("skip keyword %q in user text", kw)
	}

	if g.envVar != "" {
		if v := g.getenv(g.envVar); v == "1" || strings.EqualFold(v, "true") {
			return true, fmt.Sprintf("bypass flag %s=%s set in environment", g.envVar, v)
		}
	}

	if st.OverrideActive(now) {
		reason := st.OverrideReason
		if reason == "" {
			reason = "standing override window active"
		}
		return true, fmt.Sprintf("override active until %s: %s", st.OverrideUntil.Format(time.RFC3339), reason)
	}

	return false, ""
}

func (g *OverrideGate) matchKeyword(text string) string {
	lower := strings.ToLower(text)
	for _, kw := range g.keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return kw
		}
	}
	return ""
}
