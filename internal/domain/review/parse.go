package review

import (
	"encoding/json"
	"strings"
)

// Triggers holds the configurable keyword sets that map free-text reviewer
// output to the two severities that can force rework. Medium and low keywords
// are built in; they only affect display, never the rework decision.
type Triggers struct {
	Critical []string `json:"critical" yaml:"critical"`
	High     []string `json:"high" yaml:"high"`
}

// DefaultTriggers returns the built-in critical/high keyword sets.
func DefaultTriggers() Triggers {
	return Triggers{
		Critical: []string{
			"critical",
			"security vulnerability",
			"sql injection",
			"remote code execution",
			"data loss",
			"leaked secret",
			"hardcoded credential",
		},
		High: []string{
			"high severity",
			"race condition",
			"deadlock",
			"memory leak",
			"breaking change",
			"must fix",
		},
	}
}

var mediumKeywords = []string{"medium severity", "incorrect", "missing error handling", "should fix"}

var lowKeywords = []string{"low severity", "style", "nit", "typo", "minor"}

// structuredVerdict is the JSON shape reviewers are asked to emit.
type structuredVerdict struct {
	Severity string  `json:"severity"`
	Summary  string  `json:"summary"`
	Issues   []Issue `json:"issues"`
}

// ParseVerdictText interprets a reviewer's raw response. It first tries the
// structured JSON form (optionally inside a fenced code block); if that
// fails it falls back to keyword classification over the plain text.
// The returned explanation is the summary when structured, raw otherwise.
func ParseVerdictText(raw string, triggers Triggers) (Severity, string, []Issue) {
	if body, ok := extractJSON(raw); ok {
		var sv structuredVerdict
		if err := json.Unmarshal([]byte(body), &sv); err == nil {
			if sev, err := ParseSeverity(strings.ToLower(strings.TrimSpace(sv.Severity))); err == nil {
				explanation := sv.Summary
				if explanation == "" {
					explanation = raw
				}
				return sev, explanation, sv.Issues
			}
		}
	}
	return ClassifyText(raw, triggers), raw, nil
}

// ClassifyText maps free text to a severity by keyword scan, most severe
// keyword set first. Text with no recognized keyword classifies as OK.
func ClassifyText(text string, triggers Triggers) Severity {
	lower := strings.ToLower(text)
	if containsAny(lower, triggers.Critical) {
		return SeverityCritical
	}
	if containsAny(lower, triggers.High) {
		return SeverityHigh
	}
	if containsAny(lower, mediumKeywords) {
		return SeverityMedium
	}
	if containsAny(lower, lowKeywords) {
		return SeverityLow
	}
	return SeverityOK
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// extractJSON pulls a JSON object out of raw reviewer output. It prefers a
// fenced ```json block, then falls back to the outermost brace pair.
func extractJSON(raw string) (string, bool) {
	if idx := strings.Index(raw, "```json"); idx >= 0 {
		rest := raw[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end]), true
		}
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1], true
	}
	return "", false
}
