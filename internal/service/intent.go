package service

import (
	"strings"

	"github.com/Strob0t/ReviewForge/internal/config"
)

// IntentExtractor condenses recent user text into a short summary carried in
// review prompts so reviewers judge the work against what was actually asked.
type IntentExtractor struct {
	maxChars int
}

// NewIntentExtractor creates an extractor with the configured character cap.
func NewIntentExtractor(cfg config.Intent) *IntentExtractor {
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = 10000
	}
	return &IntentExtractor{maxChars: maxChars}
}

// Extract returns the user's first sentence plus the most recent tail of the
// text, capped at the configured budget. The first sentence anchors the
// original request; the tail carries the latest direction changes.
func (x *IntentExtractor) Extract(userText string) string {
	text := strings.TrimSpace(userText)
	if text == "" {
		return ""
	}
	if len(text) <= x.maxChars {
		return text
	}

	first := firstSentence(text)
	remaining := x.maxChars - len(first)
	if remaining <= 0 {
		return first[:x.maxChars]
	}

	tail := text[len(text)-remaining:]
	// Start the tail on a word boundary when one is near.
	if idx := strings.IndexByte(tail, ' '); idx >= 0 && idx < 40 {
		tail = tail[idx+1:]
	}
	return first + "\n...\n" + tail
}

// firstSentence returns text up to the first terminator, capped at 500 chars.
func firstSentence(text string) string {
	end := len(text)
	for _, term := range []string{". ", "!\n", "?\n", "\n"} {
		if idx := strings.Index(text, term); idx >= 0 && idx+1 < end {
			end = idx + 1
		}
	}
	if end > 500 {
		end = 500
	}
	return text[:end]
}
