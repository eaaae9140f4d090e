package service

import (
	"strings"
	"testing"

	"github.com/Strob0t/ReviewForge/internal/config"
)

func TestIntentShortTextPassesThrough(t *testing.T) {
	x := NewIntentExtractor(config.Intent{MaxChars: 100})

	got := x.Extract("  add retry logic to the uploader  ")
	if got != "add retry logic to the uploader" {
		t.Fatalf("got %q", got)
	}
}

func TestIntentEmptyText(t *testing.T) {
	x := NewIntentExtractor(config.Intent{MaxChars: 100})
	if got := x.Extract("   \n  "); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestIntentLongTextKeepsFirstSentenceAndTail(t *testing.T) {
	x := NewIntentExtractor(config.Intent{MaxChars: 120})

	text := "Refactor the payment module. " + strings.Repeat("some filler context ", 30) +
		"actually use the v2 API instead"
	got := x.Extract(text)

	if len(got) > 120+len("\n...\n") {
		t.Fatalf("extracted intent exceeds the budget: %d chars", len(got))
	}
	if !strings.HasPrefix(got, "Refactor the payment module.") {
		t.Fatalf("first sentence must anchor the intent, got %q", got)
	}
	if !strings.HasSuffix(got, "actually use the v2 API instead") {
		t.Fatalf("latest direction must survive, got %q", got)
	}
	if !strings.Contains(got, "\n...\n") {
		t.Fatal("elided middle must be marked")
	}
}

func TestIntentZeroConfigUsesDefaultCap(t *testing.T) {
	x := NewIntentExtractor(config.Intent{})
	if x.maxChars != 10000 {
		t.Fatalf("default cap = %d", x.maxChars)
	}
}
