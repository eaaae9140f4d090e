package copilotcli

import (
	"context"
	"errors"
	"testing"

	"github.com/Strob0t/ReviewForge/internal/domain/review"
)

func TestIsAvailableChecksPath(t *testing.T) {
	r := New("copilot", nil)
	r.lookPath = func(string) (string, error) { return "/usr/bin/copilot", nil }
	if !r.IsAvailable() {
		t.Fatal("expected available when binary resolves")
	}

	r.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	if r.IsAvailable() {
		t.Fatal("expected unavailable when binary is missing")
	}
}

func TestReviewFailsWhenBinaryMissing(t *testing.T) {
	r := New("copilot", nil)
	r.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	v := r.Review(context.Background(), review.Request{SessionID: "s", Stage: review.StageCode})
	if v.Succeeded {
		t.Fatal("expected failed verdict without binary")
	}
	if v.Err == "" {
		t.Fatal("failed verdict must carry an error")
	}
}

func TestBinaryParamOverride(t *testing.T) {
	r := New("copilot", map[string]string{"binary": "gh-copilot"})
	if r.binary != "gh-copilot" {
		t.Fatalf("expected binary override, got %q", r.binary)
	}
}
