package otel

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/ReviewForge/internal/config"
)

func TestMetricsRecord(t *testing.T) {
	m, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	// Without a configured provider these land on the global no-op meter;
	// recording must still be safe.
	ctx := context.Background()
	m.RecordReview(ctx, "code", 250*time.Millisecond, 1)
	m.RecordDecision(ctx, "retrying", "critical")
}

func TestSetupDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.Telemetry{})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
}
