package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Strob0t/ReviewForge/internal/adapter/auditfile"
	"github.com/Strob0t/ReviewForge/internal/adapter/sqlite"
	"github.com/Strob0t/ReviewForge/internal/config"
	"github.com/Strob0t/ReviewForge/internal/domain/lifecycle"
	"github.com/Strob0t/ReviewForge/internal/port/auditsink"
	"github.com/Strob0t/ReviewForge/internal/service"
)

// runHook processes exactly one lifecycle event: JSON in on stdin, decision
// JSON out on stdout. Session state persists in the local SQLite store so
// debounce windows and retry counters survive across invocations. stdout is
// reserved for the decision; all logging goes to stderr.
func runHook() error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	var ev lifecycle.Event
	if err := json.NewDecoder(os.Stdin).Decode(&ev); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	store, err := sqlite.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("open sqlite store: %w", err)
	}
	defer func() { _ = store.Close() }()

	sinks := auditsink.Multi{sqlite.NewAuditStore(store)}
	if cfg.Audit.Dir != "" {
		fileSink, err := auditfile.New(cfg.Audit.Dir)
		if err != nil {
			return fmt.Errorf("audit file sink: %w", err)
		}
		sinks = append(sinks, fileSink)
	}

	quota := service.NewQuotaMonitor(cfg.Quota)
	set, err := service.NewReviewerSet(cfg.Reviewers, cfg.Breaker, quota, buildTriggers(&cfg.Engine))
	if err != nil {
		return fmt.Errorf("reviewers: %w", err)
	}

	engine := service.NewEngine(cfg, store, set, sinks)
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Engine.ReviewTimeout+30*time.Second)
	defer cancel()

	dec, err := engine.ProcessOnce(ctx, &ev)
	if err != nil {
		// The host must never hang on a broken review pipeline: report the
		// failure and let it proceed.
		slog.Error("review failed, proceeding", "session_id", ev.SessionID, "error", err)
		dec = lifecycle.Proceed("review unavailable: " + err.Error())
	}

	return json.NewEncoder(os.Stdout).Encode(dec)
}
