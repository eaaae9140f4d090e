package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Strob0t/ReviewForge/internal/adapter/auditfile"
	rfhttp "github.com/Strob0t/ReviewForge/internal/adapter/http"
	rfmcp "github.com/Strob0t/ReviewForge/internal/adapter/mcp"
	"github.com/Strob0t/ReviewForge/internal/adapter/memstore"
	rfnats "github.com/Strob0t/ReviewForge/internal/adapter/nats"
	"github.com/Strob0t/ReviewForge/internal/adapter/natskv"
	rfotel "github.com/Strob0t/ReviewForge/internal/adapter/otel"
	"github.com/Strob0t/ReviewForge/internal/adapter/postgres"
	"github.com/Strob0t/ReviewForge/internal/adapter/ristretto"
	"github.com/Strob0t/ReviewForge/internal/adapter/tiered"
	"github.com/Strob0t/ReviewForge/internal/adapter/ws"
	"github.com/Strob0t/ReviewForge/internal/config"
	"github.com/Strob0t/ReviewForge/internal/domain/review"
	"github.com/Strob0t/ReviewForge/internal/logger"
	"github.com/Strob0t/ReviewForge/internal/middleware"
	"github.com/Strob0t/ReviewForge/internal/port/a2a"
	"github.com/Strob0t/ReviewForge/internal/port/auditsink"
	"github.com/Strob0t/ReviewForge/internal/port/cache"
	"github.com/Strob0t/ReviewForge/internal/port/statestore"
	"github.com/Strob0t/ReviewForge/internal/service"
)

func main() {
	var err error
	args := os.Args[1:]

	switch {
	case len(args) == 0 || args[0] == "serve":
		err = runServe()
	case args[0] == "hook":
		err = runHook()
	case args[0] == "admin":
		err = runAdmin(args[1:])
	case args[0] == "help", args[0] == "--help":
		printHelp()
	default:
		printHelp()
		err = fmt.Errorf("unknown command: %s", args[0])
	}

	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: reviewforge <command>

Commands:
  serve    Run the review service (default)
  hook     Process one lifecycle event from stdin and print the decision
  admin    Maintenance commands (cleanup, hash-token, migrate)
  help     Show this help message
`)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"policy", cfg.Engine.Policy,
		"reviewers", len(cfg.Reviewers),
	)

	ctx := context.Background()

	// --- Telemetry ---
	otelShutdown, err := rfotel.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	// --- State store and audit ---
	var (
		store       statestore.Store
		sinks       auditsink.Multi
		auditReader auditsink.Reader
	)

	if cfg.Postgres.DSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		slog.Info("postgres connected, migrations applied")

		store = postgres.NewStore(pool)
		auditStore := postgres.NewAuditStore(pool)
		sinks = append(sinks, auditStore)
		auditReader = auditStore
	} else {
		slog.Warn("postgres disabled, session state is in-memory only")
		store = memstore.New()
	}

	if cfg.Audit.Dir != "" {
		fileSink, err := auditfile.New(cfg.Audit.Dir)
		if err != nil {
			return fmt.Errorf("audit file sink: %w", err)
		}
		sinks = append(sinks, fileSink)
	}

	var natsSink *rfnats.Sink
	if cfg.NATS.URL != "" {
		natsSink, err = rfnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = natsSink.Close() }()
		sinks = append(sinks, natsSink)
		slog.Info("nats audit sink connected")
	}

	// --- Engine ---
	quota := service.NewQuotaMonitor(cfg.Quota)
	set, err := service.NewReviewerSet(cfg.Reviewers, cfg.Breaker, quota, buildTriggers(&cfg.Engine))
	if err != nil {
		return fmt.Errorf("reviewers: %w", err)
	}

	engine := service.NewEngine(cfg, store, set, sinks)
	defer engine.Close()

	hub := ws.NewHub()
	engine.SetHub(hub)

	if cfg.Cache.Enabled {
		l1, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
		if err != nil {
			return fmt.Errorf("decision cache: %w", err)
		}
		defer l1.Close()

		var decisionCache cache.Cache = l1
		if natsSink != nil {
			// With NATS available the cache goes two-level so replicas
			// share decisions for identical artifacts.
			kv, err := natsSink.KeyValue(ctx, "REVIEWFORGE_DECISIONS", cfg.Cache.TTL)
			if err != nil {
				return fmt.Errorf("decision cache kv: %w", err)
			}
			decisionCache = tiered.New(l1, natskv.New(kv), cfg.Cache.TTL)
		}
		engine.SetCache(decisionCache)
	}

	if cfg.Telemetry.Endpoint != "" {
		metrics, err := rfotel.NewMetrics()
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		engine.SetMetrics(metrics)
	}

	sessions := service.NewSessionService(store, sinks)

	// --- HTTP ---
	handlers := rfhttp.NewHandlers(engine, sessions, auditReader, hub)

	r := chi.NewRouter()
	r.Use(rfhttp.SecurityHeaders)
	r.Use(rfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(rfhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Telemetry.Endpoint != "" {
		r.Use(rfotel.HTTPMiddleware("reviewforge.http"))
	}
	r.Use(middleware.NewRateLimiter(50, 100).Handler)
	r.Use(middleware.Auth(cfg.Auth.TokenHash))

	rfhttp.MountRoutes(r, handlers)
	a2a.NewHandler(cfg.Server.BaseURL, engine, sessions).MountRoutes(r)

	// --- MCP ---
	if cfg.MCP.Enabled {
		mcpSrv := rfmcp.NewServer(cfg.MCP, engine, sessions)
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mcpSrv.Stop(stopCtx)
		}()
	}

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildTriggers merges the configured extra keywords into the built-in sets.
func buildTriggers(cfg *config.Engine) review.Triggers {
	t := review.DefaultTriggers()
	t.Critical = append(t.Critical, cfg.CriticalTriggers...)
	t.High = append(t.High, cfg.HighTriggers...)
	return t
}
