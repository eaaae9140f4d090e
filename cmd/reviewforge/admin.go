package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/Strob0t/ReviewForge/internal/adapter/postgres"
	"github.com/Strob0t/ReviewForge/internal/adapter/sqlite"
	"github.com/Strob0t/ReviewForge/internal/config"
	"github.com/Strob0t/ReviewForge/internal/port/auditsink"
	"github.com/Strob0t/ReviewForge/internal/port/statestore"
	"github.com/Strob0t/ReviewForge/internal/service"
)

// runAdmin dispatches admin subcommands (cleanup, hash-token, migrate).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "cleanup":
		return runAdminCleanup(args[1:])
	case "hash-token":
		return runAdminHashToken(args[1:])
	case "migrate":
		return runAdminMigrate(args[1:])
	case "migrate-status":
		return runAdminMigrateStatus(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: reviewforge admin <command> [options]

Commands:
  cleanup          Delete sessions idle longer than the retention TTL
  hash-token       Hash an operator token for the auth.token_hash config key
  migrate          Apply pending database migrations
  migrate-status   Print the current migration version
  help             Show this help message

Examples:
  reviewforge admin cleanup
  reviewforge admin cleanup --ttl 24h
  reviewforge admin hash-token
  reviewforge admin migrate
`)
}

// openStore opens the configured state store: postgres when a DSN is set,
// the local SQLite store otherwise.
func openStore(ctx context.Context, cfg *config.Config) (statestore.Store, auditsink.Sink, func(), error) {
	if cfg.Postgres.DSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		return postgres.NewStore(pool), postgres.NewAuditStore(pool), pool.Close, nil
	}

	st, err := sqlite.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return st, sqlite.NewAuditStore(st), func() { _ = st.Close() }, nil
}

func runAdminCleanup(args []string) error {
	fs := flag.NewFlagSet("cleanup", flag.ContinueOnError)
	ttl := fs.Duration("ttl", 0, "delete sessions idle longer than this (default: retention.session_ttl)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cutoffTTL := *ttl
	if cutoffTTL <= 0 {
		cutoffTTL = cfg.Retention.SessionTTL
	}
	if cutoffTTL <= 0 {
		return fmt.Errorf("no TTL given and retention.session_ttl is unset")
	}

	ctx := context.Background()
	store, sink, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	removed, err := service.NewSessionService(store, sink).Cleanup(ctx, cutoffTTL)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Removed %d sessions idle longer than %s\n", removed, cutoffTTL)
	return nil
}

func runAdminHashToken(args []string) error {
	fs := flag.NewFlagSet("hash-token", flag.ContinueOnError)
	token := fs.String("token", "", "token to hash (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	t := *token
	if t == "" {
		var err error
		t, err = promptSecret("Operator token: ")
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		confirm, err := promptSecret("Confirm token: ")
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		if t != confirm {
			return fmt.Errorf("tokens do not match")
		}
	}
	if t == "" {
		return fmt.Errorf("token must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(t), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash token: %w", err)
	}

	fmt.Println(string(hash))
	return nil
}

func runAdminMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "Migrations applied")
	return nil
}

func runAdminMigrateStatus(args []string) error {
	fs := flag.NewFlagSet("migrate-status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	version, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}

	fmt.Printf("migration version: %d\n", version)
	return nil
}

// promptSecret reads a secret from the terminal without echoing.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
