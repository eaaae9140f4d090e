package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Engine.Policy != "conservative" {
		t.Errorf("expected policy conservative, got %s", cfg.Engine.Policy)
	}
	if cfg.Engine.FallbackSeverity != "medium" {
		t.Errorf("expected fallback medium, got %s", cfg.Engine.FallbackSeverity)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
	if cfg.Override.EnvVar != "REVIEWFORGE_SKIP" {
		t.Errorf("expected override env REVIEWFORGE_SKIP, got %s", cfg.Override.EnvVar)
	}
}

func TestEngineHelpers(t *testing.T) {
	e := Engine{
		MaxRetries:        map[string]int{"code": 5},
		DefaultMaxRetries: 3,
		RetryTarget:       map[string]string{"test": "code"},
		Debounce:          map[string]time.Duration{"code": 3 * time.Second},
	}

	if got := e.MaxRetriesFor("code"); got != 5 {
		t.Errorf("expected per-stage budget 5, got %d", got)
	}
	if got := e.MaxRetriesFor("plan"); got != 3 {
		t.Errorf("expected default budget 3, got %d", got)
	}
	if got := e.RetryTargetFor("test"); got != "code" {
		t.Errorf("expected test to rework code, got %s", got)
	}
	if got := e.RetryTargetFor("plan"); got != "plan" {
		t.Errorf("unmapped stage should retry itself, got %s", got)
	}
	if got := e.DebounceFor("code"); got != 3*time.Second {
		t.Errorf("expected 3s debounce, got %v", got)
	}
	if got := e.DebounceFor("final"); got != 0 {
		t.Errorf("unmapped stage should have zero debounce, got %v", got)
	}
}

func TestDebateEnabledFor(t *testing.T) {
	d := Debate{Enabled: true, Stages: []string{"code", "final"}}
	if !d.EnabledFor("code") {
		t.Error("code should be debate-enabled")
	}
	if d.EnabledFor("plan") {
		t.Error("plan should not be debate-enabled")
	}

	all := Debate{Enabled: true}
	if !all.EnabledFor("plan") {
		t.Error("empty stage list should enable all stages")
	}

	off := Debate{Enabled: false, Stages: []string{"code"}}
	if off.EnabledFor("code") {
		t.Error("disabled debate should never enable a stage")
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origin: "http://example.com"
engine:
  policy: "weighted_vote"
  max_retries:
    code: 5
  debounce:
    code: 10s
logging:
  level: "debug"
reviewers:
  - id: "gem-flash"
    kind: "gemini"
    enabled: true
    weight: 1.5
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigin != "http://example.com" {
		t.Errorf("expected cors http://example.com, got %s", cfg.Server.CORSOrigin)
	}
	if cfg.Engine.Policy != "weighted_vote" {
		t.Errorf("expected policy weighted_vote, got %s", cfg.Engine.Policy)
	}
	if cfg.Engine.MaxRetries["code"] != 5 {
		t.Errorf("expected code budget 5, got %d", cfg.Engine.MaxRetries["code"])
	}
	if cfg.Engine.Debounce["code"] != 10*time.Second {
		t.Errorf("expected 10s debounce, got %v", cfg.Engine.Debounce["code"])
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	if len(cfg.Reviewers) != 1 || cfg.Reviewers[0].Weight != 1.5 {
		t.Errorf("expected single reviewer with weight 1.5, got %+v", cfg.Reviewers)
	}
	// Unchanged fields keep defaults
	if cfg.Engine.ReviewTimeout != 60*time.Second {
		t.Errorf("expected default review timeout, got %v", cfg.Engine.ReviewTimeout)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	err := loadYAML(&cfg, "/nonexistent/path.yaml")
	if err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("REVIEWFORGE_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("REVIEWFORGE_POLICY", "majority_vote")
	t.Setenv("REVIEWFORGE_LOG_LEVEL", "warn")
	t.Setenv("REVIEWFORGE_REVIEW_TIMEOUT", "2m")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("expected test DSN, got %s", cfg.Postgres.DSN)
	}
	if cfg.Engine.Policy != "majority_vote" {
		t.Errorf("expected policy majority_vote, got %s", cfg.Engine.Policy)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Engine.ReviewTimeout != 2*time.Minute {
		t.Errorf("expected review timeout 2m, got %v", cfg.Engine.ReviewTimeout)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name: "zero max_conns with DSN",
			modify: func(c *Config) {
				c.Postgres.DSN = "postgres://x"
				c.Postgres.MaxConns = 0
			},
			errMsg: "postgres.max_conns must be >= 1",
		},
		{
			name:   "zero breaker failures",
			modify: func(c *Config) { c.Breaker.MaxFailures = 0 },
			errMsg: "breaker.max_failures must be >= 1",
		},
		{
			name:   "negative retry budget",
			modify: func(c *Config) { c.Engine.MaxRetries = map[string]int{"code": -1} },
			errMsg: "engine.max_retries.code must be >= 0",
		},
		{
			name:   "zero review timeout",
			modify: func(c *Config) { c.Engine.ReviewTimeout = 0 },
			errMsg: "engine.review_timeout must be > 0",
		},
		{
			name:   "zero backoff base",
			modify: func(c *Config) { c.Engine.BackoffBase = 0 },
			errMsg: "engine.backoff_base must be > 0",
		},
		{
			name:   "zero max concurrent",
			modify: func(c *Config) { c.Engine.MaxConcurrent = 0 },
			errMsg: "engine.max_concurrent must be >= 1",
		},
		{
			name:   "reviewer without kind",
			modify: func(c *Config) { c.Reviewers = []Reviewer{{ID: "x"}} },
			errMsg: "reviewers entries require id and kind",
		},
		{
			name: "duplicate reviewer id",
			modify: func(c *Config) {
				c.Reviewers = []Reviewer{
					{ID: "x", Kind: "gemini"},
					{ID: "x", Kind: "copilot"},
				}
			},
			errMsg: `reviewers: duplicate id "x"`,
		},
		{
			name:   "negative weight",
			modify: func(c *Config) { c.Reviewers = []Reviewer{{ID: "x", Kind: "gemini", Weight: -1}} },
			errMsg: "reviewers.x: weight must be >= 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.errMsg)
			}
			if err.Error() != tt.errMsg {
				t.Errorf("expected %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestValidateBlankDSNAllowed(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.DSN = ""
	cfg.Postgres.MaxConns = 0
	if err := validate(&cfg); err != nil {
		t.Errorf("blank DSN should skip postgres checks, got %v", err)
	}
}
