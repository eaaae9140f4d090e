// Package config provides hierarchical configuration loading for ReviewForge.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the ReviewForge core service.
type Config struct {
	Server    Server     `yaml:"server"`
	Postgres  Postgres   `yaml:"postgres"`
	SQLite    SQLite     `yaml:"sqlite"`
	NATS      NATS       `yaml:"nats"`
	Logging   Logging    `yaml:"logging"`
	Breaker   Breaker    `yaml:"breaker"`
	Engine    Engine     `yaml:"engine"`
	Override  Override   `yaml:"override"`
	Quota     Quota      `yaml:"quota"`
	Debate    Debate     `yaml:"debate"`
	Intent    Intent     `yaml:"intent"`
	Cache     Cache      `yaml:"cache"`
	Retention Retention  `yaml:"retention"`
	Auth      Auth       `yaml:"auth"`
	Telemetry Telemetry  `yaml:"telemetry"`
	MCP       MCP        `yaml:"mcp"`
	Audit     Audit      `yaml:"audit"`
	Reviewers []Reviewer `yaml:"reviewers"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
	BaseURL    string `yaml:"base_url"`
}

// Postgres holds PostgreSQL connection configuration. A blank DSN disables
// postgres and the service runs on the in-memory store.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// SQLite holds the local store configuration used by one-shot hook mode.
type SQLite struct {
	Path string `yaml:"path"`
}

// NATS holds NATS JetStream configuration. A blank URL disables the
// JetStream audit sink.
type NATS struct {
	URL string `yaml:"url"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration for remote reviewers.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Engine holds the review orchestration semantics: conflict resolution,
// per-stage retry budgets and debounce windows, dispatch bounds.
type Engine struct {
	Policy            string                   `yaml:"policy"`              // "conservative" | "majority_vote" | "weighted_vote" (default: "conservative")
	FallbackSeverity  string                   `yaml:"fallback_severity"`   // Applied when every reviewer failed (default: "medium")
	MaxRetries        map[string]int           `yaml:"max_retries"`         // Per-stage retry budget before exhausted_warn
	DefaultMaxRetries int                      `yaml:"default_max_retries"` // Budget for stages absent from max_retries (default: 3)
	RetryTarget       map[string]string        `yaml:"retry_target"`        // Stage a rework loops back to (default: test -> code)
	Debounce          map[string]time.Duration `yaml:"debounce"`            // Per-stage quiet window; zero admits immediately
	ReviewTimeout     time.Duration            `yaml:"review_timeout"`      // Shared deadline for one review round (default: 60s)
	BackoffBase       time.Duration            `yaml:"backoff_base"`        // Exponential backoff base (default: 1s)
	MaxConcurrent     int64                    `yaml:"max_concurrent"`      // Reviewer calls in flight across all events (default: 8)
	CriticalTriggers  []string                 `yaml:"critical_triggers"`   // Extra CRITICAL keywords for text verdicts
	HighTriggers      []string                 `yaml:"high_triggers"`       // Extra HIGH keywords for text verdicts
	CompletionReviews int                      `yaml:"completion_reviews"`  // Max completion-triggered reviews per session (default: 3)
}

// MaxRetriesFor returns the retry budget for a stage.
func (e *Engine) MaxRetriesFor(stage string) int {
	if n, ok := e.MaxRetries[stage]; ok {
		return n
	}
	return e.DefaultMaxRetries
}

// RetryTargetFor returns the stage a rework loops back to. Stages without a
// mapping retry themselves.
func (e *Engine) RetryTargetFor(stage string) string {
	if t, ok := e.RetryTarget[stage]; ok && t != "" {
		return t
	}
	return stage
}

// DebounceFor returns the quiet window for a stage; zero admits immediately.
func (e *Engine) DebounceFor(stage string) time.Duration {
	return e.Debounce[stage]
}

// Override holds the skip gate configuration.
type Override struct {
	Keywords []string      `yaml:"keywords"`
	EnvVar   string        `yaml:"env_var"`
	TTL      time.Duration `yaml:"ttl"` // how long a keyword-armed override lasts
}

// Quota holds reviewer quota monitoring configuration.
type Quota struct {
	MaxConsecutiveFailures int           `yaml:"max_consecutive_failures"`
	Cooldown               time.Duration `yaml:"cooldown"`
}

// Debate holds the extra-round configuration for disagreeing reviewers.
type Debate struct {
	Enabled bool     `yaml:"enabled"`
	Stages  []string `yaml:"stages"`
}

// EnabledFor reports whether a debate round may run for the given stage.
func (d *Debate) EnabledFor(stage string) bool {
	if !d.Enabled {
		return false
	}
	if len(d.Stages) == 0 {
		return true
	}
	for _, s := range d.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// Intent holds intent extraction limits.
type Intent struct {
	MaxChars int `yaml:"max_chars"`
}

// Cache holds the seen-artifact cache configuration.
type Cache struct {
	Enabled   bool          `yaml:"enabled"`
	MaxSizeMB int64         `yaml:"max_size_mb"`
	TTL       time.Duration `yaml:"ttl"`
}

// Retention holds session cleanup configuration. Cleanup only runs via the
// admin command; the TTL is its default cutoff.
type Retention struct {
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// Auth holds operator API authentication. A blank token hash disables auth.
type Auth struct {
	TokenHash string `yaml:"token_hash"` // bcrypt hash of the operator token
}

// Telemetry holds OpenTelemetry exporter configuration. A blank endpoint
// disables export.
type Telemetry struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// MCP holds the Model Context Protocol server configuration.
type MCP struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	APIKey  string `yaml:"api_key"`
}

// Audit holds file-based audit sink configuration. A blank dir disables the
// JSONL sink.
type Audit struct {
	Dir string `yaml:"dir"`
}

// Reviewer configures one reviewer backend instance.
type Reviewer struct {
	ID      string            `yaml:"id"`
	Kind    string            `yaml:"kind"`
	Enabled bool              `yaml:"enabled"`
	Weight  float64           `yaml:"weight"`
	Params  map[string]string `yaml:"params"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
			BaseURL:    "http://localhost:8080",
		},
		Postgres: Postgres{
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		SQLite: SQLite{
			Path: "reviewforge.db",
		},
		Logging: Logging{
			Level:   "info",
			Service: "reviewforge-core",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Engine: Engine{
			Policy:            "conservative",
			FallbackSeverity:  "medium",
			DefaultMaxRetries: 3,
			RetryTarget:       map[string]string{"test": "code"},
			Debounce:          map[string]time.Duration{"code": 3 * time.Second},
			ReviewTimeout:     60 * time.Second,
			BackoffBase:       time.Second,
			MaxConcurrent:     8,
			CompletionReviews: 3,
		},
		Override: Override{
			Keywords: []string{"skip review", "no review"},
			EnvVar:   "REVIEWFORGE_SKIP",
			TTL:      10 * time.Minute,
		},
		Quota: Quota{
			MaxConsecutiveFailures: 3,
			Cooldown:               30 * time.Minute,
		},
		Intent: Intent{
			MaxChars: 10000,
		},
		Cache: Cache{
			Enabled:   true,
			MaxSizeMB: 64,
			TTL:       5 * time.Minute,
		},
		Retention: Retention{
			SessionTTL: 7 * 24 * time.Hour,
		},
		MCP: MCP{
			Addr: ":3001",
		},
		Reviewers: []Reviewer{
			{ID: "gemini", Kind: "gemini", Enabled: true, Weight: 1.0},
			{ID: "copilot", Kind: "copilot", Enabled: true, Weight: 1.0},
			{ID: "self", Kind: "self", Enabled: true, Weight: 1.0},
		},
	}
}
