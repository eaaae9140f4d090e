package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "reviewforge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "REVIEWFORGE_PORT")
	setString(&cfg.Server.CORSOrigin, "REVIEWFORGE_CORS_ORIGIN")
	setString(&cfg.Server.BaseURL, "REVIEWFORGE_BASE_URL")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "REVIEWFORGE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "REVIEWFORGE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "REVIEWFORGE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "REVIEWFORGE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "REVIEWFORGE_PG_HEALTH_CHECK")
	setString(&cfg.SQLite.Path, "REVIEWFORGE_SQLITE_PATH")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "REVIEWFORGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "REVIEWFORGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "REVIEWFORGE_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "REVIEWFORGE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "REVIEWFORGE_BREAKER_TIMEOUT")

	// Engine
	setString(&cfg.Engine.Policy, "REVIEWFORGE_POLICY")
	setString(&cfg.Engine.FallbackSeverity, "REVIEWFORGE_FALLBACK_SEVERITY")
	setInt(&cfg.Engine.DefaultMaxRetries, "REVIEWFORGE_DEFAULT_MAX_RETRIES")
	setDuration(&cfg.Engine.ReviewTimeout, "REVIEWFORGE_REVIEW_TIMEOUT")
	setDuration(&cfg.Engine.BackoffBase, "REVIEWFORGE_BACKOFF_BASE")
	setInt64(&cfg.Engine.MaxConcurrent, "REVIEWFORGE_MAX_CONCURRENT")
	setInt(&cfg.Engine.CompletionReviews, "REVIEWFORGE_COMPLETION_REVIEWS")

	// Override
	setString(&cfg.Override.EnvVar, "REVIEWFORGE_OVERRIDE_ENV_VAR")
	setDuration(&cfg.Override.TTL, "REVIEWFORGE_OVERRIDE_TTL")

	// Quota
	setInt(&cfg.Quota.MaxConsecutiveFailures, "REVIEWFORGE_QUOTA_MAX_FAILURES")
	setDuration(&cfg.Quota.Cooldown, "REVIEWFORGE_QUOTA_COOLDOWN")

	// Debate
	setBool(&cfg.Debate.Enabled, "REVIEWFORGE_DEBATE_ENABLED")

	// Intent
	setInt(&cfg.Intent.MaxChars, "REVIEWFORGE_INTENT_MAX_CHARS")

	// Cache
	setBool(&cfg.Cache.Enabled, "REVIEWFORGE_CACHE_ENABLED")
	setInt64(&cfg.Cache.MaxSizeMB, "REVIEWFORGE_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "REVIEWFORGE_CACHE_TTL")

	// Retention
	setDuration(&cfg.Retention.SessionTTL, "REVIEWFORGE_SESSION_TTL")

	// Auth
	setString(&cfg.Auth.TokenHash, "REVIEWFORGE_AUTH_TOKEN_HASH")

	// Telemetry
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.Telemetry.Insecure, "REVIEWFORGE_TELEMETRY_INSECURE")

	// MCP
	setBool(&cfg.MCP.Enabled, "REVIEWFORGE_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "REVIEWFORGE_MCP_ADDR")
	setString(&cfg.MCP.APIKey, "REVIEWFORGE_MCP_API_KEY")

	// Audit
	setString(&cfg.Audit.Dir, "REVIEWFORGE_AUDIT_DIR")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN != "" && cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Engine.DefaultMaxRetries < 0 {
		return errors.New("engine.default_max_retries must be >= 0")
	}
	for stage, n := range cfg.Engine.MaxRetries {
		if n < 0 {
			return fmt.Errorf("engine.max_retries.%s must be >= 0", stage)
		}
	}
	if cfg.Engine.ReviewTimeout <= 0 {
		return errors.New("engine.review_timeout must be > 0")
	}
	if cfg.Engine.BackoffBase <= 0 {
		return errors.New("engine.backoff_base must be > 0")
	}
	if cfg.Engine.MaxConcurrent < 1 {
		return errors.New("engine.max_concurrent must be >= 1")
	}
	if cfg.Quota.MaxConsecutiveFailures < 1 {
		return errors.New("quota.max_consecutive_failures must be >= 1")
	}
	seen := make(map[string]bool, len(cfg.Reviewers))
	for _, r := range cfg.Reviewers {
		if r.ID == "" || r.Kind == "" {
			return errors.New("reviewers entries require id and kind")
		}
		if seen[r.ID] {
			return fmt.Errorf("reviewers: duplicate id %q", r.ID)
		}
		seen[r.ID] = true
		if r.Weight < 0 {
			return fmt.Errorf("reviewers.%s: weight must be >= 0", r.ID)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
