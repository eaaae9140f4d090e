package config

import "sync"

// Holder provides concurrency-safe access to a Config that can be reloaded
// at runtime. Reload re-runs the full load hierarchy against the original
// YAML path; on any error the previous Config is kept.
type Holder struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewHolder wraps an already-loaded Config for later reloads from yamlPath.
func NewHolder(cfg *Config, yamlPath string) *Holder {
	return &Holder{cfg: cfg, path: yamlPath}
}

// Get returns the current Config. Callers must not mutate the result.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// Reload re-loads defaults < YAML < ENV and swaps the held Config.
// The old Config stays in place when loading or validation fails.
func (h *Holder) Reload() error {
	cfg, err := LoadFrom(h.path)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()
	return nil
}
