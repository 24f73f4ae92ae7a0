package config

import "sync"

// Holder wraps a Config for safe concurrent access and reload-in-place.
// Reload re-runs the full load hierarchy and keeps the old config when the
// new one fails validation.
type Holder struct {
	mu       sync.RWMutex
	cfg      *Config
	yamlPath string
}

// NewHolder creates a Holder around an already-loaded config.
func NewHolder(cfg *Config, yamlPath string) *Holder {
	return &Holder{cfg: cfg, yamlPath: yamlPath}
}

// Get returns the current config.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// Reload re-loads the config from disk and environment. On error the
// previous config stays active.
func (h *Holder) Reload() error {
	cfg, err := LoadFrom(h.yamlPath)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()
	return nil
}
