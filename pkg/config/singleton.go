package config

import "sync/atomic"

// active holds the process-wide configuration once Initialize succeeds.
var active atomic.Pointer[Config]

// Initialize loads the configuration at path, applies environment
// overrides, and publishes it for GetConfig. The first successful load
// wins: calling again after success is a no-op, while a failed call can
// simply be retried.
func Initialize(path string) error {
	if active.Load() != nil {
		return nil
	}
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return err
	}
	active.CompareAndSwap(nil, cfg)
	return nil
}

// GetConfig returns the published configuration, or nil before a
// successful Initialize.
func GetConfig() *Config {
	return active.Load()
}

// SetConfig replaces the published configuration directly. Tests use it
// to install fixtures; everything else goes through Initialize.
func SetConfig(cfg *Config) {
	active.Store(cfg)
}
