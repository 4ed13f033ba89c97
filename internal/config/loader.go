package config

import (
	"sync"

	"github.com/knadh/koanf/v2"
)

var defaultsLoaded sync.Once

// EnsureDefaultsLoaded loads config defaults if not already loaded. Only sets
// default values for keys that don't already exist in the config.
//
// This should be called after all packages have registered their config keys
// (typically from the composition root, after all init() functions have run).
// Thread-safe; uses sync.Once so defaults load exactly once.
func EnsureDefaultsLoaded(k *koanf.Koanf) {
	defaultsLoaded.Do(func() {
		for key, val := range DefaultConfigs() {
			if !k.Exists(key) {
				k.Set(key, val)
			}
		}
	})
}
