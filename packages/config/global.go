package config

import (
	"log"
	"sync"
	"sync/atomic"
)

var current atomic.Pointer[Config]

func init() {
	current.Store(Default())
}

// Current returns the configuration snapshot in effect right now. Callers
// must treat the returned value as read-only; use Set or Mutate to change it.
func Current() *Config {
	return current.Load()
}

// Set replaces the current configuration and returns the previous one, so
// tests can restore it.
func Set(cfg *Config) *Config {
	return current.Swap(cfg)
}

// Mutate copies the current configuration, applies fn to the copy, and
// installs the result. Concurrent readers keep whichever snapshot they
// already loaded.
func Mutate(fn func(*Config)) {
	for {
		old := current.Load()
		next := *old
		fn(&next)
		if current.CompareAndSwap(old, &next) {
			return
		}
	}
}

var (
	warnMu sync.RWMutex
	warnFn = func(msg string) {
		log.Printf("paywire: warning: %s", msg)
	}
)

// SetWarnFunc replaces the handler for non-fatal configuration diagnostics
// and returns the previous handler. Tests use it to capture warnings.
func SetWarnFunc(fn func(msg string)) func(msg string) {
	warnMu.Lock()
	defer warnMu.Unlock()
	prev := warnFn
	warnFn = fn
	return prev
}

// Warn emits a non-fatal diagnostic through the registered handler.
func Warn(msg string) {
	warnMu.RLock()
	fn := warnFn
	warnMu.RUnlock()
	fn(msg)
}
