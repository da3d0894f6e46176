package configfile

import (
	"log"
	"sync"

	"cookiesync/internal/engine"
)

// cookieReader is the slice of Writer the registry needs.
type cookieReader interface {
	Current(platform engine.Platform) (string, error)
}

// Registry holds the static fallback cookie per platform: whatever value
// was persisted in each artifact when the process started. The snapshot is
// immutable between explicit Reload calls.
type Registry struct {
	reader    cookieReader
	platforms []engine.Platform

	mu     sync.RWMutex
	values map[string]string
}

// LoadFallbacks reads each platform's currently persisted cookie into a
// registry. Platforms whose artifact cannot be read simply have no
// fallback; that is not a startup error.
func LoadFallbacks(reader cookieReader, platforms []engine.Platform) *Registry {
	r := &Registry{reader: reader, platforms: platforms}
	r.Reload()
	return r
}

// Reload re-reads the fallback snapshot from the artifacts.
func (r *Registry) Reload() {
	values := make(map[string]string, len(r.platforms))
	for _, p := range r.platforms {
		value, err := r.reader.Current(p)
		if err != nil {
			log.Printf("cookiesync: no fallback for %s: %v", p.ID, err)
			continue
		}
		if value == "" {
			continue
		}
		values[p.ID] = value
	}
	r.mu.Lock()
	r.values = values
	r.mu.Unlock()
}

// Fallback returns the static cookie for the platform, if one was found.
func (r *Registry) Fallback(platformID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.values[platformID]
	return value, ok
}
