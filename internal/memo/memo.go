// Package memo provides an argument-keyed result cache with time-based
// expiry. Each Memoizer is an independent instance; there is no package
// level state, so tests and services never share entries.
package memo

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// DefaultExpiry is how long a cached result stays valid unless overridden.
const DefaultExpiry = 5 * time.Minute

type entry struct {
	value     any
	timestamp time.Time
}

// Memoizer caches computed values keyed by a caller-built cache key.
type Memoizer struct {
	mu      sync.Mutex
	entries map[string]entry
	expiry  time.Duration
	now     func() time.Time
}

// New creates a memoizer with the given default expiry; zero or negative
// means DefaultExpiry.
func New(expiry time.Duration) *Memoizer {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Memoizer{
		entries: make(map[string]entry),
		expiry:  expiry,
		now:     time.Now,
	}
}

// Key builds a deterministic cache key from a function name and its
// arguments. Arguments are encoded as stable JSON so logically identical
// argument sets collide and distinct ones do not.
func Key(name string, args ...any) string {
	encoded, err := json.Marshal(args)
	if err != nil {
		// Arguments here are ids and counters; fall back to fmt rather
		// than fail the lookup.
		return name + fmt.Sprint(args...)
	}
	return name + string(encoded)
}

// Do returns the cached value for key if it is still fresh, otherwise runs
// compute, stores the result and returns it.
func (m *Memoizer) Do(key string, compute func() any) any {
	return m.DoWithExpiry(key, m.expiry, compute)
}

// DoWithExpiry is Do with a per-call expiry override.
func (m *Memoizer) DoWithExpiry(key string, expiry time.Duration, compute func() any) any {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if cached, ok := m.entries[key]; ok {
		if now.Sub(cached.timestamp) < expiry {
			return cached.value
		}
		delete(m.entries, key)
	}

	value := compute()
	m.entries[key] = entry{value: value, timestamp: now}
	return value
}

// Call is a typed wrapper around Do for callers that want a concrete result
// type back.
func Call[T any](m *Memoizer, key string, compute func() T) T {
	value := m.Do(key, func() any { return compute() })
	return value.(T)
}

// Clear drops every cached entry.
func (m *Memoizer) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
}

// Stats reports cache size and keys for diagnostics.
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// Stats returns the current cache size and key list.
func (m *Memoizer) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	return Stats{Size: len(m.entries), Keys: keys}
}
