// Package cache holds the in-memory TTL store shared by the coin caches.
//
// A Store never refreshes or evicts on its own. Callers read an entry, decide
// with IsFresh whether it is still usable, and Put a replacement after a
// successful upstream fetch. Stale entries stay in memory until overwritten.
package cache

import (
	"sort"
	"sync"
	"time"
)

// Clock returns the current time. Services take one so tests can move time.
type Clock func() time.Time

// SystemClock is the wall clock.
var SystemClock Clock = time.Now

// Entry is a cached value and the time it was fetched.
type Entry[V any] struct {
	Value     V
	FetchedAt time.Time
}

// IsFresh reports whether the entry is younger than ttl as of now.
func IsFresh[V any](e Entry[V], now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// Store maps keys to entries. Each call is atomic; there is no multi-step
// locking across calls.
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
}

func NewStore[V any]() *Store[V] {
	return &Store[V]{entries: make(map[string]Entry[V])}
}

func (s *Store[V]) Get(key string) (Entry[V], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	return e, ok
}

// Put replaces the entry for key wholesale.
func (s *Store[V]) Put(key string, value V, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = Entry[V]{Value: value, FetchedAt: now}
}

// Fresh returns the value for key when present and younger than ttl.
func (s *Store[V]) Fresh(key string, now time.Time, ttl time.Duration) (V, bool) {
	e, ok := s.Get(key)
	if !ok || !IsFresh(e, now, ttl) {
		var zero V
		return zero, false
	}
	return e.Value, true
}

// Keys returns the stored keys, fresh or not, sorted.
func (s *Store[V]) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
