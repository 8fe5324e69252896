// Package memory keeps tracker records in-memory with cookie-jar semantics.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/percent-page-viewed/internal/clock"
	"github.com/JakeFAU/percent-page-viewed/internal/tracker"
)

// Store is a path-scoped key/value jar whose entries expire against a clock.
// Reads see entries whose path is a prefix of the store's request path.
type Store struct {
	mu          sync.RWMutex
	clock       clock.Clock
	requestPath string
	entries     map[entryKey]entry
}

type entryKey struct {
	name string
	path string
}

type entry struct {
	value   string
	expires time.Time
}

// NewStore creates an empty Store. requestPath is the path of the page doing
// the reads; an empty value means "/".
func NewStore(clk clock.Clock, requestPath string) *Store {
	if requestPath == "" {
		requestPath = "/"
	}
	return &Store{
		clock:       clk,
		requestPath: requestPath,
		entries:     make(map[entryKey]entry),
	}
}

// Get returns the most specific live entry for key.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.clock.Now()
	var (
		best     entry
		bestPath string
		found    bool
	)
	for k, e := range s.entries {
		if k.name != key || !pathMatches(s.requestPath, k.path) || expired(e, now) {
			continue
		}
		if !found || len(k.path) > len(bestPath) {
			best, bestPath, found = e, k.path, true
		}
	}
	return best.value, found, nil
}

// Set stores value under key and opts.Path. An expiry in the past deletes
// the entry, mirroring browser cookie behavior.
func (s *Store) Set(_ context.Context, key, value string, opts tracker.SetOptions) error {
	path := opts.Path
	if path == "" {
		path = "/"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := entryKey{name: key, path: path}
	e := entry{value: value, expires: opts.Expires}
	if expired(e, s.clock.Now()) {
		delete(s.entries, k)
		return nil
	}
	s.entries[k] = e
	return nil
}

// Len reports how many entries are held, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Purge drops expired entries.
func (s *Store) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	for k, e := range s.entries {
		if expired(e, now) {
			delete(s.entries, k)
		}
	}
}

func expired(e entry, now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

func pathMatches(requestPath, cookiePath string) bool {
	if cookiePath == "/" || requestPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(requestPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || requestPath[len(cookiePath)] == '/'
}
