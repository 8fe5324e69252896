// Package httpcookie exposes a visitor's request cookies as tracker storage.
package httpcookie

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/JakeFAU/percent-page-viewed/internal/tracker"
)

// Store reads cookies from an incoming request and writes Set-Cookie headers
// on the response. Writes are visible to later reads on the same Store.
type Store struct {
	r *http.Request
	w http.ResponseWriter

	mu      sync.Mutex
	written map[string]*http.Cookie
}

// New creates a Store for one request/response exchange. w may be nil for a
// read-only view.
func New(w http.ResponseWriter, r *http.Request) *Store {
	return &Store{r: r, w: w, written: make(map[string]*http.Cookie)}
}

// Get returns the cookie value for key.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	if c, ok := s.written[key]; ok {
		s.mu.Unlock()
		if c.MaxAge < 0 {
			return "", false, nil
		}
		return c.Value, true, nil
	}
	s.mu.Unlock()
	c, err := s.r.Cookie(key)
	if err != nil {
		return "", false, nil
	}
	return c.Value, true, nil
}

// Set emits a Set-Cookie header for key.
func (s *Store) Set(_ context.Context, key, value string, opts tracker.SetOptions) error {
	if s.w == nil {
		return http.ErrNotSupported
	}
	path := opts.Path
	if path == "" {
		path = "/"
	}
	c := &http.Cookie{
		Name:     key,
		Value:    value,
		Path:     path,
		Expires:  opts.Expires,
		SameSite: http.SameSiteLaxMode,
	}
	if !opts.Expires.IsZero() && !opts.Expires.After(time.Now()) {
		c.MaxAge = -1
	}
	http.SetCookie(s.w, c)
	s.mu.Lock()
	s.written[key] = c
	s.mu.Unlock()
	return nil
}
