package tracker

import (
	"context"
	"errors"
	"sync"
)

type fakeHost struct {
	mu        sync.Mutex
	layout    Layout
	location  string
	layoutErr error
}

func newFakeHost(location string, pageHeight, viewport float64) *fakeHost {
	return &fakeHost{
		location: location,
		layout: Layout{
			RootScrollHeight: pageHeight,
			RootClientHeight: viewport,
			InnerHeight:      viewport,
		},
	}
}

func (h *fakeHost) ScrollTo(offset float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.layout.PageYOffset = offset
}

func (h *fakeHost) Layout(context.Context) (Layout, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.layout, h.layoutErr
}

func (h *fakeHost) Location(context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.location, nil
}

type mapEntry struct {
	value string
	opts  SetOptions
}

type mapStorage struct {
	mu      sync.Mutex
	entries map[string]mapEntry
	sets    int
	getErr  error
	setErr  error
}

func newMapStorage() *mapStorage {
	return &mapStorage{entries: make(map[string]mapEntry)}
}

func (s *mapStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", false, s.getErr
	}
	e, ok := s.entries[key]
	return e.value, ok, nil
}

func (s *mapStorage) Set(_ context.Context, key, value string, opts SetOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.sets++
	s.entries[key] = mapEntry{value: value, opts: opts}
	return nil
}

func (s *mapStorage) entry(key string) (mapEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok
}

var errBackend = errors.New("backend unavailable")

type countingObserver struct {
	mu        sync.Mutex
	scrolls   int
	throttled int
	attempts  map[AttemptOutcome]int
	writes    map[WriteResult]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{
		attempts: make(map[AttemptOutcome]int),
		writes:   make(map[WriteResult]int),
	}
}

func (o *countingObserver) ObserveScroll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scrolls++
}

func (o *countingObserver) ObserveThrottled() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.throttled++
}

func (o *countingObserver) ObserveAttempt(outcome AttemptOutcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts[outcome]++
}

func (o *countingObserver) ObserveWrite(result WriteResult, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.writes[result]++
}

func (o *countingObserver) attemptCount(outcome AttemptOutcome) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempts[outcome]
}

func (o *countingObserver) writeCount(result WriteResult) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.writes[result]
}
