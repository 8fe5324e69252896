package tracker

import (
	"context"
	"time"
)

// Host exposes the layout and location of the page being tracked.
type Host interface {
	Layout(ctx context.Context) (Layout, error)
	Location(ctx context.Context) (string, error)
}

// Storage is a key/value store whose entries carry a path scope and an
// absolute expiry, such as a browser cookie jar.
type Storage interface {
	// Get returns the raw value for key. Missing or expired entries report ok=false.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, opts SetOptions) error
}

// SetOptions scopes a stored entry.
type SetOptions struct {
	Path    string
	Expires time.Time
}

// AttemptOutcome classifies a scheduled write attempt.
type AttemptOutcome string

// Possible write attempt outcomes.
const (
	AttemptStable    AttemptOutcome = "stable"
	AttemptUnsettled AttemptOutcome = "unsettled"
	AttemptFailed    AttemptOutcome = "failed"
)

// WriteResult classifies what happened to the persisted record.
type WriteResult string

// Possible record write results.
const (
	WriteStored  WriteResult = "stored"
	WriteSkipped WriteResult = "skipped"
	WriteReset   WriteResult = "reset"
)

// Observer receives tracker activity, typically to feed metrics.
type Observer interface {
	ObserveScroll()
	ObserveThrottled()
	ObserveAttempt(outcome AttemptOutcome)
	ObserveWrite(result WriteResult, percent int)
}

type nopObserver struct{}

func (nopObserver) ObserveScroll()                {}
func (nopObserver) ObserveThrottled()             {}
func (nopObserver) ObserveAttempt(AttemptOutcome) {}
func (nopObserver) ObserveWrite(WriteResult, int) {}
