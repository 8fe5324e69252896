// Package clock defines the time source shared by the tracker and its hosts.
package clock

import "time"

// Clock returns the current time and schedules deferred callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending callback created by Clock.AfterFunc.
type Timer interface {
	// Stop prevents the callback from firing. It reports false when the
	// callback already ran or the timer was stopped earlier.
	Stop() bool
}
