package chat

import "time"

// Timer is a cancellable scheduled callback. Reset re-arms the same timer.
type Timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

// Clock schedules callbacks. Implementations decide on which goroutine the
// callback runs; the session loop uses this to keep all state changes on a
// single goroutine.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock is the wall clock. Callbacks run on their own goroutine.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
