// Package hal abstracts the counter device that drives the tick scheduler.
//
// A Timer counts ticks at a fixed frequency and fires one alarm at an
// absolute counter value. Alarm callbacks run in "interrupt context": they
// must not block, and two callbacks of the same Timer never overlap.
package hal

import "errors"

var (
	ErrNotStarted = errors.New("timer not started")
	ErrStopped    = errors.New("timer stopped")
)

// AlarmFunc is invoked when the counter reaches an alarm deadline.
type AlarmFunc func()

// Timer is a free-running counter with a single alarm channel.
type Timer interface {
	// Ready reports whether the device is usable.
	Ready() bool
	// Frequency is the counter rate in ticks per second.
	Frequency() uint64
	// Start starts the counter.
	Start() error
	// Stop stops the counter and cancels any pending alarm.
	Stop() error
	// Now returns the current counter value.
	Now() uint64
	// SetAlarm arms the alarm at an absolute counter value, replacing any
	// pending alarm. A deadline already in the past fires immediately.
	SetAlarm(deadline uint64, fn AlarmFunc) error
}
