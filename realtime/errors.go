package realtime

import "errors"

// Configuration errors, returned once at construction or start.
var (
	ErrDeviceNotReady = errors.New("timer device not ready")
	ErrInvalidPeriod  = errors.New("invalid base period: timer resolves it to zero ticks")
	ErrPeriodOverflow = errors.New("invalid base period: tick count overflows the alarm range")
	ErrInvalidBudget  = errors.New("budget fraction must be in (0, 1]")
	ErrTimerStart     = errors.New("failed to start timer")
	ErrAlarmArm       = errors.New("failed to arm initial alarm")
	ErrAlreadyStarted = errors.New("scheduler already started")
)

// ErrSchedulingLost is reported through Err once the alarm could not be
// re-armed. No further ticks will be produced.
var ErrSchedulingLost = errors.New("alarm re-arm failed, scheduling lost")
