package hal

import (
	"sync"
	"time"
)

// SimTimer is a Timer backed by the host's monotonic clock.
type SimTimer struct {
	freq uint64

	mu       sync.Mutex
	epoch    time.Time
	started  bool
	stopped  bool
	deadline uint64
	fn       AlarmFunc
	t        *time.Timer

	// fireMu keeps alarm callbacks from overlapping.
	fireMu sync.Mutex
}

// NewSimTimer creates a simulated counter running at freq ticks per second.
func NewSimTimer(freq uint64) *SimTimer {
	return &SimTimer{freq: freq}
}

func (s *SimTimer) Ready() bool       { return s.freq > 0 }
func (s *SimTimer) Frequency() uint64 { return s.freq }

func (s *SimTimer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.epoch = time.Now()
	s.started = true
	return nil
}

// Stop cancels the pending alarm and waits for a running callback to return.
// It must not be called from an alarm callback.
func (s *SimTimer) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.fn = nil
	if s.t != nil {
		s.t.Stop()
	}
	s.mu.Unlock()

	s.fireMu.Lock()
	s.fireMu.Unlock()
	return nil
}

func (s *SimTimer) Now() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nowLocked()
}

func (s *SimTimer) nowLocked() uint64 {
	if !s.started {
		return 0
	}
	d := time.Since(s.epoch)
	sec := uint64(d / time.Second)
	rem := uint64(d % time.Second)
	return sec*s.freq + rem*s.freq/uint64(time.Second)
}

func (s *SimTimer) SetAlarm(deadline uint64, fn AlarmFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return ErrNotStarted
	}
	if s.stopped {
		return ErrStopped
	}

	var delay time.Duration
	if now := s.nowLocked(); deadline > now {
		delay = s.ticksToDuration(deadline - now)
	}
	s.deadline = deadline
	s.fn = fn
	if s.t == nil {
		s.t = time.AfterFunc(delay, s.fire)
	} else {
		s.t.Reset(delay)
	}
	return nil
}

func (s *SimTimer) ticksToDuration(ticks uint64) time.Duration {
	sec := ticks / s.freq
	rem := ticks % s.freq
	return time.Duration(sec)*time.Second + time.Duration(rem*uint64(time.Second)/s.freq)
}

func (s *SimTimer) fire() {
	s.fireMu.Lock()
	defer s.fireMu.Unlock()

	s.mu.Lock()
	fn := s.fn
	s.fn = nil
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}
