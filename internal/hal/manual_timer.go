package hal

import "sync"

// ManualTimer is a deterministic Timer whose counter only moves when the
// caller advances it. Alarm callbacks run synchronously on the advancing
// goroutine.
type ManualTimer struct {
	freq uint64

	mu       sync.Mutex
	ready    bool
	started  bool
	now      uint64
	deadline uint64
	armed    bool
	fn       AlarmFunc
	startErr error
	alarmErr error
	fired    uint64
}

// NewManualTimer creates a ready, stopped counter at freq ticks per second.
func NewManualTimer(freq uint64) *ManualTimer {
	return &ManualTimer{freq: freq, ready: true}
}

// SetReady changes what Ready reports.
func (m *ManualTimer) SetReady(ready bool) {
	m.mu.Lock()
	m.ready = ready
	m.mu.Unlock()
}

// FailStart makes Start return err.
func (m *ManualTimer) FailStart(err error) {
	m.mu.Lock()
	m.startErr = err
	m.mu.Unlock()
}

// FailAlarms makes every following SetAlarm return err. Pass nil to clear.
func (m *ManualTimer) FailAlarms(err error) {
	m.mu.Lock()
	m.alarmErr = err
	m.mu.Unlock()
}

func (m *ManualTimer) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

func (m *ManualTimer) Frequency() uint64 { return m.freq }

func (m *ManualTimer) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.started = true
	return nil
}

func (m *ManualTimer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = false
	m.armed = false
	m.fn = nil
	return nil
}

func (m *ManualTimer) Now() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *ManualTimer) SetAlarm(deadline uint64, fn AlarmFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.alarmErr != nil {
		return m.alarmErr
	}
	if !m.started {
		return ErrNotStarted
	}
	m.deadline = deadline
	m.fn = fn
	m.armed = true
	return nil
}

// Deadline returns the pending alarm deadline, if any.
func (m *ManualTimer) Deadline() (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deadline, m.armed
}

// Fired is the number of alarm callbacks run so far.
func (m *ManualTimer) Fired() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fired
}

// Advance moves the counter forward by ticks, running every alarm that
// becomes due along the way. It returns the number of callbacks run.
func (m *ManualTimer) Advance(ticks uint64) int {
	m.mu.Lock()
	target := m.now + ticks
	n := 0
	for m.armed && m.deadline <= target {
		if m.deadline > m.now {
			m.now = m.deadline
		}
		fn := m.fn
		m.armed = false
		m.fn = nil
		m.fired++
		m.mu.Unlock()
		fn()
		n++
		m.mu.Lock()
	}
	m.now = target
	m.mu.Unlock()
	return n
}

// Fire advances the counter to the pending deadline and runs the alarm.
// It reports false when no alarm is armed.
func (m *ManualTimer) Fire() bool {
	m.mu.Lock()
	if !m.armed {
		m.mu.Unlock()
		return false
	}
	delta := uint64(0)
	if m.deadline > m.now {
		delta = m.deadline - m.now
	}
	m.mu.Unlock()
	return m.Advance(delta) > 0
}

// Skew moves the counter without running alarms, modelling late interrupt
// entry.
func (m *ManualTimer) Skew(ticks uint64) {
	m.mu.Lock()
	m.now += ticks
	m.mu.Unlock()
}
