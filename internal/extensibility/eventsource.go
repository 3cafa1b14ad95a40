package extensibility

import (
	"sync"
	"time"

	"github.com/comalice/rovercore/internal/core"
)

// ChannelEventSource is an EventSource backed by a Go channel.
type ChannelEventSource struct {
	ch chan core.Event
}

// NewChannelEventSource creates a new ChannelEventSource with the given channel.
// The channel should be buffered if backpressure handling is needed.
func NewChannelEventSource(ch chan core.Event) *ChannelEventSource {
	return &ChannelEventSource{ch: ch}
}

// Events returns the receive-only channel for events.
func (s *ChannelEventSource) Events() <-chan core.Event {
	return s.ch
}

// TimerEventSource emits the same event bits every period, e.g. a periodic
// battery check posting EvLowBattery.
type TimerEventSource struct {
	ch     chan core.Event
	ev     core.Event
	ticker *time.Ticker
	stop   chan struct{}
	once   sync.Once
}

// NewTimerEventSource creates a TimerEventSource that emits ev every d.
func NewTimerEventSource(ev core.Event, d time.Duration) *TimerEventSource {
	t := &TimerEventSource{
		ch:     make(chan core.Event, 10),
		ev:     ev,
		ticker: time.NewTicker(d),
		stop:   make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *TimerEventSource) run() {
	for {
		select {
		case <-t.ticker.C:
			select {
			case t.ch <- t.ev:
			default:
				// drop if full
			}
		case <-t.stop:
			t.ticker.Stop()
			close(t.ch)
			return
		}
	}
}

// Events returns the event channel.
func (t *TimerEventSource) Events() <-chan core.Event {
	return t.ch
}

// Stop stops the ticker and closes the channel.
func (t *TimerEventSource) Stop() {
	t.once.Do(func() { close(t.stop) })
}

// BenchCycle is the bench test sequence: each press of the test button
// injects the next event.
var BenchCycle = []core.Event{
	core.EvStart,
	core.EvObstacle,
	core.EvObstacleClear,
	core.EvStop,
	core.EvLowBattery,
	core.EvStart,
}

// ScriptedEventSource replays a fixed script one event per Press, wrapping
// around at the end.
type ScriptedEventSource struct {
	mu     sync.Mutex
	script []core.Event
	next   int
	ch     chan core.Event
}

// NewScriptedEventSource creates a source replaying script. An empty script
// falls back to BenchCycle.
func NewScriptedEventSource(script []core.Event) *ScriptedEventSource {
	if len(script) == 0 {
		script = BenchCycle
	}
	return &ScriptedEventSource{
		script: append([]core.Event(nil), script...),
		ch:     make(chan core.Event, len(script)),
	}
}

// Press emits the next scripted event. It returns the event and whether it
// was queued; a press is dropped when the consumer is behind.
func (s *ScriptedEventSource) Press() (core.Event, bool) {
	s.mu.Lock()
	ev := s.script[s.next]
	s.next = (s.next + 1) % len(s.script)
	s.mu.Unlock()

	select {
	case s.ch <- ev:
		return ev, true
	default:
		return ev, false
	}
}

// Events returns the event channel.
func (s *ScriptedEventSource) Events() <-chan core.Event {
	return s.ch
}
