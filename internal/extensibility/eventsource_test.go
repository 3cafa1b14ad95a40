package extensibility

import (
	"testing"
	"time"

	"github.com/comalice/rovercore/internal/core"
)

func TestChannelEventSource(t *testing.T) {
	ch := make(chan core.Event, 1)
	s := NewChannelEventSource(ch)
	ch <- core.EvStop
	if got := <-s.Events(); got != core.EvStop {
		t.Errorf("got %v, want %v", got, core.EvStop)
	}
}

func TestTimerEventSource(t *testing.T) {
	s := NewTimerEventSource(core.EvLowBattery, 20*time.Millisecond)
	defer s.Stop()

	for i := 0; i < 2; i++ {
		select {
		case ev := <-s.Events():
			if ev != core.EvLowBattery {
				t.Errorf("event %d: got %v", i, core.FormatEvents(ev))
			}
		case <-time.After(200 * time.Millisecond):
			t.Fatalf("no event %d received", i)
		}
	}
}

func TestTimerEventSource_StopClosesChannel(t *testing.T) {
	s := NewTimerEventSource(core.EvStart, time.Hour)
	s.Stop()
	s.Stop()
	select {
	case _, ok := <-s.Events():
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Error("channel not closed after Stop")
	}
}

func TestScriptedEventSource_WrapsAround(t *testing.T) {
	s := NewScriptedEventSource(nil)
	for round := 0; round < 2; round++ {
		for i, want := range BenchCycle {
			ev, ok := s.Press()
			if !ok {
				t.Fatalf("round %d press %d dropped", round, i)
			}
			if ev != want {
				t.Errorf("round %d press %d: got %v, want %v", round, i, core.FormatEvents(ev), core.FormatEvents(want))
			}
			<-s.Events()
		}
	}
}

func TestScriptedEventSource_DropsWhenFull(t *testing.T) {
	s := NewScriptedEventSource([]core.Event{core.EvStart})
	if _, ok := s.Press(); !ok {
		t.Fatal("first press dropped")
	}
	if _, ok := s.Press(); ok {
		t.Error("second press should drop on a full channel")
	}
}
