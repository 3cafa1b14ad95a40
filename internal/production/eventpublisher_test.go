// Tests for ChannelPublisher delivery and Machine integration.
package production

import (
	"context"
	"testing"
	"time"

	"github.com/comalice/rovercore/internal/core"
)

func TestChannelPublisher_Delivery(t *testing.T) {
	ch := make(chan core.TransitionRecord, 10)
	p := NewChannelPublisher(ch)

	rec := core.TransitionRecord{MachineID: "test-machine", From: core.StateIdle, To: core.StateActive, Events: "start"}
	if err := p.Publish(context.Background(), rec); err != nil {
		t.Errorf("Publish failed: %v", err)
	}

	select {
	case got := <-ch:
		if got.MachineID != rec.MachineID {
			t.Errorf("MachineID mismatch: got %q, want %q", got.MachineID, rec.MachineID)
		}
		if got.To != core.StateActive {
			t.Errorf("To mismatch: got %v, want %v", got.To, core.StateActive)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No record delivered")
	}
}

func TestChannelPublisher_BackpressureDrop(t *testing.T) {
	ch := make(chan core.TransitionRecord, 1)
	p := NewChannelPublisher(ch)
	ch <- core.TransitionRecord{} // Fill buffer

	if err := p.Publish(context.Background(), core.TransitionRecord{MachineID: "drop"}); err != nil {
		t.Errorf("Publish on full channel failed: %v", err)
	}
	if p.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", p.Dropped())
	}
}

func TestChannelPublisher_CloseTwice(t *testing.T) {
	ch := make(chan core.TransitionRecord, 1)
	p := NewChannelPublisher(ch)

	if err := p.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if err := p.Publish(context.Background(), core.TransitionRecord{}); err != nil {
		t.Errorf("Publish after Close failed: %v", err)
	}
}

func TestChannelPublisher_Integration_Machine(t *testing.T) {
	ch := make(chan core.TransitionRecord, 10)
	m := core.NewMachine(core.WithMachineID("integration-test"), core.WithPublisher(NewChannelPublisher(ch)))
	m.Post(core.EvStart)
	if err := m.StepOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-ch:
		if got.From != core.StateIdle || got.To != core.StateActive {
			t.Errorf("transition mismatch: got %v -> %v", got.From, got.To)
		}
		if got.Events != "start" {
			t.Errorf("Events = %q, want %q", got.Events, "start")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No published record received")
	}
}
