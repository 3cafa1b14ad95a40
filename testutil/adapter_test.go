package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/comalice/rovercore/internal/core"
)

// TestAdapterInterface runs the avoidance scenario through both adapters.
func TestAdapterInterface(t *testing.T) {
	tests := []struct {
		name    string
		adapter RuntimeAdapter
	}{
		{name: "Step", adapter: NewStepAdapter(core.NewMachine())},
		{name: "Loop", adapter: NewLoopAdapter(core.NewMachine())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RunCommonTests(t, tt.adapter)
		})
	}
}

// RunCommonTests checks the arbitration rules through adapter.
func RunCommonTests(t *testing.T, adapter RuntimeAdapter) {
	t.Helper()
	if err := adapter.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer adapter.Stop()

	if adapter.State() != core.StateIdle {
		t.Errorf("Expected initial state %v, got %v", core.StateIdle, adapter.State())
	}

	steps := []struct {
		ev   core.Event
		want core.State
	}{
		{core.EvStart, core.StateActive},
		{core.EvObstacle | core.EvStop, core.StateAvoiding},
		{core.EvObstacleClear | core.EvStart, core.StateIdle},
		{core.EvStop, core.StateIdle},
		{core.EvStart, core.StateActive},
		{core.EvLowBattery, core.StateIdle},
	}
	for i, s := range steps {
		adapter.Post(s.ev)
		if err := adapter.WaitForStability(time.Second); err != nil {
			t.Fatalf("step %d: WaitForStability failed: %v", i, err)
		}
		if adapter.State() != s.want {
			t.Errorf("step %d (%s): expected %v, got %v", i, core.FormatEvents(s.ev), s.want, adapter.State())
		}
	}
}
