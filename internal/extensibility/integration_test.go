package extensibility

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/comalice/rovercore/internal/core"
)

func TestMachineWithBenchCycle(t *testing.T) {
	act := &DefaultActuators{}
	src := NewScriptedEventSource(nil)
	m := core.NewMachine(core.WithActuators(act), core.WithEventSource(src))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	want := []core.State{core.StateActive, core.StateAvoiding, core.StateIdle, core.StateIdle, core.StateIdle, core.StateActive}
	for i, w := range want {
		if _, ok := src.Press(); !ok {
			t.Fatalf("press %d dropped", i)
		}
		deadline := time.Now().Add(time.Second)
		for m.State() != w || m.Pending() != 0 || len(src.Events()) != 0 {
			if time.Now().After(deadline) {
				t.Fatalf("press %d: state %v, want %v", i, m.State(), w)
			}
			time.Sleep(time.Millisecond)
		}
	}

	if s := act.State(); !s.Motors || !s.Vacuum || s.Status != core.StatusActive {
		t.Errorf("actuators after cycle = %+v", s)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v", err)
	}
	if s := act.State(); s.Motors || s.Vacuum {
		t.Errorf("actuators left energized: %+v", s)
	}
}

type failingActuators struct{ DefaultActuators }

func (f *failingActuators) SetVacuum(context.Context, bool) error {
	return errors.New("vacuum stalled")
}

func TestLoggingActuators(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	a := NewLoggingActuators(&failingActuators{}, logger)

	if err := a.SetMotors(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if err := a.SetVacuum(context.Background(), true); err == nil {
		t.Fatal("expected vacuum error")
	}
	if err := a.Report(context.Background(), core.StatusActive); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"msg=motors", "level=ERROR msg=vacuum", "vacuum stalled", "status=ACTIVE", "component=actuators"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
