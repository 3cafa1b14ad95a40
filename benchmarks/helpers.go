// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"context"

	"gopkg.in/yaml.v3"

	"github.com/comalice/rovercore/internal/core"
	"github.com/comalice/rovercore/internal/hal"
	"github.com/comalice/rovercore/realtime"
)

// TimerHz is the counter frequency used by the benchmarks: 1 tick per µs.
const TimerHz = 1_000_000

// NewManualScheduler returns a started scheduler on a manual timer. The
// caller must Stop it.
func NewManualScheduler(cfg realtime.Config) (*realtime.Scheduler, *hal.ManualTimer) {
	timer := hal.NewManualTimer(TimerHz)
	s, err := realtime.NewScheduler(timer, cfg)
	if err != nil {
		panic(err)
	}
	if err := s.Start(context.Background()); err != nil {
		panic(err)
	}
	return s, timer
}

// PingPongEvents alternates the machine between IDLE and ACTIVE.
var PingPongEvents = [2]core.Event{core.EvStart, core.EvStop}

// NewStartedMachine returns a machine that already ran its initial entry.
func NewStartedMachine(opts ...core.Option) *core.Machine {
	m := core.NewMachine(opts...)
	if err := m.Start(context.Background()); err != nil {
		panic(err)
	}
	return m
}

// GenSnapshotYAML returns the YAML encoding of a machine snapshot after n
// ping-pong passes.
func GenSnapshotYAML(n int) []byte {
	m := NewStartedMachine(core.WithMachineID("bench"))
	for i := 0; i < n; i++ {
		m.Post(PingPongEvents[i%2])
		if err := m.StepOnce(context.Background()); err != nil {
			panic(err)
		}
	}
	data, err := yaml.Marshal(m.Snapshot())
	if err != nil {
		panic(err)
	}
	return data
}
