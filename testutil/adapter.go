package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/comalice/rovercore/internal/core"
)

// RuntimeAdapter drives a Machine either pass by pass or through its Run
// loop, so the same test suite runs against both.
type RuntimeAdapter interface {
	Start(ctx context.Context) error
	Stop() error
	Post(ev core.Event)
	State() core.State
	WaitForStability(timeout time.Duration) error
}

// StepAdapter runs one pass per WaitForStability on the caller's goroutine.
type StepAdapter struct {
	m   *core.Machine
	ctx context.Context
}

// NewStepAdapter creates a synchronous adapter for m.
func NewStepAdapter(m *core.Machine) *StepAdapter {
	return &StepAdapter{m: m, ctx: context.Background()}
}

func (a *StepAdapter) Start(ctx context.Context) error {
	a.ctx = ctx
	return a.m.Start(ctx)
}

func (a *StepAdapter) Stop() error {
	return a.m.SafeStop(context.WithoutCancel(a.ctx))
}

func (a *StepAdapter) Post(ev core.Event) { a.m.Post(ev) }

func (a *StepAdapter) State() core.State { return a.m.State() }

func (a *StepAdapter) WaitForStability(time.Duration) error {
	return a.m.StepOnce(a.ctx)
}

// LoopAdapter runs the Machine's wake loop in a goroutine.
type LoopAdapter struct {
	m      *core.Machine
	cancel context.CancelFunc
	done   chan struct{}
	wakes  uint64
}

// NewLoopAdapter creates an adapter running m.Run.
func NewLoopAdapter(m *core.Machine) *LoopAdapter {
	return &LoopAdapter{m: m}
}

func (a *LoopAdapter) Start(ctx context.Context) error {
	if err := a.m.Start(ctx); err != nil {
		return err
	}
	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})
	go func() {
		defer close(a.done)
		_ = a.m.Run(ctx)
	}()
	return nil
}

func (a *LoopAdapter) Stop() error {
	if a.cancel == nil {
		return nil
	}
	a.cancel()
	<-a.done
	return nil
}

func (a *LoopAdapter) Post(ev core.Event) {
	a.wakes = a.m.Stats().Wakes
	a.m.Post(ev)
}

func (a *LoopAdapter) State() core.State { return a.m.State() }

// WaitForStability waits until the loop has consumed every pending bit and
// finished the pass that consumed them.
func (a *LoopAdapter) WaitForStability(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for a.m.Pending() != 0 || a.m.Stats().Wakes <= a.wakes {
		if time.Now().After(deadline) {
			return fmt.Errorf("machine not stable after %v: pending %s", timeout, core.FormatEvents(a.m.Pending()))
		}
		time.Sleep(100 * time.Microsecond)
	}
	// Snapshot takes the pass lock, so it returns once the pass is complete.
	_ = a.m.Snapshot()
	return nil
}
