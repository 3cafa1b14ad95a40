// Package core provides the behavior state machine that arbitrates the robot
// between remote command and onboard safety reflexes.
//
// The machine blocks until event bits are posted, reads and clears them in
// one atomic step, and runs exactly one run-to-completion pass: the current
// state's rules are checked in table order, the first match transitions
// (exit, update, entry, in that order), and any remaining bits of that wake
// are discarded. Posts arriving during a pass are handled by the next wake.
//
//go:generate mockgen -destination=mocks/mock_core.go -package=mocks github.com/comalice/rovercore/internal/core Actuators,Recorder

package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/comalice/rovercore/internal/primitives"
)

var (
	// ErrFault wraps the cause of every pass that drove the machine into FAULT.
	ErrFault = errors.New("state machine fault")
	// ErrNotFaulted is returned by Recover outside FAULT.
	ErrNotFaulted = errors.New("machine is not in FAULT")
)

// Actuators is the side-effect surface driven by state entry actions.
type Actuators interface {
	SetMotors(ctx context.Context, on bool) error
	SetVacuum(ctx context.Context, on bool) error
	// Report tells the command channel which behavior is active.
	Report(ctx context.Context, status string) error
}

// Hooks are optional extension points run synchronously inside a pass.
type Hooks struct {
	OnEntry func(ctx context.Context, s State) error
	OnExit  func(ctx context.Context, s State) error
}

// EventSource feeds externally produced events into the machine.
type EventSource interface {
	Events() <-chan Event
}

// TransitionRecord describes one completed transition.
type TransitionRecord struct {
	MachineID string    `json:"machineID" yaml:"machineID"`
	BootID    string    `json:"bootID" yaml:"bootID"`
	Seq       uint64    `json:"seq" yaml:"seq"`
	From      State     `json:"from" yaml:"from"`
	To        State     `json:"to" yaml:"to"`
	Events    string    `json:"events" yaml:"events"`
	Note      string    `json:"note,omitempty" yaml:"note,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

type EventPublisher interface {
	Publish(ctx context.Context, rec TransitionRecord) error
	Close() error
}

// MachineSnapshot is the serializable runtime state of a Machine.
type MachineSnapshot struct {
	MachineID   string    `json:"machineID" yaml:"machineID"`
	BootID      string    `json:"bootID" yaml:"bootID"`
	State       State     `json:"state" yaml:"state"`
	MotorsOn    bool      `json:"motorsOn" yaml:"motorsOn"`
	VacuumOn    bool      `json:"vacuumOn" yaml:"vacuumOn"`
	Transitions uint64    `json:"transitions" yaml:"transitions"`
	Faults      uint64    `json:"faults" yaml:"faults"`
	LastError   string    `json:"lastError,omitempty" yaml:"lastError,omitempty"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
}

type Persister interface {
	Save(ctx context.Context, snapshot MachineSnapshot) error
	Load(ctx context.Context, machineID string) (MachineSnapshot, error)
}

type Visualizer interface {
	ExportDOT(table *Table, current State) string
}

// Recorder receives machine metrics.
type Recorder interface {
	ObserveWake(latency time.Duration)
	ObserveTransition(from, to State)
	ObserveFault()
}

// Option applies configuration to Machine via functional options pattern.
type Option func(*Machine)

// Machine is the behavior state machine. Post may be called from any
// goroutine; passes are serialized.
type Machine struct {
	id     string
	bootID string
	table  *Table
	events *primitives.EventFlags

	// mu serializes passes: the Run loop, StepOnce, Recover and Halt.
	mu       sync.Mutex
	started  bool
	state    atomic.Int32
	motorsOn atomic.Bool
	vacuumOn atomic.Bool
	lastErr  error

	wakes       atomic.Uint64
	transitions atomic.Uint64
	faults      atomic.Uint64

	actuators   Actuators
	hooks       Hooks
	eventSource EventSource
	publisher   EventPublisher
	persister   Persister
	registry    Registry
	visualizer  Visualizer
	recorder    Recorder
	logger      *slog.Logger
}

// NewMachine wires a machine in IDLE without running the initial entry
// action or a wake loop. Use Start, StepOnce or Run to drive it.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		id:        "rover",
		bootID:    uuid.NewString(),
		table:     DefaultTable(),
		events:    primitives.NewEventFlags(),
		actuators: nopActuators{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "fsm", "machine_id", m.id)
	m.state.Store(int32(StateIdle))
	return m
}

// ID returns the machine identifier.
func (m *Machine) ID() string { return m.id }

// BootID identifies this machine instance across snapshots and records.
func (m *Machine) BootID() string { return m.bootID }

// Table returns the transition table in use.
func (m *Machine) Table() *Table { return m.table }

// State returns the current state. Safe from any goroutine.
func (m *Machine) State() State { return State(m.state.Load()) }

func (m *Machine) MotorsOn() bool { return m.motorsOn.Load() }
func (m *Machine) VacuumOn() bool { return m.vacuumOn.Load() }

// Pending returns event bits posted but not yet consumed by a wake.
func (m *Machine) Pending() Event { return m.events.Pending() }

// Post ORs bits into the pending event mask and wakes the machine. Bits
// outside AllEvents are ignored. It never blocks and is safe from the timer
// callback and concurrent callers.
func (m *Machine) Post(bits Event) { m.events.Post(bits & AllEvents) }

func (m *Machine) PostObstacle()      { m.Post(EvObstacle) }
func (m *Machine) PostObstacleClear() { m.Post(EvObstacleClear) }
func (m *Machine) PostLowBattery()    { m.Post(EvLowBattery) }

// Start runs the entry action of the initial state. Idempotent.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(ctx)
}

func (m *Machine) startLocked(ctx context.Context) error {
	if m.started {
		return nil
	}
	m.started = true
	if err := m.enter(ctx, m.State()); err != nil {
		return m.fault(ctx, fmt.Errorf("enter initial state %v: %w", m.State(), err), 0)
	}
	m.logger.Info("state machine initialized", "state", m.State())
	return nil
}

// StepOnce reads and clears the pending events and executes exactly one
// pass, whether or not any bit was pending.
func (m *Machine) StepOnce(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.startLocked(ctx); err != nil {
		return err
	}
	return m.step(ctx, m.events.Take(AllEvents))
}

// Run is the wake loop. It blocks until events are posted, runs one pass
// per wake, and returns only when ctx is cancelled. A failing pass leaves
// the machine in FAULT and the loop keeps running. On return the actuators
// are de-energized.
func (m *Machine) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		m.logger.Error("initial entry failed", "error", err)
	}
	defer func() {
		if err := m.SafeStop(context.WithoutCancel(ctx)); err != nil {
			m.logger.Error("safe stop failed", "error", err)
		}
	}()

	if m.eventSource != nil {
		go m.pump(ctx)
	}

	m.logger.Info("state machine loop started", "state", m.State())
	for {
		w, err := m.events.Wait(ctx, AllEvents)
		if err != nil {
			m.logger.Info("state machine loop stopped", "state", m.State(), "reason", err)
			return err
		}
		m.mu.Lock()
		err = m.step(ctx, w)
		m.mu.Unlock()
		if err != nil {
			m.logger.Error("state machine pass failed", "state", m.State(), "error", err)
		}
	}
}

func (m *Machine) pump(ctx context.Context) {
	src := m.eventSource.Events()
	for {
		select {
		case ev, ok := <-src:
			if !ok {
				return
			}
			m.Post(ev)
		case <-ctx.Done():
			return
		}
	}
}

// step is one run-to-completion pass. Callers hold mu.
func (m *Machine) step(ctx context.Context, w primitives.Wake) error {
	m.wakes.Add(1)
	if m.recorder != nil {
		var latency time.Duration
		if !w.PostedAt.IsZero() {
			latency = time.Since(w.PostedAt)
		}
		m.recorder.ObserveWake(latency)
	}

	cur := m.State()
	m.logger.Debug("state machine woke", "events", FormatEvents(w.Events), "state", cur)

	rule, ok := m.table.Match(cur, w.Events)
	if !ok {
		return nil
	}
	if rest := w.Events &^ rule.On; rest != 0 {
		m.logger.Debug("discarding events after transition", "events", FormatEvents(rest), "state", cur)
	}
	return m.transition(ctx, rule, w.Events)
}

func (m *Machine) transition(ctx context.Context, rule Rule, events Event) error {
	if err := m.exit(ctx, rule.From); err != nil {
		return m.fault(ctx, fmt.Errorf("exit %v: %w", rule.From, err), events)
	}
	m.state.Store(int32(rule.To))
	if err := m.enter(ctx, rule.To); err != nil {
		return m.fault(ctx, fmt.Errorf("enter %v: %w", rule.To, err), events)
	}

	m.logger.Log(ctx, rule.Level, rule.Note, "from", rule.From, "to", rule.To, "events", FormatEvents(events))
	m.afterTransition(ctx, rule.From, rule.To, events, rule.Note)
	return nil
}

// fault drives the machine into FAULT. Callers hold mu.
func (m *Machine) fault(ctx context.Context, cause error, events Event) error {
	from := m.State()
	m.faults.Add(1)
	m.lastErr = cause
	if m.recorder != nil {
		m.recorder.ObserveFault()
	}
	m.logger.Error("entering FAULT", "from", from, "error", cause)

	m.state.Store(int32(StateFault))
	if err := m.enter(ctx, StateFault); err != nil {
		m.logger.Error("FAULT entry action failed", "error", err)
	}
	m.afterTransition(ctx, from, StateFault, events, cause.Error())
	return fmt.Errorf("%w: %w", ErrFault, cause)
}

// Halt forces the machine into FAULT from outside the wake loop, e.g. when
// scheduling has been lost.
func (m *Machine) Halt(ctx context.Context, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	if m.State() == StateFault {
		m.lastErr = cause
		m.logger.Error("halt while in FAULT", "error", cause)
		return
	}
	_ = m.fault(ctx, cause, 0)
}

// Recover is the manual recovery path from FAULT back to IDLE.
func (m *Machine) Recover(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.State() != StateFault {
		return ErrNotFaulted
	}
	m.lastErr = nil
	return m.transition(ctx, Rule{From: StateFault, To: StateIdle, Note: "manual recovery", Level: slog.LevelWarn}, 0)
}

// SafeStop de-energizes every actuator without changing state. It waits
// for a pass in progress to finish.
func (m *Machine) SafeStop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return errors.Join(m.setMotors(ctx, false), m.setVacuum(ctx, false))
}

func (m *Machine) afterTransition(ctx context.Context, from, to State, events Event, note string) {
	seq := m.transitions.Add(1)
	if m.recorder != nil {
		m.recorder.ObserveTransition(from, to)
	}

	if m.publisher != nil {
		rec := TransitionRecord{
			MachineID: m.id,
			BootID:    m.bootID,
			Seq:       seq,
			From:      from,
			To:        to,
			Events:    FormatEvents(events),
			Note:      note,
			Timestamp: time.Now(),
		}
		if err := m.publisher.Publish(ctx, rec); err != nil {
			m.logger.Warn("publish transition failed", "error", err)
		}
	}

	if m.persister == nil && m.registry == nil {
		return
	}
	snap := m.snapshotLocked()
	if m.persister != nil {
		if err := m.persister.Save(ctx, snap); err != nil {
			m.logger.Warn("persist snapshot failed", "error", err)
		}
	}
	if m.registry != nil {
		if err := m.registry.Register(ctx, m.id, snap); err != nil {
			m.logger.Warn("register snapshot failed", "error", err)
		}
	}
}

// Snapshot returns the current runtime state.
func (m *Machine) Snapshot() MachineSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() MachineSnapshot {
	snap := MachineSnapshot{
		MachineID:   m.id,
		BootID:      m.bootID,
		State:       m.State(),
		MotorsOn:    m.motorsOn.Load(),
		VacuumOn:    m.vacuumOn.Load(),
		Transitions: m.transitions.Load(),
		Faults:      m.faults.Load(),
		Timestamp:   time.Now(),
	}
	if m.lastErr != nil {
		snap.LastError = m.lastErr.Error()
	}
	return snap
}

// Stats reports pass counters.
type Stats struct {
	Wakes       uint64
	Transitions uint64
	Faults      uint64
}

func (m *Machine) Stats() Stats {
	return Stats{
		Wakes:       m.wakes.Load(),
		Transitions: m.transitions.Load(),
		Faults:      m.faults.Load(),
	}
}

// Visualize returns the Graphviz DOT rendering of the transition table.
func (m *Machine) Visualize() string {
	if m.visualizer == nil {
		return "ERROR: No visualizer configured. Use WithVisualizer(&production.DefaultVisualizer{})"
	}
	return m.visualizer.ExportDOT(m.table, m.State())
}

type nopActuators struct{}

func (nopActuators) SetMotors(context.Context, bool) error { return nil }
func (nopActuators) SetVacuum(context.Context, bool) error { return nil }
func (nopActuators) Report(context.Context, string) error  { return nil }
