package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Rule is one row of the transition table.
type Rule struct {
	From State
	On   Event
	To   State
	// Note is logged when the rule fires.
	Note  string
	Level slog.Level
}

// Table holds the transition rules of every state in evaluation order.
type Table struct {
	rules [numStates][]Rule
}

// Match returns the first rule of state s whose event bits intersect events.
// Later rules are not consulted, even if they would also match.
func (t *Table) Match(s State, events Event) (Rule, bool) {
	if !s.Valid() {
		return Rule{}, false
	}
	for _, r := range t.rules[s] {
		if events.Has(r.On) {
			return r, true
		}
	}
	return Rule{}, false
}

// Rules returns every rule, grouped by source state in evaluation order.
func (t *Table) Rules() []Rule {
	var out []Rule
	for _, rs := range t.rules {
		out = append(out, rs...)
	}
	return out
}

// TableBuilder assembles a Table with a fluent API.
type TableBuilder struct {
	from  State
	rules []Rule
	errs  []error
}

// NewTableBuilder creates an empty builder.
func NewTableBuilder() *TableBuilder {
	return &TableBuilder{}
}

// From selects the source state for the following rules.
func (b *TableBuilder) From(s State) *TableBuilder {
	if !s.Valid() {
		b.errs = append(b.errs, fmt.Errorf("invalid source state %v", s))
	}
	b.from = s
	return b
}

// On appends a rule from the current source state. Rules of one state are
// evaluated in the order they are added.
func (b *TableBuilder) On(ev Event, to State, note string) *TableBuilder {
	return b.add(ev, to, note, slog.LevelInfo)
}

// Warn is On with the note logged at warning level.
func (b *TableBuilder) Warn(ev Event, to State, note string) *TableBuilder {
	return b.add(ev, to, note, slog.LevelWarn)
}

func (b *TableBuilder) add(ev Event, to State, note string, level slog.Level) *TableBuilder {
	switch {
	case ev == 0:
		b.errs = append(b.errs, fmt.Errorf("rule %v -> %v: empty event set", b.from, to))
	case ev&^AllEvents != 0:
		b.errs = append(b.errs, fmt.Errorf("rule %v -> %v: unknown event bits %#x", b.from, to, uint32(ev&^AllEvents)))
	case !to.Valid():
		b.errs = append(b.errs, fmt.Errorf("rule %v -> %v: invalid target state", b.from, to))
	}
	b.rules = append(b.rules, Rule{From: b.from, On: ev, To: to, Note: note, Level: level})
	return b
}

// Build validates the rules and returns the table.
func (b *TableBuilder) Build() (*Table, error) {
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	t := &Table{}
	for _, r := range b.rules {
		t.rules[r.From] = append(t.rules[r.From], r)
	}
	return t, nil
}

// DefaultTable is the robot's behavior arbitration table.
//
// Within ACTIVE the obstacle check precedes stop and low battery, so an
// obstacle posted in the same wake as a stop wins. Within AVOIDING the
// obstacle-clear check precedes start. FAULT has no outgoing rules; it is
// left only through Machine.Recover.
func DefaultTable() *Table {
	t, err := NewTableBuilder().
		From(StateIdle).
		On(EvStart, StateActive, "start command").
		From(StateActive).
		Warn(EvObstacle, StateAvoiding, "obstacle detected, overriding command").
		On(EvStop, StateIdle, "stop command").
		Warn(EvLowBattery, StateIdle, "battery critical, returning to idle").
		From(StateAvoiding).
		On(EvObstacleClear, StateIdle, "obstacle cleared, returning control to command").
		On(EvStart, StateActive, "command override, resuming movement").
		Build()
	if err != nil {
		panic(err)
	}
	return t
}

// Status strings reported to the command channel on state entry.
const (
	StatusIdle     = "IDLE"
	StatusActive   = "ACTIVE"
	StatusAvoiding = "AVOIDING_OBSTACLE"
	StatusFault    = "FAULT"
)

// enter runs the entry action of s. Actuator intent is recorded before the
// actuator is driven, so the flags reflect what was commanded even if the
// driver fails.
func (m *Machine) enter(ctx context.Context, s State) error {
	m.logger.Debug("entering state", "state", s)

	var err error
	switch s {
	case StateIdle:
		err = errors.Join(
			m.setMotors(ctx, false),
			m.setVacuum(ctx, false),
			m.actuators.Report(ctx, StatusIdle),
		)
	case StateActive:
		err = errors.Join(
			m.setMotors(ctx, true),
			m.setVacuum(ctx, true),
			m.actuators.Report(ctx, StatusActive),
		)
	case StateAvoiding:
		err = errors.Join(
			m.setMotors(ctx, false),
			m.actuators.Report(ctx, StatusAvoiding),
		)
	case StateFault:
		err = errors.Join(
			m.setMotors(ctx, false),
			m.setVacuum(ctx, false),
			m.actuators.Report(ctx, StatusFault),
		)
	}
	if m.hooks.OnEntry != nil {
		err = errors.Join(err, m.hooks.OnEntry(ctx, s))
	}
	return err
}

// exit runs the exit action of s.
func (m *Machine) exit(ctx context.Context, s State) error {
	m.logger.Debug("exiting state", "state", s)
	if m.hooks.OnExit != nil {
		return m.hooks.OnExit(ctx, s)
	}
	return nil
}

func (m *Machine) setMotors(ctx context.Context, on bool) error {
	m.motorsOn.Store(on)
	if err := m.actuators.SetMotors(ctx, on); err != nil {
		return fmt.Errorf("set motors %t: %w", on, err)
	}
	return nil
}

func (m *Machine) setVacuum(ctx context.Context, on bool) error {
	m.vacuumOn.Store(on)
	if err := m.actuators.SetVacuum(ctx, on); err != nil {
		return fmt.Errorf("set vacuum %t: %w", on, err)
	}
	return nil
}
