// Package core provides the behavior state machine.
// Options for configuring Machine instances.
package core

import "log/slog"

// WithMachineID sets the identifier used in logs, snapshots and records.
func WithMachineID(id string) Option {
	return func(m *Machine) {
		if id != "" {
			m.id = id
		}
	}
}

// WithTable replaces the default transition table.
func WithTable(t *Table) Option {
	return func(m *Machine) {
		if t != nil {
			m.table = t
		}
	}
}

// WithActuators configures the Machine with the actuator surface driven by
// entry actions.
func WithActuators(a Actuators) Option {
	return func(m *Machine) {
		if a != nil {
			m.actuators = a
		}
	}
}

// WithHooks configures additional entry/exit actions.
func WithHooks(h Hooks) Option {
	return func(m *Machine) {
		m.hooks = h
	}
}

// WithEventSource configures the Machine with an EventSource pumped by Run.
func WithEventSource(s EventSource) Option {
	return func(m *Machine) {
		m.eventSource = s
	}
}

// WithPublisher configures the Machine with a custom EventPublisher.
func WithPublisher(pb EventPublisher) Option {
	return func(m *Machine) {
		m.publisher = pb
	}
}

// WithPersister configures the Machine with a custom Persister.
func WithPersister(p Persister) Option {
	return func(m *Machine) {
		m.persister = p
	}
}

// WithRegistry configures the Machine with a Registry for versioned snapshots.
func WithRegistry(r Registry) Option {
	return func(m *Machine) {
		m.registry = r
	}
}

// WithVisualizer configures the Machine with a custom Visualizer.
func WithVisualizer(v Visualizer) Option {
	return func(m *Machine) {
		m.visualizer = v
	}
}

// WithRecorder configures the Machine with a metrics Recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Machine) {
		m.recorder = r
	}
}

// WithLogger configures the Machine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}
