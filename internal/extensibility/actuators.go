package extensibility

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/comalice/rovercore/internal/core"
)

// DefaultActuators records commanded intent in memory. It stands in for the
// motor, vacuum and command-channel drivers on the host.
type DefaultActuators struct {
	mu      sync.Mutex
	motors  bool
	vacuum  bool
	status  string
	reports int
}

func (a *DefaultActuators) SetMotors(_ context.Context, on bool) error {
	a.mu.Lock()
	a.motors = on
	a.mu.Unlock()
	return nil
}

func (a *DefaultActuators) SetVacuum(_ context.Context, on bool) error {
	a.mu.Lock()
	a.vacuum = on
	a.mu.Unlock()
	return nil
}

func (a *DefaultActuators) Report(_ context.Context, status string) error {
	a.mu.Lock()
	a.status = status
	a.reports++
	a.mu.Unlock()
	return nil
}

// ActuatorState is a point-in-time view of DefaultActuators.
type ActuatorState struct {
	Motors  bool   `json:"motors"`
	Vacuum  bool   `json:"vacuum"`
	Status  string `json:"status"`
	Reports int    `json:"reports"`
}

func (a *DefaultActuators) State() ActuatorState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ActuatorState{Motors: a.motors, Vacuum: a.vacuum, Status: a.status, Reports: a.reports}
}

// LoggingActuators wraps Actuators and logs every command with its latency.
type LoggingActuators struct {
	inner  core.Actuators
	logger *slog.Logger
}

// NewLoggingActuators creates a LoggingActuators wrapping inner.
func NewLoggingActuators(inner core.Actuators, logger *slog.Logger) *LoggingActuators {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingActuators{inner: inner, logger: logger.With("component", "actuators")}
}

func (a *LoggingActuators) SetMotors(ctx context.Context, on bool) error {
	start := time.Now()
	err := a.inner.SetMotors(ctx, on)
	a.log(ctx, err, "motors", "on", on, "took", time.Since(start))
	return err
}

func (a *LoggingActuators) SetVacuum(ctx context.Context, on bool) error {
	start := time.Now()
	err := a.inner.SetVacuum(ctx, on)
	a.log(ctx, err, "vacuum", "on", on, "took", time.Since(start))
	return err
}

func (a *LoggingActuators) Report(ctx context.Context, status string) error {
	err := a.inner.Report(ctx, status)
	a.log(ctx, err, "report to command channel", "status", status)
	return err
}

func (a *LoggingActuators) log(ctx context.Context, err error, msg string, args ...any) {
	if err != nil {
		a.logger.ErrorContext(ctx, msg, append(args, "error", err)...)
		return
	}
	a.logger.DebugContext(ctx, msg, args...)
}
