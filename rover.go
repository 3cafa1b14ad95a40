package rovercore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/comalice/rovercore/internal/core"
	"github.com/comalice/rovercore/internal/hal"
	"github.com/comalice/rovercore/internal/metrics"
	"github.com/comalice/rovercore/internal/primitives"
	"github.com/comalice/rovercore/realtime"
)

// HealthEvery is how many housekeeping runs pass between health log lines.
const HealthEvery = 10

// HaltFunc is the terminal handler invoked once scheduling is lost.
type HaltFunc func(ctx context.Context, cause error)

// Option configures a Rover.
type Option func(*Rover)

// WithSchedulerConfig sets timing and queue parameters. Loop bodies set in
// cfg are replaced by the Rover's own.
func WithSchedulerConfig(cfg realtime.Config) Option {
	return func(r *Rover) { r.schedCfg = cfg }
}

// WithControl sets the base-rate body (motor control).
func WithControl(fn realtime.TaskFunc) Option {
	return func(r *Rover) { r.control = fn }
}

// WithEstimator sets the mid-rate body (state estimation).
func WithEstimator(fn realtime.TaskFunc) Option {
	return func(r *Rover) { r.estimator = fn }
}

// WithReceiver sets the handler for aperiodic records, e.g. serial frames.
func WithReceiver(fn realtime.WorkFunc) Option {
	return func(r *Rover) { r.receiver = fn }
}

// WithMetrics exports scheduler counters on every housekeeping run.
func WithMetrics(rec *metrics.PrometheusRecorder) Option {
	return func(r *Rover) { r.metrics = rec }
}

// WithHaltHandler sets the terminal handler run after a safe halt.
func WithHaltHandler(fn HaltFunc) Option {
	return func(r *Rover) { r.onHalt = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Rover) {
		if l != nil {
			r.logger = l
		}
	}
}

// Rover wires the tick scheduler to the behavior state machine.
type Rover struct {
	sched *realtime.Scheduler
	fsm   *core.Machine

	schedCfg  realtime.Config
	control   realtime.TaskFunc
	estimator realtime.TaskFunc
	receiver  realtime.WorkFunc
	metrics   *metrics.PrometheusRecorder
	onHalt    HaltFunc
	logger    *slog.Logger

	// housekeeping state, touched only from the slow loop
	runs     uint64
	lastSeen realtime.Stats
}

// New builds the scheduler on timer and attaches fsm. Configuration errors
// from the scheduler are returned unchanged so callers can match them with
// errors.Is.
func New(timer hal.Timer, fsm *core.Machine, opts ...Option) (*Rover, error) {
	if fsm == nil {
		return nil, errors.New("rover: nil state machine")
	}
	r := &Rover{fsm: fsm, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "rover")
	if r.receiver == nil {
		r.receiver = r.logRecord
	}

	cfg := r.schedCfg
	cfg.Base = r.control
	cfg.Mid = r.estimator
	cfg.Slow = r.housekeeping
	cfg.Worker = r.receiver
	if cfg.Logger == nil {
		cfg.Logger = r.logger
	}

	sched, err := realtime.NewScheduler(timer, cfg)
	if err != nil {
		return nil, fmt.Errorf("rover: %w", err)
	}
	r.sched = sched
	return r, nil
}

func (r *Rover) Scheduler() *realtime.Scheduler { return r.sched }
func (r *Rover) Machine() *core.Machine         { return r.fsm }

// EnqueueWork hands an opaque buffer to the aperiodic worker. Safe from any
// context; returns false when the record was dropped.
func (r *Rover) EnqueueWork(p []byte) bool { return r.sched.EnqueueWork(p) }

// Run starts the scheduler and the state machine and blocks until ctx is
// cancelled or scheduling is lost. A clean cancellation returns nil; lost
// scheduling safe-halts the rover and returns the scheduler's error.
func (r *Rover) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := r.fsm.Start(ctx); err != nil {
		r.logger.Error("state machine start failed", "error", err)
	}
	if err := r.sched.Start(ctx); err != nil {
		r.safeHalt(ctx, err)
		return err
	}

	fsmDone := make(chan struct{})
	go func() {
		defer close(fsmDone)
		_ = r.fsm.Run(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case <-r.sched.Done():
		runErr = r.sched.Err()
	}

	cancel()
	if err := r.sched.Stop(); err != nil && runErr == nil {
		r.logger.Warn("timer stop failed", "error", err)
	}
	<-fsmDone

	if runErr != nil {
		r.safeHalt(context.WithoutCancel(ctx), runErr)
	}
	if r.metrics != nil {
		r.metrics.ObserveScheduler(r.sched.Stats())
	}
	return runErr
}

// safeHalt forces FAULT, which de-energizes the actuators, then hands over
// to the terminal handler.
func (r *Rover) safeHalt(ctx context.Context, cause error) {
	r.logger.Error("scheduling lost, halting rover", "error", cause)
	r.fsm.Halt(ctx, cause)
	if err := r.fsm.SafeStop(ctx); err != nil {
		r.logger.Error("safe stop failed", "error", err)
	}
	if r.onHalt != nil {
		r.onHalt(ctx, cause)
	}
}

// housekeeping is the slow-rate body.
func (r *Rover) housekeeping(ctx context.Context, tick uint64) {
	st := r.sched.Stats()
	if r.metrics != nil {
		r.metrics.ObserveScheduler(st)
	}

	r.runs++
	if r.runs%HealthEvery != 0 {
		return
	}

	drops := st.QueueDrops - r.lastSeen.QueueDrops
	var overruns uint64
	for rate := realtime.RateBase; rate < realtime.NumRates; rate++ {
		overruns += st.Overruns[rate] - r.lastSeen.Overruns[rate]
	}
	r.lastSeen = st

	r.logger.Info("health ok",
		"tick", tick,
		"state", r.fsm.State(),
		"queue_len", st.QueueLen,
		"processed", st.Processed,
		"max_exec_base", st.MaxExec[realtime.RateBase],
	)
	if drops > 0 {
		r.logger.Warn("work records dropped", "count", drops)
	}
	if overruns > 0 {
		r.logger.Warn("periodic loops overran their budget", "count", overruns, "per_rate", st.Overruns)
	}
}

func (r *Rover) logRecord(ctx context.Context, rec primitives.Record) {
	r.logger.Debug("rx record", "len", rec.Len, "data", fmt.Sprintf("%q", rec.Bytes()))
}
