package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/bits"
	"sync"
	"sync/atomic"
	"time"

	"github.com/comalice/rovercore/internal/hal"
	"github.com/comalice/rovercore/internal/primitives"
)

// Rate identifies one of the periodic loops.
type Rate int

const (
	RateBase Rate = iota
	RateMid
	RateSlow
	NumRates
)

func (r Rate) String() string {
	switch r {
	case RateBase:
		return "base"
	case RateMid:
		return "mid"
	case RateSlow:
		return "slow"
	default:
		return "unknown"
	}
}

// Divisor is the number of base ticks per release of the rate.
func (r Rate) Divisor() uint32 {
	switch r {
	case RateMid:
		return MidDivisor
	case RateSlow:
		return SlowDivisor
	default:
		return 1
	}
}

const (
	MidDivisor  = 10
	SlowDivisor = 100

	DefaultBasePeriod     = time.Millisecond
	DefaultBudgetFraction = 0.65
)

// TaskFunc is a periodic loop body. tick is the base tick count at release,
// which lags the current count when the loop falls behind.
type TaskFunc func(ctx context.Context, tick uint64)

// WorkFunc processes one aperiodic record.
type WorkFunc func(ctx context.Context, rec primitives.Record)

// Config configures the scheduler.
type Config struct {
	BasePeriod     time.Duration // default 1ms
	BudgetFraction float64       // default 0.65
	QueueDepth     int           // default primitives.DefaultQueueDepth
	SignalLimit    int           // default primitives.DefaultSignalLimit

	// Periodic bodies; nil bodies still consume their releases.
	Base TaskFunc
	Mid  TaskFunc
	Slow TaskFunc

	// Worker consumes the aperiodic queue. When nil no worker loop runs and
	// the caller owns consumption through DequeueWork.
	Worker WorkFunc

	Logger *slog.Logger
}

// Scheduler derives three phase-locked periodic rates from one alarm.
type Scheduler struct {
	timer       hal.Timer
	cfg         Config
	periodTicks uint32
	logger      *slog.Logger

	signals [NumRates]*primitives.Signal
	bodies  [NumRates]TaskFunc
	queue   *primitives.RecordQueue

	// deadline is written by Start before the first alarm and afterwards only
	// by OnTick, whose invocations never overlap.
	deadline uint64

	ticks         atomic.Uint64
	divMid        atomic.Uint32
	divSlow       atomic.Uint32
	releases      [NumRates]atomic.Uint64
	runs          [NumRates]atomic.Uint64
	overruns      [NumRates]atomic.Uint64
	maxExec       [NumRates]atomic.Int64
	processed     atomic.Uint64
	rearmFailures atomic.Uint64

	started  atomic.Bool
	stopping atomic.Bool
	haltOnce sync.Once
	halted   chan struct{}
	haltErr  error

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// PeriodTicks converts a base period into timer ticks at timerFrequencyHz.
// The result is truncated like a counter driver would.
func PeriodTicks(timerFrequencyHz uint64, basePeriod time.Duration) (uint32, error) {
	if timerFrequencyHz == 0 || basePeriod <= 0 {
		return 0, ErrInvalidPeriod
	}
	hi, lo := bits.Mul64(timerFrequencyHz, uint64(basePeriod))
	if hi >= uint64(time.Second) {
		return 0, ErrPeriodOverflow
	}
	q, _ := bits.Div64(hi, lo, uint64(time.Second))
	if q == 0 {
		return 0, ErrInvalidPeriod
	}
	if q > math.MaxUint32 {
		return 0, ErrPeriodOverflow
	}
	return uint32(q), nil
}

// NewScheduler validates the timer and configuration. It does not start the
// counter; call Start.
func NewScheduler(timer hal.Timer, cfg Config) (*Scheduler, error) {
	if timer == nil || !timer.Ready() {
		return nil, ErrDeviceNotReady
	}
	if cfg.BasePeriod == 0 {
		cfg.BasePeriod = DefaultBasePeriod
	}
	if cfg.BudgetFraction == 0 {
		cfg.BudgetFraction = DefaultBudgetFraction
	}
	if cfg.BudgetFraction < 0 || cfg.BudgetFraction > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBudget, cfg.BudgetFraction)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	period, err := PeriodTicks(timer.Frequency(), cfg.BasePeriod)
	if err != nil {
		return nil, fmt.Errorf("timer at %d Hz, period %v: %w", timer.Frequency(), cfg.BasePeriod, err)
	}

	s := &Scheduler{
		timer:       timer,
		cfg:         cfg,
		periodTicks: period,
		logger:      cfg.Logger.With("component", "scheduler"),
		queue:       primitives.NewRecordQueue(cfg.QueueDepth),
		bodies:      [NumRates]TaskFunc{cfg.Base, cfg.Mid, cfg.Slow},
		halted:      make(chan struct{}),
	}
	for r := range s.signals {
		s.signals[r] = primitives.NewSignal(cfg.SignalLimit)
	}

	s.logger.Debug("scheduler configured",
		"timer_hz", timer.Frequency(),
		"period_ticks", period,
		"base_period", cfg.BasePeriod,
	)
	return s, nil
}

// PeriodTicksValue returns the computed ticks per base period.
func (s *Scheduler) PeriodTicksValue() uint32 { return s.periodTicks }

// Period returns the wall-clock period of a rate.
func (s *Scheduler) Period(r Rate) time.Duration {
	return s.cfg.BasePeriod * time.Duration(r.Divisor())
}

// Budget returns the longest a body of rate r may run without counting an
// overrun.
func (s *Scheduler) Budget(r Rate) time.Duration {
	return time.Duration(math.Round(float64(s.Period(r)) * s.cfg.BudgetFraction))
}

// Start starts the counter, arms the first alarm one period from now and
// launches the periodic and worker loops. The loops run until ctx is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if err := s.timer.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrTimerStart, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for r := RateBase; r < NumRates; r++ {
		s.wg.Add(1)
		go s.periodicLoop(runCtx, r)
	}
	if s.cfg.Worker != nil {
		s.wg.Add(1)
		go s.workerLoop(runCtx)
	}

	s.deadline = s.timer.Now() + uint64(s.periodTicks)
	if err := s.timer.SetAlarm(s.deadline, s.OnTick); err != nil {
		cancel()
		s.wg.Wait()
		return fmt.Errorf("%w: %w", ErrAlarmArm, err)
	}

	s.logger.Info("scheduler started",
		"period_ticks", s.periodTicks,
		"base_period", s.cfg.BasePeriod,
		"worker", s.cfg.Worker != nil,
	)
	return nil
}

// Stop cancels the loops, stops the counter and waits for the loops to exit.
func (s *Scheduler) Stop() error {
	s.stopping.Store(true)
	if s.cancel != nil {
		s.cancel()
	}
	err := s.timer.Stop()
	s.wg.Wait()
	s.logger.Info("scheduler stopped", "ticks", s.ticks.Load())
	return err
}

// Done is closed when scheduling has been lost.
func (s *Scheduler) Done() <-chan struct{} { return s.halted }

// Err returns the halt cause once Done is closed, nil before.
func (s *Scheduler) Err() error {
	select {
	case <-s.halted:
		return s.haltErr
	default:
		return nil
	}
}

func (s *Scheduler) halt(err error) {
	s.haltOnce.Do(func() {
		s.haltErr = err
		close(s.halted)
	})
}
