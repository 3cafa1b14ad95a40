package rovercore

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/rovercore/internal/core"
	"github.com/comalice/rovercore/internal/extensibility"
	"github.com/comalice/rovercore/internal/hal"
	"github.com/comalice/rovercore/internal/metrics"
	"github.com/comalice/rovercore/internal/primitives"
	"github.com/comalice/rovercore/realtime"
)

const (
	timerHz     = 1_000_000
	periodTicks = 1000 // 1 ms at timerHz
)

type harness struct {
	rover *Rover
	timer *hal.ManualTimer
	fsm   *core.Machine
	act   *extensibility.DefaultActuators
	done  chan error
	stop  context.CancelFunc
}

func startRover(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		timer: hal.NewManualTimer(timerHz),
		act:   &extensibility.DefaultActuators{},
		done:  make(chan error, 1),
	}
	h.fsm = core.NewMachine(core.WithActuators(h.act))

	r, err := New(h.timer, h.fsm, opts...)
	require.NoError(t, err)
	h.rover = r

	ctx, cancel := context.WithCancel(context.Background())
	h.stop = cancel
	go func() { h.done <- r.Run(ctx) }()
	t.Cleanup(cancel)

	require.Eventually(t, func() bool {
		_, armed := h.timer.Deadline()
		return armed
	}, time.Second, time.Millisecond, "first alarm never armed")
	return h
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestNew_TimerNotReady(t *testing.T) {
	timer := hal.NewManualTimer(timerHz)
	timer.SetReady(false)
	_, err := New(timer, core.NewMachine())
	assert.ErrorIs(t, err, realtime.ErrDeviceNotReady)

	_, err = New(hal.NewManualTimer(timerHz), nil)
	assert.Error(t, err)
}

func TestRover_HousekeepingExportsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := startRover(t,
		WithMetrics(metrics.NewPrometheusRecorder(reg)),
		WithSchedulerConfig(realtime.Config{SignalLimit: 2048}),
	)

	h.timer.Advance(1000 * periodTicks)
	sched := h.rover.Scheduler()
	require.Eventually(t, func() bool {
		return sched.Stats().Runs[realtime.RateSlow] == 10
	}, 2*time.Second, time.Millisecond)

	h.stop()
	require.NoError(t, h.wait(t))

	st := sched.Stats()
	assert.Equal(t, uint64(1000), st.Ticks)
	assert.Equal(t, [realtime.NumRates]uint64{1000, 100, 10}, st.Releases)
	assert.Equal(t, 1000.0, gatherValue(t, reg, "rover_scheduler_ticks_total"))
}

func TestRover_WorkerReceivesRecords(t *testing.T) {
	got := make(chan primitives.Record, 1)
	h := startRover(t, WithReceiver(func(_ context.Context, rec primitives.Record) {
		got <- rec
	}))

	require.True(t, h.rover.EnqueueWork([]byte("EVT start")))
	select {
	case rec := <-got:
		assert.Equal(t, "EVT start", string(rec.Bytes()))
	case <-time.After(time.Second):
		t.Fatal("record not delivered")
	}

	h.stop()
	assert.NoError(t, h.wait(t))
}

func TestRover_PostFromControlLoopReachesMachine(t *testing.T) {
	var fsm *core.Machine
	h := startRover(t, WithControl(func(_ context.Context, tick uint64) {
		if tick == 5 {
			fsm.PostObstacle()
		}
	}))
	fsm = h.fsm

	h.fsm.Post(core.EvStart)
	require.Eventually(t, func() bool { return h.fsm.State() == core.StateActive }, time.Second, time.Millisecond)

	for i := 0; i < 5; i++ {
		require.True(t, h.timer.Fire())
	}
	require.Eventually(t, func() bool { return h.fsm.State() == core.StateAvoiding }, time.Second, time.Millisecond)
	assert.False(t, h.act.State().Motors)
}

func TestRover_LostSchedulingSafeHalts(t *testing.T) {
	halted := make(chan error, 1)
	h := startRover(t, WithHaltHandler(func(_ context.Context, cause error) {
		halted <- cause
	}))

	h.fsm.Post(core.EvStart)
	require.Eventually(t, func() bool { return h.fsm.State() == core.StateActive }, time.Second, time.Millisecond)
	require.True(t, h.act.State().Motors)

	counterFault := errors.New("counter fault")
	h.timer.FailAlarms(counterFault)
	require.True(t, h.timer.Fire())

	err := h.wait(t)
	assert.ErrorIs(t, err, realtime.ErrSchedulingLost)
	assert.ErrorIs(t, err, counterFault)

	select {
	case cause := <-halted:
		assert.ErrorIs(t, cause, realtime.ErrSchedulingLost)
	default:
		t.Fatal("halt handler not called")
	}
	assert.Equal(t, core.StateFault, h.fsm.State())
	s := h.act.State()
	assert.False(t, s.Motors)
	assert.False(t, s.Vacuum)
	assert.Equal(t, core.StatusFault, s.Status)
	assert.True(t, h.rover.Scheduler().Stats().Halted)
}

// wakeRecorder keeps the longest observed wake latency.
type wakeRecorder struct {
	mu    sync.Mutex
	n     int
	worst time.Duration
}

func (r *wakeRecorder) ObserveWake(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
	if d > r.worst {
		r.worst = d
	}
}

func (r *wakeRecorder) ObserveTransition(_, _ core.State) {}
func (r *wakeRecorder) ObserveFault()                     {}

func (r *wakeRecorder) result() (int, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n, r.worst
}

func TestRover_MachineWakesWithinBasePeriodUnderLoad(t *testing.T) {
	if runtime.GOMAXPROCS(0) < 2 {
		t.Skip("needs a second processor for the control loop")
	}

	rec := &wakeRecorder{}
	fsm := core.NewMachine(core.WithRecorder(rec))
	r, err := New(hal.NewSimTimer(timerHz), fsm, WithControl(func(ctx context.Context, tick uint64) {
		// control body uses about a third of its period
		for start := time.Now(); time.Since(start) < 300*time.Microsecond; {
		}
	}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	require.Eventually(t, func() bool { return r.Scheduler().Stats().Releases[realtime.RateBase] > 10 },
		time.Second, time.Millisecond)

	const posts = 200
	for i := 0; i < posts; i++ {
		ev, want := core.EvStart, core.StateActive
		if i%2 == 1 {
			ev, want = core.EvStop, core.StateIdle
		}
		fsm.Post(ev)
		require.Eventually(t, func() bool { return fsm.State() == want }, time.Second, 50*time.Microsecond, "post %d", i)
	}

	cancel()
	require.NoError(t, <-done)

	n, worst := rec.result()
	assert.GreaterOrEqual(t, n, posts)
	assert.Less(t, worst, realtime.DefaultBasePeriod, "worst wake latency %v", worst)
}

func gatherValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				sum += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				sum += m.GetGauge().GetValue()
			}
		}
		return sum
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
