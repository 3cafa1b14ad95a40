// Package metrics exports scheduler and state machine counters to Prometheus.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/comalice/rovercore/internal/core"
	"github.com/comalice/rovercore/realtime"
)

// PrometheusRecorder implements core.Recorder and mirrors scheduler Stats.
type PrometheusRecorder struct {
	wakeLatency prometheus.Histogram
	transitions *prometheus.CounterVec
	faults      prometheus.Counter
	state       *prometheus.GaugeVec

	ticks         prometheus.Counter
	releases      *prometheus.CounterVec
	overruns      *prometheus.CounterVec
	saturations   *prometheus.CounterVec
	maxExec       *prometheus.GaugeVec
	queueLen      prometheus.Gauge
	queueDrops    prometheus.Counter
	processed     prometheus.Counter
	rearmFailures prometheus.Counter
	halted        prometheus.Gauge

	// last is the previous Stats snapshot; counters advance by the delta.
	mu   sync.Mutex
	last realtime.Stats
}

// NewPrometheusRecorder registers the rover metrics with reg. A nil reg
// uses the default registerer.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	rates := []string{"rate"}
	r := &PrometheusRecorder{
		wakeLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rover_fsm_wake_latency_seconds",
			Help:    "Time from the first post of a wake to the start of its pass",
			Buckets: prometheus.ExponentialBuckets(10e-6, 4, 8),
		}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rover_fsm_transitions_total",
			Help: "State machine transitions by source and target state",
		}, []string{"from", "to"}),
		faults: f.NewCounter(prometheus.CounterOpts{
			Name: "rover_fsm_faults_total",
			Help: "Passes that drove the state machine into FAULT",
		}),
		state: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rover_fsm_state",
			Help: "1 for the current state machine state, 0 otherwise",
		}, []string{"state"}),
		ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "rover_scheduler_ticks_total",
			Help: "Base ticks delivered by the timer alarm",
		}),
		releases: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rover_scheduler_releases_total",
			Help: "Periodic loop releases by rate",
		}, rates),
		overruns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rover_scheduler_overruns_total",
			Help: "Periodic bodies that exceeded their execution budget",
		}, rates),
		saturations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rover_scheduler_signal_saturations_total",
			Help: "Releases lost because a loop's signal was saturated",
		}, rates),
		maxExec: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rover_scheduler_max_exec_seconds",
			Help: "Longest observed body execution time by rate",
		}, rates),
		queueLen: f.NewGauge(prometheus.GaugeOpts{
			Name: "rover_work_queue_length",
			Help: "Records waiting in the aperiodic work queue",
		}),
		queueDrops: f.NewCounter(prometheus.CounterOpts{
			Name: "rover_work_queue_drops_total",
			Help: "Records dropped because the work queue was full",
		}),
		processed: f.NewCounter(prometheus.CounterOpts{
			Name: "rover_work_processed_total",
			Help: "Records processed by the aperiodic worker",
		}),
		rearmFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "rover_scheduler_rearm_failures_total",
			Help: "Alarm re-arm failures",
		}),
		halted: f.NewGauge(prometheus.GaugeOpts{
			Name: "rover_scheduler_halted",
			Help: "1 once the scheduler has lost its alarm",
		}),
	}
	r.setState(core.StateIdle)
	return r
}

func (r *PrometheusRecorder) ObserveWake(latency time.Duration) {
	r.wakeLatency.Observe(latency.Seconds())
}

func (r *PrometheusRecorder) ObserveTransition(from, to core.State) {
	r.transitions.WithLabelValues(from.String(), to.String()).Inc()
	r.setState(to)
}

func (r *PrometheusRecorder) ObserveFault() {
	r.faults.Inc()
}

func (r *PrometheusRecorder) setState(cur core.State) {
	for _, s := range []core.State{core.StateIdle, core.StateActive, core.StateFault, core.StateAvoiding} {
		v := 0.0
		if s == cur {
			v = 1
		}
		r.state.WithLabelValues(s.String()).Set(v)
	}
}

// ObserveScheduler advances the scheduler metrics to st.
func (r *PrometheusRecorder) ObserveScheduler(st realtime.Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ticks.Add(delta(st.Ticks, r.last.Ticks))
	for rate := realtime.RateBase; rate < realtime.NumRates; rate++ {
		l := rate.String()
		r.releases.WithLabelValues(l).Add(delta(st.Releases[rate], r.last.Releases[rate]))
		r.overruns.WithLabelValues(l).Add(delta(st.Overruns[rate], r.last.Overruns[rate]))
		r.saturations.WithLabelValues(l).Add(delta(st.Saturations[rate], r.last.Saturations[rate]))
		r.maxExec.WithLabelValues(l).Set(st.MaxExec[rate].Seconds())
	}
	r.queueLen.Set(float64(st.QueueLen))
	r.queueDrops.Add(delta(st.QueueDrops, r.last.QueueDrops))
	r.processed.Add(delta(st.Processed, r.last.Processed))
	r.rearmFailures.Add(delta(st.RearmFailures, r.last.RearmFailures))
	if st.Halted {
		r.halted.Set(1)
	}
	r.last = st
}

func delta(cur, prev uint64) float64 {
	if cur < prev {
		return 0
	}
	return float64(cur - prev)
}
