package realtime

import "time"

// Stats is a point-in-time copy of the scheduler's counters. Counters are
// updated from the alarm callback with atomics and read here without
// stopping it, so fields may be skewed by one tick relative to each other.
type Stats struct {
	Ticks         uint64
	Releases      [NumRates]uint64
	Runs          [NumRates]uint64
	Overruns      [NumRates]uint64
	MaxExec       [NumRates]time.Duration
	Saturations   [NumRates]uint64
	QueueLen      int
	QueueDrops    uint64
	Processed     uint64
	RearmFailures uint64
	Halted        bool
}

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() Stats {
	st := Stats{
		Ticks:         s.ticks.Load(),
		QueueLen:      s.queue.Len(),
		QueueDrops:    s.queue.Dropped(),
		Processed:     s.processed.Load(),
		RearmFailures: s.rearmFailures.Load(),
		Halted:        s.Err() != nil,
	}
	for r := RateBase; r < NumRates; r++ {
		st.Releases[r] = s.releases[r].Load()
		st.Runs[r] = s.runs[r].Load()
		st.Overruns[r] = s.overruns[r].Load()
		st.MaxExec[r] = time.Duration(s.maxExec[r].Load())
		st.Saturations[r] = s.signals[r].Saturated()
	}
	return st
}
