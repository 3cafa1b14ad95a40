package realtime

import (
	"context"
	"fmt"
	"time"
)

// OnTick is the alarm callback. It releases the base loop, advances both
// divisors on the same tick, releases the derived loops they complete, and
// re-arms one period after the previous deadline.
func (s *Scheduler) OnTick() {
	tick := s.ticks.Add(1)

	s.release(RateBase, tick)
	if s.divMid.Add(1) >= MidDivisor {
		s.divMid.Store(0)
		s.release(RateMid, tick)
	}
	if s.divSlow.Add(1) >= SlowDivisor {
		s.divSlow.Store(0)
		s.release(RateSlow, tick)
	}

	s.deadline += uint64(s.periodTicks)
	if err := s.timer.SetAlarm(s.deadline, s.OnTick); err != nil {
		if s.stopping.Load() {
			return
		}
		s.rearmFailures.Add(1)
		s.halt(fmt.Errorf("%w: %w", ErrSchedulingLost, err))
	}
}

func (s *Scheduler) release(r Rate, tick uint64) {
	s.releases[r].Add(1)
	s.signals[r].Give(tick)
}

// periodicLoop waits for the rate's signal, runs its body, and repeats.
func (s *Scheduler) periodicLoop(ctx context.Context, r Rate) {
	defer s.wg.Done()

	sig := s.signals[r]
	body := s.bodies[r]
	budget := s.Budget(r)

	for {
		tick, err := sig.Take(ctx)
		if err != nil {
			return
		}
		s.runs[r].Add(1)
		if body == nil {
			continue
		}

		start := time.Now()
		body(ctx, tick)
		elapsed := time.Since(start)

		if elapsed > budget {
			s.overruns[r].Add(1)
		}
		for {
			cur := s.maxExec[r].Load()
			if int64(elapsed) <= cur || s.maxExec[r].CompareAndSwap(cur, int64(elapsed)) {
				break
			}
		}
	}
}
