// Package realtime provides the tick scheduler: one hardware alarm drives a
// base-rate loop and two slower loops derived by counting the same ticks.
//
// # Rates
//
// Every alarm releases the base-rate loop. A divide-by-10 counter and a
// divide-by-100 counter advance on the same tick, so the mid and slow loops
// are phase-locked to the base loop and cannot drift relative to it:
//
//	tick n:  base always
//	         mid  iff n % 10  == 0
//	         slow iff n % 100 == 0
//
// Within one tick the base release always happens before the derived ones.
//
// # Re-arming
//
// The alarm is re-armed at previousDeadline + periodTicks, an absolute
// counter value, not at now + periodTicks. Latency entering the callback
// therefore shortens the gap to the next tick instead of stretching every
// following period.
//
// # Interrupt boundary
//
// OnTick runs in the timer's callback context. It only touches atomics and
// non-blocking channel sends: no locks, no logging, no allocation on the
// success path. A failed re-arm is counted, latches the scheduler halted and
// closes Done(); the owner observes it from task context and performs a
// safe halt.
//
// # Aperiodic work
//
// EnqueueWork copies at most primitives.RecordSize bytes into a bounded FIFO
// without blocking; when the queue is full the record is dropped and
// counted. A single worker loop (or a caller of DequeueWork) consumes it.
//
// # Budgets
//
// Each periodic body is timed. A body running longer than BudgetFraction of
// its own period counts an overrun for that rate. The default fraction 0.65
// leaves headroom for callback jitter.
//
// # Example Usage
//
//	timer := hal.NewSimTimer(1_000_000)
//	s, err := realtime.NewScheduler(timer, realtime.Config{
//		BasePeriod: time.Millisecond,
//		Base:       readEncoders,
//		Mid:        estimate,
//		Slow:       housekeeping,
//		Worker:     handleRx,
//	})
//	if err != nil {
//		return err
//	}
//	if err := s.Start(ctx); err != nil {
//		return err
//	}
//	<-s.Done()
package realtime
