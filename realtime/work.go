package realtime

import (
	"context"

	"github.com/comalice/rovercore/internal/primitives"
)

// EnqueueWork copies at most primitives.RecordSize bytes of p into the
// aperiodic queue. It never blocks: when the queue is full the record is
// dropped, counted, and false is returned. Safe from the timer callback and
// any other goroutine.
func (s *Scheduler) EnqueueWork(p []byte) bool {
	return s.queue.Put(p)
}

// DequeueWork blocks until a record is queued. Only one goroutine may
// consume: the worker loop when Config.Worker is set, the caller otherwise.
func (s *Scheduler) DequeueWork(ctx context.Context) (primitives.Record, error) {
	return s.queue.Get(ctx)
}

func (s *Scheduler) workerLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		rec, err := s.queue.Get(ctx)
		if err != nil {
			return
		}
		s.cfg.Worker(ctx, rec)
		s.processed.Add(1)
	}
}
