package primitives

import (
	"context"
	"sync/atomic"
)

// DefaultSignalLimit bounds how many releases a Signal holds before it
// saturates. A periodic loop that falls this far behind has already missed
// its deadline many times over.
const DefaultSignalLimit = 64

// Signal is a counting semaphore. The tick callback gives, one periodic loop
// takes. Each release carries the base tick it was given at.
type Signal struct {
	ch        chan uint64
	saturated atomic.Uint64
}

// NewSignal creates a Signal holding up to limit pending releases.
func NewSignal(limit int) *Signal {
	if limit <= 0 {
		limit = DefaultSignalLimit
	}
	return &Signal{ch: make(chan uint64, limit)}
}

// Give releases one waiter with the tick of the release. Never blocks;
// returns false and counts a saturation when the limit is reached.
func (s *Signal) Give(tick uint64) bool {
	select {
	case s.ch <- tick:
		return true
	default:
		s.saturated.Add(1)
		return false
	}
}

// Take blocks until a release is available and returns its tick.
func (s *Signal) Take(ctx context.Context) (uint64, error) {
	select {
	case tick := <-s.ch:
		return tick, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// TryTake consumes a release if one is pending.
func (s *Signal) TryTake() (uint64, bool) {
	select {
	case tick := <-s.ch:
		return tick, true
	default:
		return 0, false
	}
}

// Count is the number of releases not yet taken.
func (s *Signal) Count() int { return len(s.ch) }

// Saturated is the number of releases lost to the limit.
func (s *Signal) Saturated() uint64 { return s.saturated.Load() }
