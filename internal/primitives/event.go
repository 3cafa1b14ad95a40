package primitives

import (
	"context"
	"math/bits"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// EventMask is a set of event bits. Bits combine with bitwise OR.
type EventMask uint32

// Has reports whether any bit of other is set in m.
func (m EventMask) Has(other EventMask) bool {
	return m&other != 0
}

// Count returns the number of set bits.
func (m EventMask) Count() int {
	return bits.OnesCount32(uint32(m))
}

// Format renders the mask using names for known bits, e.g. "start|obstacle".
// Unnamed bits are rendered as bitN.
func (m EventMask) Format(names map[EventMask]string) string {
	if m == 0 {
		return "none"
	}
	var parts []string
	for i := 0; i < 32; i++ {
		bit := EventMask(1) << i
		if m&bit == 0 {
			continue
		}
		if n, ok := names[bit]; ok {
			parts = append(parts, n)
			continue
		}
		parts = append(parts, "bit"+strconv.Itoa(i))
	}
	return strings.Join(parts, "|")
}

// Wake is the result of one read-and-clear of an EventFlags.
type Wake struct {
	Events EventMask
	// PostedAt is the time of the first post accumulated into Events.
	// Zero when a racing post moved the timestamp to the next wake.
	PostedAt time.Time
}

// EventFlags accumulates posted event bits until a waiter reads and clears
// them. Posts made between two wakes coalesce: only presence of each bit is
// kept, not order or multiplicity.
type EventFlags struct {
	pending  atomic.Uint32
	postedAt atomic.Int64
	wake     chan struct{}
}

// NewEventFlags creates an empty flag set.
func NewEventFlags() *EventFlags {
	return &EventFlags{wake: make(chan struct{}, 1)}
}

// Post ORs bits into the pending mask and wakes the waiter.
// Safe from any goroutine, never blocks.
func (f *EventFlags) Post(bits EventMask) {
	if bits == 0 {
		return
	}
	f.postedAt.CompareAndSwap(0, time.Now().UnixNano())
	f.pending.Or(uint32(bits))
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Pending returns the currently accumulated bits without clearing them.
func (f *EventFlags) Pending() EventMask {
	return EventMask(f.pending.Load())
}

// Take atomically reads and clears the bits selected by mask.
// Bits outside mask stay pending.
func (f *EventFlags) Take(mask EventMask) Wake {
	prev := EventMask(f.pending.And(^uint32(mask)))
	old := prev & mask
	if old == 0 {
		return Wake{}
	}
	w := Wake{Events: old}
	// The post time belongs to the oldest pending bit; keep it while
	// bits outside mask are still waiting.
	ns := f.postedAt.Load()
	if prev&^mask == 0 {
		ns = f.postedAt.Swap(0)
	}
	if ns != 0 {
		w.PostedAt = time.Unix(0, ns)
	}
	return w
}

// Wait blocks until at least one bit of mask is pending, then reads and
// clears the masked bits in one step.
func (f *EventFlags) Wait(ctx context.Context, mask EventMask) (Wake, error) {
	for {
		if w := f.Take(mask); w.Events != 0 {
			return w, nil
		}
		select {
		case <-f.wake:
		case <-ctx.Done():
			return Wake{}, ctx.Err()
		}
	}
}
