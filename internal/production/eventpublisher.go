package production

import (
	"context"
	"sync/atomic"

	"github.com/comalice/rovercore/internal/core"
)

// ChannelPublisher forwards transition records to a Go channel.
// Publish never blocks the state machine; records are dropped and counted
// when the consumer falls behind.
type ChannelPublisher struct {
	ch      chan<- core.TransitionRecord
	dropped atomic.Uint64
	closed  atomic.Bool
}

// NewChannelPublisher creates a ChannelPublisher with the given output channel.
func NewChannelPublisher(ch chan<- core.TransitionRecord) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func (p *ChannelPublisher) Publish(ctx context.Context, rec core.TransitionRecord) error {
	if p.closed.Load() {
		return nil
	}
	select {
	case p.ch <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.dropped.Add(1)
		return nil
	}
}

// Dropped returns the number of records lost to backpressure.
func (p *ChannelPublisher) Dropped() uint64 { return p.dropped.Load() }

// Close closes the output channel. Publishing after Close is a no-op.
func (p *ChannelPublisher) Close() error {
	if p.closed.CompareAndSwap(false, true) {
		close(p.ch)
	}
	return nil
}
