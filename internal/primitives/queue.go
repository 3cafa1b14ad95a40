package primitives

import (
	"context"
	"sync/atomic"
)

const (
	// RecordSize is the fixed payload size of one queued record.
	RecordSize = 32
	// DefaultQueueDepth is the number of records a RecordQueue holds.
	DefaultQueueDepth = 16
)

// Record is one fixed-size queue entry. Payloads are opaque.
type Record struct {
	Len  uint8
	Data [RecordSize]byte
}

// Bytes returns the valid portion of the record.
func (r Record) Bytes() []byte {
	return r.Data[:r.Len]
}

// RecordQueue is a bounded FIFO of fixed-size records with a non-blocking
// producer and a blocking consumer.
type RecordQueue struct {
	ch      chan Record
	dropped atomic.Uint64
}

// NewRecordQueue creates a queue holding depth records.
func NewRecordQueue(depth int) *RecordQueue {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	return &RecordQueue{ch: make(chan Record, depth)}
}

// Put copies at most RecordSize bytes of p into the queue. Oversize input is
// truncated. Returns false and counts a drop when the queue is full.
func (q *RecordQueue) Put(p []byte) bool {
	var r Record
	r.Len = uint8(copy(r.Data[:], p))
	select {
	case q.ch <- r:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Get blocks until a record is available.
func (q *RecordQueue) Get(ctx context.Context) (Record, error) {
	select {
	case r := <-q.ch:
		return r, nil
	case <-ctx.Done():
		return Record{}, ctx.Err()
	}
}

// TryGet returns the oldest record if one is queued.
func (q *RecordQueue) TryGet() (Record, bool) {
	select {
	case r := <-q.ch:
		return r, true
	default:
		return Record{}, false
	}
}

func (q *RecordQueue) Len() int { return len(q.ch) }
func (q *RecordQueue) Cap() int { return cap(q.ch) }

// Dropped is the number of records rejected because the queue was full.
func (q *RecordQueue) Dropped() uint64 { return q.dropped.Load() }
