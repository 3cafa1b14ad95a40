// Package primitives provides the signaling building blocks shared by the
// tick scheduler and the behavior state machine.
//
// Every producer-side operation here (EventFlags.Post, Signal.Give,
// RecordQueue.Put) is lock-free and never blocks, so it may be called from
// the timer callback. Consumer-side operations block on a channel until
// work arrives or the context is cancelled.
//
// Core invariants:
//   - EventFlags read-and-clear is a single atomic operation
//   - RecordQueue is FIFO with a fixed record size; overflow is counted, not blocked on
//   - Signal counts releases up to its limit; saturation is counted
//
//go:generate go test ./... -race
package primitives
