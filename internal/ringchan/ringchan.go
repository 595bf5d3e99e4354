// Package ringchan provides a bounded channel-like buffer with
// overwrite-oldest semantics, used to fan registry change events out to a UI
// layer without ever blocking the producer.
package ringchan

// RingChannel wraps a buffered channel and guarantees senders never block:
// when the buffer is full the oldest element is discarded. Consumers that
// fall behind see the most recent events, which is the right trade-off for
// change notifications.
type RingChannel[T any] struct {
	ch chan T
}

// New creates a RingChannel with the given capacity.
func New[T any](capacity int) *RingChannel[T] {
	if capacity <= 0 {
		panic("ringchan: capacity must be > 0")
	}
	return &RingChannel[T]{ch: make(chan T, capacity)}
}

// C returns the underlying receive-only channel. Consumers can range over it
// until Close.
func (rc *RingChannel[T]) C() <-chan T {
	return rc.ch
}

// Send inserts an item, discarding the oldest buffered one if full. It never
// blocks indefinitely.
func (rc *RingChannel[T]) Send(v T) {
	select {
	case rc.ch <- v:
	default:
		select {
		case <-rc.ch: // drop oldest
		default:
		}
		rc.ch <- v
	}
}

// Len returns the number of buffered elements.
func (rc *RingChannel[T]) Len() int {
	return len(rc.ch)
}

// Cap returns the buffer capacity.
func (rc *RingChannel[T]) Cap() int {
	return cap(rc.ch)
}

// Close closes the underlying channel. After Close, Send panics.
func (rc *RingChannel[T]) Close() {
	close(rc.ch)
}
