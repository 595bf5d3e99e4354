package pairing

import "sync/atomic"

// oneshot is a single-fulfillment result channel: the continuation half of a
// pairing attempt. The first Resolve wins; every later call is a no-op. This
// is what makes continuation resolution exactly-once regardless of which of
// {success, timeout, cancellation, disconnect} fires first.
type oneshot struct {
	resolved atomic.Bool
	ch       chan error
}

func newOneshot() *oneshot {
	return &oneshot{ch: make(chan error, 1)}
}

// Resolve fulfills the continuation with err (nil means success). Returns
// false if the continuation was already fulfilled.
func (o *oneshot) Resolve(err error) bool {
	if !o.resolved.CompareAndSwap(false, true) {
		return false
	}
	o.ch <- err
	return true
}

// Done yields the result exactly once.
func (o *oneshot) Done() <-chan error {
	return o.ch
}
