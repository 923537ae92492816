package gitstatus

import (
	"context"
	"sync"
)

// Dispatcher queues callbacks for the host's main loop. Posting never blocks
// and never drops a callback; the host calls Drain from its own loop after a
// signal on Ready, or hands the loop over to Run.
type Dispatcher struct {
	mu      sync.Mutex
	pending []func()
	ready   chan struct{}
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{ready: make(chan struct{}, 1)}
}

// Post queues fn for the main loop. Safe from any goroutine.
func (d *Dispatcher) Post(fn func()) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	d.pending = append(d.pending, fn)
	d.mu.Unlock()

	select {
	case d.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled whenever callbacks are waiting. One signal can cover
// several posts.
func (d *Dispatcher) Ready() <-chan struct{} {
	return d.ready
}

// Drain runs every queued callback in posting order, including callbacks
// posted by the callbacks themselves, and returns how many ran.
func (d *Dispatcher) Drain() int {
	ran := 0
	for {
		d.mu.Lock()
		batch := d.pending
		d.pending = nil
		d.mu.Unlock()

		if len(batch) == 0 {
			return ran
		}
		for _, fn := range batch {
			fn()
			ran++
		}
	}
}

// Pending returns the number of queued callbacks.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Run drains the queue on the calling goroutine until ctx is done. It is the
// main loop for hosts without an event loop of their own.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.ready:
			d.Drain()
		}
	}
}
