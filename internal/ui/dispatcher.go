// Package ui owns everything that touches a busy indicator. Indicator calls
// are funneled through a Dispatcher so they always run on one goroutine, no
// matter which goroutine asked for them.
package ui

import "sync"

// defaultQueueSize is the Dispatcher buffer used when none is given.
const defaultQueueSize = 16

// Dispatcher runs posted functions one at a time, in order, on a single
// goroutine.
type Dispatcher struct {
	mu     sync.Mutex
	closed bool
	queue  chan func()
	done   chan struct{}
}

// NewDispatcher starts a dispatcher goroutine. size is the queue buffer; zero
// or negative uses a default.
func NewDispatcher(size int) *Dispatcher {
	if size <= 0 {
		size = defaultQueueSize
	}
	d := &Dispatcher{
		queue: make(chan func(), size),
		done:  make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for fn := range d.queue {
		fn()
	}
}

// Post queues fn. It reports false when the dispatcher is closed, in which
// case fn never runs.
func (d *Dispatcher) Post(fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.queue <- fn
	return true
}

// Flush blocks until every function posted before the call has run.
func (d *Dispatcher) Flush() {
	ran := make(chan struct{})
	if !d.Post(func() { close(ran) }) {
		return
	}
	<-ran
}

// Close runs the functions still queued and stops the dispatcher goroutine.
// It is safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}
