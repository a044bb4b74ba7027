// Package listener hands events raised on the JS thread to Go callbacks
// running on their own goroutine.
//
// The JS thread must never block on user code, and user code must be free
// to call back into the SDK (which needs the JS thread). A Dispatcher keeps
// an unbounded queue between the two and delivers events one at a time in
// arrival order.
package listener

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Dispatcher delivers events of type T to a single callback.
type Dispatcher[T any] struct {
	fn     func(T)
	logger *zap.Logger

	mu     sync.Mutex
	queue  []T
	closed bool

	notify chan struct{}
	done   chan struct{}
}

// New starts a dispatcher for fn.
func New[T any](logger *zap.Logger, name string, fn func(T)) *Dispatcher[T] {
	d := &Dispatcher[T]{
		fn:     fn,
		logger: logger.With(zap.String("component", "listener"), zap.String("listener", name)),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Push queues ev. It never blocks. Events pushed after Close are dropped.
func (d *Dispatcher[T]) Push(ev T) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, ev)
	d.mu.Unlock()

	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// Close stops delivery. Queued events that have not started are dropped.
// Safe to call from inside the callback and more than once.
func (d *Dispatcher[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.queue = nil
	close(d.done)
}

// Done is closed once Close has been called.
func (d *Dispatcher[T]) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher[T]) run() {
	for {
		select {
		case <-d.done:
			return
		case <-d.notify:
		}

		for {
			ev, ok := d.next()
			if !ok {
				break
			}
			d.deliver(ev)
		}
	}
}

func (d *Dispatcher[T]) next() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var zero T
	if d.closed || len(d.queue) == 0 {
		return zero, false
	}
	ev := d.queue[0]
	d.queue[0] = zero
	d.queue = d.queue[1:]
	return ev, true
}

func (d *Dispatcher[T]) deliver(ev T) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("Listener callback panicked", zap.String("panic", fmt.Sprint(p)))
		}
	}()
	d.fn(ev)
}
