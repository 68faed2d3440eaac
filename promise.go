package webdom

import "sync"

// Promise is a single-settle future. It represents one outstanding
// asynchronous operation: Resolve or Reject settles it exactly once,
// and any later settle attempt is a no-op. That makes it safe for a
// remote response and a local cancellation (unmap/destroy) to race for
// the same promise.
type Promise struct {
	mu      sync.Mutex
	done    chan struct{}
	settled bool
	value   any
	err     error
}

// NewPromise creates an unsettled promise.
func NewPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Resolve settles the promise with a value. No-op if already settled.
func (p *Promise) Resolve(value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		return
	}
	p.settled = true
	p.value = value
	close(p.done)
}

// Reject settles the promise with an error. No-op if already settled.
func (p *Promise) Reject(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		return
	}
	p.settled = true
	p.err = err
	close(p.done)
}

// Done returns a channel closed when the promise settles.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Settled reports whether the promise has been resolved or rejected.
func (p *Promise) Settled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settled
}

// Err returns the rejection error, or nil if the promise is unsettled
// or was resolved.
func (p *Promise) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Value returns the resolution value, or nil if the promise is
// unsettled or was rejected.
func (p *Promise) Value() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}
