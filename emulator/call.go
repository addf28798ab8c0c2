package emulator

import (
	"context"
	"sync"
)

// Call is the pending result of a queue operation. Every operation on a Queue
// returns immediately with a Call that is resolved, exactly once, after the
// simulated latency has elapsed on the queue's timeline.
type Call[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

func newCall[T any]() *Call[T] {
	return &Call[T]{done: make(chan struct{})}
}

// Done returns a channel that is closed once the call has resolved.
func (c *Call[T]) Done() <-chan struct{} {
	return c.done
}

// Result blocks until the call resolves and returns its outcome.
func (c *Call[T]) Result() (T, error) {
	<-c.done
	return c.value, c.err
}

// Wait is like Result but gives up when ctx is done, returning ctx.Err().
// Giving up does not cancel the operation.
func (c *Call[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-c.done:
		return c.value, c.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// resolve reports whether this invocation settled the call.
func (c *Call[T]) resolve(value T, err error) bool {
	settled := false
	c.once.Do(func() {
		c.value, c.err = value, err
		close(c.done)
		settled = true
	})
	return settled
}

func (c *Call[T]) abort(err error) {
	var zero T
	c.resolve(zero, err)
}

// aborter is the type-erased view of a pending Call the queue keeps so Close
// can fail everything still outstanding.
type aborter interface {
	abort(err error)
}
