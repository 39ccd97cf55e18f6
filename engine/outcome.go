package engine

import (
	"context"
	"sync"
	"sync/atomic"
)

// State is the settlement state of an Outcome.
type State int32

const (
	Pending State = iota
	Fulfilled
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is a single-assignment result shared between the engine loop and
// the caller that registered an expectation or timeout.
//
// An outcome settles exactly once, either fulfilled with a value or
// cancelled with a *CancelError. Later settlement attempts are ignored.
type Outcome[T any] struct {
	once  sync.Once
	done  chan struct{}
	state atomic.Int32

	// Written once before done is closed.
	value T
	err   error

	cancel func()
}

func newOutcome[T any](cancel func()) *Outcome[T] {
	return &Outcome[T]{
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// fulfil settles the outcome with v. Reports whether this call settled it.
func (o *Outcome[T]) fulfil(v T) bool {
	settled := false
	o.once.Do(func() {
		o.value = v
		o.state.Store(int32(Fulfilled))
		close(o.done)
		settled = true
	})
	return settled
}

// reject settles the outcome as cancelled. Reports whether this call settled it.
func (o *Outcome[T]) reject(err error) bool {
	settled := false
	o.once.Do(func() {
		o.err = err
		o.state.Store(int32(Cancelled))
		close(o.done)
		settled = true
	})
	return settled
}

// Done returns a channel closed once the outcome is settled.
func (o *Outcome[T]) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the outcome settles or ctx is done.
// A ctx error leaves the outcome pending; use Cancel to withdraw it.
func (o *Outcome[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-o.done:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the settled value and error without blocking.
// It returns ErrPending while the outcome is unsettled.
func (o *Outcome[T]) Result() (T, error) {
	select {
	case <-o.done:
		return o.value, o.err
	default:
		var zero T
		return zero, ErrPending
	}
}

// State reports the current settlement state.
func (o *Outcome[T]) State() State {
	return State(o.state.Load())
}

// Cancel asks the engine to withdraw the expectation (or disarm the
// timeout) behind this outcome. Cancellation is asynchronous: the outcome
// settles with ErrCancelled once the engine processes the request, unless
// it settled some other way first.
func (o *Outcome[T]) Cancel() {
	if o.cancel != nil && o.State() == Pending {
		o.cancel()
	}
}
