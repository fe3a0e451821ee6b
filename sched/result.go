package sched

import (
	"sync"
	"time"

	"github.com/sloked-project/sloked/cmn"
)

// Status is a task result's lifecycle state.
type Status int

const (
	Pending Status = iota
	Ready
	Failed
	Cancelled
)

type resultImpl[R, E any] struct {
	mu        sync.Mutex
	cond      *sync.Cond
	state     Status
	result    R
	err       E
	nextID    int
	listeners map[int]func(Result[R, E])
}

// Result is a read-only, cheaply-copyable handle onto a shared async
// outcome. The zero value is not usable; obtain one from a Supplier.
type Result[R, E any] struct {
	impl *resultImpl[R, E]
}

// State returns the result's current status.
func (r Result[R, E]) State() Status {
	r.impl.mu.Lock()
	defer r.impl.mu.Unlock()
	return r.impl.state
}

// GetResult returns the value, valid only when State() == Ready.
func (r Result[R, E]) GetResult() R {
	r.impl.mu.Lock()
	defer r.impl.mu.Unlock()
	return r.impl.result
}

// GetError returns the error, valid only when State() == Failed.
func (r Result[R, E]) GetError() E {
	r.impl.mu.Lock()
	defer r.impl.mu.Unlock()
	return r.impl.err
}

// Wait blocks until the result leaves Pending.
func (r Result[R, E]) Wait() Status {
	r.impl.mu.Lock()
	defer r.impl.mu.Unlock()
	for r.impl.state == Pending {
		r.impl.cond.Wait()
	}
	return r.impl.state
}

// WaitFor blocks until the result leaves Pending or d elapses. A Pending
// return means the wait timed out.
func (r Result[R, E]) WaitFor(d time.Duration) Status {
	return r.WaitUntil(time.Now().Add(d))
}

// WaitUntil is WaitFor against an absolute deadline.
func (r Result[R, E]) WaitUntil(deadline time.Time) Status {
	r.impl.mu.Lock()
	defer r.impl.mu.Unlock()
	for r.impl.state == Pending {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Pending
		}
		timer := time.AfterFunc(remaining, func() {
			r.impl.mu.Lock()
			r.impl.cond.Broadcast()
			r.impl.mu.Unlock()
		})
		r.impl.cond.Wait()
		timer.Stop()
	}
	return r.impl.state
}

// Listener observes a Result's eventual state.
type Listener[R, E any] func(Result[R, E])

// Notify registers listener to fire once the result settles, scoped to
// lifetime (defaulting to Global): the callback only runs if lifetime can
// still hand out a Token at delivery time. Returns a detach function, a
// no-op once the result has already settled (the callback already ran
// inline in that case).
func (r Result[R, E]) Notify(listener Listener[R, E], lifetime *Lifetime) func() {
	if lifetime == nil {
		lifetime = Global
	}
	r.impl.mu.Lock()
	if r.impl.state == Pending {
		id := r.impl.nextID
		r.impl.nextID++
		r.impl.listeners[id] = func(res Result[R, E]) {
			if token, ok := lifetime.Acquire(); ok {
				defer token.Release()
				listener(res)
			}
		}
		r.impl.mu.Unlock()
		return func() {
			r.impl.mu.Lock()
			defer r.impl.mu.Unlock()
			delete(r.impl.listeners, id)
		}
	}
	r.impl.mu.Unlock()
	if token, ok := lifetime.Acquire(); ok {
		defer token.Release()
		listener(r)
	}
	return func() {}
}

// Supplier is the single-writer side of a Result.
type Supplier[R, E any] struct {
	impl *resultImpl[R, E]
}

func NewSupplier[R, E any]() Supplier[R, E] {
	impl := &resultImpl[R, E]{listeners: map[int]func(Result[R, E]){}}
	impl.cond = sync.NewCond(&impl.mu)
	return Supplier[R, E]{impl: impl}
}

// Result returns the read-only handle backed by this supplier.
func (s Supplier[R, E]) Result() Result[R, E] { return Result[R, E]{impl: s.impl} }

func (s Supplier[R, E]) settle(state Status, set func()) {
	s.impl.mu.Lock()
	if s.impl.state != Pending {
		s.impl.mu.Unlock()
		panic("sched: result is no longer pending")
	}
	set()
	s.impl.state = state
	s.impl.cond.Broadcast()
	callbacks := make([]func(Result[R, E]), 0, len(s.impl.listeners))
	for _, cb := range s.impl.listeners {
		callbacks = append(callbacks, cb)
	}
	s.impl.listeners = map[int]func(Result[R, E]){}
	s.impl.mu.Unlock()

	res := Result[R, E]{impl: s.impl}
	for _, cb := range callbacks {
		cb(res)
	}
}

func (s Supplier[R, E]) SetResult(r R) { s.settle(Ready, func() { s.impl.result = r }) }
func (s Supplier[R, E]) SetError(e E)  { s.settle(Failed, func() { s.impl.err = e }) }
func (s Supplier[R, E]) Cancel()       { s.settle(Cancelled, func() {}) }

// Resolve builds an already-Ready Result.
func Resolve[R, E any](r R) Result[R, E] {
	s := NewSupplier[R, E]()
	s.SetResult(r)
	return s.Result()
}

// Reject builds an already-Failed Result.
func Reject[R, E any](e E) Result[R, E] {
	s := NewSupplier[R, E]()
	s.SetError(e)
	return s.Result()
}

// CancelResult builds an already-Cancelled Result.
func CancelResult[R, E any]() Result[R, E] {
	s := NewSupplier[R, E]()
	s.Cancel()
	return s.Result()
}

// CancelledError is the error kind raised when Unwrap is called on a
// cancelled Result.
var CancelledError = cmn.ErrCancelled
