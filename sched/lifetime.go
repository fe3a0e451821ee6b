// Package sched implements the async task-result/pipeline runtime and the
// scope-bound executor/scheduler/lifetime wrappers.
package sched

import "sync"

// Token is held by code that is actively using a Lifetime; releasing it
// (via Token.Release) lets a pending Lifetime.Close return.
type Token struct {
	lifetime *Lifetime
	once     sync.Once
}

// Release detaches the token from its lifetime. Safe to call more than
// once.
func (t *Token) Release() {
	t.once.Do(func() {
		t.lifetime.release()
	})
}

// Lifetime is a scope that tracks outstanding Tokens and blocks Close
// until every token has been released, so a listener callback registered
// against it can never fire after the scope that owns it has torn down.
type Lifetime struct {
	mu     sync.Mutex
	cond   *sync.Cond
	active bool
	tokens int
}

func NewLifetime() *Lifetime {
	l := &Lifetime{active: true}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Global is the default lifetime used when callers don't scope a listener
// to anything narrower.
var Global = NewLifetime()

func (l *Lifetime) IsActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Acquire returns a Token if the lifetime is still active, or (nil, false)
// if it has already closed.
func (l *Lifetime) Acquire() (*Token, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.active {
		return nil, false
	}
	l.tokens++
	return &Token{lifetime: l}, true
}

func (l *Lifetime) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens--
	l.cond.Broadcast()
}

// Close deactivates the lifetime and blocks until every acquired token has
// been released.
func (l *Lifetime) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.active {
		return
	}
	l.active = false
	for l.tokens > 0 {
		l.cond.Wait()
	}
}
