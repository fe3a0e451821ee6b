package kgr

import (
	"sync"

	"github.com/teris-io/shortid"

	"github.com/sloked-project/sloked/cmn"
)

// Status is a Pipe's lifecycle state.
type Status int

const (
	StatusOpen Status = iota
	StatusClosed
)

// Pipe is the local half of an RPC: a FIFO of Values with a listener
// callback fired on every incoming write.
// A Pipe is always one end of a connected pair built by NewPipePair; Write
// enqueues onto the peer's incoming queue, Read/TryRead drain this end's.
type Pipe struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []Value
	status   Status
	listener func()
	peer     *Pipe
	id       string
}

// NewPipePair builds a connected (clientPipe, servicePipe) pair: writes on
// one end surface as reads on the other.
func NewPipePair() (*Pipe, *Pipe) {
	a := &Pipe{status: StatusOpen}
	b := &Pipe{status: StatusOpen}
	a.cond = sync.NewCond(&a.mu)
	b.cond = sync.NewCond(&b.mu)
	a.peer, b.peer = b, a
	if id, err := shortid.Generate(); err == nil {
		a.id = id
	}
	if id, err := shortid.Generate(); err == nil {
		b.id = id
	}
	return a, b
}

// ID is a short display name for diagnostics/logging, not an identity used
// by any protocol.
func (p *Pipe) ID() string { return p.id }

// Write enqueues v onto the peer's incoming queue, failing if the peer has
// closed its end.
func (p *Pipe) Write(v Value) error {
	peer := p.peer
	peer.mu.Lock()
	if peer.status == StatusClosed {
		peer.mu.Unlock()
		return cmn.Wrap(cmn.ErrClosed, "kgr: pipe write after close")
	}
	peer.queue = append(peer.queue, v)
	listener := peer.listener
	peer.cond.Broadcast()
	peer.mu.Unlock()
	if listener != nil {
		listener()
	}
	return nil
}

// Read blocks until a message is available or the pipe closes.
func (p *Pipe) Read() (Value, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && p.status == StatusOpen {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return nil, cmn.Wrap(cmn.ErrClosed, "kgr: pipe read after close")
	}
	v := p.queue[0]
	p.queue = p.queue[1:]
	return v, nil
}

// TryRead returns the next message without blocking.
func (p *Pipe) TryRead() (Value, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return nil, false
	}
	v := p.queue[0]
	p.queue = p.queue[1:]
	return v, true
}

func (p *Pipe) Empty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue) == 0
}

func (p *Pipe) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *Pipe) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Close marks this end closed: further peer writes fail and blocked readers
// wake with an error once the queue drains.
func (p *Pipe) Close() {
	p.mu.Lock()
	if p.status == StatusClosed {
		p.mu.Unlock()
		return
	}
	p.status = StatusClosed
	p.cond.Broadcast()
	p.mu.Unlock()
}

// SetListener installs cb to be invoked (outside any Pipe lock) after every
// successful Write into this end.
func (p *Pipe) SetListener(cb func()) {
	p.mu.Lock()
	p.listener = cb
	p.mu.Unlock()
}
