package net

import (
	"sync"
	"time"

	"github.com/sloked-project/sloked/cmn"
	"github.com/sloked-project/sloked/cmn/atomic"
	"github.com/sloked-project/sloked/cmn/metrics"
	"github.com/sloked-project/sloked/sched"
)

// MessageSocket is the minimal message-oriented transport Conn needs --
// satisfied by *net.CryptoSocket, accepted as an interface so tests can
// swap in an in-memory fake instead of a real socket.
type MessageSocket interface {
	ReadMessage() ([]byte, error)
	WriteMessage([]byte) error
	Close() error
}

// MethodHandler answers one bound RPC method invocation.
type MethodHandler func(params Value) (Value, error)

// Conn is a bidirectional RPC channel over a MessageSocket, binding named
// methods and invoking the peer's. Every bound method runs on workers, so
// a slow handler never stalls the read loop.
type Conn struct {
	socket  MessageSocket
	workers *sched.ScopedExecutor
	nextID  atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]sched.Supplier[Value, error]
	methods map[string]MethodHandler
	closed  bool
}

func NewConn(socket MessageSocket, executor sched.Executor) *Conn {
	return &Conn{
		socket:  socket,
		workers: sched.NewScopedExecutor(executor),
		pending: map[uint64]sched.Supplier[Value, error]{},
		methods: map[string]MethodHandler{},
	}
}

// BindMethod registers handler under name, replacing any prior binding.
func (c *Conn) BindMethod(name string, handler MethodHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods[name] = handler
}

// Invoke calls method on the peer, resolving once its response arrives.
func (c *Conn) Invoke(method string, params Value) sched.Result[Value, error] {
	supplier := sched.NewSupplier[Value, error]()
	id := c.nextID.Add(1) - 1
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		supplier.SetError(cmn.Wrap(cmn.ErrClosed, "kgr/net: connection closed"))
		return supplier.Result()
	}
	c.pending[id] = supplier
	c.mu.Unlock()

	encoded, err := encodeEnvelope(envelope{Kind: kindRequest, ID: id, Method: method, Params: params})
	if err != nil {
		c.failPending(id, err)
		return supplier.Result()
	}
	if err := c.socket.WriteMessage(encoded); err != nil {
		c.failPending(id, err)
	}
	return supplier.Result()
}

func (c *Conn) failPending(id uint64, err error) {
	c.mu.Lock()
	supplier, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if ok {
		supplier.SetError(err)
	}
}

// Run drives the read loop until the socket errs or Close is called;
// callers typically run it on its own goroutine per accepted connection.
func (c *Conn) Run() {
	for {
		data, err := c.socket.ReadMessage()
		if err != nil {
			c.shutdown(err)
			return
		}
		env, err := decodeEnvelope(data)
		if err != nil {
			metrics.FrameErrors.WithLabelValues("envelope").Inc()
			continue
		}
		switch env.Kind {
		case kindResponse:
			c.mu.Lock()
			supplier, ok := c.pending[env.ID]
			delete(c.pending, env.ID)
			c.mu.Unlock()
			if !ok {
				continue
			}
			if env.Error != "" {
				supplier.SetError(cmn.Wrap(cmn.ErrIO, env.Error))
			} else {
				supplier.SetResult(env.Result)
			}
		case kindRequest:
			c.dispatch(env)
		}
	}
}

func (c *Conn) dispatch(env envelope) {
	c.mu.Lock()
	handler, ok := c.methods[env.Method]
	c.mu.Unlock()
	c.workers.Enqueue(func() {
		var result Value
		var errStr string
		if !ok {
			errStr = "kgr/net: unknown method " + env.Method
			metrics.RPCCalls.WithLabelValues(env.Method, "unknown").Inc()
		} else {
			var err error
			start := time.Now()
			result, err = handler(env.Params)
			metrics.RPCLatency.WithLabelValues(env.Method).Observe(time.Since(start).Seconds())
			if err != nil {
				errStr = err.Error()
				metrics.RPCCalls.WithLabelValues(env.Method, "error").Inc()
			} else {
				metrics.RPCCalls.WithLabelValues(env.Method, "ok").Inc()
			}
		}
		encoded, err := encodeEnvelope(envelope{Kind: kindResponse, ID: env.ID, Result: result, Error: errStr})
		if err != nil {
			return
		}
		c.socket.WriteMessage(encoded)
	})
}

func (c *Conn) shutdown(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = map[uint64]sched.Supplier[Value, error]{}
	c.mu.Unlock()
	for _, supplier := range pending {
		supplier.SetError(cmn.Wrap(cmn.ErrClosed, cause.Error()))
	}
	c.workers.Close()
}

func (c *Conn) Close() error {
	err := c.socket.Close()
	c.shutdown(cmn.ErrClosed)
	return err
}
