package net

import (
	"fmt"
	"sync"

	"github.com/sloked-project/sloked/cmn"
	"github.com/sloked-project/sloked/cmn/config"
	"github.com/sloked-project/sloked/core"
	"github.com/sloked-project/sloked/kgr"
	"github.com/sloked-project/sloked/sched"
)

// SlaveServer is the peer side of a master connection: it answers incoming
// "connect" requests against a local NamedServer and can ask the master to
// bind/unbind services on its behalf. Conn.Run drives one dispatch loop
// per connection as a plain goroutine.
type SlaveServer struct {
	conn   *Conn
	server NamedServer

	mu    sync.Mutex
	pipes map[int64]*kgr.Pipe
}

// NewSlaveServer wires conn's "connect"/"send"/"close" methods to server,
// so the master can open pipes into whatever local services server exposes
// by name.
func NewSlaveServer(conn *Conn, server NamedServer) *SlaveServer {
	s := &SlaveServer{conn: conn, server: server, pipes: map[int64]*kgr.Pipe{}}
	conn.BindMethod("connect", s.handleConnect)
	conn.BindMethod("send", s.handleSend)
	conn.BindMethod("close", s.handleClose)
	conn.BindMethod("ping", func(Value) (Value, error) { return "pong", nil })
	return s
}

func (s *SlaveServer) handleConnect(params Value) (Value, error) {
	service := asString(params)
	result := s.server.Connect(core.NewPath(service))
	result.Wait()
	if result.State() != sched.Ready {
		return nil, cmn.Wrap(cmn.ErrUnknownService, fmt.Sprintf("kgr/net: slave connect %q", service))
	}
	pipe := result.GetResult()
	s.mu.Lock()
	id := int64(len(s.pipes))
	for _, exists := s.pipes[id]; exists; _, exists = s.pipes[id] {
		id++
	}
	s.pipes[id] = pipe
	s.mu.Unlock()
	pipe.SetListener(func() { s.drain(id) })
	return float64(id), nil
}

func (s *SlaveServer) handleSend(params Value) (Value, error) {
	dict := asDict(params)
	id := asInt64(dict["pipe"])
	s.mu.Lock()
	pipe, ok := s.pipes[id]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := pipe.Write(dict["data"]); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *SlaveServer) handleClose(params Value) (Value, error) {
	id := asInt64(params)
	s.mu.Lock()
	pipe, ok := s.pipes[id]
	delete(s.pipes, id)
	s.mu.Unlock()
	if ok {
		pipe.Close()
	}
	return nil, nil
}

func (s *SlaveServer) drain(id int64) {
	s.mu.Lock()
	pipe, ok := s.pipes[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	var batch []Value
	for {
		v, more := pipe.TryRead()
		if !more {
			break
		}
		batch = append(batch, v)
	}
	closed := pipe.Status() == kgr.StatusClosed
	if closed {
		s.mu.Lock()
		delete(s.pipes, id)
		s.mu.Unlock()
	}
	for _, v := range batch {
		s.conn.Invoke("send", Dict(map[string]Value{"pipe": id, "data": v}))
	}
	if closed {
		s.conn.Invoke("close", float64(id))
	}
}

// Bind asks the master to register name against services reachable through
// this slave connection -- the master, on an incoming "connect" for name,
// tunnels back to this side's handleConnect.
func (s *SlaveServer) Bind(name string) sched.Result[bool, error] {
	return s.invokeBool("bind", name)
}

// Unbind reverses Bind.
func (s *SlaveServer) Unbind(name string) sched.Result[bool, error] {
	return s.invokeBool("unbind", name)
}

// invokeBool issues a bool-valued RPC bounded by the configured response
// timeout.
func (s *SlaveServer) invokeBool(method, name string) sched.Result[bool, error] {
	result := s.conn.Invoke(method, name)
	supplier := sched.NewSupplier[bool, error]()
	timeout := config.GCO.Get().ResponseTimeout
	go func() {
		switch result.WaitFor(timeout) {
		case sched.Ready:
			ok, _ := result.GetResult().(bool)
			supplier.SetResult(ok)
		case sched.Pending:
			supplier.SetError(cmn.Wrap(cmn.ErrTimeout, fmt.Sprintf("kgr/net: %s %q", method, name)))
		default:
			supplier.SetError(cmn.Wrap(cmn.ErrIO, fmt.Sprintf("kgr/net: %s %q", method, name)))
		}
	}()
	return supplier.Result()
}
