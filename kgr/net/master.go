package net

import (
	"fmt"
	"sync"
	"time"

	"github.com/sloked-project/sloked/cmn"
	"github.com/sloked-project/sloked/cmn/config"
	"github.com/sloked-project/sloked/cmn/nlog"
	"github.com/sloked-project/sloked/core"
	"github.com/sloked-project/sloked/kgr"
	slokednet "github.com/sloked-project/sloked/net"
	"github.com/sloked-project/sloked/sched"
)

// NamedServer is the subset of kgr.NamedServer the master context drives:
// connect/register/deregister services by path, satisfied structurally by
// *kgr.NamedServer.
type NamedServer interface {
	Connect(name core.Path) sched.Result[*kgr.Pipe, error]
	Register(name core.Path, service kgr.Service) sched.Result[struct{}, error]
	Registered(name core.Path) sched.Result[bool, error]
	Deregister(name core.Path) sched.Result[struct{}, error]
}

// MasterServer accepts connections and runs one masterContext per
// connection. Each connection is its own goroutine driving Conn.Run; the
// dispatch/read loop simply blocks.
type MasterServer struct {
	listener    ServerSocket
	server      NamedServer
	access      AccessControl
	authFactory AuthenticatorFactory
	executor    sched.Executor
	scheduler   sched.Scheduler

	mu    sync.Mutex
	conns map[*masterContext]struct{}
}

// ServerSocket is the accept side of a message-oriented listener, satisfied
// by wrapping a *slokednet.CryptoServerSocket with CryptoListener.
type ServerSocket interface {
	Accept() (MessageSocket, error)
	Close() error
}

// CryptoListener adapts *slokednet.CryptoServerSocket (which accepts
// concrete *CryptoSockets) to the ServerSocket interface.
type CryptoListener struct {
	*slokednet.CryptoServerSocket
}

func (l CryptoListener) Accept() (MessageSocket, error) {
	return l.CryptoServerSocket.Accept()
}

func NewMasterServer(listener ServerSocket, server NamedServer, access AccessControl, authFactory AuthenticatorFactory, executor sched.Executor, scheduler sched.Scheduler) *MasterServer {
	if access == nil {
		access = AllowAll
	}
	return &MasterServer{
		listener:    listener,
		server:      server,
		access:      access,
		authFactory: authFactory,
		executor:    executor,
		scheduler:   scheduler,
		conns:       map[*masterContext]struct{}{},
	}
}

// Serve accepts connections until the listener errs or closes, running
// each on its own goroutine.
func (m *MasterServer) Serve() error {
	for {
		socket, err := m.listener.Accept()
		if err != nil {
			return err
		}
		m.handle(socket)
	}
}

func (m *MasterServer) handle(socket MessageSocket) {
	conn := NewConn(socket, m.executor)
	ctx := newMasterContext(conn, m.server, m.access, m.authFactory, m.scheduler)
	m.mu.Lock()
	m.conns[ctx] = struct{}{}
	m.mu.Unlock()
	go func() {
		conn.Run()
		ctx.teardown()
		m.mu.Lock()
		delete(m.conns, ctx)
		m.mu.Unlock()
	}()
}

// AttachMaster binds the master-side method table onto an already-
// established conn and starts its read loop on a new goroutine, for
// callers that manage their own connection lifecycle (tests, or a listener
// that wants more control than MasterServer.Serve's accept loop gives it).
// The connection's pipes and timers are torn down once conn.Run exits.
func AttachMaster(conn *Conn, server NamedServer, access AccessControl, authFactory AuthenticatorFactory, scheduler sched.Scheduler) {
	ctx := newMasterContext(conn, server, access, authFactory, scheduler)
	go func() {
		conn.Run()
		ctx.teardown()
	}()
}

func (m *MasterServer) Close() error {
	m.mu.Lock()
	conns := make([]*masterContext, 0, len(m.conns))
	for ctx := range m.conns {
		conns = append(conns, ctx)
	}
	m.mu.Unlock()
	for _, ctx := range conns {
		ctx.conn.Close()
	}
	return m.listener.Close()
}

// masterContext is one accepted connection's state: pipes opened via
// "connect", pipes frozen awaiting "activate", and services this peer has
// bound remotely via "bind".
type masterContext struct {
	conn        *Conn
	server      NamedServer
	access      AccessControl
	authFactory AuthenticatorFactory
	auth        MasterAuthenticator

	mu             sync.Mutex
	pipes          map[int64]*kgr.Pipe
	frozen         map[int64]bool
	nextPipeID     int64
	remoteServices map[string]struct{}

	scheduler *sched.ScopedScheduler
	ping      sched.TimerTask
	mark      time.Time

	// idleThreshold is how long the connection may sit without traffic
	// before a liveness ping goes out; pingTimeout bounds the wait for its
	// reply. Snapshotted from the global config at context creation.
	idleThreshold time.Duration
	pingTimeout   time.Duration
}

func newMasterContext(conn *Conn, server NamedServer, access AccessControl, authFactory AuthenticatorFactory, scheduler sched.Scheduler) *masterContext {
	if access == nil {
		access = AllowAll
	}
	cfg := config.GCO.Get()
	ctx := &masterContext{
		conn:           conn,
		server:         server,
		access:         access,
		authFactory:    authFactory,
		pipes:          map[int64]*kgr.Pipe{},
		frozen:         map[int64]bool{},
		remoteServices: map[string]struct{}{},
		mark:           time.Now(),
		idleThreshold:  cfg.InactivityTimeout,
		pingTimeout:    cfg.InactivityThreshold,
	}
	if scheduler != nil {
		ctx.scheduler = sched.NewScopedScheduler(scheduler)
		ctx.ping = ctx.scheduler.Interval(ctx.idleThreshold, ctx.checkInactivity)
	}
	ctx.bindMethods()
	return ctx
}

func (m *masterContext) bindMethods() {
	m.conn.BindMethod("connect", m.handleConnect)
	m.conn.BindMethod("activate", m.handleActivate)
	m.conn.BindMethod("send", m.handleSend)
	m.conn.BindMethod("close", m.handleClose)
	m.conn.BindMethod("bind", m.handleBind)
	m.conn.BindMethod("bound", m.handleBound)
	m.conn.BindMethod("unbind", m.handleUnbind)
	m.conn.BindMethod("ping", func(Value) (Value, error) {
		m.touch()
		return "pong", nil
	})
	m.conn.BindMethod("auth-request", m.handleAuthRequest)
	m.conn.BindMethod("auth-response", m.handleAuthResponse)
}

func (m *masterContext) touch() {
	m.mu.Lock()
	m.mark = time.Now()
	m.mu.Unlock()
}

func (m *masterContext) checkInactivity() {
	m.mu.Lock()
	idle := time.Since(m.mark)
	m.mu.Unlock()
	if idle < m.idleThreshold {
		return
	}
	result := m.conn.Invoke("ping", nil)
	go func() {
		if result.WaitFor(m.pingTimeout) != sched.Ready {
			nlog.Warningf("kgr/net: peer idle %v and unresponsive to ping, disconnecting", idle.Round(time.Second))
			m.conn.Close()
		} else {
			m.touch()
		}
	}()
}

func (m *masterContext) teardown() {
	if m.scheduler != nil {
		m.scheduler.Close()
	}
	m.mu.Lock()
	services := make([]string, 0, len(m.remoteServices))
	for svc := range m.remoteServices {
		services = append(services, svc)
	}
	pipes := make([]*kgr.Pipe, 0, len(m.pipes))
	for _, p := range m.pipes {
		pipes = append(pipes, p)
	}
	m.mu.Unlock()
	if len(services) > 0 {
		nlog.Infof("kgr/net: connection closed, detaching %d slave-bound service(s)", len(services))
	}
	for _, svc := range services {
		m.server.Deregister(core.NewPath(svc))
	}
	for _, p := range pipes {
		p.Close()
	}
}

func (m *masterContext) handleConnect(params Value) (Value, error) {
	m.touch()
	service := asString(params)
	if !m.access.IsAccessAllowed(service) {
		return nil, cmn.Wrap(cmn.ErrRestricted, fmt.Sprintf("kgr/net: connect %q", service))
	}
	result := m.server.Connect(core.NewPath(service))
	result.Wait()
	if result.State() != sched.Ready {
		return nil, cmn.Wrap(cmn.ErrUnknownService, fmt.Sprintf("kgr/net: connect %q", service))
	}
	pipe := result.GetResult()
	m.mu.Lock()
	id := m.nextPipeID
	m.nextPipeID++
	m.pipes[id] = pipe
	m.frozen[id] = true
	m.mu.Unlock()
	pipe.SetListener(func() { m.drain(id, id) })
	return float64(id), nil
}

func (m *masterContext) handleActivate(params Value) (Value, error) {
	m.touch()
	id := asInt64(params)
	m.mu.Lock()
	_, wasFrozen := m.frozen[id]
	delete(m.frozen, id)
	m.mu.Unlock()
	if wasFrozen {
		m.drain(id, id)
	}
	return nil, nil
}

func (m *masterContext) handleSend(params Value) (Value, error) {
	m.touch()
	dict := asDict(params)
	id := asInt64(dict["pipe"])
	m.mu.Lock()
	pipe, ok := m.pipes[id]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := pipe.Write(dict["data"]); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *masterContext) handleClose(params Value) (Value, error) {
	m.touch()
	id := asInt64(params)
	m.mu.Lock()
	pipe, ok := m.pipes[id]
	delete(m.pipes, id)
	delete(m.frozen, id)
	m.mu.Unlock()
	if ok {
		pipe.Close()
	}
	return nil, nil
}

func (m *masterContext) handleBind(params Value) (Value, error) {
	m.touch()
	service := asString(params)
	if !m.access.IsModificationAllowed(service) {
		return nil, cmn.Wrap(cmn.ErrRestricted, fmt.Sprintf("kgr/net: bind %q", service))
	}
	path := core.NewPath(service)
	registered := m.server.Registered(path)
	registered.Wait()
	if registered.State() == sched.Ready && registered.GetResult() {
		return false, nil
	}
	result := m.server.Register(path, &slaveService{ctx: m, service: service})
	result.Wait()
	if result.State() != sched.Ready {
		return nil, cmn.Wrap(cmn.ErrIO, fmt.Sprintf("kgr/net: bind %q", service))
	}
	m.mu.Lock()
	m.remoteServices[service] = struct{}{}
	m.mu.Unlock()
	nlog.Infof("kgr/net: peer bound service %q", service)
	return true, nil
}

func (m *masterContext) handleBound(params Value) (Value, error) {
	m.touch()
	service := asString(params)
	if !m.access.IsAccessAllowed(service) && !m.access.IsModificationAllowed(service) {
		return false, nil
	}
	registered := m.server.Registered(core.NewPath(service))
	registered.Wait()
	return registered.State() == sched.Ready && registered.GetResult(), nil
}

func (m *masterContext) handleUnbind(params Value) (Value, error) {
	m.touch()
	service := asString(params)
	if !m.access.IsModificationAllowed(service) {
		return nil, cmn.Wrap(cmn.ErrRestricted, fmt.Sprintf("kgr/net: unbind %q", service))
	}
	m.mu.Lock()
	_, ok := m.remoteServices[service]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	m.server.Deregister(core.NewPath(service))
	m.mu.Lock()
	delete(m.remoteServices, service)
	m.mu.Unlock()
	return true, nil
}

func (m *masterContext) handleAuthRequest(params Value) (Value, error) {
	if m.authFactory == nil {
		return nil, cmn.Wrap(cmn.ErrNotAuthenticated, "kgr/net: authentication not configured")
	}
	if m.auth == nil {
		m.auth = m.authFactory.NewMaster()
	}
	id, nonce := m.auth.InitiateLogin()
	return Dict(map[string]Value{"id": id, "nonce": nonce}), nil
}

func (m *masterContext) handleAuthResponse(params Value) (Value, error) {
	if m.auth == nil {
		return nil, cmn.Wrap(cmn.ErrNotAuthenticated, "kgr/net: no login in progress")
	}
	dict := asDict(params)
	id := asString(dict["id"])
	response := asString(dict["response"])
	ok := m.auth.ContinueLogin(id, response)
	if ok {
		m.auth.FinalizeLogin(id)
	} else {
		nlog.Warningf("kgr/net: failed login attempt for account %q", id)
	}
	return ok, nil
}

// drain flushes every message currently queued on the local pipe stored
// under localID out as "send" invocations tagged with wireID. Shared by
// the connect listener, the activate handler, and slaveService.
func (m *masterContext) drain(localID, wireID int64) {
	m.mu.Lock()
	pipe, ok := m.pipes[localID]
	if !ok || m.frozen[localID] {
		m.mu.Unlock()
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
		delete(m.pipes, localID)
		delete(m.frozen, localID)
	}
	m.mu.Unlock()
	for _, v := range batch {
		m.conn.Invoke("send", Dict(map[string]Value{"pipe": wireID, "data": v}))
	}
	if closed {
		m.conn.Invoke("close", wireID)
	}
}

// slaveService tunnels Attach back over the wire to the peer's bound
// service.
type slaveService struct {
	ctx     *masterContext
	service string
}

func (s *slaveService) Attach(pipe *kgr.Pipe) sched.Result[struct{}, error] {
	supplier := sched.NewSupplier[struct{}, error]()
	m := s.ctx
	m.mu.Lock()
	localID := m.nextPipeID
	m.nextPipeID++
	m.pipes[localID] = pipe
	m.mu.Unlock()
	result := m.conn.Invoke("connect", s.service)
	go func() {
		result.Wait()
		if result.State() != sched.Ready {
			m.mu.Lock()
			delete(m.pipes, localID)
			m.mu.Unlock()
			supplier.SetError(cmn.Wrap(cmn.ErrIO, fmt.Sprintf("kgr/net: tunnel connect %q", s.service)))
			return
		}
		remoteID := asInt64(result.GetResult())
		pipe.SetListener(func() { m.drain(localID, remoteID) })
		activate := m.conn.Invoke("activate", float64(remoteID))
		activate.Wait()
		m.drain(localID, remoteID)
		supplier.SetResult(struct{}{})
	}()
	return supplier.Result()
}
