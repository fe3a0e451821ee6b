package kgr

import (
	"fmt"
	"sync"

	"github.com/sloked-project/sloked/cmn"
	"github.com/sloked-project/sloked/core"
	"github.com/sloked-project/sloked/sched"
)

// NamedServer is a Path -> ServiceId map mirrored onto an underlying
// Server. Paths are normalised absolute before every lookup.
type NamedServer struct {
	mu       sync.Mutex
	server   Server
	names    map[string]ServiceId
	lifetime *sched.Lifetime
}

func NewNamedServer(server Server) *NamedServer {
	return &NamedServer{
		server:   server,
		names:    map[string]ServiceId{},
		lifetime: sched.NewLifetime(),
	}
}

func (s *NamedServer) Close() { s.lifetime.Close() }

func (s *NamedServer) resolve(name core.Path) core.Path {
	if name.IsAbsolute() {
		return name
	}
	return name.RelativeTo(core.Root())
}

func (s *NamedServer) Connect(name core.Path) sched.Result[*Pipe, error] {
	abs := s.resolve(name)
	s.mu.Lock()
	id, ok := s.names[abs.Key()]
	s.mu.Unlock()
	if !ok {
		return sched.Reject[*Pipe, error](
			cmn.Wrap(cmn.ErrUnknownService, fmt.Sprintf("kgr: name %q", abs.String())))
	}
	return s.server.Connect(id)
}

func (s *NamedServer) GetConnector(name core.Path) Connector {
	return func() sched.Result[*Pipe, error] { return s.Connect(name) }
}

// Register registers service under name with the underlying server and
// records the resulting id, rejecting if name is already taken.
func (s *NamedServer) Register(name core.Path, service Service) sched.Result[struct{}, error] {
	abs := s.resolve(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.names[abs.Key()]; ok {
		return sched.Reject[struct{}, error](
			cmn.Wrap(cmn.ErrNameExists, fmt.Sprintf("kgr: name %q", abs.String())))
	}
	registered := s.server.Register(service)
	pipeline := sched.Then(
		sched.FromResult(registered),
		sched.Map[ServiceId, error](func(id ServiceId) struct{} {
			s.names[abs.Key()] = id
			return struct{}{}
		}),
	)
	return pipeline.Run(s.lifetime)
}

func (s *NamedServer) Registered(name core.Path) sched.Result[bool, error] {
	abs := s.resolve(name)
	s.mu.Lock()
	_, ok := s.names[abs.Key()]
	s.mu.Unlock()
	return sched.Resolve[bool, error](ok)
}

// Deregister drops name both from the underlying server and this server's
// own mapping.
func (s *NamedServer) Deregister(name core.Path) sched.Result[struct{}, error] {
	abs := s.resolve(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.names[abs.Key()]
	if !ok {
		return sched.Reject[struct{}, error](
			cmn.Wrap(cmn.ErrUnknownService, fmt.Sprintf("kgr: name %q", abs.String())))
	}
	deregistered := s.server.Deregister(id)
	pipeline := sched.Then(
		sched.FromResult(deregistered),
		sched.Map[struct{}, error](func(struct{}) struct{} {
			delete(s.names, abs.Key())
			return struct{}{}
		}),
	)
	return pipeline.Run(s.lifetime)
}
