package kgr

import (
	"fmt"
	"sync"

	"github.com/sloked-project/sloked/cmn"
	"github.com/sloked-project/sloked/sched"
)

// LocalServer is an in-process registry of ServiceId -> Service. Every
// operation is serialised by a mutex and returns a Result rather than
// blocking. Register, RegisterAt, Registered and Deregister return a Result
// that is already settled; Connect's Result settles when the service's
// Attach does.
type LocalServer struct {
	mu       sync.Mutex
	services map[ServiceId]Service
	alloc    idAllocator
	lifetime *sched.Lifetime
}

var _ Server = (*LocalServer)(nil)

func NewLocalServer() *LocalServer {
	return &LocalServer{
		services: map[ServiceId]Service{},
		lifetime: sched.NewLifetime(),
	}
}

// Close tears down the server's lifetime, detaching any pipeline still
// in-flight on a Connect call.
func (s *LocalServer) Close() { s.lifetime.Close() }

// Connect forms a client/service pipe pair and hands the service end to the
// registered service's Attach; the client end resolves the returned Result
// unless the service cancels the attach.
func (s *LocalServer) Connect(id ServiceId) sched.Result[*Pipe, error] {
	s.mu.Lock()
	service, ok := s.services[id]
	s.mu.Unlock()
	if !ok {
		return sched.Reject[*Pipe, error](
			cmn.Wrap(cmn.ErrUnknownService, fmt.Sprintf("kgr: service #%d", id)))
	}

	clientPipe, servicePipe := NewPipePair()
	attach := service.Attach(servicePipe)
	pipeline := sched.Then(
		sched.Then(
			sched.FromResult(attach),
			sched.Map[struct{}, error](func(struct{}) *Pipe { return clientPipe }),
		),
		sched.MapCancelled[*Pipe, error](
			func() (*Pipe, error) {
				return nil, cmn.Wrap(cmn.ErrClosed, "kgr: service cancelled attach")
			},
			func(err error) error { return err },
		),
	)
	return pipeline.Run(s.lifetime)
}

func (s *LocalServer) GetConnector(id ServiceId) Connector {
	return func() sched.Result[*Pipe, error] { return s.Connect(id) }
}

// Register allocates a fresh ServiceId for service.
func (s *LocalServer) Register(service Service) sched.Result[ServiceId, error] {
	if service == nil {
		return sched.Reject[ServiceId, error](
			cmn.Wrap(cmn.ErrInvalidArgument, "kgr: service can't be nil"))
	}
	s.mu.Lock()
	id := s.alloc.Allocate()
	s.services[id] = service
	s.mu.Unlock()
	return sched.Resolve[ServiceId, error](id)
}

// RegisterAt registers service under an explicit id, failing if it is
// already allocated.
func (s *LocalServer) RegisterAt(id ServiceId, service Service) sched.Result[struct{}, error] {
	if service == nil {
		return sched.Reject[struct{}, error](
			cmn.Wrap(cmn.ErrInvalidArgument, "kgr: service can't be nil"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.services[id]; ok {
		return sched.Reject[struct{}, error](
			cmn.Wrap(cmn.ErrServiceExists, fmt.Sprintf("kgr: service #%d", id)))
	}
	s.alloc.Set(id, true)
	s.services[id] = service
	return sched.Resolve[struct{}, error](struct{}{})
}

func (s *LocalServer) Registered(id ServiceId) sched.Result[bool, error] {
	s.mu.Lock()
	_, ok := s.services[id]
	s.mu.Unlock()
	return sched.Resolve[bool, error](ok)
}

func (s *LocalServer) Deregister(id ServiceId) sched.Result[struct{}, error] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.services[id]; !ok {
		return sched.Reject[struct{}, error](
			cmn.Wrap(cmn.ErrUnknownService, fmt.Sprintf("kgr: service #%d", id)))
	}
	delete(s.services, id)
	s.alloc.Set(id, false)
	return sched.Resolve[struct{}, error](struct{}{})
}
