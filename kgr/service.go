package kgr

import "github.com/sloked-project/sloked/sched"

// Service accepts a Pipe and speaks a free-form protocol over it. Attach
// resolves once the service has taken ownership of pipe, or rejects/
// cancels to refuse the connection.
type Service interface {
	Attach(pipe *Pipe) sched.Result[struct{}, error]
}

// Connector lazily opens a connection to a fixed target, the way
// LocalServer.GetConnector/NamedServer.GetConnector close over a
// service id or name.
type Connector func() sched.Result[*Pipe, error]

// Server is the registry contract shared by LocalServer and (eventually)
// any remote-proxying server: register/connect/deregister services by id.
type Server interface {
	Connect(id ServiceId) sched.Result[*Pipe, error]
	GetConnector(id ServiceId) Connector
	Register(service Service) sched.Result[ServiceId, error]
	RegisterAt(id ServiceId, service Service) sched.Result[struct{}, error]
	Registered(id ServiceId) sched.Result[bool, error]
	Deregister(id ServiceId) sched.Result[struct{}, error]
}
