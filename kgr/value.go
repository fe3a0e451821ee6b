// Package kgr implements the in-process service broker: named FIFO pipes,
// a Service contract built around them, and the LocalServer/NamedServer
// registries that connect callers to services by numeric id or path.
package kgr

// Value is a free-form message exchanged over a Pipe. kgr/net wires a
// jsoniter-based dynamic sum type over this same alias when framing pipe
// traffic onto the wire.
type Value = interface{}
