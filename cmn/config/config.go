// Package config holds process-wide runtime options behind an atomically
// swapped snapshot, so readers never block and never observe a partial
// update.
package config

import (
	"sync/atomic"
	"time"
)

// Config is an immutable snapshot; updates swap the pointer held by the
// global owner rather than mutating fields in place, so readers never
// observe a half-updated config.
type Config struct {
	// Verbosity gates nlog.FastV-style debug logging.
	Verbosity int

	// KDFSalt is mixed into every security.Crypto.DeriveKey call when the
	// caller does not supply an explicit salt.
	KDFSalt string

	// ResponseTimeout bounds a single kgr/net RPC round trip.
	ResponseTimeout time.Duration

	// InactivityTimeout is how long a master/slave connection may sit idle
	// before a ping is sent.
	InactivityTimeout time.Duration

	// InactivityThreshold is how long an unanswered ping is tolerated
	// before the connection is dropped.
	InactivityThreshold time.Duration

	// MaxFrame bounds a single net.Frame payload.
	MaxFrame int
}

func defaults() *Config {
	return &Config{
		Verbosity:           0,
		KDFSalt:             "sloked",
		ResponseTimeout:     10 * time.Second,
		InactivityTimeout:   5 * time.Second,
		InactivityThreshold: 60 * time.Second,
		MaxFrame:            16 * 1024 * 1024,
	}
}

// owner is the global config owner. Editor and server binaries are
// expected to call Set once at startup; library code only ever reads
// through Get.
type owner struct {
	v atomic.Pointer[Config]
}

var GCO = &owner{}

func init() {
	GCO.v.Store(defaults())
}

func (o *owner) Get() *Config { return o.v.Load() }

func (o *owner) Set(c *Config) { o.v.Store(c) }

func (o *owner) Update(f func(*Config)) {
	cur := o.Get()
	next := *cur
	f(&next)
	o.v.Store(&next)
}
