// Package atomic wraps the standard typed atomic counters with the
// Inc/Dec/CAS convenience methods the rest of the codebase leans on.
package atomic

import "sync/atomic"

type Int32 struct{ v atomic.Int32 }

func (i *Int32) Load() int32 { return i.v.Load() }
func (i *Int32) Store(val int32) { i.v.Store(val) }
func (i *Int32) Add(delta int32) int32 { return i.v.Add(delta) }
func (i *Int32) Inc() int32 { return i.v.Add(1) }
func (i *Int32) Dec() int32 { return i.v.Add(-1) }
func (i *Int32) CAS(old, new int32) bool { return i.v.CompareAndSwap(old, new) }

type Int64 struct{ v atomic.Int64 }

func (i *Int64) Load() int64 { return i.v.Load() }
func (i *Int64) Store(val int64) { i.v.Store(val) }
func (i *Int64) Add(delta int64) int64 { return i.v.Add(delta) }
func (i *Int64) Inc() int64 { return i.v.Add(1) }
func (i *Int64) Dec() int64 { return i.v.Add(-1) }
func (i *Int64) CAS(old, new int64) bool { return i.v.CompareAndSwap(old, new) }

type Bool struct{ v atomic.Bool }

func (b *Bool) Load() bool { return b.v.Load() }
func (b *Bool) Store(val bool) { b.v.Store(val) }
func (b *Bool) CAS(old, new bool) bool { return b.v.CompareAndSwap(old, new) }

type Uint64 struct{ v atomic.Uint64 }

func (u *Uint64) Load() uint64 { return u.v.Load() }
func (u *Uint64) Store(val uint64) { u.v.Store(val) }
func (u *Uint64) Add(delta uint64) uint64 { return u.v.Add(delta) }
