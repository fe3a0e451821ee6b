package fragment

import (
	"sync"

	"github.com/sloked-project/sloked/core"
)

// Tagger lazily produces fragments covering a document in ascending-start
// order. Next returns (fragment, false) once exhausted. Rewind repositions
// the producer so the next Next() call emits a fragment covering pos
// onward, discarding anything buffered past that point.
type Tagger[T any] interface {
	Next() (Fragment[T], bool)
	Rewind(pos core.TextPosition)
}

// Cache sits in front of a Tagger: lookups hit the AVL-indexed Map first,
// only pulling from the upstream Tagger (and memoising what it returns) on
// a miss.
type Cache[T any] struct {
	mu        sync.Mutex
	tagger    Tagger[T]
	cache     *Map[T]
	exhausted bool
}

func NewCache[T any](tagger Tagger[T]) *Cache[T] {
	return &Cache[T]{tagger: tagger, cache: NewMap[T]()}
}

// Get returns the fragment covering pos, consulting the cache first and
// falling through to the upstream tagger on a miss.
func (c *Cache[T]) Get(pos core.TextPosition) (Fragment[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f := c.cache.Get(pos); f != nil {
		return *f, true
	}
	if c.exhausted {
		return Fragment[T]{}, false
	}
	for {
		f, ok := c.tagger.Next()
		if !ok {
			c.exhausted = true
			return Fragment[T]{}, false
		}
		// A malformed tagger emitting overlapping fragments would error
		// here; treat that as exhaustion rather than panicking the caller.
		if err := c.cache.Insert(f.Start, f.Length, f.Tag); err != nil {
			c.exhausted = true
			return Fragment[T]{}, false
		}
		if f.Includes(pos) {
			return f, true
		}
		if pos.Less(f.Start) {
			return Fragment[T]{}, false
		}
	}
}

// Invalidate drops every cached fragment starting at or after pos and
// rewinds the upstream tagger to pos, so the next Get past pos re-derives
// fresh fragments instead of serving stale ones.
func (c *Cache[T]) Invalidate(pos core.TextPosition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var survivors []Fragment[T]
	c.cache.Walk(func(f Fragment[T]) bool {
		if f.Start.Less(pos) {
			survivors = append(survivors, f)
		}
		return true
	})
	c.cache = NewMap[T]()
	for _, f := range survivors {
		c.cache.Insert(f.Start, f.Length, f.Tag)
	}
	c.tagger.Rewind(pos)
	c.exhausted = false
}
