package fragment

import (
	"testing"

	"github.com/sloked-project/sloked/core"
)

// sliceTagger replays a fixed ascending-start fragment list, honouring
// Rewind by seeking back to the first fragment whose start is >= pos.
type sliceTagger struct {
	fragments []Fragment[string]
	idx       int
}

func (s *sliceTagger) Next() (Fragment[string], bool) {
	if s.idx >= len(s.fragments) {
		return Fragment[string]{}, false
	}
	f := s.fragments[s.idx]
	s.idx++
	return f, true
}

func (s *sliceTagger) Rewind(p core.TextPosition) {
	for i, f := range s.fragments {
		if !f.Start.Less(p) {
			s.idx = i
			return
		}
	}
	s.idx = len(s.fragments)
}

func TestCacheGetPullsFromUpstreamOnMiss(t *testing.T) {
	tg := &sliceTagger{fragments: []Fragment[string]{
		{Start: pos(0, 0), Length: delta(0, 4), Tag: "a"},
		{Start: pos(0, 10), Length: delta(0, 3), Tag: "b"},
	}}
	c := NewCache[string](tg)

	f, ok := c.Get(pos(0, 1))
	if !ok || f.Tag != "a" {
		t.Fatalf("expected fragment a, got %v ok=%v", f, ok)
	}
	// Only the fragment covering the lookup has been pulled from upstream.
	if tg.idx != 1 {
		t.Fatalf("expected only one fragment pulled, idx=%d", tg.idx)
	}

	f2, ok2 := c.Get(pos(0, 11))
	if !ok2 || f2.Tag != "b" {
		t.Fatalf("expected fragment b, got %v ok=%v", f2, ok2)
	}
}

func TestCacheGetReturnsFalseInGap(t *testing.T) {
	tg := &sliceTagger{fragments: []Fragment[string]{
		{Start: pos(0, 10), Length: delta(0, 3), Tag: "b"},
	}}
	c := NewCache[string](tg)
	_, ok := c.Get(pos(0, 0))
	if ok {
		t.Fatalf("expected no fragment covering the gap before the first one")
	}
}

func TestCacheInvalidateRewindsUpstream(t *testing.T) {
	tg := &sliceTagger{fragments: []Fragment[string]{
		{Start: pos(0, 0), Length: delta(0, 4), Tag: "a"},
		{Start: pos(0, 10), Length: delta(0, 3), Tag: "b"},
	}}
	c := NewCache[string](tg)
	c.Get(pos(0, 1))
	c.Get(pos(0, 11))

	c.Invalidate(pos(0, 5))

	if f := c.cache.Get(pos(0, 1)); f == nil {
		t.Fatalf("fragment before the invalidation point should survive")
	}
	if f := c.cache.Get(pos(0, 11)); f != nil {
		t.Fatalf("fragment at/after the invalidation point should be dropped")
	}
	if tg.idx != 1 {
		t.Fatalf("expected upstream rewound to fragment b, idx=%d", tg.idx)
	}
}
