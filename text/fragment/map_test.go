package fragment

import (
	"testing"

	"github.com/sloked-project/sloked/core"
)

func pos(line, col uint32) core.TextPosition { return core.TextPosition{Line: line, Column: col} }
func delta(line, col int64) core.TextPositionDelta {
	return core.TextPositionDelta{Line: line, Column: col}
}

func TestMapInsertAndGet(t *testing.T) {
	m := NewMap[string]()
	if err := m.Insert(pos(0, 0), delta(0, 4), "kw"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := m.Insert(pos(0, 10), delta(0, 3), "str"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	f := m.Get(pos(0, 2))
	if f == nil || f.Tag != "kw" {
		t.Fatalf("expected kw fragment at col 2, got %v", f)
	}
	f2 := m.Get(pos(0, 11))
	if f2 == nil || f2.Tag != "str" {
		t.Fatalf("expected str fragment at col 11, got %v", f2)
	}
	if m.Get(pos(0, 5)) != nil {
		t.Fatalf("expected no fragment in the gap")
	}
}

func TestMapInsertRejectsOverlap(t *testing.T) {
	m := NewMap[int]()
	if err := m.Insert(pos(0, 0), delta(0, 5), 1); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := m.Insert(pos(0, 3), delta(0, 5), 2); err == nil {
		t.Fatalf("expected overlap error")
	}
}

func TestMapRemoveDropsCoveringFragment(t *testing.T) {
	m := NewMap[int]()
	m.Insert(pos(0, 0), delta(0, 5), 1)
	m.Remove(pos(0, 2))
	if m.Get(pos(0, 2)) != nil {
		t.Fatalf("expected fragment removed")
	}
}

func TestMapMinMax(t *testing.T) {
	m := NewMap[int]()
	m.Insert(pos(2, 0), delta(0, 1), 3)
	m.Insert(pos(0, 0), delta(0, 1), 1)
	m.Insert(pos(1, 0), delta(0, 1), 2)

	if min := m.Min(); min == nil || min.Tag != 1 {
		t.Fatalf("expected min tag 1, got %v", min)
	}
	if max := m.Max(); max == nil || max.Tag != 3 {
		t.Fatalf("expected max tag 3, got %v", max)
	}
}

func TestMapWalkIsAscending(t *testing.T) {
	m := NewMap[int]()
	m.Insert(pos(2, 0), delta(0, 1), 3)
	m.Insert(pos(0, 0), delta(0, 1), 1)
	m.Insert(pos(1, 0), delta(0, 1), 2)

	var order []int
	m.Walk(func(f Fragment[int]) bool {
		order = append(order, f.Tag)
		return true
	})
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("expected ascending walk order, got %v", order)
	}
}
