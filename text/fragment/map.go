package fragment

import (
	"github.com/sloked-project/sloked/cmn"
	"github.com/sloked-project/sloked/core"
)

// mapNode is TaggedFragmentMapNode: an AVL node holding at most one
// fragment plus begin/end subtrees, content-swapped by core.AVLBalance
// rather than pointer-relinked, so a *mapNode handed to a caller keeps its
// identity across a rebalance.
type mapNode[T any] struct {
	content    *Fragment[T]
	begin, end *mapNode[T]
	height     int
	empty      bool
}

func newMapNode[T any](f Fragment[T]) *mapNode[T] {
	return &mapNode[T]{content: &f}
}

func (n *mapNode[T]) Height() int { return n.height }

func (n *mapNode[T]) AVLBegin() core.AVLNode {
	if n.begin == nil {
		return nil
	}
	return n.begin
}

func (n *mapNode[T]) AVLEnd() core.AVLNode {
	if n.end == nil {
		return nil
	}
	return n.end
}

func (n *mapNode[T]) SetAVLBegin(c core.AVLNode) {
	if c == nil {
		n.begin = nil
		return
	}
	n.begin = c.(*mapNode[T])
}

func (n *mapNode[T]) SetAVLEnd(c core.AVLNode) {
	if c == nil {
		n.end = nil
		return
	}
	n.end = c.(*mapNode[T])
}

func (n *mapNode[T]) AvlUpdate() {
	if n.begin != nil && n.begin.Empty() {
		n.begin = nil
	}
	if n.end != nil && n.end.Empty() {
		n.end = nil
	}
	n.empty = n.begin == nil && n.content == nil && n.end == nil
	bh, eh := 0, 0
	if n.begin != nil {
		bh = n.begin.Height() + 1
	}
	if n.end != nil {
		eh = n.end.Height() + 1
	}
	if bh > eh {
		n.height = bh
	} else {
		n.height = eh
	}
}

func (n *mapNode[T]) AvlSwapContent(other core.AVLNode) {
	o := other.(*mapNode[T])
	n.content, o.content = o.content, n.content
}

func (n *mapNode[T]) Empty() bool { return n.empty }

func (n *mapNode[T]) has(pos core.TextPosition) bool {
	if n.content != nil && n.content.Includes(pos) {
		return true
	}
	if n.begin != nil && n.begin.has(pos) {
		return true
	}
	return n.end != nil && n.end.has(pos)
}

func (n *mapNode[T]) get(pos core.TextPosition) *Fragment[T] {
	if n.content != nil && n.content.Includes(pos) {
		return n.content
	}
	if n.begin != nil {
		if f := n.begin.get(pos); f != nil {
			return f
		}
	}
	if n.end != nil {
		return n.end.get(pos)
	}
	return nil
}

func (n *mapNode[T]) min() *Fragment[T] {
	res := n.content
	if n.begin != nil {
		if bres := n.begin.min(); bres != nil {
			res = bres
		}
	}
	if res == nil && n.end != nil {
		res = n.end.min()
	}
	return res
}

func (n *mapNode[T]) max() *Fragment[T] {
	res := n.content
	if n.end != nil {
		if eres := n.end.max(); eres != nil {
			res = eres
		}
	}
	if res == nil && n.begin != nil {
		res = n.begin.max()
	}
	return res
}

func (n *mapNode[T]) insert(f Fragment[T]) error {
	if n.content != nil {
		if n.content.Overlaps(f) {
			return cmn.Wrap(cmn.ErrOverlap, "fragment: overlaps existing")
		}
		if f.Before(*n.content) {
			if n.begin != nil {
				if err := n.begin.insert(f); err != nil {
					return err
				}
			} else {
				n.begin = newMapNode(f)
			}
		} else {
			if n.end != nil {
				if err := n.end.insert(f); err != nil {
					return err
				}
			} else {
				n.end = newMapNode(f)
			}
		}
	} else {
		var maxBegin, minEnd *Fragment[T]
		if n.begin != nil {
			maxBegin = n.begin.max()
		}
		if n.end != nil {
			minEnd = n.end.min()
		}
		switch {
		case maxBegin != nil && f.Before(*maxBegin):
			if err := n.begin.insert(f); err != nil {
				return err
			}
		case minEnd != nil && minEnd.Before(f):
			if err := n.end.insert(f); err != nil {
				return err
			}
		default:
			n.content = &f
		}
	}
	n.AvlUpdate()
	return nil
}

func (n *mapNode[T]) remove(pos core.TextPosition) {
	if n.content != nil && n.content.Includes(pos) {
		n.content = nil
	}
	if n.begin != nil {
		n.begin.remove(pos)
	}
	if n.end != nil {
		n.end.remove(pos)
	}
	n.AvlUpdate()
}

func (n *mapNode[T]) walk(visit func(Fragment[T]) bool) bool {
	if n.begin != nil {
		if !n.begin.walk(visit) {
			return false
		}
	}
	if n.content != nil {
		if !visit(*n.content) {
			return false
		}
	}
	if n.end != nil {
		return n.end.walk(visit)
	}
	return true
}

// Map is TaggedFragmentMap: an AVL tree of non-overlapping fragments keyed
// by start position.
type Map[T any] struct {
	root *mapNode[T]
}

func NewMap[T any]() *Map[T] { return &Map[T]{} }

func (m *Map[T]) Has(pos core.TextPosition) bool {
	return m.root != nil && m.root.has(pos)
}

// Get returns the fragment covering pos, or nil if none does.
func (m *Map[T]) Get(pos core.TextPosition) *Fragment[T] {
	if m.root == nil {
		return nil
	}
	return m.root.get(pos)
}

// Min returns the fragment with the smallest start position, or nil.
func (m *Map[T]) Min() *Fragment[T] {
	if m.root == nil {
		return nil
	}
	return m.root.min()
}

// Max returns the fragment with the largest start position, or nil.
func (m *Map[T]) Max() *Fragment[T] {
	if m.root == nil {
		return nil
	}
	return m.root.max()
}

// Insert adds a fragment, rejecting it if it overlaps an existing one.
func (m *Map[T]) Insert(start core.TextPosition, length core.TextPositionDelta, tag T) error {
	f := Fragment[T]{Start: start, Length: length, Tag: tag}
	if m.root == nil {
		m.root = newMapNode(f)
		return nil
	}
	if err := m.root.insert(f); err != nil {
		return err
	}
	core.AVLBalance(m.root)
	return nil
}

// Remove drops whichever fragment (if any) covers pos.
func (m *Map[T]) Remove(pos core.TextPosition) {
	if m.root == nil {
		return
	}
	m.root.remove(pos)
	core.AVLBalance(m.root)
	if m.root.Empty() {
		m.root = nil
	}
}

// Clear drops every fragment.
func (m *Map[T]) Clear() { m.root = nil }

// Walk visits fragments in ascending start-position order, stopping early
// if visit returns false.
func (m *Map[T]) Walk(visit func(Fragment[T]) bool) {
	if m.root != nil {
		m.root.walk(visit)
	}
}

// Optimize rebalances the tree without changing its contents.
func (m *Map[T]) Optimize() {
	if m.root != nil {
		core.AVLBalance(m.root)
	}
}
