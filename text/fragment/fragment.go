// Package fragment implements non-overlapping tagged text spans held in an
// AVL-indexed map, a lazy upstream Tagger contract, a caching layer over it,
// and an Updater that keeps the cache coherent across document edits.
package fragment

import (
	"github.com/sloked-project/sloked/core"
)

// Fragment is a non-overlapping tagged span: (start, length, tag).
type Fragment[T any] struct {
	Start  core.TextPosition
	Length core.TextPositionDelta
	Tag    T
}

// End returns the position immediately past the fragment.
func (f Fragment[T]) End() core.TextPosition {
	return core.TextPosition{
		Line:   f.Start.Line + uint32(f.Length.Line),
		Column: f.Start.Column + uint32(f.Length.Column),
	}
}

// Includes reports whether pos falls within [Start, End).
func (f Fragment[T]) Includes(pos core.TextPosition) bool {
	end := f.End()
	return !pos.Less(f.Start) && pos.Less(end)
}

// Overlaps reports whether f and other share any position.
func (f Fragment[T]) Overlaps(other Fragment[T]) bool {
	end, otherEnd := f.End(), other.End()
	return f.Start.Less(otherEnd) && other.Start.Less(end)
}

// Before orders fragments by start position, used to descend the map.
func (f Fragment[T]) Before(other Fragment[T]) bool {
	return f.Start.Less(other.Start)
}
