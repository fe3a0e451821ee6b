package fragment

import (
	"github.com/sloked-project/sloked/core"
	"github.com/sloked-project/sloked/text/cursor"
)

// Updater keeps a Cache coherent across document edits: it subscribes to a
// cursor.Stream and, on every commit or rollback, invalidates the cache
// from the earliest position the transaction touched onward and rewinds
// the upstream Tagger to match.
type Updater[T any] struct {
	cache  *Cache[T]
	detach func()
}

// NewUpdater attaches cache to stream's commit/rollback notifications.
// Call Close to detach.
func NewUpdater[T any](stream *cursor.Stream, cache *Cache[T]) *Updater[T] {
	u := &Updater[T]{cache: cache}
	u.detach = stream.AddListener(u)
	return u
}

func (u *Updater[T]) Close() {
	if u.detach != nil {
		u.detach()
	}
}

func (u *Updater[T]) OnCommit(t cursor.Transaction)   { u.invalidate(t) }
func (u *Updater[T]) OnRollback(t cursor.Transaction) { u.invalidate(t) }

func (u *Updater[T]) invalidate(t cursor.Transaction) {
	u.cache.Invalidate(earliestAffected(t))
}

// earliestAffected returns the smallest position touched by t, recursing
// into Batch children so a grouped edit invalidates from its true start.
func earliestAffected(t cursor.Transaction) core.TextPosition {
	switch t.Action {
	case cursor.ActionInsert, cursor.ActionNewline:
		return t.Insert.Position
	case cursor.ActionDeleteForward:
		return t.Delete.Position
	case cursor.ActionDeleteBackward:
		start := t.Delete.Position
		if start.Column < t.Delete.Width {
			start.Column = 0
		} else {
			start.Column -= t.Delete.Width
		}
		return start
	case cursor.ActionClear:
		if t.Clear.To.Less(t.Clear.From) {
			return t.Clear.To
		}
		return t.Clear.From
	case cursor.ActionBatch:
		earliest := t.Batch.Position
		for _, child := range t.Batch.Children {
			if pos := earliestAffected(child); pos.Less(earliest) {
				earliest = pos
			}
		}
		return earliest
	}
	return core.TextPosition{}
}
