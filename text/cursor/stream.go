package cursor

import (
	"sync"

	"github.com/sloked-project/sloked/cmn"
	"github.com/sloked-project/sloked/cmn/metrics"
	"github.com/sloked-project/sloked/core"
	"github.com/sloked-project/sloked/text"
)

// Listener observes a Stream's commits/rollbacks, fired after the
// multiplexer's lock has been released so a callback can never deadlock
// against a sibling stream's operation.
type Listener interface {
	OnCommit(Transaction)
	OnRollback(Transaction)
}

// Stream is per-client undo/redo over a document shared with sibling
// streams through a Multiplexer.
type Stream struct {
	mux    *Multiplexer
	mu     sync.Mutex
	undo   []Transaction
	redo   []Transaction
	cursor core.TextPosition

	listeners []Listener
}

// Commit validates and applies t, rebasing every sibling stream's pending
// stacks via t's commit patch.
func (s *Stream) Commit(t Transaction) (core.TextPosition, error) {
	return s.mux.commit(s, t)
}

func (s *Stream) HasRollback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo) > 0
}

func (s *Stream) Rollback() (core.TextPosition, error) {
	return s.mux.rollback(s)
}

func (s *Stream) HasRevertable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redo) > 0
}

func (s *Stream) RevertRollback() (core.TextPosition, error) {
	return s.mux.revertRollback(s)
}

// AddListener registers l and returns a detach function.
func (s *Stream) AddListener(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
	idx := len(s.listeners) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.listeners) && s.listeners[idx] == l {
			s.listeners = append(s.listeners[:idx], s.listeners[idx+1:]...)
		}
	}
}

func (s *Stream) snapshotListeners() []Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Listener, len(s.listeners))
	copy(out, s.listeners)
	return out
}

func (s *Stream) notifyCommit(t Transaction) {
	for _, l := range s.snapshotListeners() {
		l.OnCommit(t)
	}
}

func (s *Stream) notifyRollback(t Transaction) {
	for _, l := range s.snapshotListeners() {
		l.OnRollback(t)
	}
}

// applyPatch rewrites every transaction recorded on s's undo/redo stacks
// using patch, keeping queued-but-uncommitted transactions valid after a
// sibling stream commits or rolls back.
func (s *Stream) applyPatch(patch *Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.undo {
		s.undo[i].Apply(patch)
	}
	for i := range s.redo {
		s.redo[i].Apply(patch)
	}
}

// Multiplexer owns many Streams over one Document and serialises their
// commits/rollbacks.
type Multiplexer struct {
	doc *text.Document

	// opMu serialises every commit/rollback/revert across all streams; it
	// is released before listener fan-out so a callback can never deadlock
	// against a sibling stream's operation.
	opMu sync.Mutex

	mu      sync.Mutex // guards streams
	streams []*Stream
}

func NewMultiplexer(doc *text.Document) *Multiplexer {
	return &Multiplexer{doc: doc}
}

// NewStream creates a stream bound to this multiplexer's document.
func (m *Multiplexer) NewStream() *Stream {
	s := &Stream{mux: m}
	m.mu.Lock()
	m.streams = append(m.streams, s)
	m.mu.Unlock()
	return s
}

// RemoveStream detaches s; its remaining undo/redo history is discarded.
func (m *Multiplexer) RemoveStream(s *Stream) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, st := range m.streams {
		if st == s {
			m.streams = append(m.streams[:i], m.streams[i+1:]...)
			return
		}
	}
}

func validatePosition(doc *text.Document, pos core.TextPosition) error {
	if uint64(pos.Line) > doc.GetLastLine() {
		return cmn.Wrap(cmn.ErrInvalidPosition, "cursor: line out of range")
	}
	line := doc.GetLine(uint64(pos.Line))
	if pos.Column > width(line) {
		return cmn.Wrap(cmn.ErrInvalidPosition, "cursor: column out of range")
	}
	return nil
}

func validate(doc *text.Document, t Transaction) error {
	switch t.Action {
	case ActionInsert, ActionNewline:
		return validatePosition(doc, t.Insert.Position)
	case ActionDeleteForward, ActionDeleteBackward:
		return validatePosition(doc, t.Delete.Position)
	case ActionClear:
		if err := validatePosition(doc, t.Clear.From); err != nil {
			return err
		}
		return validatePosition(doc, t.Clear.To)
	case ActionBatch:
		// Each child sees the document as the children before it left it, so
		// the children are checked and applied in order on a scratch copy.
		scratch := text.Open(doc.NewLine(), doc.Materialize())
		for _, child := range t.Batch.Children {
			if err := validate(scratch, child); err != nil {
				return err
			}
			if _, err := child.Commit(scratch); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Multiplexer) rebaseOthers(origin *Stream, patch *Patch) {
	m.mu.Lock()
	streams := make([]*Stream, len(m.streams))
	copy(streams, m.streams)
	m.mu.Unlock()
	for _, s := range streams {
		if s != origin {
			s.applyPatch(patch)
		}
	}
}

func (m *Multiplexer) commit(origin *Stream, t Transaction) (core.TextPosition, error) {
	m.opMu.Lock()
	if err := validate(m.doc, t); err != nil {
		m.opMu.Unlock()
		metrics.Commits.WithLabelValues("invalid").Inc()
		return core.TextPosition{}, err
	}

	patch := t.CommitPatch()
	m.rebaseOthers(origin, patch)

	pos, err := t.Commit(m.doc)
	if err != nil {
		m.opMu.Unlock()
		metrics.Commits.WithLabelValues("error").Inc()
		return pos, err
	}

	origin.mu.Lock()
	origin.undo = append(origin.undo, t)
	origin.redo = origin.redo[:0]
	origin.cursor = pos
	origin.mu.Unlock()
	m.opMu.Unlock()
	metrics.Commits.WithLabelValues("ok").Inc()
	origin.notifyCommit(t)
	return pos, nil
}

func (m *Multiplexer) rollback(origin *Stream) (core.TextPosition, error) {
	m.opMu.Lock()
	origin.mu.Lock()
	if len(origin.undo) == 0 {
		pos := origin.cursor
		origin.mu.Unlock()
		m.opMu.Unlock()
		return pos, nil
	}
	t := origin.undo[len(origin.undo)-1]
	origin.undo = origin.undo[:len(origin.undo)-1]
	origin.mu.Unlock()

	pos, err := t.Rollback(m.doc)
	if err != nil {
		m.opMu.Unlock()
		return pos, err
	}
	patch := t.RollbackPatch()
	m.rebaseOthers(origin, patch)

	origin.mu.Lock()
	origin.redo = append(origin.redo, t)
	origin.cursor = pos
	origin.mu.Unlock()
	m.opMu.Unlock()
	origin.notifyRollback(t)
	return pos, nil
}

func (m *Multiplexer) revertRollback(origin *Stream) (core.TextPosition, error) {
	m.opMu.Lock()
	origin.mu.Lock()
	if len(origin.redo) == 0 {
		pos := origin.cursor
		origin.mu.Unlock()
		m.opMu.Unlock()
		return pos, nil
	}
	t := origin.redo[len(origin.redo)-1]
	origin.redo = origin.redo[:len(origin.redo)-1]
	origin.mu.Unlock()

	patch := t.CommitPatch()
	m.rebaseOthers(origin, patch)

	pos, err := t.Commit(m.doc)
	if err != nil {
		m.opMu.Unlock()
		return pos, err
	}
	origin.mu.Lock()
	origin.undo = append(origin.undo, t)
	origin.cursor = pos
	origin.mu.Unlock()
	m.opMu.Unlock()
	origin.notifyCommit(t)
	return pos, nil
}
