// Package cursor implements the reversible edit-transaction model, its
// position-patch translation, and the per-stream undo/redo multiplexer.
package cursor

import (
	"unicode/utf8"

	"github.com/sloked-project/sloked/cmn"
	"github.com/sloked-project/sloked/core"
	"github.com/sloked-project/sloked/text"
)

// Action identifies which variant a Transaction carries.
type Action int

const (
	ActionInsert Action = iota
	ActionNewline
	ActionDeleteForward
	ActionDeleteBackward
	ActionClear
	ActionBatch
)

// DeletePosition carries the content removed by a DeleteForward/Backward so
// rollback can restore it verbatim.
type DeletePosition struct {
	Position core.TextPosition
	Content  string
	Width    uint32
}

// Content is the payload for Insert and (as a helper) anywhere a single
// position+string pair is needed.
type Content struct {
	Position core.TextPosition
	Content  string
}

// Range carries a multi-line span plus the exact lines it used to contain,
// for Clear/its rollback.
type Range struct {
	From, To core.TextPosition
	Content  []string
}

// Batch groups child transactions under one anchor position.
type Batch struct {
	Position core.TextPosition
	Children []Transaction
}

// Transaction is a reversible edit: a tagged union carrying both the
// forward edit and everything its own Rollback needs, expressed as a
// struct-of-optional-payloads rather than an emulated generic union.
type Transaction struct {
	Action Action
	Delete *DeletePosition
	Insert *Content
	Clear  *Range
	Batch  *Batch
}

func NewInsert(pos core.TextPosition, s string) Transaction {
	return Transaction{Action: ActionInsert, Insert: &Content{Position: pos, Content: s}}
}

func NewNewline(pos core.TextPosition) Transaction {
	return Transaction{Action: ActionNewline, Insert: &Content{Position: pos}}
}

func NewDeleteForward(pos core.TextPosition, removed string) Transaction {
	return Transaction{Action: ActionDeleteForward, Delete: &DeletePosition{
		Position: pos, Content: removed, Width: uint32(utf8.RuneCountInString(removed)),
	}}
}

func NewDeleteBackward(pos core.TextPosition, removed string) Transaction {
	return Transaction{Action: ActionDeleteBackward, Delete: &DeletePosition{
		Position: pos, Content: removed, Width: uint32(utf8.RuneCountInString(removed)),
	}}
}

func NewClear(from, to core.TextPosition, content []string) Transaction {
	return Transaction{Action: ActionClear, Clear: &Range{From: from, To: to, Content: content}}
}

func NewBatch(pos core.TextPosition, children []Transaction) Transaction {
	return Transaction{Action: ActionBatch, Batch: &Batch{Position: pos, Children: children}}
}

func runeByteIndex(s string, col uint32) int {
	i := uint32(0)
	for idx := range s {
		if i == col {
			return idx
		}
		i++
	}
	return len(s)
}

func width(s string) uint32 { return uint32(utf8.RuneCountInString(s)) }

// Commit mutates doc according to the transaction's variant, returning the
// cursor position after the edit.
func (t Transaction) Commit(doc *text.Document) (core.TextPosition, error) {
	switch t.Action {
	case ActionInsert:
		pos, s := t.Insert.Position, t.Insert.Content
		if int(doc.GetLastLine()) < int(pos.Line) {
			return pos, cmn.Wrap(cmn.ErrInvalidPosition, "cursor: insert")
		}
		line := doc.GetLine(uint64(pos.Line))
		col := runeByteIndex(line, pos.Column)
		doc.SetLine(uint64(pos.Line), line[:col]+s+line[col:])
		return core.TextPosition{Line: pos.Line, Column: pos.Column + width(s)}, nil

	case ActionNewline:
		pos := t.Insert.Position
		if int(doc.GetLastLine()) < int(pos.Line) {
			return pos, cmn.Wrap(cmn.ErrInvalidPosition, "cursor: newline")
		}
		line := doc.GetLine(uint64(pos.Line))
		col := runeByteIndex(line, pos.Column)
		before, after := line[:col], line[col:]
		doc.SetLine(uint64(pos.Line), before)
		doc.InsertLine(uint64(pos.Line)+1, after)
		return core.TextPosition{Line: pos.Line + 1, Column: 0}, nil

	case ActionDeleteForward:
		pos := t.Delete.Position
		line := doc.GetLine(uint64(pos.Line))
		col := runeByteIndex(line, pos.Column)
		end := col + len(t.Delete.Content)
		if end > len(line) {
			return pos, cmn.Wrap(cmn.ErrInvalidPosition, "cursor: delete-forward")
		}
		doc.SetLine(uint64(pos.Line), line[:col]+line[end:])
		return pos, nil

	case ActionDeleteBackward:
		pos := t.Delete.Position
		line := doc.GetLine(uint64(pos.Line))
		col := runeByteIndex(line, pos.Column)
		start := col - len(t.Delete.Content)
		if start < 0 {
			return pos, cmn.Wrap(cmn.ErrInvalidPosition, "cursor: delete-backward")
		}
		doc.SetLine(uint64(pos.Line), line[:start]+line[col:])
		return core.TextPosition{Line: pos.Line, Column: pos.Column - t.Delete.Width}, nil

	case ActionClear:
		return t.commitClear(doc)

	case ActionBatch:
		pos := t.Batch.Position
		for _, child := range t.Batch.Children {
			var err error
			pos, err = child.Commit(doc)
			if err != nil {
				return pos, err
			}
		}
		return pos, nil
	}
	return core.TextPosition{}, cmn.Wrap(cmn.ErrInvalidPosition, "cursor: unknown action")
}

func (t Transaction) commitClear(doc *text.Document) (core.TextPosition, error) {
	r := t.Clear
	if r.To.Less(r.From) {
		return r.From, cmn.Wrap(cmn.ErrInvalidPosition, "cursor: clear: to before from")
	}
	if r.From.Line == r.To.Line {
		line := doc.GetLine(uint64(r.From.Line))
		fromCol := runeByteIndex(line, r.From.Column)
		toCol := runeByteIndex(line, r.To.Column)
		doc.SetLine(uint64(r.From.Line), line[:fromCol]+line[toCol:])
		return r.From, nil
	}
	toLine := doc.GetLine(uint64(r.To.Line))
	toCol := runeByteIndex(toLine, r.To.Column)
	tail := toLine[toCol:]
	fromLine := doc.GetLine(uint64(r.From.Line))
	fromCol := runeByteIndex(fromLine, r.From.Column)
	for l := uint64(r.To.Line); l > uint64(r.From.Line); l-- {
		doc.EraseLine(l)
	}
	doc.SetLine(uint64(r.From.Line), fromLine[:fromCol]+tail)
	return r.From, nil
}

// Rollback applies the exact inverse of Commit, returning the cursor
// position beforehand (for Insert/Newline/Delete*), the cleared range's To
// end (for Clear), or the batch's anchor Position (for Batch).
func (t Transaction) Rollback(doc *text.Document) (core.TextPosition, error) {
	switch t.Action {
	case ActionInsert:
		pos, s := t.Insert.Position, t.Insert.Content
		line := doc.GetLine(uint64(pos.Line))
		col := runeByteIndex(line, pos.Column)
		doc.SetLine(uint64(pos.Line), line[:col]+line[col+len(s):])
		return pos, nil

	case ActionNewline:
		pos := t.Insert.Position
		first := doc.GetLine(uint64(pos.Line))
		second := doc.GetLine(uint64(pos.Line) + 1)
		doc.SetLine(uint64(pos.Line), first+second)
		doc.EraseLine(uint64(pos.Line) + 1)
		return pos, nil

	case ActionDeleteForward:
		pos := t.Delete.Position
		line := doc.GetLine(uint64(pos.Line))
		col := runeByteIndex(line, pos.Column)
		doc.SetLine(uint64(pos.Line), line[:col]+t.Delete.Content+line[col:])
		return pos, nil

	case ActionDeleteBackward:
		pos := t.Delete.Position
		newPos := core.TextPosition{Line: pos.Line, Column: pos.Column - t.Delete.Width}
		line := doc.GetLine(uint64(pos.Line))
		col := runeByteIndex(line, newPos.Column)
		doc.SetLine(uint64(pos.Line), line[:col]+t.Delete.Content+line[col:])
		return pos, nil

	case ActionClear:
		return t.rollbackClear(doc)

	case ActionBatch:
		for i := len(t.Batch.Children) - 1; i >= 0; i-- {
			if _, err := t.Batch.Children[i].Rollback(doc); err != nil {
				return t.Batch.Position, err
			}
		}
		return t.Batch.Position, nil
	}
	return core.TextPosition{}, cmn.Wrap(cmn.ErrInvalidPosition, "cursor: unknown action")
}

func (t Transaction) rollbackClear(doc *text.Document) (core.TextPosition, error) {
	r := t.Clear
	if r.From.Line == r.To.Line {
		line := doc.GetLine(uint64(r.From.Line))
		fromCol := runeByteIndex(line, r.From.Column)
		content := ""
		if len(r.Content) > 0 {
			content = r.Content[0]
		}
		doc.SetLine(uint64(r.From.Line), line[:fromCol]+content+line[fromCol:])
		return r.To, nil
	}
	merged := doc.GetLine(uint64(r.From.Line))
	fromCol := runeByteIndex(merged, r.From.Column)
	head, tail := merged[:fromCol], merged[fromCol:]
	if len(r.Content) == 0 {
		return r.To, nil
	}
	doc.SetLine(uint64(r.From.Line), head+r.Content[0])
	for idx := 1; idx < len(r.Content)-1; idx++ {
		doc.InsertLine(uint64(r.From.Line)+uint64(idx), r.Content[idx])
	}
	last := len(r.Content) - 1
	if last > 0 {
		doc.InsertLine(uint64(r.From.Line)+uint64(last), r.Content[last]+tail)
	}
	return r.To, nil
}
