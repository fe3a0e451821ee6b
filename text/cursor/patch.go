package cursor

import "github.com/sloked-project/sloked/core"

const maxCol = ^uint32(0)
const maxLine = ^uint32(0)

func posLess(a, b core.TextPosition) bool { return a.Less(b) }
func deltaEqual(a, b core.TextPositionDelta) bool { return a == b }

// Patch is an ordered sequence of RangeMap layers,
// one per committed transaction in a batch, describing how a position
// recorded before the commit translates after it.
type Patch struct {
	layers []*core.RangeMap[core.TextPosition, core.TextPositionDelta]
}

func newLayer() *core.RangeMap[core.TextPosition, core.TextPositionDelta] {
	return core.NewRangeMap[core.TextPosition, core.TextPositionDelta](
		core.TextPosition{}, posLess, deltaEqual)
}

// NewPatch returns an empty patch with a single fresh layer.
func NewPatch() *Patch {
	return &Patch{layers: []*core.RangeMap[core.TextPosition, core.TextPositionDelta]{newLayer()}}
}

// NextTransaction starts a new layer, used between a batch's children so
// each child's remap is applied in commit order.
func (p *Patch) NextTransaction() { p.layers = append(p.layers, newLayer()) }

func (p *Patch) insert(from, to core.TextPosition, d core.TextPositionDelta) {
	if len(p.layers) == 0 {
		p.layers = append(p.layers, newLayer())
	}
	p.layers[len(p.layers)-1].Insert(from, to, d)
}

// Has reports whether pos falls inside any range recorded by the patch's
// first layer (the original, pre-commit coordinate space).
func (p *Patch) Has(pos core.TextPosition) bool {
	if len(p.layers) == 0 {
		return false
	}
	return p.layers[0].Has(pos)
}

// At returns the net delta that must be applied to pos to translate it
// across every layer of this patch, in order.
func (p *Patch) At(pos core.TextPosition) core.TextPositionDelta {
	cur := pos
	for _, layer := range p.layers {
		if d, ok := layer.At(cur); ok {
			cur = d.Apply(cur)
		}
	}
	return core.TextPositionDelta{
		Line:   int64(cur.Line) - int64(pos.Line),
		Column: int64(cur.Column) - int64(pos.Column),
	}
}

// CommitPatch builds the patch describing how t's commit translates
// positions recorded beforehand.
func (t Transaction) CommitPatch() *Patch {
	p := NewPatch()
	switch t.Action {
	case ActionInsert:
		pos, s := t.Insert.Position, t.Insert.Content
		p.insert(pos, core.TextPosition{Line: pos.Line, Column: maxCol}, core.TextPositionDelta{Column: int64(width(s))})

	case ActionNewline:
		pos := t.Insert.Position
		p.insert(core.TextPosition{Line: pos.Line + 1}, core.TextPosition{Line: maxLine},
			core.TextPositionDelta{Line: 1})
		p.insert(pos, core.TextPosition{Line: pos.Line, Column: maxCol},
			core.TextPositionDelta{Line: 1, Column: -int64(pos.Column)})

	case ActionDeleteForward:
		pos, w := t.Delete.Position, int64(t.Delete.Width)
		p.insert(pos, core.TextPosition{Line: pos.Line, Column: maxCol}, core.TextPositionDelta{Column: -w})

	case ActionDeleteBackward:
		pos, w := t.Delete.Position, int64(t.Delete.Width)
		start := core.TextPosition{Line: pos.Line, Column: pos.Column - t.Delete.Width}
		p.insert(start, core.TextPosition{Line: pos.Line, Column: maxCol}, core.TextPositionDelta{Column: -w})

	case ActionClear:
		r := t.Clear
		dl := int64(r.From.Line) - int64(r.To.Line)
		dc := int64(r.From.Column) - int64(r.To.Column)
		p.insert(r.To, core.TextPosition{Line: r.To.Line, Column: maxCol}, core.TextPositionDelta{Line: dl, Column: dc})
		p.insert(core.TextPosition{Line: r.To.Line + 1}, core.TextPosition{Line: maxLine},
			core.TextPositionDelta{Line: dl})

	case ActionBatch:
		p.layers = p.layers[:0]
		for _, child := range t.Batch.Children {
			cp := child.CommitPatch()
			p.layers = append(p.layers, cp.layers...)
		}
		if len(p.layers) == 0 {
			p.layers = append(p.layers, newLayer())
		}
	}
	return p
}

// RollbackPatch is the exact mirror of CommitPatch for t's inverse edit.
func (t Transaction) RollbackPatch() *Patch {
	p := NewPatch()
	switch t.Action {
	case ActionInsert:
		pos, s := t.Insert.Position, t.Insert.Content
		p.insert(pos, core.TextPosition{Line: pos.Line, Column: maxCol}, core.TextPositionDelta{Column: -int64(width(s))})

	case ActionNewline:
		pos := t.Insert.Position
		p.insert(core.TextPosition{Line: pos.Line + 1}, core.TextPosition{Line: maxLine},
			core.TextPositionDelta{Line: -1})
		p.insert(pos, core.TextPosition{Line: pos.Line + 1, Column: maxCol},
			core.TextPositionDelta{Line: -1, Column: int64(pos.Column)})

	case ActionDeleteForward:
		pos, w := t.Delete.Position, int64(t.Delete.Width)
		p.insert(pos, core.TextPosition{Line: pos.Line, Column: maxCol}, core.TextPositionDelta{Column: w})

	case ActionDeleteBackward:
		pos, w := t.Delete.Position, int64(t.Delete.Width)
		start := core.TextPosition{Line: pos.Line, Column: pos.Column - t.Delete.Width}
		p.insert(start, core.TextPosition{Line: pos.Line, Column: maxCol}, core.TextPositionDelta{Column: w})

	case ActionClear:
		r := t.Clear
		dl := int64(r.To.Line) - int64(r.From.Line)
		dc := int64(r.To.Column) - int64(r.From.Column)
		p.insert(r.From, core.TextPosition{Line: r.From.Line, Column: maxCol}, core.TextPositionDelta{Line: dl, Column: dc})
		p.insert(core.TextPosition{Line: r.From.Line + 1}, core.TextPosition{Line: maxLine},
			core.TextPositionDelta{Line: dl})

	case ActionBatch:
		p.layers = p.layers[:0]
		for i := len(t.Batch.Children) - 1; i >= 0; i-- {
			cp := t.Batch.Children[i].RollbackPatch()
			p.layers = append(p.layers, cp.layers...)
		}
		if len(p.layers) == 0 {
			p.layers = append(p.layers, newLayer())
		}
	}
	return p
}

// Apply rewrites t's own recorded positions using patch, so a queued but
// not-yet-committed transaction stays valid after a sibling commits.
func (t *Transaction) Apply(patch *Patch) {
	switch t.Action {
	case ActionInsert, ActionNewline:
		t.Insert.Position = patch.At(t.Insert.Position).Apply(t.Insert.Position)
	case ActionDeleteForward, ActionDeleteBackward:
		t.Delete.Position = patch.At(t.Delete.Position).Apply(t.Delete.Position)
	case ActionClear:
		t.Clear.From = patch.At(t.Clear.From).Apply(t.Clear.From)
		t.Clear.To = patch.At(t.Clear.To).Apply(t.Clear.To)
	case ActionBatch:
		t.Batch.Position = patch.At(t.Batch.Position).Apply(t.Batch.Position)
		for i := range t.Batch.Children {
			t.Batch.Children[i].Apply(patch)
		}
	}
}
