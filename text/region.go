package text

import "github.com/sloked-project/sloked/core"

// Region is an AVL node wrapping one arbitrary Block leaf (typically a
// Handle), letting Document.Open join many lazily-materialising leaves into
// one tree without forcing each leaf to itself be an AVL node.
type Region struct {
	nl      NewLine
	content Block

	begin, end *Region
	height     int
	cachedLast uint64
}

var _ Block = (*Region)(nil)
var _ core.AVLNode = (*Region)(nil)

// NewRegion wraps content as a single-leaf region.
func NewRegion(nl NewLine, content Block) *Region {
	r := &Region{nl: nl, content: content}
	r.refresh()
	return r
}

func regionLines(r *Region) uint64 {
	if r == nil || r.Empty() {
		return 0
	}
	return r.GetLastLine() + 1
}

func contentLines(b Block) uint64 {
	if b == nil || b.Empty() {
		return 0
	}
	return b.GetLastLine() + 1
}

func (r *Region) refresh() {
	bh, eh := 0, 0
	if r.begin != nil {
		bh = r.begin.height + 1
	}
	if r.end != nil {
		eh = r.end.height + 1
	}
	if bh > eh {
		r.height = bh
	} else {
		r.height = eh
	}
	total := regionLines(r.begin) + contentLines(r.content) + regionLines(r.end)
	if total == 0 {
		r.cachedLast = 0
	} else {
		r.cachedLast = total - 1
	}
}

// AppendRegion attaches other as the rightmost descendant, building a
// right-leaning chain down the end links, the way Document.Open assembles
// cold regions.
func (r *Region) AppendRegion(other *Region) {
	if r.end == nil {
		r.end = other
	} else {
		r.end.AppendRegion(other)
	}
	r.refresh()
}

func (r *Region) Empty() bool {
	return regionLines(r.begin) == 0 && contentLines(r.content) == 0 && regionLines(r.end) == 0
}

func (r *Region) GetLastLine() uint64   { return r.cachedLast }
func (r *Region) GetTotalLength() uint64 {
	total := uint64(0)
	if r.begin != nil {
		total += r.begin.GetTotalLength()
	}
	if r.content != nil {
		total += r.content.GetTotalLength()
	}
	if r.end != nil {
		total += r.end.GetTotalLength()
	}
	return total
}

func (r *Region) GetLine(i uint64) string {
	bl := regionLines(r.begin)
	if i < bl {
		return r.begin.GetLine(i)
	}
	i -= bl
	cl := contentLines(r.content)
	if i < cl {
		return r.content.GetLine(i)
	}
	i -= cl
	if r.end == nil {
		return ""
	}
	return r.end.GetLine(i)
}

func (r *Region) Visit(from, count uint64, visitor func(uint64, string)) {
	for i := from; i < from+count; i++ {
		visitor(i, r.GetLine(i))
	}
}

func (r *Region) SetLine(i uint64, s string) {
	bl := regionLines(r.begin)
	if i < bl {
		r.begin.SetLine(i, s)
		r.refresh()
		return
	}
	i -= bl
	cl := contentLines(r.content)
	if i < cl {
		r.content.SetLine(i, s)
		r.refresh()
		return
	}
	i -= cl
	if r.end != nil {
		r.end.SetLine(i, s)
		r.refresh()
		return
	}
	// An empty region still reads as one empty line 0; writing that line
	// gives the region its first content.
	if r.Empty() && i == 0 && r.content != nil {
		r.content.SetLine(0, s)
		r.refresh()
	}
}

func (r *Region) EraseLine(i uint64) {
	bl := regionLines(r.begin)
	if i < bl {
		r.begin.EraseLine(i)
		if r.begin.Empty() {
			r.begin = nil
		}
		r.refresh()
		core.AVLBalance(r)
		return
	}
	i -= bl
	cl := contentLines(r.content)
	if i < cl {
		r.content.EraseLine(i)
		r.refresh()
		core.AVLBalance(r)
		return
	}
	i -= cl
	if r.end != nil {
		r.end.EraseLine(i)
		if r.end.Empty() {
			r.end = nil
		}
		r.refresh()
		core.AVLBalance(r)
	}
}

func (r *Region) InsertLine(i uint64, s string) {
	bl := regionLines(r.begin)
	cl := contentLines(r.content)
	switch {
	case i < bl:
		r.begin.InsertLine(i, s)
	case i <= bl+cl:
		if r.content == nil {
			r.content = NewHandle(r.nl, "")
		}
		r.content.InsertLine(i-bl, s)
	default:
		if r.end == nil {
			r.end = NewRegion(r.nl, NewHandle(r.nl, ""))
		}
		r.end.InsertLine(i-bl-cl, s)
	}
	r.refresh()
	core.AVLBalance(r)
}

func (r *Region) Optimize() {
	if r.begin != nil {
		r.begin.Optimize()
		if r.begin.Empty() {
			r.begin = nil
		}
	}
	if r.content != nil {
		r.content.Optimize()
	}
	if r.end != nil {
		r.end.Optimize()
		if r.end.Empty() {
			r.end = nil
		}
	}
	r.refresh()
	core.AVLBalance(r)
}

// --- core.AVLNode ---

func (r *Region) Height() int { return r.height }

func (r *Region) AVLBegin() core.AVLNode {
	if r.begin == nil {
		return nil
	}
	return r.begin
}

func (r *Region) AVLEnd() core.AVLNode {
	if r.end == nil {
		return nil
	}
	return r.end
}

func (r *Region) SetAVLBegin(n core.AVLNode) {
	if n == nil {
		r.begin = nil
	} else {
		r.begin = n.(*Region)
	}
}

func (r *Region) SetAVLEnd(n core.AVLNode) {
	if n == nil {
		r.end = nil
	} else {
		r.end = n.(*Region)
	}
}

func (r *Region) AvlUpdate() { r.refresh() }

func (r *Region) AvlSwapContent(other core.AVLNode) {
	o := other.(*Region)
	r.nl, o.nl = o.nl, r.nl
	r.content, o.content = o.content, r.content
}
