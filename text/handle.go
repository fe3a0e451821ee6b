package text

// Handle is the lazily-materialising leaf: reads go against the raw
// view/precomputed line offsets until the first mutation, which opens a
// real *Chunk and delegates everything from then on.
type Handle struct {
	nl      NewLine
	view    string
	lines   []string // precomputed split, valid only while opened == nil
	opened  *Chunk
}

var _ Block = (*Handle)(nil)

// NewHandle wraps raw content for lazy materialisation.
func NewHandle(nl NewLine, content string) *Handle {
	return &Handle{nl: nl, view: content, lines: SplitLines(content, nl)}
}

func (h *Handle) open() *Chunk {
	if h.opened == nil {
		h.opened = NewChunk(h.nl, h.view)
	}
	return h.opened
}

func (h *Handle) GetLastLine() uint64 {
	if h.opened != nil {
		return h.opened.GetLastLine()
	}
	return uint64(len(h.lines) - 1)
}

func (h *Handle) GetTotalLength() uint64 {
	if h.opened != nil {
		return h.opened.GetTotalLength()
	}
	return uint64(len(h.view))
}

func (h *Handle) GetLine(i uint64) string {
	if h.opened != nil {
		return h.opened.GetLine(i)
	}
	if i >= uint64(len(h.lines)) {
		return ""
	}
	return h.lines[i]
}

func (h *Handle) Empty() bool {
	if h.opened != nil {
		return h.opened.Empty()
	}
	return len(h.view) == 0
}

func (h *Handle) Visit(from, count uint64, visitor func(uint64, string)) {
	if h.opened != nil {
		h.opened.Visit(from, count, visitor)
		return
	}
	for i := from; i < from+count && i < uint64(len(h.lines)); i++ {
		visitor(i, h.lines[i])
	}
}

func (h *Handle) SetLine(i uint64, s string)  { h.open().SetLine(i, s) }
func (h *Handle) EraseLine(i uint64)          { h.open().EraseLine(i) }
func (h *Handle) InsertLine(i uint64, s string) { h.open().InsertLine(i, s) }
func (h *Handle) Optimize() {
	if h.opened != nil {
		h.opened.Optimize()
	}
}

// Opened reports whether this handle has materialised into a real Chunk.
func (h *Handle) Opened() bool { return h.opened != nil }
