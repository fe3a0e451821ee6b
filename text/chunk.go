package text

import (
	"strings"

	"github.com/sloked-project/sloked/cmn/cos"
	"github.com/sloked-project/sloked/cmn/debug"
	"github.com/sloked-project/sloked/core"

	"github.com/pierrec/lz4/v3"
)

// CompressThreshold is the materialised-content size at or above which Pack
// lz4-compresses a chunk's content; the lines themselves stay uncompressed.
const CompressThreshold = 64 * 1024

// Block is the line-oriented text surface every rope node (Chunk, Handle)
// implements.
type Block interface {
	GetLastLine() uint64
	GetTotalLength() uint64
	GetLine(uint64) string
	Empty() bool
	Visit(from, count uint64, visitor func(line uint64, content string))
	SetLine(uint64, string)
	EraseLine(uint64)
	InsertLine(uint64, string)
	Optimize()
}

// Chunk is the rope work-horse: an AVL node with up to two child subtrees
// and its own run of lines, kept as a []string since slices already give
// amortised O(1) append.
type Chunk struct {
	newline NewLine

	begin, end *Chunk
	hasContent bool
	ownLines   []string

	compressed bool
	packed     []byte
	digest     cos.Digest

	height      int
	cachedLast  uint64
	cachedTotal uint64
}

var _ Block = (*Chunk)(nil)
var _ core.AVLNode = (*Chunk)(nil)

// NewChunk builds a leaf chunk holding content as its own lines.
func NewChunk(nl NewLine, content string) *Chunk {
	c := &Chunk{newline: nl, hasContent: true, ownLines: SplitLines(content, nl)}
	c.refresh()
	return c
}

// NewChunkNode builds an internal node from up to two child subtrees and an
// optional own-content string.
func NewChunkNode(nl NewLine, begin *Chunk, content *string, end *Chunk) *Chunk {
	c := &Chunk{newline: nl, begin: begin, end: end}
	if content != nil {
		c.hasContent = true
		c.ownLines = SplitLines(*content, nl)
	}
	c.refresh()
	return c
}

func childLines(c *Chunk) uint64 {
	if c == nil || c.Empty() {
		return 0
	}
	return c.GetLastLine() + 1
}

func childBytes(c *Chunk) uint64 {
	if c == nil {
		return 0
	}
	return c.GetTotalLength()
}

func (c *Chunk) ownByteLen() uint64 {
	if !c.hasContent {
		return 0
	}
	var n uint64
	for _, l := range c.ownLines {
		n += uint64(len(l))
	}
	sep := uint64(len(c.newline.String()))
	if len(c.ownLines) > 1 {
		n += sep * uint64(len(c.ownLines)-1)
	}
	return n
}

// refresh recomputes cached height/line-count/byte-length from the current
// children and own content; called after every structural mutation.
func (c *Chunk) refresh() {
	bh, eh := 0, 0
	if c.begin != nil {
		bh = c.begin.height + 1
	}
	if c.end != nil {
		eh = c.end.height + 1
	}
	if bh > eh {
		c.height = bh
	} else {
		c.height = eh
	}

	ownCount := uint64(0)
	if c.hasContent {
		ownCount = uint64(len(c.ownLines))
	}
	total := childLines(c.begin) + ownCount + childLines(c.end)
	if total == 0 {
		c.cachedLast = 0
	} else {
		c.cachedLast = total - 1
	}

	bytes := childBytes(c.begin) + c.ownByteLen() + childBytes(c.end)
	sep := uint64(len(c.newline.String()))
	if childLines(c.begin) > 0 && (ownCount > 0 || childLines(c.end) > 0) {
		bytes += sep
	}
	if ownCount > 0 && childLines(c.end) > 0 {
		bytes += sep
	}
	c.cachedTotal = bytes
	c.packed = nil
	c.digest = 0
}

func (c *Chunk) GetHeight() int { return c.height }

func (c *Chunk) Empty() bool {
	return childLines(c.begin) == 0 && !c.hasContent && childLines(c.end) == 0
}

func (c *Chunk) GetLastLine() uint64  { return c.cachedLast }
func (c *Chunk) GetTotalLength() uint64 { return c.cachedTotal }

func (c *Chunk) GetLine(i uint64) string {
	beginLines := childLines(c.begin)
	if i < beginLines {
		return c.begin.GetLine(i)
	}
	i -= beginLines
	own := uint64(0)
	if c.hasContent {
		own = uint64(len(c.ownLines))
	}
	if i < own {
		return c.ownLines[i]
	}
	i -= own
	if c.end == nil {
		return ""
	}
	return c.end.GetLine(i)
}

func (c *Chunk) Visit(from, count uint64, visitor func(uint64, string)) {
	for i := from; i < from+count; i++ {
		visitor(i, c.GetLine(i))
	}
}

func (c *Chunk) SetLine(i uint64, s string) {
	beginLines := childLines(c.begin)
	if i < beginLines {
		c.begin.SetLine(i, s)
		c.refresh()
		return
	}
	i -= beginLines
	own := uint64(0)
	if c.hasContent {
		own = uint64(len(c.ownLines))
	}
	if i < own {
		c.ownLines[i] = s
		c.refresh()
		return
	}
	i -= own
	if c.end != nil {
		c.end.SetLine(i, s)
		c.refresh()
		return
	}
	// Empty chunk being given its first line.
	c.hasContent = true
	c.ownLines = []string{s}
	c.refresh()
}

func (c *Chunk) EraseLine(i uint64) {
	beginLines := childLines(c.begin)
	if i < beginLines {
		c.begin.EraseLine(i)
		if c.begin.Empty() {
			c.begin = nil
		}
		c.refresh()
		core.AVLBalance(c)
		return
	}
	i -= beginLines
	own := uint64(0)
	if c.hasContent {
		own = uint64(len(c.ownLines))
	}
	if i < own {
		c.ownLines = append(c.ownLines[:i], c.ownLines[i+1:]...)
		if len(c.ownLines) == 0 {
			c.hasContent = false
			c.ownLines = nil
		}
		c.refresh()
		core.AVLBalance(c)
		return
	}
	i -= own
	if c.end != nil {
		c.end.EraseLine(i)
		if c.end.Empty() {
			c.end = nil
		}
		c.refresh()
		core.AVLBalance(c)
	}
}

func (c *Chunk) InsertLine(i uint64, s string) {
	beginLines := childLines(c.begin)
	own := uint64(0)
	if c.hasContent {
		own = uint64(len(c.ownLines))
	}
	switch {
	case i < beginLines:
		c.begin.InsertLine(i, s)
	case i <= beginLines+own:
		idx := int(i - beginLines)
		c.ownLines = append(c.ownLines, "")
		copy(c.ownLines[idx+1:], c.ownLines[idx:])
		c.ownLines[idx] = s
		c.hasContent = true
	default:
		if c.end == nil {
			c.end = NewChunk(c.newline, "")
		}
		c.end.InsertLine(i-beginLines-own, s)
	}
	c.refresh()
	core.AVLBalance(c)
}

// Optimize drops empty children and rebalances.
func (c *Chunk) Optimize() {
	c.Compact()
	c.Balance()
	debug.AssertFunc(c.balanced, "text: optimize left an unbalanced chunk")
}

// balanced reports whether the whole subtree satisfies the AVL height
// invariant; only evaluated under the debug build tag.
func (c *Chunk) balanced() bool {
	if c == nil {
		return true
	}
	bh, eh := -1, -1
	if c.begin != nil {
		bh = c.begin.height
	}
	if c.end != nil {
		eh = c.end.height
	}
	if bh-eh > 1 || eh-bh > 1 {
		return false
	}
	return c.begin.balanced() && c.end.balanced()
}

// Compact recursively drops empty children.
func (c *Chunk) Compact() {
	if c.begin != nil {
		c.begin.Compact()
		if c.begin.Empty() {
			c.begin = nil
		}
	}
	if c.end != nil {
		c.end.Compact()
		if c.end.Empty() {
			c.end = nil
		}
	}
	c.refresh()
}

// Balance rebalances the subtree rooted at c.
func (c *Chunk) Balance() { core.AVLBalance(c) }

// Squash flattens the subtree into a single content string, used rarely
// (document save / checkpoint snapshot).
func (c *Chunk) Squash() {
	lines := c.collectLines()
	c.begin, c.end = nil, nil
	c.hasContent = len(lines) > 0
	c.ownLines = lines
	c.refresh()
}

func (c *Chunk) collectLines() []string {
	var out []string
	if c.begin != nil {
		out = append(out, c.begin.collectLines()...)
	}
	if c.hasContent {
		out = append(out, c.ownLines...)
	}
	if c.end != nil {
		out = append(out, c.end.collectLines()...)
	}
	return out
}

// Materialize renders the whole subtree as one string, joining lines with
// this chunk's newline convention.
func (c *Chunk) Materialize() string {
	return strings.Join(c.collectLines(), c.newline.String())
}

// Pack compresses the materialised content with lz4 once it reaches
// CompressThreshold. It hashes the content on every call and returns the
// digest; the compressed bytes are cached with that digest, so an unchanged
// chunk is not compressed twice.
func (c *Chunk) Pack() (packed []byte, digest cos.Digest, ok bool) {
	raw := []byte(c.Materialize())
	digest = cos.Sum64(raw)
	if len(raw) < CompressThreshold {
		return nil, digest, false
	}
	if c.packed != nil && c.digest == digest {
		return c.packed, digest, true
	}
	buf := make([]byte, lz4.CompressBlockBound(len(raw)))
	hashTable := make([]int, 64<<10)
	n, err := lz4.CompressBlock(raw, buf, hashTable)
	if err != nil || n == 0 || n >= len(raw) {
		return nil, digest, false
	}
	c.packed = buf[:n]
	c.digest = digest
	c.compressed = true
	return c.packed, digest, true
}

// Unpack reverses Pack, expanding packed lz4 data whose decompressed size is
// rawLen.
func Unpack(packed []byte, rawLen int) ([]byte, error) {
	raw := make([]byte, rawLen)
	n, err := lz4.UncompressBlock(packed, raw)
	if err != nil {
		return nil, err
	}
	return raw[:n], nil
}

// --- core.AVLNode ---

func (c *Chunk) Height() int { return c.height }

func (c *Chunk) AVLBegin() core.AVLNode {
	if c.begin == nil {
		return nil
	}
	return c.begin
}

func (c *Chunk) AVLEnd() core.AVLNode {
	if c.end == nil {
		return nil
	}
	return c.end
}

func (c *Chunk) SetAVLBegin(n core.AVLNode) {
	if n == nil {
		c.begin = nil
	} else {
		c.begin = n.(*Chunk)
	}
}

func (c *Chunk) SetAVLEnd(n core.AVLNode) {
	if n == nil {
		c.end = nil
	} else {
		c.end = n.(*Chunk)
	}
}

func (c *Chunk) AvlUpdate() { c.refresh() }

// AvlSwapContent exchanges only the non-structural payload (own lines,
// compression cache); begin/end/height stay with the node identity the
// balancer is rotating, per core.AVLNode's contract.
func (c *Chunk) AvlSwapContent(other core.AVLNode) {
	o := other.(*Chunk)
	c.newline, o.newline = o.newline, c.newline
	c.hasContent, o.hasContent = o.hasContent, c.hasContent
	c.ownLines, o.ownLines = o.ownLines, c.ownLines
	c.compressed, o.compressed = o.compressed, c.compressed
	c.packed, o.packed = o.packed, c.packed
	c.digest, o.digest = o.digest, c.digest
}
