package text

import (
	"strings"
	"sync"

	"github.com/sloked-project/sloked/cmn/cos"
)

// MaxChunk bounds the size of a single cold Handle emitted by Open.
const MaxChunk = 2 * 1024 * 1024

// Document is the mutable facade over a rope root. The *Document identity
// is stable across Rebuild; only the root Block underneath it is replaced.
type Document struct {
	mu      sync.RWMutex
	newline NewLine
	root    Block
}

// Open splits content into MaxChunk-bounded Handles on line boundaries and
// joins them into a right-leaning chain of Regions (AppendRegion). Each
// Handle keeps its input plus that input split into lines (substrings that
// share the input's bytes); nothing is copied or parsed further until an
// edit opens a Chunk.
func Open(nl NewLine, content string) *Document {
	segments := splitChunks(content, nl, MaxChunk)
	var root *Region
	for _, seg := range segments {
		region := NewRegion(nl, NewHandle(nl, seg))
		if root == nil {
			root = region
		} else {
			root.AppendRegion(region)
		}
	}
	if root == nil {
		root = NewRegion(nl, NewHandle(nl, ""))
	}
	return &Document{newline: nl, root: root}
}

// splitChunks cuts content into pieces no larger than max bytes, only at
// line boundaries recognised by nl (an over-long single line is kept whole
// rather than split mid-line).
func splitChunks(content string, nl NewLine, max int) []string {
	if len(content) <= max {
		return []string{content}
	}
	var out []string
	lastCut := 0
	lastBoundary := -1
	nl.Iterate(content, func(i, width int) {
		end := i + width
		if end-lastCut > max && lastBoundary >= 0 {
			out = append(out, content[lastCut:lastBoundary])
			lastCut = lastBoundary
		}
		lastBoundary = end
	})
	if lastCut < len(content) {
		out = append(out, content[lastCut:])
	}
	return out
}

// Rebuild replaces the root under the Document's own identity with a fresh
// tree built from content; readers holding only block-level views (not a
// *Document) must re-fetch.
func (d *Document) Rebuild(nl NewLine, content string) {
	fresh := Open(nl, content)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.newline = nl
	d.root = fresh.root
}

func (d *Document) NewLine() NewLine {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.newline
}

func (d *Document) GetLastLine() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.root.GetLastLine()
}

func (d *Document) GetTotalLength() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.root.GetTotalLength()
}

func (d *Document) GetLine(i uint64) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.root.GetLine(i)
}

func (d *Document) Visit(from, count uint64, visitor func(uint64, string)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	d.root.Visit(from, count, visitor)
}

func (d *Document) SetLine(i uint64, s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.root.SetLine(i, s)
}

func (d *Document) EraseLine(i uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.root.EraseLine(i)
}

func (d *Document) InsertLine(i uint64, s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.root.InsertLine(i, s)
}

func (d *Document) Optimize() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.root.Optimize()
}

// Materialize renders the whole document as one string.
func (d *Document) Materialize() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var b strings.Builder
	last := d.root.GetLastLine()
	for i := uint64(0); ; i++ {
		b.WriteString(d.root.GetLine(i))
		if i == last {
			break
		}
		b.WriteString(d.newline.String())
	}
	return b.String()
}

// Digest fingerprints the current materialised content, used by
// text/checkpoint to verify a restored snapshot matches what was written.
func (d *Document) Digest() cos.Digest {
	return cos.Sum64([]byte(d.Materialize()))
}
