package security

import (
	"sync"

	cuckoo "github.com/seiflotfy/cuckoofilter"
)

// RestrictionFilter is a named blacklist of service paths. A cuckoofilter
// fronts the exact set as a fast
// "definitely not blocked" pre-check on the hot Connect/Bind path -- a
// filter hit still falls through to the exact map before a request is
// actually refused, so a false positive from the probabilistic structure
// can only cost a wasted map lookup, never an incorrect block.
type RestrictionFilter struct {
	mu     sync.RWMutex
	filter *cuckoo.Filter
	exact  map[string]struct{}
}

func NewRestrictionFilter() *RestrictionFilter {
	return &RestrictionFilter{
		filter: cuckoo.NewFilter(1000000),
		exact:  map[string]struct{}{},
	}
}

// Block adds name to the blacklist.
func (f *RestrictionFilter) Block(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, already := f.exact[name]; already {
		return
	}
	f.exact[name] = struct{}{}
	f.filter.InsertUnique([]byte(name))
}

// Unblock removes name from the blacklist.
func (f *RestrictionFilter) Unblock(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.exact[name]; !ok {
		return
	}
	delete(f.exact, name)
	f.filter.Delete([]byte(name))
}

// Blocks reports whether name is blacklisted.
func (f *RestrictionFilter) Blocks(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.filter.Lookup([]byte(name)) {
		return false
	}
	_, blocked := f.exact[name]
	return blocked
}

// list returns the exact blacklist entries, for persistence in Store.
func (f *RestrictionFilter) list() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.exact))
	for name := range f.exact {
		out = append(out, name)
	}
	return out
}
