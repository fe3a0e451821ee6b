package core

import "strings"

// Path is a POSIX-like service path: absolute form "/a/b/c"; relative
// forms are resolved against Root. Path holds a slice and so is not
// comparable with ==; Key gives the string form that kgr.NamedServer uses
// to key its name table.
type Path struct {
	segments []string
	absolute bool
}

// Root is the path "/".
func Root() Path { return Path{absolute: true} }

// NewPath parses s into segments, splitting on "/". A leading "/" marks the
// path absolute; empty segments produced by repeated slashes are dropped.
func NewPath(s string) Path {
	absolute := strings.HasPrefix(s, "/")
	var segments []string
	for _, part := range strings.Split(s, "/") {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return Path{segments: segments, absolute: absolute}
}

func (p Path) IsAbsolute() bool { return p.absolute }

// RelativeTo resolves p against base, producing an absolute path.
func (p Path) RelativeTo(base Path) Path {
	if p.absolute {
		return p
	}
	segments := make([]string, 0, len(base.segments)+len(p.segments))
	segments = append(segments, base.segments...)
	segments = append(segments, p.segments...)
	return Path{segments: segments, absolute: true}
}

func (p Path) String() string {
	if len(p.segments) == 0 {
		if p.absolute {
			return "/"
		}
		return ""
	}
	s := strings.Join(p.segments, "/")
	if p.absolute {
		return "/" + s
	}
	return s
}

// Key returns a comparable string representation (segments in order, with
// a leading "/" for absolute paths) suitable as a map key even though Path itself (a struct with a slice field) is not
// directly comparable with ==.
func (p Path) Key() string {
	prefix := ""
	if p.absolute {
		prefix = "/"
	}
	return prefix + strings.Join(p.segments, "/")
}
