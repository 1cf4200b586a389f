package domain

import (
	"fmt"
	"strings"
)

// Path identifies a node in a device data tree as a sequence of node names
// from the root. The empty path is the root itself.
type Path []string

// RootPath addresses the whole data tree.
var RootPath = Path{}

// ParsePath parses a slash-separated path. "" and "/" yield RootPath.
func ParsePath(s string) (Path, error) {
	s = strings.Trim(strings.TrimSpace(s), "/")
	if s == "" {
		return RootPath, nil
	}
	segs := strings.Split(s, "/")
	for _, seg := range segs {
		if err := validateSegment(seg); err != nil {
			return nil, err
		}
	}
	return Path(segs), nil
}

// MustParsePath is like ParsePath but panics on error. Intended for tests
// and static initialisation.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func validateSegment(seg string) error {
	if seg == "" {
		return ErrInvalidArgument.WithDetails("empty path segment")
	}
	if strings.ContainsRune(seg, 0) {
		return ErrInvalidArgument.WithDetails(fmt.Sprintf("path segment %q contains NUL", seg))
	}
	return nil
}

// String returns the slash-separated form, "/" for the root.
func (p Path) String() string {
	return "/" + strings.Join(p, "/")
}

// IsRoot reports whether p addresses the root.
func (p Path) IsRoot() bool {
	return len(p) == 0
}

// Last returns the final segment, or "" for the root.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Parent returns the path without its final segment. The parent of the root is the root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return RootPath
	}
	return p[:len(p)-1:len(p)-1]
}

// Child returns a new path with name appended.
func (p Path) Child(name string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = name
	return out
}

// HasPrefix reports whether prefix is an ancestor of (or equal to) p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Equal reports whether two paths address the same node.
func (p Path) Equal(o Path) bool {
	return len(p) == len(o) && p.HasPrefix(o)
}

// Validate checks every segment.
func (p Path) Validate() error {
	for _, seg := range p {
		if err := validateSegment(seg); err != nil {
			return err
		}
	}
	return nil
}
