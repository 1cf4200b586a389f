package domain

import (
	"sort"
	"strings"
)

// Node is a data node of a device data tree. A node with a non-empty Value
// is a leaf; any other node is a container whose content is its Children.
// Child names are unique within a parent.
type Node struct {
	Name     string  `json:"name" yaml:"name"`
	Value    string  `json:"value,omitempty" yaml:"value,omitempty"`
	Children []*Node `json:"children,omitempty" yaml:"children,omitempty"`
}

// NewLeaf creates a leaf node.
func NewLeaf(name, value string) *Node {
	return &Node{Name: name, Value: value}
}

// NewContainer creates a container node.
func NewContainer(name string, children ...*Node) *Node {
	return &Node{Name: name, Children: children}
}

// IsLeaf reports whether n carries a value.
func (n *Node) IsLeaf() bool {
	return n.Value != ""
}

// Child returns the direct child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Find returns the descendant at the relative path rel, or nil.
func (n *Node) Find(rel Path) *Node {
	cur := n
	for _, seg := range rel {
		if cur = cur.Child(seg); cur == nil {
			return nil
		}
	}
	return cur
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Name: n.Name, Value: n.Value}
	if len(n.Children) > 0 {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// Equal compares two trees. Child order is not significant.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Name != o.Name || n.Value != o.Value || len(n.Children) != len(o.Children) {
		return false
	}
	for _, c := range n.Children {
		if !c.Equal(o.Child(c.Name)) {
			return false
		}
	}
	return true
}

// Walk visits n and every descendant depth first, parents before children.
// rel is the path of the visited node relative to n.
func (n *Node) Walk(fn func(rel Path, node *Node)) {
	n.walk(RootPath, fn)
}

func (n *Node) walk(rel Path, fn func(Path, *Node)) {
	fn(rel, n)
	for _, c := range n.Children {
		c.walk(rel.Child(c.Name), fn)
	}
}

// Sort orders children by name recursively.
func (n *Node) Sort() {
	sort.Slice(n.Children, func(i, j int) bool {
		return n.Children[i].Name < n.Children[j].Name
	})
	for _, c := range n.Children {
		c.Sort()
	}
}

// String renders a compact single-line form, e.g. cont{a=1,b{}}.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	var sb strings.Builder
	n.format(&sb)
	return sb.String()
}

func (n *Node) format(sb *strings.Builder) {
	sb.WriteString(n.Name)
	if n.IsLeaf() {
		sb.WriteString("=")
		sb.WriteString(n.Value)
		return
	}
	sb.WriteString("{")
	for i, c := range n.Children {
		if i > 0 {
			sb.WriteString(",")
		}
		c.format(sb)
	}
	sb.WriteString("}")
}
