package repository

import "strings"

// Node is a single entry in the hierarchical namespace. A node carries a
// resource type, an optional super type linking it into the type
// hierarchy, free-form properties and an optional payload attached at
// registration time (a script body, a registered handler, ...).
type Node struct {
	Path       string
	Type       string
	SuperType  string
	Properties map[string]string

	payload any
}

// NewNode creates a node at the given path with the given resource type.
func NewNode(path, resourceType string) *Node {
	return &Node{
		Path:       path,
		Type:       resourceType,
		Properties: make(map[string]string),
	}
}

// NewSyntheticNode creates a node that does not exist in the store. It is
// used as an anchor for resolution when no real node is bound yet, for
// example while handling an error that occurred before path resolution.
func NewSyntheticNode(path, resourceType string) *Node {
	n := NewNode(path, resourceType)
	n.Properties["synthetic"] = "true"
	return n
}

// IsSynthetic reports whether the node was created as a placeholder.
func (n *Node) IsSynthetic() bool {
	return n.Properties["synthetic"] == "true"
}

// WithPayload attaches a payload and returns the node for chaining.
func (n *Node) WithPayload(payload any) *Node {
	n.payload = payload
	return n
}

// WithSuperType sets the super type and returns the node for chaining.
func (n *Node) WithSuperType(superType string) *Node {
	n.SuperType = superType
	return n
}

// Adapt returns the payload attached to the node, or nil.
func (n *Node) Adapt() any {
	return n.payload
}

// Name returns the last segment of the node path.
func (n *Node) Name() string {
	if i := strings.LastIndex(n.Path, "/"); i >= 0 {
		return n.Path[i+1:]
	}
	return n.Path
}

// BaseName returns the node name without its extension.
func (n *Node) BaseName() string {
	name := n.Name()
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}

// Extension returns the node name extension, or "".
func (n *Node) Extension() string {
	name := n.Name()
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[i+1:]
	}
	return ""
}

// ParentPath returns the parent path of the node, or "/" at the root.
func (n *Node) ParentPath() string {
	if i := strings.LastIndex(n.Path, "/"); i > 0 {
		return n.Path[:i]
	}
	return "/"
}

// NormalizePath resolves "." and ".." segments and collapses repeated
// slashes. It returns "" when the path is relative or escapes the root.
func NormalizePath(p string) string {
	if p == "" || p[0] != '/' {
		return ""
	}
	var stack []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(stack) == 0 {
				return ""
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, seg)
		}
	}
	if len(stack) == 0 {
		return "/"
	}
	return "/" + strings.Join(stack, "/")
}
