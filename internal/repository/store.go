package repository

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Authorizer decides whether a session may be opened for the given
// impersonation target. An empty target means the service user.
type Authorizer func(impersonation string) error

// Store is the in-process hierarchical namespace. It is safe for
// concurrent use; sessions opened from it are not.
type Store struct {
	mu          sync.RWMutex
	nodes       map[string]*Node
	searchPaths []string
	authorizer  Authorizer
	generation  uint64
}

// NewStore creates an empty store with the given search paths, in order
// of preference.
func NewStore(searchPaths []string) *Store {
	sp := make([]string, len(searchPaths))
	copy(sp, searchPaths)
	return &Store{
		nodes:       make(map[string]*Node),
		searchPaths: sp,
	}
}

// SetAuthorizer installs the session authorizer. A nil authorizer allows
// every session.
func (s *Store) SetAuthorizer(fn Authorizer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorizer = fn
}

// Put registers a node. The path must be absolute and normalized.
func (s *Store) Put(n *Node) error {
	if n == nil {
		return fmt.Errorf("cannot register nil node")
	}
	if NormalizePath(n.Path) != n.Path {
		return fmt.Errorf("node path %q is not an absolute normalized path", n.Path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.Path] = n
	s.generation++
	return nil
}

// Get returns the node at the given path.
func (s *Store) Get(path string) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[path]
	return n, ok
}

// Children returns the direct children of the given path, ordered by name.
func (s *Store) Children(path string) []*Node {
	prefix := strings.TrimSuffix(path, "/") + "/"

	s.mu.RLock()
	defer s.mu.RUnlock()

	children := make([]*Node, 0)
	for p, n := range s.nodes {
		if strings.HasPrefix(p, prefix) && !strings.Contains(p[len(prefix):], "/") {
			children = append(children, n)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Path < children[j].Path })
	return children
}

// SearchPaths returns the configured search paths.
func (s *Store) SearchPaths() []string {
	sp := make([]string, len(s.searchPaths))
	copy(sp, s.searchPaths)
	return sp
}

// SuperTypeOf returns the configured super type of a resource type by
// looking the type up under the search paths, or "" if none is declared.
func (s *Store) SuperTypeOf(resourceType string) string {
	if resourceType == "" || strings.HasPrefix(resourceType, "/") {
		return ""
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sp := range s.searchPaths {
		if n, ok := s.nodes[strings.TrimSuffix(sp, "/")+"/"+resourceType]; ok && n.SuperType != "" {
			return n.SuperType
		}
	}
	return ""
}

// Generation returns the current store generation; it increases on every
// mutation so sessions can detect staleness.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// OpenSession opens a new session. The impersonation target is validated
// by the configured authorizer.
func (s *Store) OpenSession(impersonation string) (*Session, error) {
	s.mu.RLock()
	authorizer := s.authorizer
	generation := s.generation
	s.mu.RUnlock()

	if authorizer != nil {
		if err := authorizer(impersonation); err != nil {
			return nil, fmt.Errorf("session not authorized for %q: %w", impersonation, err)
		}
	}
	return &Session{
		store:         s,
		impersonation: impersonation,
		generation:    generation,
	}, nil
}
