package repository

import (
	"errors"
	"fmt"
)

// ErrSessionClosed is returned when a closed session is used.
var ErrSessionClosed = errors.New("session is closed")

// Session is a stateful handle to the namespace. A session must never be
// used from two goroutines at the same time; callers needing isolation
// clone the session instead.
type Session struct {
	store         *Store
	impersonation string
	generation    uint64
	closed        bool
}

// ResolveByPath resolves an absolute path to a node. The path is
// normalized first; an unnormalizable path resolves to nothing.
func (s *Session) ResolveByPath(path string) (*Node, bool) {
	if s.closed {
		return nil, false
	}
	normalized := NormalizePath(path)
	if normalized == "" {
		return nil, false
	}
	return s.store.Get(normalized)
}

// Children returns the direct children of the given path.
func (s *Session) Children(path string) []*Node {
	if s.closed {
		return nil
	}
	return s.store.Children(path)
}

// SearchPaths returns the store search paths.
func (s *Session) SearchPaths() []string {
	return s.store.SearchPaths()
}

// SuperTypeOf returns the declared super type of a resource type.
func (s *Session) SuperTypeOf(resourceType string) string {
	if s.closed {
		return ""
	}
	return s.store.SuperTypeOf(resourceType)
}

// Refresh moves the session cursor to the current store generation.
// Callers sharing a session must serialize Refresh externally.
func (s *Session) Refresh() {
	if s.closed {
		return
	}
	s.generation = s.store.Generation()
}

// Stale reports whether the store changed since the session was opened
// or last refreshed.
func (s *Session) Stale() bool {
	return s.generation != s.store.Generation()
}

// Clone opens a new session against the same store, optionally
// impersonating another user. The clone has its own cursor and lifecycle.
func (s *Session) Clone(impersonation string) (*Session, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if impersonation == "" {
		impersonation = s.impersonation
	}
	clone, err := s.store.OpenSession(impersonation)
	if err != nil {
		return nil, fmt.Errorf("failed to clone session: %w", err)
	}
	return clone, nil
}

// Close releases the session. Closing twice is an error.
func (s *Session) Close() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	return nil
}

// Live reports whether the session is still usable.
func (s *Session) Live() bool {
	return !s.closed
}
