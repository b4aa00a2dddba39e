package resolver

import (
	"context"
	"fmt"
	"net/http"

	"resolverd/internal/repository"
)

// Handler is the resolved unit of execution. A plain handler always
// accepts once selected by ordering.
type Handler interface {
	// Name identifies the handler in logs and error attributes.
	Name() string

	// Handle renders the request. The response lifecycle is owned by
	// the caller except during error handling, where the error chain
	// flushes on success.
	Handle(ctx context.Context, w http.ResponseWriter, req *Request) error
}

// OptingHandler is a handler that, even when selected by ordering, may
// still decline a specific request at runtime.
type OptingHandler interface {
	Handler

	// Accepts reports whether the handler is willing to process the
	// request. It is consulted only when a live request is available.
	Accepts(req *Request) bool
}

// Destroyer is implemented by handlers that hold resources needing
// release at shutdown.
type Destroyer interface {
	Destroy()
}

// scriptHandler serves a script node. The node path rather than the
// node itself is retained so invocation re-resolves through the session
// affinity: a handler selected through a request session stays usable
// after that session closes, falling back to the shared session.
type scriptHandler struct {
	path     string
	name     string
	affinity *SessionAffinity
}

func newScriptHandler(node *repository.Node, affinity *SessionAffinity) *scriptHandler {
	return &scriptHandler{
		path:     node.Path,
		name:     node.Name(),
		affinity: affinity,
	}
}

func (h *scriptHandler) Name() string {
	return h.name
}

func (h *scriptHandler) Handle(ctx context.Context, w http.ResponseWriter, req *Request) error {
	sess := h.affinity.Acquire(ctx)
	node, ok := sess.ResolveByPath(h.path)
	if !ok {
		return fmt.Errorf("script %s no longer exists", h.path)
	}

	source, ok := node.Properties["source"]
	if !ok {
		return fmt.Errorf("script %s has no source", h.path)
	}

	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", contentTypeFor(req.Extension))
	}
	_, err := fmt.Fprint(w, source)
	return err
}

func contentTypeFor(extension string) string {
	switch extension {
	case "json":
		return "application/json"
	case "txt":
		return "text/plain; charset=utf-8"
	case "xml":
		return "application/xml"
	default:
		return "text/html; charset=utf-8"
	}
}
