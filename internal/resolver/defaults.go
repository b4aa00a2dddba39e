package resolver

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"resolverd/internal/repository"
	"resolverd/internal/resolver/collector"
)

// DefaultErrorMethod is the script name of the registered default error
// handler looked up before the built-in fallback is used.
const DefaultErrorMethod = "default"

// getDefaultHandler returns the handler used when ordinary resolution
// finds nothing for a normal request. It is constructed once on demand
// and reused; a construction failure is logged and retried on the next
// resolution cycle.
func (e *Engine) getDefaultHandler(ctx context.Context) Handler {
	e.defaultsMu.Lock()
	defer e.defaultsMu.Unlock()

	if e.defaultHandler == nil {
		handler, err := e.newDefaultHandler()
		if err != nil {
			e.logger.ErrorContext(ctx, "failed to initialize default handler",
				slog.String("error", err.Error()))
			return nil
		}
		e.defaultHandler = handler
	}
	return e.defaultHandler
}

// getDefaultErrorHandler returns the error handler used when neither
// the status nor the failure flow found a specific one. A handler
// registered for the error handler type under the default method wins
// over the built-in fallback.
func (e *Engine) getDefaultErrorHandler(ctx context.Context, req *Request, resource *repository.Node, sess *repository.Session) Handler {
	anchorType := ""
	if resource != nil {
		anchorType = resource.Type
	}
	coll := collector.ForError(DefaultErrorMethod, anchorType, e.executionPaths)
	if handler := e.selectHandler(ctx, coll, req, sess); handler != nil {
		return handler
	}

	e.defaultsMu.Lock()
	defer e.defaultsMu.Unlock()

	if e.fallbackErrorHandler == nil {
		handler, err := e.newFallbackErrorHandler()
		if err != nil {
			e.logger.ErrorContext(ctx, "failed to initialize fallback error handler",
				slog.String("error", err.Error()))
			return nil
		}
		e.fallbackErrorHandler = handler
	}
	return e.fallbackErrorHandler
}

// Close destroys the lazily constructed fallback handlers. Destruction
// failures are swallowed.
func (e *Engine) Close() {
	e.defaultsMu.Lock()
	defer e.defaultsMu.Unlock()

	for _, h := range []Handler{e.defaultHandler, e.fallbackErrorHandler} {
		if d, ok := h.(Destroyer); ok {
			func() {
				defer func() { _ = recover() }()
				d.Destroy()
			}()
		}
	}
	e.defaultHandler = nil
	e.fallbackErrorHandler = nil
}

// builtinDefaultHandler renders a plain view of the resolved node. It
// is the terminal leaf for unmatched ordinary requests.
type builtinDefaultHandler struct{}

func newBuiltinDefaultHandler() Handler {
	return &builtinDefaultHandler{}
}

func (h *builtinDefaultHandler) Name() string { return "builtin-default" }

func (h *builtinDefaultHandler) Handle(_ context.Context, w http.ResponseWriter, req *Request) error {
	if req.Resource == nil || req.Resource.IsSynthetic() {
		http.NotFound(w, req.HTTP)
		return nil
	}
	view := map[string]any{
		"path":       req.Resource.Path,
		"type":       req.Resource.Type,
		"properties": req.Resource.Properties,
	}
	render.JSON(w, req.HTTP, view)
	return nil
}

func (h *builtinDefaultHandler) Destroy() {}

// builtinErrorHandler renders a minimal error page from the error
// attributes stamped onto the request. It is the terminal leaf of the
// error handling ladder.
type builtinErrorHandler struct{}

func newBuiltinErrorHandler() Handler {
	return &builtinErrorHandler{}
}

func (h *builtinErrorHandler) Name() string { return "builtin-error" }

func (h *builtinErrorHandler) Handle(_ context.Context, w http.ResponseWriter, req *Request) error {
	status := http.StatusInternalServerError
	if s, ok := req.Attribute(AttrErrorStatus).(int); ok && s >= 400 {
		status = s
	}
	message, _ := req.Attribute(AttrErrorMessage).(string)
	if message == "" {
		message = http.StatusText(status)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := fmt.Fprintf(w,
		"<html><head><title>%d %s</title></head><body><h1>%d %s</h1><p>%s</p></body></html>",
		status, html.EscapeString(http.StatusText(status)),
		status, html.EscapeString(http.StatusText(status)),
		html.EscapeString(message))
	return err
}

func (h *builtinErrorHandler) Destroy() {}
