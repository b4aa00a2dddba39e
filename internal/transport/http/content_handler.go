package http

import (
	"context"
	"log/slog"
	"net/http"

	"resolverd/internal/resolver"
)

// ContentHandler serves content requests: it decomposes the URL into
// path, selectors and extension, binds the addressed node from the
// request session, resolves the responsible handler and invokes it.
// Failures are routed through the error handling chain.
type ContentHandler struct {
	engine   *resolver.Engine
	chain    *resolver.ErrorChain
	affinity *resolver.SessionAffinity
	logger   *slog.Logger
}

// NewContentHandler creates a new content handler
func NewContentHandler(engine *resolver.Engine, chain *resolver.ErrorChain, affinity *resolver.SessionAffinity, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{
		engine:   engine,
		chain:    chain,
		affinity: affinity,
		logger:   logger.With(slog.String("handler", "content")),
	}
}

// ServeContent handles all methods under /content
func (h *ContentHandler) ServeContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := resolver.NewRequest(r)

	sess := h.affinity.Acquire(ctx)
	node, ok := sess.ResolveByPath(req.Path)
	if !ok {
		h.logger.InfoContext(ctx, "resource not found",
			slog.String("path", req.Path))
		h.finishError(ctx, h.chain.HandleStatus(ctx, http.StatusNotFound, "resource not found", w, req), w)
		return
	}
	req.Resource = node

	handler := h.engine.Resolve(ctx, req)
	if handler == nil {
		h.logger.ErrorContext(ctx, "no handler available",
			slog.String("path", req.Path),
			slog.String("type", req.ResourceType()))
		h.finishError(ctx, h.chain.HandleStatus(ctx, http.StatusNotFound, "no handler for resource", w, req), w)
		return
	}

	req.SetAttribute(resolver.AttrCurrentHandlerName, handler.Name())

	if err := h.invoke(ctx, handler, w, req); err != nil {
		h.logger.ErrorContext(ctx, "handler invocation failed",
			slog.String("handler", handler.Name()),
			slog.String("path", req.Path),
			slog.String("error", err.Error()))
		h.finishError(ctx, h.chain.HandleFailure(ctx, err, w, req), w)
	}
}

// invoke runs the resolved handler, converting a panic into a failure so
// the error chain can resolve a handler for it.
func (h *ContentHandler) invoke(ctx context.Context, handler resolver.Handler, w http.ResponseWriter, req *resolver.Request) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			h.logger.ErrorContext(ctx, "handler panicked",
				slog.String("handler", handler.Name()),
				slog.Any("panic", rvr))
			err = resolver.NewFailure(resolver.KindPanic, "handler panicked")
		}
	}()
	return handler.Handle(ctx, w, req)
}

// finishError reports an error handler invocation failure. The error
// chain has already logged the details; the response may be partially
// committed at this point, so only a best-effort status is attempted.
func (h *ContentHandler) finishError(ctx context.Context, err error, w http.ResponseWriter) {
	if err == nil {
		return
	}
	h.logger.ErrorContext(ctx, "error handling failed",
		slog.String("error", err.Error()))
	w.WriteHeader(http.StatusInternalServerError)
}
