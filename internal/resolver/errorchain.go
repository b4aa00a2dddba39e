package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"resolverd/internal/repository"
	"resolverd/internal/resolver/collector"
)

// ErrorChain resolves and invokes error handlers. Both flows reuse the
// engine's resolution machinery with error-specific search keys and
// terminate in the fallback ladder when nothing more specific matches.
type ErrorChain struct {
	engine *Engine
	logger *slog.Logger
}

// NewErrorChain creates the error handling chain on top of the engine.
func NewErrorChain(engine *Engine, logger *slog.Logger) *ErrorChain {
	return &ErrorChain{
		engine: engine,
		logger: logger.With(slog.String("component", "error-chain")),
	}
}

// HandleStatus resolves and invokes an error handler for an HTTP status
// code. The handler script is named after the decimal status, looked up
// against the error handler type anchored at the failing resource.
func (c *ErrorChain) HandleStatus(ctx context.Context, status int, message string, w http.ResponseWriter, req *Request) error {
	if req.Attribute(AttrErrorRequestURI) != nil {
		c.logger.ErrorContext(ctx, "recursive error handling invocation, not handling again",
			slog.Int("status", status),
			slog.String("message", message))
		return nil
	}

	sess := c.engine.affinity.Acquire(ctx)
	resource := c.errorResource(req)

	coll := collector.ForError(strconv.Itoa(status), resource.Type, c.engine.executionPaths)
	handler := c.engine.selectHandler(ctx, coll, req, sess)
	if handler == nil {
		handler = c.engine.getDefaultErrorHandler(ctx, req, resource, sess)
	}

	req.SetAttribute(AttrErrorStatus, status)
	req.SetAttribute(AttrErrorMessage, message)

	c.engine.metrics.recordErrorHandled(ctx, "status")
	return c.dispatch(ctx, handler, w, req)
}

// HandleFailure resolves and invokes an error handler for a failure by
// walking its kind's ancestor chain, most specific kind first. The walk
// stops before the universal root; the first hit wins.
func (c *ErrorChain) HandleFailure(ctx context.Context, failure error, w http.ResponseWriter, req *Request) error {
	if req.Attribute(AttrErrorRequestURI) != nil {
		c.logger.ErrorContext(ctx, "recursive error handling invocation, not handling failure again",
			slog.String("failure", failure.Error()))
		return nil
	}

	sess := c.engine.affinity.Acquire(ctx)
	resource := c.errorResource(req)

	var handler Handler
	kind := KindOf(failure)
	for _, k := range kind.Chain() {
		coll := collector.ForError(k.Name(), resource.Type, c.engine.executionPaths)
		if handler = c.engine.selectHandler(ctx, coll, req, sess); handler != nil {
			break
		}
	}
	if handler == nil {
		handler = c.engine.getDefaultErrorHandler(ctx, req, resource, sess)
	}

	req.SetAttribute(AttrErrorFailure, failure)
	req.SetAttribute(AttrErrorFailureKind, kind.Name())
	req.SetAttribute(AttrErrorMessage, failure.Error())

	c.engine.metrics.recordErrorHandled(ctx, "failure")
	return c.dispatch(ctx, handler, w, req)
}

// errorResource returns the resource to anchor error resolution at. If
// the request has no resource bound yet, because the error occurred
// before path resolution, a synthetic node at the request path is used.
func (c *ErrorChain) errorResource(req *Request) *repository.Node {
	if req.Resource != nil {
		return req.Resource
	}
	return repository.NewSyntheticNode(req.Path, collector.ErrorHandlerType)
}

// dispatch invokes the resolved error handler and commits the response.
// An invocation failure is fatal for this error handling attempt: it is
// wrapped with the original failure retained and surfaced to the host.
func (c *ErrorChain) dispatch(ctx context.Context, handler Handler, w http.ResponseWriter, req *Request) error {
	if handler == nil {
		c.logger.ErrorContext(ctx, "no error handler available, leaving response untouched")
		return nil
	}

	req.SetAttribute(AttrErrorRequestURI, req.Path)

	// Keep the name of the handler that caused the error if known,
	// otherwise record the error handler itself.
	if req.Attribute(AttrErrorHandlerName) == nil {
		if name, ok := req.Attribute(AttrCurrentHandlerName).(string); ok {
			req.SetAttribute(AttrErrorHandlerName, name)
		} else {
			req.SetAttribute(AttrErrorHandlerName, handler.Name())
		}
	}

	if err := handler.Handle(ctx, w, req); err != nil {
		c.logger.ErrorContext(ctx, "calling the error handler resulted in an error",
			slog.String("handler", handler.Name()),
			slog.String("error", err.Error()))
		if original := req.Attribute(AttrErrorFailure); original != nil {
			c.logger.ErrorContext(ctx, "original error",
				slog.String("kind", fmt.Sprintf("%v", req.Attribute(AttrErrorFailureKind))),
				slog.String("error", fmt.Sprintf("%v", original)))
		}
		return fmt.Errorf("error handler %s failed: %w", handler.Name(), err)
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}
