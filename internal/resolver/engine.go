package resolver

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"resolverd/internal/config"
	"resolverd/internal/repository"
	"resolverd/internal/resolver/collector"
)

// Engine resolves the single best-matching handler for a request or an
// explicit script name. It orchestrates the cache fast path, candidate
// iteration and the opting negotiation; candidate ordering itself is the
// collector's concern and is consumed as given.
type Engine struct {
	executionPaths    []string
	defaultExtensions []string
	cache             Cache
	affinity          *SessionAffinity
	logger            *slog.Logger
	metrics           *Metrics

	defaultsMu           sync.Mutex
	defaultHandler       Handler
	fallbackErrorHandler Handler

	// Constructor hooks for the lazy fallback leaves; construction
	// failures leave the leaf unavailable for that cycle only.
	newDefaultHandler       func() (Handler, error)
	newFallbackErrorHandler func() (Handler, error)
}

// NewEngine creates a resolution engine.
func NewEngine(cfg config.ResolverConfig, cache Cache, affinity *SessionAffinity, logger *slog.Logger, metrics *Metrics) *Engine {
	return &Engine{
		executionPaths:          collector.ExecutionPaths(cfg.ExecutionPaths),
		defaultExtensions:       append([]string(nil), cfg.DefaultExtensions...),
		cache:                   cache,
		affinity:                affinity,
		logger:                  logger.With(slog.String("component", "resolver")),
		metrics:                 metrics,
		newDefaultHandler:       func() (Handler, error) { return newBuiltinDefaultHandler(), nil },
		newFallbackErrorHandler: func() (Handler, error) { return newBuiltinErrorHandler(), nil },
	}
}

// ExecutionPaths returns the sanitized execution path allow-list.
func (e *Engine) ExecutionPaths() []string {
	return e.executionPaths
}

// Resolve resolves a handler for the request based on the type of its
// bound resource. When nothing more specific matches, the lazily
// constructed default handler is returned; the result is nil only when
// that construction fails too.
func (e *Engine) Resolve(ctx context.Context, req *Request) Handler {
	start := time.Now()
	sess := e.affinity.Acquire(ctx)

	resourceType := req.ResourceType()
	e.logger.DebugContext(ctx, "resolving handler",
		slog.String("path", req.Path),
		slog.String("type", resourceType))

	var handler Handler
	if resourceType != "" {
		handler = e.resolveInternal(ctx, req, nil, resourceType, sess)
	}

	if handler == nil {
		e.logger.DebugContext(ctx, "no specific handler found, trying default")
		handler = e.getDefaultHandler(ctx)
		e.metrics.recordResolution(ctx, "default", start)
	} else {
		e.metrics.recordResolution(ctx, "resolved", start)
	}

	if handler != nil {
		e.logger.DebugContext(ctx, "handler resolved",
			slog.String("handler", handler.Name()),
			slog.String("path", req.Path))
	}
	return handler
}

// ResolveNamed resolves a handler for an explicit script name, anchored
// at the optional resource. Absence is a nil result, not an error.
func (e *Engine) ResolveNamed(ctx context.Context, name string, resource *repository.Node) Handler {
	start := time.Now()
	sess := e.affinity.Acquire(ctx)

	handler := e.resolveInternal(ctx, nil, resource, name, sess)
	if handler == nil {
		e.metrics.recordResolution(ctx, "absent", start)
		e.logger.DebugContext(ctx, "no handler found for name", slog.String("name", name))
		return nil
	}
	e.metrics.recordResolution(ctx, "resolved", start)
	return handler
}

// resolveInternal resolves a handler for a script name or resource
// type. An absolute name short-circuits into a direct lookup when the
// execution allow-list permits it; a disallowed absolute name is logged
// and falls through to the ordinary candidate search.
func (e *Engine) resolveInternal(ctx context.Context, req *Request, resource *repository.Node, scriptName string, sess *repository.Session) Handler {
	if strings.HasPrefix(scriptName, "/") {
		scriptPath := repository.NormalizePath(scriptName)
		if collector.IsPathAllowed(scriptPath, e.executionPaths) {
			if node, ok := sess.ResolveByPath(scriptPath); ok {
				if handler := e.adaptHandler(node); handler != nil {
					e.logger.DebugContext(ctx, "handler found via absolute type",
						slog.String("handler", handler.Name()),
						slog.String("script", scriptName))
					return handler
				}
			}
		} else {
			e.logger.InfoContext(ctx, "not looking for a handler at path outside the allowed execution paths",
				slog.String("script", scriptName))
		}
	}

	var coll collector.Collector
	if req != nil {
		coll = collector.ForRequest(scriptName, req.Method(), req.Selectors, req.Extension, e.executionPaths, e.defaultExtensions)
	} else {
		anchorType := ""
		if resource != nil {
			anchorType = resource.Type
		}
		coll = collector.ForName(scriptName, anchorType, e.executionPaths)
	}
	return e.selectHandler(ctx, coll, req, sess)
}

// selectHandler picks the first candidate willing to handle the
// request. Opting handlers are asked to accept only when a live request
// exists; name-based resolution treats them as never accepting. A
// result is cached only when it is a plain handler and no opting
// handler was skipped before it: once an opting candidate declined, a
// later request could make it accept, so caching the plain match would
// silently freeze a wrong answer.
func (e *Engine) selectHandler(ctx context.Context, coll collector.Collector, req *Request, sess *repository.Session) Handler {
	key := coll.Key()
	if handler, ok := e.cache.Get(key); ok {
		e.metrics.recordCacheHit(ctx)
		e.logger.DebugContext(ctx, "using cached handler", slog.String("handler", handler.Name()))
		return handler
	}
	e.metrics.recordCacheMiss(ctx)

	candidates := coll.Candidates(sess, e.cache.KnownExtensions())
	if len(candidates) == 0 {
		e.logger.DebugContext(ctx, "no handler candidates found")
		return nil
	}

	sawOpting := false
	for _, candidate := range candidates {
		handler := e.adaptHandler(candidate)
		if handler == nil {
			e.logger.DebugContext(ctx, "candidate does not adapt to a handler, ignored",
				slog.String("candidate", candidate.Path))
			continue
		}

		opting, isOpting := handler.(OptingHandler)
		accepts := !isOpting || (req != nil && opting.Accepts(req))
		if accepts {
			if !sawOpting && !isOpting {
				e.cache.Put(key, handler)
			}
			e.logger.DebugContext(ctx, "using handler provided by candidate",
				slog.String("candidate", candidate.Path))
			return handler
		}
		if isOpting {
			sawOpting = true
		}
		e.logger.DebugContext(ctx, "candidate does not accept request, ignored",
			slog.String("candidate", candidate.Path))
	}

	return nil
}

// adaptHandler turns a candidate node into a handler: a registered
// handler payload is used directly, a script node is wrapped so it
// re-resolves through the session affinity at invocation time.
func (e *Engine) adaptHandler(node *repository.Node) Handler {
	if node == nil {
		return nil
	}
	if handler, ok := node.Adapt().(Handler); ok {
		return handler
	}
	if _, ok := node.Properties["source"]; ok {
		return newScriptHandler(node, e.affinity)
	}
	return nil
}
