package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"resolverd/internal/config"
	"resolverd/internal/infrastructure"
	customMiddleware "resolverd/internal/middleware"
	"resolverd/internal/repository"
	"resolverd/internal/resolver"
	handlers "resolverd/internal/transport/http"
)

const (
	Version = "1.0.0"
	AppName = "resolverd"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Store         *repository.Store
	Cache         *resolver.MemoryCache
	Affinity      *resolver.SessionAffinity
	Engine        *resolver.Engine
	ErrorChain    *resolver.ErrorChain
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
}

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", Version))

	otelProviders, err := infrastructure.InitializeOTel(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeResolver(); err != nil {
		return nil, fmt.Errorf("failed to initialize resolver: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeResolver wires the namespace store, the session affinity and
// the resolution engine together.
func (a *Application) initializeResolver() error {
	a.Store = repository.NewStore(a.Config.Resolver.SearchPaths)

	affinity, err := resolver.NewSessionAffinity(a.Store, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open shared session: %w", err)
	}
	a.Affinity = affinity

	metrics, err := resolver.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create resolver metrics: %w", err)
	}

	a.Cache = resolver.NewMemoryCache(a.Config.Resolver.CacheSize, knownScriptExtensions)
	a.Engine = resolver.NewEngine(a.Config.Resolver, a.Cache, a.Affinity, a.Logger, metrics)
	a.ErrorChain = resolver.NewErrorChain(a.Engine, a.Logger)
	return nil
}

// knownScriptExtensions are the script extensions the built-in script
// handler can serve.
var knownScriptExtensions = []string{"html", "json", "txt", "esp"}

// ScriptRootPath resolves the configured script root into an absolute
// namespace path: either the configured absolute path, or the search
// path selected by index, -1 meaning the last entry.
func (a *Application) ScriptRootPath() string {
	root := a.Config.Resolver.ScriptRoot
	searchPaths := a.Store.SearchPaths()

	if strings.HasPrefix(root, "/") {
		return strings.TrimSuffix(root, "/")
	}
	idx, err := strconv.Atoi(root)
	if err != nil {
		a.Logger.Warn("invalid script root, using first search path",
			slog.String("script_root", root))
		idx = 0
	}
	if idx < 0 || idx >= len(searchPaths) {
		idx = len(searchPaths) - 1
	}
	return strings.TrimSuffix(searchPaths[idx], "/")
}

// RegisterHandler registers a Go handler for the given resource type and
// script name. A relative resource type is anchored at the script root.
func (a *Application) RegisterHandler(resourceType, scriptName string, h resolver.Handler) error {
	typePath := resourceType
	if !strings.HasPrefix(typePath, "/") {
		typePath = a.ScriptRootPath() + "/" + typePath
	}
	path := typePath + "/" + scriptName

	node := repository.NewNode(path, "").WithPayload(h)
	if err := a.Store.Put(node); err != nil {
		return fmt.Errorf("failed to register handler at %s: %w", path, err)
	}
	a.Cache.Clear()
	a.Logger.Info("handler registered",
		slog.String("path", path),
		slog.String("handler", h.Name()))
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Server.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Server.RateLimit.RPS,
				a.Config.Server.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))

			healthHandler := handlers.NewHealthHandler(a.Store, a.Cache, Version, a.Logger)
			r.Get("/health", healthHandler.HealthCheck)
			r.Get("/health/live", healthHandler.LivenessCheck)
			r.Get("/version", healthHandler.Version)
		})

		// All content rendering goes through handler resolution, with a
		// request session bound for the duration of the request.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.SessionScope(a.Affinity))

			contentHandler := handlers.NewContentHandler(a.Engine, a.ErrorChain, a.Affinity, a.Logger)
			r.HandleFunc("/content/*", contentHandler.ServeContent)
		})
	})

	// Prometheus metrics endpoint outside the middleware group
	if a.OTelProviders != nil && a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run runs the application until the context is cancelled or an
// interrupt signal arrives, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Logger.InfoContext(ctx, "Application started",
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.Engine.Close()
	a.Affinity.Close()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry",
				slog.String("error", err.Error()))
		}
	}

	infrastructure.CloseLogFile()

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}
