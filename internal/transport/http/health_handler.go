package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"resolverd/internal/repository"
	"resolverd/internal/resolver"
)

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	store   *repository.Store
	cache   *resolver.MemoryCache
	logger  *slog.Logger
	started time.Time
	version string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store *repository.Store, cache *resolver.MemoryCache, version string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:   store,
		cache:   cache,
		logger:  logger.With(slog.String("handler", "health")),
		started: time.Now(),
		version: version,
	}
}

// HealthCheck handles GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":           "healthy",
		"uptime":           time.Since(h.started).String(),
		"store_generation": h.store.Generation(),
		"cached_handlers":  h.cache.Len(),
	})
}

// LivenessCheck handles GET /api/health/live
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{"status": "alive"})
}

// Version handles GET /api/version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{"version": h.version})
}
