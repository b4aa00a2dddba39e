package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resolverd/internal/config"
	"resolverd/internal/repository"
	"resolverd/internal/resolver"
)

type echoHandler struct {
	name string
	err  error
}

func (h *echoHandler) Name() string { return h.name }

func (h *echoHandler) Handle(_ context.Context, w http.ResponseWriter, req *resolver.Request) error {
	if h.err != nil {
		return h.err
	}
	fmt.Fprintf(w, "handled %s by %s", req.Path, h.name)
	return nil
}

type panicHandler struct{}

func (h *panicHandler) Name() string { return "panicking" }

func (h *panicHandler) Handle(_ context.Context, _ http.ResponseWriter, _ *resolver.Request) error {
	panic("boom")
}

func newTestContentHandler(t *testing.T, store *repository.Store) *ContentHandler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.ResolverConfig{
		CacheSize:         200,
		ExecutionPaths:    []string{"/"},
		DefaultExtensions: []string{"html"},
	}
	cache := resolver.NewMemoryCache(cfg.CacheSize, []string{"esp"})
	affinity, err := resolver.NewSessionAffinity(store, logger)
	require.NoError(t, err)
	t.Cleanup(affinity.Close)

	engine := resolver.NewEngine(cfg, cache, affinity, logger, nil)
	t.Cleanup(engine.Close)
	chain := resolver.NewErrorChain(engine, logger)

	return NewContentHandler(engine, chain, affinity, logger)
}

func TestServeContentInvokesResolvedHandler(t *testing.T) {
	store := repository.NewStore([]string{"/apps", "/libs"})
	require.NoError(t, store.Put(repository.NewNode("/content/page", "demo/page")))
	require.NoError(t, store.Put(
		repository.NewNode("/apps/demo/page/page.html", "").
			WithPayload(&echoHandler{name: "page"})))

	h := newTestContentHandler(t, store)

	w := httptest.NewRecorder()
	h.ServeContent(w, httptest.NewRequest("GET", "/content/page.html", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "handled /content/page by page", w.Body.String())
}

func TestServeContentUnknownPathRendersNotFound(t *testing.T) {
	store := repository.NewStore([]string{"/apps", "/libs"})
	h := newTestContentHandler(t, store)

	w := httptest.NewRecorder()
	h.ServeContent(w, httptest.NewRequest("GET", "/content/missing.html", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "404")
}

func TestServeContentUntypedResourceFallsBackToDefault(t *testing.T) {
	store := repository.NewStore([]string{"/apps", "/libs"})
	require.NoError(t, store.Put(repository.NewNode("/content/raw", "")))

	h := newTestContentHandler(t, store)

	w := httptest.NewRecorder()
	h.ServeContent(w, httptest.NewRequest("GET", "/content/raw.html", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/content/raw")
}

func TestServeContentHandlerErrorRoutesThroughErrorChain(t *testing.T) {
	store := repository.NewStore([]string{"/apps", "/libs"})
	require.NoError(t, store.Put(repository.NewNode("/content/page", "demo/page")))
	require.NoError(t, store.Put(
		repository.NewNode("/apps/demo/page/page.html", "").
			WithPayload(&echoHandler{name: "page", err: errors.New("render failed")})))

	h := newTestContentHandler(t, store)

	w := httptest.NewRecorder()
	h.ServeContent(w, httptest.NewRequest("GET", "/content/page.html", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "render failed")
}

func TestServeContentPanicBecomesFailure(t *testing.T) {
	store := repository.NewStore([]string{"/apps", "/libs"})
	require.NoError(t, store.Put(repository.NewNode("/content/page", "demo/page")))
	require.NoError(t, store.Put(
		repository.NewNode("/apps/demo/page/page.html", "").
			WithPayload(&panicHandler{})))

	h := newTestContentHandler(t, store)

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeContent(w, httptest.NewRequest("GET", "/content/page.html", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServeContentUsesRegisteredErrorScript(t *testing.T) {
	store := repository.NewStore([]string{"/apps", "/libs"})
	require.NoError(t, store.Put(
		repository.NewNode("/apps/core/errorhandler/404.html", "").
			WithPayload(&echoHandler{name: "custom-404"})))

	h := newTestContentHandler(t, store)

	w := httptest.NewRecorder()
	h.ServeContent(w, httptest.NewRequest("GET", "/content/missing.html", nil))

	assert.Contains(t, w.Body.String(), "custom-404")
}
