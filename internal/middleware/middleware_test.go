package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resolverd/internal/repository"
	"resolverd/internal/resolver"
	"resolverd/internal/shared/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetReqID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/content/page.html", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
}

func TestRequestIDHonorsHeader(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetReqID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/content/page.html", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "fixed-id", seen)
}

func TestStructuredLoggerLogsRequestLifecycle(t *testing.T) {
	logger, records := testutil.NewTestLogger(t)

	h := StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/content/page.html", nil))

	testutil.AssertLogContains(t, records, slog.LevelInfo, "request started")
	testutil.AssertLogContains(t, records, slog.LevelInfo, "request completed")

	var status any
	for _, r := range records.GetRecords() {
		if r.Message == "request completed" {
			status = r.Attrs["status"]
		}
	}
	assert.EqualValues(t, http.StatusTeapot, status)
}

func TestRecovererReturns500(t *testing.T) {
	h := Recoverer(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(w, httptest.NewRequest("GET", "/content/page.html", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestRateLimiterRejectsWhenExhausted(t *testing.T) {
	rl := NewRateLimiter(0, 1, discardLogger())
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest("GET", "/content/page.html", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest("GET", "/content/page.html", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestSessionScopeClosesRequestSession(t *testing.T) {
	store := repository.NewStore([]string{"/apps", "/libs"})
	affinity, err := resolver.NewSessionAffinity(store, discardLogger())
	require.NoError(t, err)
	defer affinity.Close()

	var inRequest *repository.Session
	h := SessionScope(affinity)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inRequest = affinity.Acquire(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/content/page.html", nil))

	require.NotNil(t, inRequest)
	assert.False(t, inRequest.Live())
}

func TestSessionScopeClosesOnPanic(t *testing.T) {
	store := repository.NewStore([]string{"/apps", "/libs"})
	affinity, err := resolver.NewSessionAffinity(store, discardLogger())
	require.NoError(t, err)
	defer affinity.Close()

	var inRequest *repository.Session
	h := Recoverer(discardLogger())(SessionScope(affinity)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inRequest = affinity.Acquire(r.Context())
		panic("boom")
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/content/page.html", nil))

	require.NotNil(t, inRequest)
	assert.False(t, inRequest.Live())
}
