package resolver

import (
	"context"
	"log/slog"
	"sync"

	"resolverd/internal/repository"
)

// scriptsUser is the impersonation target the shared script session is
// opened for.
const scriptsUser = "scripts"

type sessionContextKey struct{}

// binding holds the per-context session. The pointer is placed in the
// context at OnContextStart so OnContextEnd can close it through the
// same context value.
type binding struct {
	sess *repository.Session
}

// SessionAffinity hands out the namespace session appropriate to the
// calling context: the context-bound request session when one exists,
// otherwise the shared long-lived session after a serialized refresh.
// The shared session is intended for background and administrative
// resolution; per-request sessions are exclusively owned by their
// request goroutine.
type SessionAffinity struct {
	shared *repository.Session
	mu     sync.Mutex
	logger *slog.Logger
}

// NewSessionAffinity opens the shared script session. It is closed by
// Close at shutdown.
func NewSessionAffinity(store *repository.Store, logger *slog.Logger) (*SessionAffinity, error) {
	shared, err := store.OpenSession(scriptsUser)
	if err != nil {
		return nil, err
	}
	return &SessionAffinity{
		shared: shared,
		logger: logger.With(slog.String("component", "session-affinity")),
	}, nil
}

// Acquire returns the session for the calling context. Outside any
// request context the shared session is refreshed first; the refresh is
// serialized so concurrent callers never refresh at the same time.
func (a *SessionAffinity) Acquire(ctx context.Context) *repository.Session {
	if b, ok := ctx.Value(sessionContextKey{}).(*binding); ok && b.sess != nil && b.sess.Live() {
		return b.sess
	}
	a.mu.Lock()
	a.shared.Refresh()
	a.mu.Unlock()
	return a.shared
}

// OnContextStart clones the shared session and binds the clone into the
// returned context. A clone failure is logged and leaves nothing bound,
// so later Acquire calls fall back to the shared session.
func (a *SessionAffinity) OnContextStart(ctx context.Context) context.Context {
	clone, err := a.shared.Clone("")
	if err != nil {
		a.logger.ErrorContext(ctx, "unable to create request session clone",
			slog.String("error", err.Error()))
		return ctx
	}
	return context.WithValue(ctx, sessionContextKey{}, &binding{sess: clone})
}

// OnContextEnd closes and unbinds the context session. It is a no-op
// when the context has none.
func (a *SessionAffinity) OnContextEnd(ctx context.Context) {
	b, ok := ctx.Value(sessionContextKey{}).(*binding)
	if !ok || b.sess == nil {
		return
	}
	if err := b.sess.Close(); err != nil {
		a.logger.WarnContext(ctx, "failed to close request session",
			slog.String("error", err.Error()))
	}
	b.sess = nil
}

// Close closes the shared session at process shutdown.
func (a *SessionAffinity) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.shared.Live() {
		if err := a.shared.Close(); err != nil {
			a.logger.Warn("failed to close shared session", slog.String("error", err.Error()))
		}
	}
}
