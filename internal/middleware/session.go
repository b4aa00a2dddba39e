package middleware

import (
	"net/http"

	"resolverd/internal/resolver"
)

// SessionScope binds a request-scoped namespace session to the request
// context and guarantees it is closed when the request ends, including
// when a downstream handler panics. It must run before any middleware
// or handler that resolves content.
func SessionScope(affinity *resolver.SessionAffinity) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := affinity.OnContextStart(r.Context())
			defer affinity.OnContextEnd(ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
