// Package resolver selects the executable handler for a request or an
// explicit script name out of the hierarchical namespace, and reuses
// the same machinery to pick error handlers by HTTP status or failure
// kind.
//
// Resolution consults the cache first, then iterates the candidates
// produced by the collector in order; the first handler willing to take
// the request wins. Handlers come in two flavors: plain handlers always
// accept once selected, opting handlers may still decline a specific
// request. A result is cached only when no opting handler was passed
// over on the way to it.
//
// Sessions into the namespace follow a strict affinity model: one
// shared session serves background resolution behind a refresh mutex,
// while each request gets its own clone bound to the request context
// and closed when the request ends.
package resolver
