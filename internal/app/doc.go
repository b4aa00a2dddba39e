// Package app wires the resolverd service together: configuration,
// logging, metrics, the namespace store, the resolution engine and the
// HTTP server, with graceful shutdown.
package app
