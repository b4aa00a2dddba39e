// Package http contains the HTTP transport layer: the content handler
// that drives handler resolution for inbound requests and the
// operational health endpoints.
package http
