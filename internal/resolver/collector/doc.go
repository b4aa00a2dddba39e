// Package collector generates ordered candidate script locations for a
// resolution request by walking the resource type hierarchy across the
// namespace search paths, and enforces the execution path allow-list.
package collector
