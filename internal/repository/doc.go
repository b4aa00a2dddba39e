// Package repository implements the hierarchical namespace backing
// handler resolution: a path-keyed node store with a resource type
// hierarchy, and sessions providing the cursor/lifecycle semantics the
// resolver relies on (refresh, clone with impersonation, close).
package repository
