package collector

import "strings"

// ExecutionPaths sanitizes the configured execution path allow-list.
// A nil result means every path is allowed: this is the case when no
// path is configured, or when any entry is empty or "/".
func ExecutionPaths(configured []string) []string {
	if len(configured) == 0 {
		return nil
	}
	paths := make([]string, 0, len(configured))
	for _, p := range configured {
		p = strings.TrimSpace(p)
		if p == "" || p == "/" {
			return nil
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		return nil
	}
	return paths
}

// IsPathAllowed checks a script path against the execution allow-list.
// An entry ending with a slash allows the whole subtree, any other entry
// allows only that exact path. A nil allow-list allows everything; an
// empty path is never allowed.
func IsPathAllowed(path string, executionPaths []string) bool {
	if path == "" {
		return false
	}
	if executionPaths == nil {
		return true
	}
	for _, allowed := range executionPaths {
		if strings.HasSuffix(allowed, "/") {
			if strings.HasPrefix(path, allowed) {
				return true
			}
		} else if path == allowed {
			return true
		}
	}
	return false
}
