package collector

import (
	"strings"

	"resolverd/internal/repository"
)

// BaseResourceType is the implicit root of every resource type hierarchy.
const BaseResourceType = "core/default"

// ErrorHandlerType is the resource type error handler scripts live
// under; it terminates the type hierarchy during error resolution.
const ErrorHandlerType = "core/errorhandler"

// Key is the value identity of a resolution request. It is used both to
// index the resolution cache and to ask a collector for candidates; two
// requests with identical effective attributes produce equal keys.
type Key struct {
	Target    string
	Method    string
	Selectors string
	Extension string
	Paths     string
	// Name is set only for explicit script name resolution, keeping
	// named lookups distinct from request lookups in the cache.
	Name string
	// Base is the hierarchy base type; it distinguishes error handler
	// lookups from ordinary script lookups with the same name.
	Base string
}

// NewKey builds a key from the effective resolution attributes.
func NewKey(target, method string, selectors []string, extension string, executionPaths []string) Key {
	return Key{
		Target:    target,
		Method:    method,
		Selectors: strings.Join(selectors, "."),
		Extension: extension,
		Paths:     strings.Join(executionPaths, ":"),
	}
}

// Collector produces the ordered candidate script nodes for one
// resolution request. Ordering is the collector's responsibility; the
// resolution engine consumes it as given.
type Collector interface {
	// Key returns the identity of this collection request.
	Key() Key

	// Candidates returns candidate nodes in order of preference. A node
	// qualifies when it carries a handler payload or is a script whose
	// extension is one of the known script extensions.
	Candidates(sess *repository.Session, knownExtensions []string) []*repository.Node
}

// typeCollector walks the resource type hierarchy of a request across
// the session search paths.
type typeCollector struct {
	resourceType   string
	method         string
	selectors      []string
	extension      string
	executionPaths []string
	scriptName     string
	rawName        string
	baseType       string
}

// ForRequest creates a collector for request-driven resolution. The
// script named after the last resource type segment participates only
// when the request extension is one of the default extensions.
func ForRequest(resourceType, method string, selectors []string, extension string, executionPaths, defaultExtensions []string) Collector {
	scriptName := ""
	for _, ext := range defaultExtensions {
		if ext == extension {
			scriptName = lastSegment(resourceType)
			break
		}
	}
	return &typeCollector{
		resourceType:   resourceType,
		method:         method,
		selectors:      append([]string(nil), selectors...),
		extension:      extension,
		executionPaths: executionPaths,
		scriptName:     scriptName,
	}
}

// ForName creates a collector for explicit script name resolution,
// anchored at the given resource type.
func ForName(name, resourceType string, executionPaths []string) Collector {
	return &typeCollector{
		resourceType:   resourceType,
		executionPaths: executionPaths,
		scriptName:     strippedScriptName(name),
		rawName:        name,
	}
}

// ForError creates a collector for error handler scripts named after a
// status code or failure kind, anchored at the failing resource's type
// hierarchy with the error handler type as its base.
func ForError(name, resourceType string, executionPaths []string) Collector {
	return &typeCollector{
		resourceType:   resourceType,
		executionPaths: executionPaths,
		scriptName:     name,
		rawName:        name,
		baseType:       ErrorHandlerType,
	}
}

func (c *typeCollector) Key() Key {
	key := NewKey(c.resourceType, c.method, c.selectors, c.extension, c.executionPaths)
	key.Name = c.rawName
	key.Base = c.baseType
	return key
}

func (c *typeCollector) Candidates(sess *repository.Session, knownExtensions []string) []*repository.Node {
	var candidates []*repository.Node
	seen := make(map[string]bool)

	for _, location := range c.locations(sess) {
		// Selector-specific directories are more specific than the
		// location itself, deepest chain first.
		for depth := len(c.selectors); depth >= 0; depth-- {
			dir := location
			if depth > 0 {
				dir = location + "/" + strings.Join(c.selectors[:depth], "/")
			}
			for _, name := range c.scriptNames() {
				for _, child := range sess.Children(dir) {
					if seen[child.Path] {
						continue
					}
					if child.BaseName() != name {
						continue
					}
					if !c.executable(child, knownExtensions) {
						continue
					}
					if !IsPathAllowed(child.Path, c.executionPaths) {
						continue
					}
					seen[child.Path] = true
					candidates = append(candidates, child)
				}
			}
		}
	}
	return candidates
}

// locations lists the namespace locations to search, ordered by the type
// hierarchy first and the search paths second. An absolute resource type
// is itself a location; relative types are anchored under every search
// path.
func (c *typeCollector) locations(sess *repository.Session) []string {
	var locations []string
	visited := make(map[string]bool)

	baseType := c.baseType
	if baseType == "" {
		baseType = BaseResourceType
	}
	resourceType := c.resourceType
	if resourceType == "" {
		resourceType = baseType
	}
	for resourceType != "" && !visited[resourceType] {
		visited[resourceType] = true
		if strings.HasPrefix(resourceType, "/") {
			if p := repository.NormalizePath(resourceType); p != "" {
				locations = append(locations, p)
			}
			resourceType = sess.SuperTypeOf(strings.TrimPrefix(resourceType, "/"))
			continue
		}
		for _, sp := range sess.SearchPaths() {
			locations = append(locations, strings.TrimSuffix(sp, "/")+"/"+resourceType)
		}
		super := sess.SuperTypeOf(resourceType)
		if super == "" && resourceType != baseType {
			super = baseType
		}
		resourceType = super
	}
	return locations
}

// scriptNames returns the base names that qualify as scripts for this
// request, most specific first: the type-derived name, the request
// extension, then the method.
func (c *typeCollector) scriptNames() []string {
	if c.rawName != "" {
		// Explicit name resolution ignores extension and method names.
		if c.rawName != c.scriptName {
			return []string{c.scriptName, c.rawName}
		}
		return []string{c.scriptName}
	}
	var names []string
	if c.scriptName != "" {
		names = append(names, c.scriptName)
	}
	if c.extension != "" {
		names = append(names, c.extension)
	}
	if c.method != "" && c.method != c.scriptName {
		names = append(names, c.method)
	}
	return names
}

func (c *typeCollector) executable(n *repository.Node, knownExtensions []string) bool {
	if n.Adapt() != nil {
		return true
	}
	ext := n.Extension()
	for _, known := range knownExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

func lastSegment(resourceType string) string {
	t := strings.TrimSuffix(resourceType, "/")
	if i := strings.LastIndexAny(t, "/:"); i >= 0 {
		return t[i+1:]
	}
	return t
}

// strippedScriptName removes a script-engine extension from an explicit
// script name so "page.jsp" and "page" collect the same candidates.
func strippedScriptName(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}
