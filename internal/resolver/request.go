package resolver

import (
	"net/http"
	"strings"

	"resolverd/internal/repository"
)

// Request attribute names used to pass structured error context to the
// invoked error handler.
const (
	AttrErrorStatus      = "resolver.error.status"
	AttrErrorMessage     = "resolver.error.message"
	AttrErrorFailure     = "resolver.error.failure"
	AttrErrorFailureKind = "resolver.error.failure_kind"
	AttrErrorHandlerName = "resolver.error.handler_name"
	AttrErrorRequestURI  = "resolver.error.request_uri"

	// AttrCurrentHandlerName names the handler rendering the request; it
	// is preserved as the originating handler when an error is handled.
	AttrCurrentHandlerName = "resolver.current_handler"
)

// Request is the resolution view of an inbound request: the content
// path decomposed into path, selectors and extension, the bound
// namespace node once resolution found one, and a mutable attribute
// set. A Request is owned by a single goroutine.
type Request struct {
	HTTP      *http.Request
	Path      string
	Selectors []string
	Extension string
	Resource  *repository.Node

	attrs map[string]any
}

// NewRequest builds a Request from an inbound HTTP request, decomposing
// the URL path into content path, selectors and extension.
func NewRequest(r *http.Request) *Request {
	path, selectors, extension := ParseRequestPath(r.URL.Path)
	return &Request{
		HTTP:      r,
		Path:      path,
		Selectors: selectors,
		Extension: extension,
		attrs:     make(map[string]any),
	}
}

// Method returns the HTTP method, or "" for a request-less resolution.
func (r *Request) Method() string {
	if r.HTTP == nil {
		return ""
	}
	return r.HTTP.Method
}

// ResourceType returns the type of the bound resource, or "".
func (r *Request) ResourceType() string {
	if r.Resource == nil {
		return ""
	}
	return r.Resource.Type
}

// Attribute returns a request attribute, or nil.
func (r *Request) Attribute(name string) any {
	if r.attrs == nil {
		return nil
	}
	return r.attrs[name]
}

// SetAttribute sets a request attribute.
func (r *Request) SetAttribute(name string, value any) {
	if r.attrs == nil {
		r.attrs = make(map[string]any)
	}
	r.attrs[name] = value
}

// ParseRequestPath splits a request URL path into the content path, the
// selector chain and the extension. The last path segment is split at
// dots: the first part belongs to the content path, the last part is
// the extension and everything between are selectors.
func ParseRequestPath(urlPath string) (path string, selectors []string, extension string) {
	path = urlPath
	slash := strings.LastIndex(urlPath, "/")
	segment := urlPath[slash+1:]

	dot := strings.Index(segment, ".")
	if dot < 0 {
		return path, nil, ""
	}

	parts := strings.Split(segment, ".")
	path = urlPath[:slash+1] + parts[0]
	if len(parts) > 2 {
		selectors = parts[1 : len(parts)-1]
	}
	extension = parts[len(parts)-1]
	return path, selectors, extension
}
