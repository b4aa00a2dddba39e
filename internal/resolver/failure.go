package resolver

import "errors"

// Kind is a node in the failure taxonomy. Kinds form an explicit
// ancestor chain ending at KindRoot, replacing class-hierarchy
// reflection: the error handler walk iterates this chain.
type Kind struct {
	name   string
	parent *Kind
}

// KindRoot is the universal root of the taxonomy. It is never resolved
// against the namespace; the handler walk stops before it.
var KindRoot = &Kind{name: "Failure"}

// Predeclared failure kinds.
var (
	KindInternal   = NewKind("InternalFailure", KindRoot)
	KindNotFound   = NewKind("NotFoundFailure", KindRoot)
	KindForbidden  = NewKind("ForbiddenFailure", KindRoot)
	KindBadRequest = NewKind("BadRequestFailure", KindRoot)
	KindTimeout    = NewKind("TimeoutFailure", KindInternal)
	KindPanic      = NewKind("PanicFailure", KindInternal)
)

// NewKind declares a failure kind under the given parent. A nil parent
// anchors the kind directly at the root.
func NewKind(name string, parent *Kind) *Kind {
	if parent == nil {
		parent = KindRoot
	}
	return &Kind{name: name, parent: parent}
}

// Name returns the kind name used as the error handler script name.
func (k *Kind) Name() string {
	return k.name
}

// Chain returns the kind and its ancestors, most specific first,
// excluding the root.
func (k *Kind) Chain() []*Kind {
	var chain []*Kind
	for cur := k; cur != nil && cur != KindRoot; cur = cur.parent {
		chain = append(chain, cur)
	}
	return chain
}

// Failure is an error carrying a taxonomy kind.
type Failure struct {
	kind *Kind
	msg  string
	err  error
}

// NewFailure creates a failure of the given kind.
func NewFailure(kind *Kind, msg string) *Failure {
	return &Failure{kind: kind, msg: msg}
}

// WrapFailure wraps an error into a failure of the given kind.
func WrapFailure(kind *Kind, err error) *Failure {
	return &Failure{kind: kind, err: err}
}

func (f *Failure) Error() string {
	if f.err != nil {
		if f.msg != "" {
			return f.msg + ": " + f.err.Error()
		}
		return f.err.Error()
	}
	return f.msg
}

// Unwrap exposes the wrapped error for errors.Is and errors.As.
func (f *Failure) Unwrap() error {
	return f.err
}

// Kind returns the failure kind.
func (f *Failure) Kind() *Kind {
	return f.kind
}

// KindOf returns the taxonomy kind of an arbitrary error. Errors that
// are not failures classify as internal.
func KindOf(err error) *Kind {
	var failure *Failure
	if errors.As(err, &failure) && failure.kind != nil {
		return failure.kind
	}
	return KindInternal
}
