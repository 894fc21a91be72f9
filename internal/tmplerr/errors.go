// Package tmplerr provides the classified error type used across the template
// expansion engine. Every failure the engine can surface belongs to one of the
// six kinds below; all are fatal to the batch in progress (see the error
// handling design notes in SPEC_FULL.md).
package tmplerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error by the stage of expansion that produced it.
type Kind string

const (
	// TemplateAuthoring indicates a transformer-declared schema violates the
	// per-field invariants (a required field with a default, an optional
	// field without one, or a default whose type disagrees with the field).
	TemplateAuthoring Kind = "template_authoring"

	// SchemaMismatch indicates the schema baked into a transformer artifact
	// disagrees with the parameter schema mirrored in its template recipe.
	SchemaMismatch Kind = "schema_mismatch"

	// Dependency indicates a template-dependency rule violation: a template
	// depending on a template, a parameter file with more than one template
	// dependency, or a declared version requirement unsatisfied by what is
	// present locally.
	Dependency Kind = "dependency"

	// RecipeTransform indicates a template carries a non-empty lifecycle, a
	// transformer's transform call failed, or caller-supplied parameters
	// failed validation or merge.
	RecipeTransform Kind = "recipe_transform"

	// Plugin indicates a transformer artifact could not be found, loaded, or
	// resolved to exactly one candidate transformer.
	Plugin Kind = "plugin"

	// StoreIO indicates the underlying recipe store failed to read, write,
	// or delete a recipe.
	StoreIO Kind = "store_io"
)

// Error is the single error type the engine raises. It carries a Kind for
// programmatic dispatch, a human-readable message that may already aggregate
// several violations, and an optional cause chain.
type Error struct {
	Kind      Kind
	Message   string
	Resource  string
	Operation string
	Err       error
	Causes    []string
}

// New creates an Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind wrapping an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Aggregate creates an Error of the given kind whose message lists every
// entry in causes, one per line, after the leading message. This is how the
// schema engine reports every violation found in a single pass instead of
// stopping at the first one; the loader/planner returns on its first
// violation.
func Aggregate(kind Kind, message string, causes []string) *Error {
	return &Error{Kind: kind, Message: message, Causes: causes}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Resource != "" && e.Operation != "" {
		fmt.Fprintf(&b, "[%s] %s (resource=%s, operation=%s)", e.Kind, e.Message, e.Resource, e.Operation)
	} else if e.Resource != "" {
		fmt.Fprintf(&b, "[%s] %s (resource=%s)", e.Kind, e.Message, e.Resource)
	} else {
		fmt.Fprintf(&b, "[%s] %s", e.Kind, e.Message)
	}
	for _, c := range e.Causes {
		b.WriteString("\n  - ")
		b.WriteString(c)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped cause, if any, for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithResource attaches the identifier or path that triggered the error.
func (e *Error) WithResource(resource string) *Error {
	e.Resource = resource
	return e
}

// WithOperation attaches the operation being performed when the error
// occurred, e.g. "loadComponents" or "expandAllForTemplate".
func (e *Error) WithOperation(operation string) *Error {
	e.Operation = operation
	return e
}

// Of reports whether err (or something in its chain) is a tmplerr.Error of
// the given kind.
func Of(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
