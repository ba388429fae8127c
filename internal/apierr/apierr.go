// Package apierr defines the typed error taxonomy shared between the
// core supervisors and the HTTP layer that maps them to status codes.
package apierr

import "fmt"

// Kind classifies an error for the HTTP layer's status-code mapping.
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindUnknownWorker     Kind = "UNKNOWN_WORKER"
	KindValidation        Kind = "VALIDATION"
	KindInvalidQuantity   Kind = "INVALID_QUANTITY"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindUnauthenticated   Kind = "UNAUTHENTICATED"
	KindForbidden         Kind = "FORBIDDEN"
	KindInternal          Kind = "INTERNAL"
)

// Error is a taxonomy-tagged error returned across supervisor boundaries.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New constructs an Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a NOT_FOUND error for the given entity/id.
func NotFound(entity, id string) *Error {
	return New(KindNotFound, "%s %q not found", entity, id)
}

// As reports whether err is an *Error and returns it.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
