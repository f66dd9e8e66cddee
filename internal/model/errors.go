package model

import "fmt"

// ErrorKind is the abstract error taxonomy every core operation maps its
// failures onto; the HTTP layer maps each kind onto a status code.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindBadRequest
	KindForbidden
	KindUnauthorized
	KindConflict
)

// Error is the core's error type: a kind plus a human message. It never
// carries a payload beyond the message string; conflict payloads (e.g. the
// list of Conflicts) travel alongside the error as separate return values.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindBadRequest:
		return "bad request"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

func NotFound(msg string) *Error      { return &Error{Kind: KindNotFound, Message: msg} }
func BadRequest(msg string) *Error    { return &Error{Kind: KindBadRequest, Message: msg} }
func Forbidden(msg string) *Error     { return &Error{Kind: KindForbidden, Message: msg} }
func Unauthorized(msg string) *Error  { return &Error{Kind: KindUnauthorized, Message: msg} }
func ConflictError(msg string) *Error { return &Error{Kind: KindConflict, Message: msg} }
func Internal(msg string) *Error      { return &Error{Kind: KindInternal, Message: msg} }

// KindOf extracts the ErrorKind from err, defaulting to KindInternal for any
// error not produced by this package (e.g. a bare I/O error bubbling up).
func KindOf(err error) ErrorKind {
	if err == nil {
		return -1
	}
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindInternal
}
