package service

import "errors"

// Kind classifies a service failure so the transport layer can pick a
// status code without string-matching messages.
type Kind int

const (
	KindBadRequest Kind = iota + 1
	KindUnauthorized
	KindConflict
	KindNotFound
)

// Error is a caller-facing failure. Store and provider errors are re-mapped
// into one of these at the service boundary; anything that escapes untagged
// is an internal fault.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func BadRequest(msg string) *Error {
	return &Error{Kind: KindBadRequest, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// KindOf extracts the Kind from err, if it carries one.
func KindOf(err error) (Kind, bool) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind, true
	}
	return 0, false
}
