package apperr

import (
	"errors"
	"fmt"

	"github.com/valyala/fasthttp"
)

// Kind classifies an error for HTTP responses
type Kind int

const (
	KindUpstream Kind = iota
	KindValidation
	KindNotFound
	KindMethodNotAllowed
	KindRateLimited
)

// GenericMessage is returned to callers for upstream failures
const GenericMessage = "Internal server error"

// Error carries a kind, a caller-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// StatusCode maps the kind to an HTTP status
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return fasthttp.StatusBadRequest
	case KindNotFound:
		return fasthttp.StatusNotFound
	case KindMethodNotAllowed:
		return fasthttp.StatusMethodNotAllowed
	case KindRateLimited:
		return fasthttp.StatusTooManyRequests
	default:
		return fasthttp.StatusInternalServerError
	}
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func MethodNotAllowed() *Error {
	return &Error{Kind: KindMethodNotAllowed, Message: "Method not allowed"}
}

func RateLimited(message string) *Error {
	return &Error{Kind: KindRateLimited, Message: message}
}

// Upstream wraps a failure of a collaborator. message stays server side.
func Upstream(message string, cause error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Cause: cause}
}

// Wrap attaches cause to an existing kind and message.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// StatusCode returns the HTTP status for any error; unclassified errors are 500.
func StatusCode(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.StatusCode()
	}
	return fasthttp.StatusInternalServerError
}

// PublicMessage returns the message safe to show a caller. Upstream and
// unclassified errors collapse to GenericMessage.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindUpstream {
		return appErr.Message
	}
	return GenericMessage
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
