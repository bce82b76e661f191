// Package apperr defines the error-kind taxonomy shared by every component
// (spec §7). Components return one of these kinds; only the HTTP layer maps
// a kind to a status code.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies which of the eight taxonomy buckets an error belongs to.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindDependencyTransient
	KindDependencyFatal
	KindTimeout
	KindOverload
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindDependencyTransient:
		return "dependency_transient"
	case KindDependencyFatal:
		return "dependency_fatal"
	case KindTimeout:
		return "timeout"
	case KindOverload:
		return "overload"
	default:
		return "unknown"
	}
}

// Error is a typed error carrying a taxonomy Kind alongside the wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a new typed error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an existing error without discarding it.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// As extracts the Kind of err if it is (or wraps) an *Error, defaulting to
// KindUnknown otherwise.
func As(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Validation(msg string) *Error           { return New(KindValidation, msg) }
func Authentication(msg string) *Error       { return New(KindAuthentication, msg) }
func NotFound(msg string) *Error             { return New(KindNotFound, msg) }
func DependencyFatal(msg string, err error) *Error {
	return Wrap(KindDependencyFatal, msg, err)
}
func Timeout(msg string) *Error  { return New(KindTimeout, msg) }
func Overload(msg string) *Error { return New(KindOverload, msg) }
