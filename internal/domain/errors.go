package domain

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes pipeline failures. Every kind is terminal for the
// current user action.
type ErrorKind string

const (
	KindUnsupportedFormat    ErrorKind = "unsupported_format"
	KindMalformedInput       ErrorKind = "malformed_input"
	KindEmbeddingUnavailable ErrorKind = "embedding_unavailable"
	KindIndexUnavailable     ErrorKind = "index_unavailable"
	KindGenerationFailed     ErrorKind = "generation_failed"
)

// Error is a kinded pipeline error carrying the underlying cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError creates a new kinded error
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Sentinels for errors.Is checks.
var (
	ErrUnsupportedFormat    = NewError(KindUnsupportedFormat, "unsupported file type", nil)
	ErrMalformedInput       = NewError(KindMalformedInput, "malformed document", nil)
	ErrEmbeddingUnavailable = NewError(KindEmbeddingUnavailable, "embedding provider unavailable", nil)
	ErrIndexUnavailable     = NewError(KindIndexUnavailable, "vector index unavailable", nil)
	ErrGenerationFailed     = NewError(KindGenerationFailed, "answer generation failed", nil)
)

// KindOf returns the ErrorKind of err, or an empty kind if err is not a
// pipeline error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Wrap wraps err with kind unless it already carries a kind, in which case
// it is returned unchanged.
func Wrap(kind ErrorKind, message string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return err
	}
	return NewError(kind, message, err)
}
