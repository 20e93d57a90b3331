package gitservice

import (
	"errors"
	"fmt"

	"github.com/codelayer/gitbridge/internal/security"
)

// ErrorKind is the shared failure taxonomy every provider error is mapped
// into before it reaches a caller.
type ErrorKind string

// Classified error kinds.
const (
	KindAuthentication   ErrorKind = "authentication"
	KindResourceNotFound ErrorKind = "resource_not_found"
	KindRateLimited      ErrorKind = "rate_limited"
	KindTransient        ErrorKind = "transient"
	KindValidation       ErrorKind = "validation"
	KindUnknown          ErrorKind = "unknown"
)

// Error definitions for git service operations.
var (
	errUnsupportedProvider = errors.New("unsupported git provider")
	errPaginationLoop      = errors.New("pagination loop detected")
	errTokenMismatch       = errors.New("page token was issued by a different provider")
	errEmptyToken          = errors.New("credential has an empty token")

	// ErrUnsupportedProvider is returned by the registry for unrecognized provider kinds.
	ErrUnsupportedProvider = errUnsupportedProvider
	// ErrPaginationLoop is returned when a listing exceeds its page budget.
	ErrPaginationLoop = errPaginationLoop
	// ErrTokenMismatch is returned when a PageToken is replayed against the wrong provider.
	ErrTokenMismatch = errTokenMismatch
	// ErrEmptyToken is returned when a credential carries no token.
	ErrEmptyToken = errEmptyToken
)

// ClassifiedError is a provider failure mapped into the shared taxonomy.
// The raw provider message is sanitized before storage so it can be logged
// without leaking credentials.
type ClassifiedError struct {
	Kind       ErrorKind
	HTTPStatus int
	// RetryAfterSeconds is only meaningful for KindRateLimited.
	RetryAfterSeconds int
	ProviderMessage   string
	// Err is the underlying transport error, if any.
	Err error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	msg := fmt.Sprintf("%s (status %d)", e.Kind, e.HTTPStatus)
	if e.ProviderMessage != "" {
		msg += ": " + security.SanitizeString(e.ProviderMessage)
	}
	if e.Err != nil {
		msg += ": " + security.SanitizeString(e.Err.Error())
	}
	return msg
}

// Unwrap exposes the underlying transport error to errors.Is/As.
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the error may be retried by the engine.
// Authentication, not-found and validation failures are never retried.
func (e *ClassifiedError) Retryable() bool {
	return e.Kind == KindTransient || e.Kind == KindRateLimited
}

// AsClassified extracts a *ClassifiedError from err's chain, if present.
func AsClassified(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// KindOf returns the classified kind of err, or KindUnknown when err did
// not originate from this package.
func KindOf(err error) ErrorKind {
	if ce, ok := AsClassified(err); ok {
		return ce.Kind
	}
	return KindUnknown
}

// IsAuthentication reports whether err classified as an authentication failure.
func IsAuthentication(err error) bool { return KindOf(err) == KindAuthentication }

// IsNotFound reports whether err classified as a missing resource.
func IsNotFound(err error) bool { return KindOf(err) == KindResourceNotFound }

// IsRateLimited reports whether err classified as a rate limit.
func IsRateLimited(err error) bool { return KindOf(err) == KindRateLimited }

// IsTransient reports whether err classified as a transient failure.
func IsTransient(err error) bool { return KindOf(err) == KindTransient }

// IsValidation reports whether err classified as a validation failure.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// validationError builds a KindValidation error from a sentinel, for
// failures that originate locally rather than from an upstream response.
func validationError(sentinel error, detail string) *ClassifiedError {
	msg := sentinel.Error()
	if detail != "" {
		msg += ": " + detail
	}
	return &ClassifiedError{
		Kind:            KindValidation,
		ProviderMessage: msg,
		Err:             sentinel,
	}
}
