package answer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrEmptyPrompt is returned when GenerateAnswer is called without a prompt.
var ErrEmptyPrompt = errors.New("empty prompt")

// ErrNoProvider is returned when no provider is configured for a request.
var ErrNoProvider = errors.New("no provider configured")

// ErrorCategory classifies errors by how they should be handled.
type ErrorCategory string

const (
	// ErrorTransient indicates the error is temporary and the operation may succeed later.
	// Examples: rate limits, temporary network issues, server overload.
	ErrorTransient ErrorCategory = "transient"

	// ErrorPermanent indicates the error is not recoverable by repeating the request.
	// Examples: invalid credentials, insufficient permissions.
	ErrorPermanent ErrorCategory = "permanent"

	// ErrorUserInput indicates the caller provided invalid input that must be corrected.
	// Examples: malformed request, unknown model, content policy violation.
	ErrorUserInput ErrorCategory = "user_input"
)

// CategorizedError is an error that provides information about how it should be handled.
type CategorizedError interface {
	error
	Category() ErrorCategory
	StatusCode() int // HTTP status code if applicable, 0 otherwise
}

// CategorizeStatus determines the error category from an HTTP status code.
func CategorizeStatus(code int) ErrorCategory {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrorTransient
	case code >= 500 && code < 600:
		return ErrorTransient
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrorPermanent
	case code == http.StatusBadRequest || code == http.StatusNotFound || code == http.StatusUnprocessableEntity:
		return ErrorUserInput
	default:
		return ErrorPermanent
	}
}

// Error is a categorized error with metadata for error handling decisions.
// Provider SDK errors are wrapped into this type.
type Error struct {
	Msg        string
	Cat        ErrorCategory
	Code       int           // HTTP status code, 0 if not applicable
	RetryDelay time.Duration // from Retry-After header, 0 if not available
	Cause      error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Msg {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Cause }

// Category returns the error category.
func (e *Error) Category() ErrorCategory { return e.Cat }

// StatusCode returns the HTTP status code, or 0 if not applicable.
func (e *Error) StatusCode() int { return e.Code }

// NewStatusError creates an error categorized by the given HTTP status code.
func NewStatusError(msg string, statusCode int, cause error) *Error {
	return &Error{
		Msg:   msg,
		Cat:   CategorizeStatus(statusCode),
		Code:  statusCode,
		Cause: cause,
	}
}

// TransportError is returned when an upstream responds with a non-success status.
// Message holds the compact JSON error body when the body decoded to a
// non-empty value, otherwise the status line (for example "500 Internal Server Error").
type TransportError struct {
	Code    int
	Status  string
	Body    []byte
	Message string
}

// Error returns the error message.
func (e *TransportError) Error() string { return e.Message }

// Category returns the error category derived from the status code.
func (e *TransportError) Category() ErrorCategory { return CategorizeStatus(e.Code) }

// StatusCode returns the HTTP status code.
func (e *TransportError) StatusCode() int { return e.Code }

// AbortError is returned when the request context is cancelled mid-flight.
type AbortError struct {
	Cause error
}

// Error returns the error message.
func (e *AbortError) Error() string {
	if e.Cause == nil {
		return "request aborted"
	}
	return "request aborted: " + e.Cause.Error()
}

// Unwrap returns the context error that caused the abort.
func (e *AbortError) Unwrap() error { return e.Cause }

// NewAbortError wraps a context error as an AbortError.
func NewAbortError(cause error) *AbortError {
	return &AbortError{Cause: cause}
}

// AuthReason describes why credential acquisition failed.
type AuthReason string

const (
	// AuthChallenge means the session endpoint answered with a blocking challenge (403).
	AuthChallenge AuthReason = "challenge"

	// AuthUnauthenticated means the session carries no access token.
	AuthUnauthenticated AuthReason = "unauthenticated"
)

// AuthError is returned when an access token cannot be acquired.
// Callers should prompt the user to sign in again rather than retrying.
type AuthError struct {
	Reason AuthReason
	Cause  error
}

// Error returns the error message.
func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth %s: %v", e.Reason, e.Cause)
	}
	return "auth " + string(e.Reason)
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error { return e.Cause }

// Category returns ErrorPermanent.
func (e *AuthError) Category() ErrorCategory { return ErrorPermanent }

// StatusCode returns 403 for a challenge and 401 otherwise.
func (e *AuthError) StatusCode() int {
	if e.Reason == AuthChallenge {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}

// CleanupError describes a failed conversation cleanup. It is only logged.
type CleanupError struct {
	ConversationID string
	Cause          error
}

// Error returns the error message.
func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleanup conversation %s: %v", e.ConversationID, e.Cause)
}

// Unwrap returns the underlying error.
func (e *CleanupError) Unwrap() error { return e.Cause }

// IsAuth reports whether err is or wraps an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsAborted reports whether err is or wraps an AbortError or a context cancellation.
func IsAborted(err error) bool {
	var ae *AbortError
	if errors.As(err, &ae) {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsTransient returns true if the error is categorized as transient.
// It checks if the error or any wrapped error implements CategorizedError.
func IsTransient(err error) bool {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ErrorTransient
	}
	return false
}

// IsPermanent returns true if the error is categorized as permanent.
func IsPermanent(err error) bool {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ErrorPermanent
	}
	return false
}

// IsUserInput returns true if the error is categorized as user input error.
func IsUserInput(err error) bool {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ErrorUserInput
	}
	return false
}

// StatusCodeOf returns the HTTP status code from a categorized error, or 0.
func StatusCodeOf(err error) int {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.StatusCode()
	}
	return 0
}
