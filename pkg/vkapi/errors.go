package vkapi

import (
	"context"
	"errors"
	"fmt"
)

// Remote error codes the client interprets. The full list is published with
// the platform's API reference; everything not listed here is "unexpected".
const (
	ErrCodeAuthFailed       = 5
	ErrCodeAccessDenied     = 15
	ErrCodeUserDeleted      = 18
	ErrCodeRateLimitReached = 29
	ErrCodePrivateProfile   = 30
)

// Common errors returned by the client.
var (
	// ErrMissingToken is returned when no usable access token is configured.
	ErrMissingToken = errors.New("access token is not set")

	// ErrQuotaExhausted is returned without a network call when the method's
	// quota was reported as reached and the block has not expired yet.
	ErrQuotaExhausted = errors.New("method quota exhausted")

	// ErrMalformedResponse is returned when the body is not a valid envelope
	// or lacks the expected fields.
	ErrMalformedResponse = errors.New("malformed response")
)

// ErrorClass is the pipeline-facing classification of a failed call.
type ErrorClass string

const (
	// ErrorClassAccessDenied means the target restricted visibility.
	ErrorClassAccessDenied ErrorClass = "access_denied"

	// ErrorClassTransient covers timeouts, transport failures and quota skips.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassUnexpected covers any other remote error code and malformed bodies.
	ErrorClassUnexpected ErrorClass = "unexpected"
)

// APIError is the platform's error envelope {error_code, error_msg}.
type APIError struct {
	Method  string
	Code    int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: api error %d: %s", e.Method, e.Code, e.Message)
}

// IsAccessDenied reports whether the code signals restricted visibility.
func (e *APIError) IsAccessDenied() bool {
	return e.Code == ErrCodeAccessDenied || e.Code == ErrCodePrivateProfile
}

// TransportError wraps a failure that happened before an envelope could be read:
// connection errors, timeouts and non-2xx HTTP statuses.
type TransportError struct {
	Method     string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http status %d", e.Method, e.StatusCode)
	}
	return fmt.Sprintf("%s: transport: %v", e.Method, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call was cut off by its deadline.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// Classify maps an error returned by the client onto an ErrorClass.
// It returns "" for a nil error.
func Classify(err error) ErrorClass {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.IsAccessDenied() {
			return ErrorClassAccessDenied
		}
		return ErrorClassUnexpected
	}

	if errors.Is(err, ErrMalformedResponse) {
		return ErrorClassUnexpected
	}

	return ErrorClassTransient
}
