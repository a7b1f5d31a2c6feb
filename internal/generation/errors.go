package generation

import (
	"errors"
	"fmt"

	"github.com/phrazzld/briefly-api/internal/domain"
)

// Common errors returned by the generation package
var (
	// ErrAPIFailure is returned when the provider call fails after
	// exhausting the client's own retry budget.
	ErrAPIFailure = errors.New("generative API call failed")

	// ErrRateLimited is returned when retries exhaust on HTTP 429.
	ErrRateLimited = errors.New("generative API rate limited")

	// ErrInvalidResponse is returned when the provider response cannot be
	// parsed or does not match the requested schema.
	ErrInvalidResponse = errors.New("invalid response from generative API")

	// ErrInvalidConfig is returned when the client configuration is invalid.
	ErrInvalidConfig = errors.New("invalid generation client configuration")
)

// Error is a classified provider failure. Code is recorded on the job row
// and drives the failure policy (retryable, suspendable, fatal).
type Error struct {
	Code domain.ErrorCode
	Err  error
}

// NewError wraps err with a classified failure code.
func NewError(code domain.ErrorCode, err error) *Error {
	return &Error{Code: code, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the classified code from err, defaulting to API_FAILURE
// for unclassified failures.
func CodeOf(err error) domain.ErrorCode {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Code
	}
	return domain.ErrCodeAPIFailure
}
