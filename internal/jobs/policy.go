package jobs

import (
	"errors"

	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/generation"
)

// Outcome is the terminal routing for a failed job attempt.
type Outcome int

// Possible failure outcomes. The external client owns in-process retries, so
// by the time a failure reaches this table it is terminal for the attempt:
// either the job fails outright or it is parked for operator intervention.
const (
	OutcomeFail Outcome = iota
	OutcomeSuspend
)

// suspendable lists the provider-side conditions that no amount of retrying
// will fix without an operator acting (paying, rotating a key). Everything
// else routes to FAILED.
var suspendable = map[domain.ErrorCode]bool{
	domain.ErrCodeQuotaExceeded:       true,
	domain.ErrCodeInsufficientBalance: true,
	domain.ErrCodeInvalidAPIKey:       true,
	domain.ErrCodeAccessDenied:        true,
}

// OutcomeForCode returns the terminal routing for a failure code.
func OutcomeForCode(code domain.ErrorCode) Outcome {
	if suspendable[code] {
		return OutcomeSuspend
	}
	return OutcomeFail
}

// stageError is a processor failure carrying the code to record on the job
// row. Provider failures arrive pre-classified as *generation.Error;
// stageError covers everything the pipeline itself detects.
type stageError struct {
	code domain.ErrorCode
	err  error
}

func failStage(code domain.ErrorCode, err error) error {
	return &stageError{code: code, err: err}
}

func (e *stageError) Error() string {
	return string(e.code) + ": " + e.err.Error()
}

func (e *stageError) Unwrap() error {
	return e.err
}

// errorCodeOf extracts the failure code from a processor error, defaulting
// to API_FAILURE for anything unclassified.
func errorCodeOf(err error) domain.ErrorCode {
	var se *stageError
	if errors.As(err, &se) {
		return se.code
	}
	var ge *generation.Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return domain.ErrCodeAPIFailure
}
