package domain

// ErrorCode is the machine-readable failure code recorded on a job row.
// Codes survive subsequent transitions for audit; admin resume keeps them.
type ErrorCode string

// Failure codes recorded by processors, the external client, and the sweeper.
const (
	// Transient exhaustion from the external client.
	ErrCodeAPIFailure   ErrorCode = "API_FAILURE"
	ErrCodeAPIRateLimit ErrorCode = "API_RATE_LIMIT"

	// Provider-side terminal conditions requiring operator intervention.
	ErrCodeQuotaExceeded       ErrorCode = "QUOTA_EXCEEDED"
	ErrCodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	ErrCodeInvalidAPIKey       ErrorCode = "INVALID_API_KEY"
	ErrCodeAccessDenied        ErrorCode = "ACCESS_DENIED"

	// Data and validation failures.
	ErrCodeBadRequest          ErrorCode = "BAD_REQUEST"
	ErrCodeInvalidResponse     ErrorCode = "INVALID_RESPONSE"
	ErrCodeMissingPrecondition ErrorCode = "MISSING_PRECONDITION"
	ErrCodeTermDedupConflict   ErrorCode = "TERM_DEDUP_CONFLICT"

	// Sweeper reclaim of abandoned RUNNING jobs.
	ErrCodeStuckTimeout ErrorCode = "STUCK_TIMEOUT"
)

// ResumeReason names a category of suspendable error codes that the admin
// surface can resume in bulk.
type ResumeReason string

// Supported batch-resume categories. Anything else is rejected.
const (
	ResumeReasonQuota ResumeReason = "QUOTA"
	ResumeReasonAuth  ResumeReason = "AUTH"
)

// ErrorCodesForReason maps a resume reason to the error codes it covers.
// Returns nil for unknown reasons.
func ErrorCodesForReason(reason ResumeReason) []ErrorCode {
	switch reason {
	case ResumeReasonQuota:
		return []ErrorCode{ErrCodeQuotaExceeded, ErrCodeInsufficientBalance}
	case ResumeReasonAuth:
		return []ErrorCode{ErrCodeInvalidAPIKey, ErrCodeAccessDenied}
	}
	return nil
}
