package domain

import (
	"errors"
	"fmt"
	"time"
)

// JobType identifies which enrichment stage a job belongs to.
type JobType string

// Enrichment stages, in pipeline order.
const (
	JobTypeSummary     JobType = "SUMMARY"
	JobTypeTermCards   JobType = "TERM_CARDS"
	JobTypeInsight     JobType = "INSIGHT"
	JobTypeQuizContent JobType = "QUIZ_CONTENT"
	JobTypeQuizTerm    JobType = "QUIZ_TERM"
)

// JobTypePriority is the fixed order in which the worker drains job types
// within a single tick. Upstream stages come first so their fan-out becomes
// claimable as soon as possible.
var JobTypePriority = []JobType{
	JobTypeSummary,
	JobTypeTermCards,
	JobTypeInsight,
	JobTypeQuizContent,
	JobTypeQuizTerm,
}

// JobStatus represents the queue state of a job.
type JobStatus string

// Possible job status values
const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSuccess   JobStatus = "SUCCESS"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusRetryWait JobStatus = "RETRY_WAIT"
	JobStatusSuspended JobStatus = "SUSPENDED"
)

// JobEvent is an input to the job state machine.
type JobEvent string

// Events accepted by Transition.
const (
	EventClaim   JobEvent = "claim"   // PENDING -> RUNNING
	EventSucceed JobEvent = "succeed" // RUNNING -> SUCCESS
	EventFail    JobEvent = "fail"    // RUNNING -> FAILED
	EventSuspend JobEvent = "suspend" // RUNNING -> SUSPENDED
	EventStick   JobEvent = "stick"   // RUNNING -> RETRY_WAIT (sweeper reclaim)
	EventPromote JobEvent = "promote" // RETRY_WAIT -> PENDING (backoff elapsed)
	EventResume  JobEvent = "resume"  // SUSPENDED -> PENDING (admin only)
)

// Common job errors
var (
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrInvalidJobType    = errors.New("invalid job type")
	ErrInvalidJobStatus  = errors.New("invalid job status")
	ErrEmptyArticleID    = errors.New("job article ID cannot be empty")
	ErrEmptyPromptVer    = errors.New("job prompt version cannot be empty")
	ErrEmptyModel        = errors.New("job model cannot be empty")
)

// transitions is the complete legal transition table. Anything not listed
// here is a programming error, not a business outcome.
var transitions = map[JobStatus]map[JobEvent]JobStatus{
	JobStatusPending: {
		EventClaim: JobStatusRunning,
	},
	JobStatusRunning: {
		EventSucceed: JobStatusSuccess,
		EventFail:    JobStatusFailed,
		EventSuspend: JobStatusSuspended,
		EventStick:   JobStatusRetryWait,
	},
	JobStatusRetryWait: {
		EventPromote: JobStatusPending,
	},
	JobStatusSuspended: {
		EventResume: JobStatusPending,
	},
}

// Transition applies an event to a status and returns the resulting status.
// Illegal transitions return ErrInvalidTransition wrapped with the offending
// pair so callers fail loudly instead of silently mutating state.
func Transition(from JobStatus, event JobEvent) (JobStatus, error) {
	if next, ok := transitions[from][event]; ok {
		return next, nil
	}
	return "", fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, from)
}

// DefaultMaxRetries is the retry budget applied to new jobs.
const DefaultMaxRetries = 3

// Job is one unit of enrichment work for a single
// (article, job type, prompt version) combination.
type Job struct {
	ID               int64      `json:"id"`
	ArticleID        int64      `json:"article_id"`
	Type             JobType    `json:"job_type"`
	Status           JobStatus  `json:"status"`
	PromptVersion    string     `json:"prompt_version"`
	Model            string     `json:"model"`
	RetryCount       int        `json:"retry_count"`
	MaxRetries       int        `json:"max_retries"`
	NextRunAt        *time.Time `json:"next_run_at,omitempty"`
	RunningStartedAt *time.Time `json:"running_started_at,omitempty"`
	LastErrorCode    ErrorCode  `json:"last_error_code,omitempty"`
	LastErrorMessage string     `json:"last_error_message,omitempty"`
	RequestedAt      time.Time  `json:"requested_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}

// NewJob creates a PENDING job for the given article and stage.
// Returns an error if validation fails.
func NewJob(articleID int64, jobType JobType, promptVersion, model string) (*Job, error) {
	job := &Job{
		ArticleID:     articleID,
		Type:          jobType,
		Status:        JobStatusPending,
		PromptVersion: promptVersion,
		Model:         model,
		MaxRetries:    DefaultMaxRetries,
		RequestedAt:   time.Now().UTC(),
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks if the Job has valid data.
func (j *Job) Validate() error {
	if j.ArticleID <= 0 {
		return ErrEmptyArticleID
	}

	if !IsValidJobType(j.Type) {
		return fmt.Errorf("%w: %q", ErrInvalidJobType, j.Type)
	}

	if !isValidJobStatus(j.Status) {
		return fmt.Errorf("%w: %q", ErrInvalidJobStatus, j.Status)
	}

	if j.PromptVersion == "" {
		return ErrEmptyPromptVer
	}

	if j.Model == "" {
		return ErrEmptyModel
	}

	return nil
}

// IsValidJobType reports whether t is a known enrichment stage.
func IsValidJobType(t JobType) bool {
	switch t {
	case JobTypeSummary, JobTypeTermCards, JobTypeInsight, JobTypeQuizContent, JobTypeQuizTerm:
		return true
	}
	return false
}

func isValidJobStatus(s JobStatus) bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusSuccess,
		JobStatusFailed, JobStatusRetryWait, JobStatusSuspended:
		return true
	}
	return false
}
