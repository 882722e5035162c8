package fdtd

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fdtd-sdk/services"
)

var (
	// ErrMissingAPIKey is returned by requests made without a credential.
	ErrMissingAPIKey = errors.New("fdtd: API key is not set, run the configure step or set FDTD_API_KEY")
	// ErrJobCancelled is returned when waiting on a job that was cancelled.
	ErrJobCancelled = errors.New("fdtd: job cancelled")
	// ErrJobTerminal is returned when a job in a terminal state is asked to move again.
	ErrJobTerminal = errors.New("fdtd: job is in a terminal state")
)

// APIError represents an error from the solver API
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("fdtd api error (status %d, request_id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}
	return fmt.Sprintf("fdtd api error (status %d): %s", e.StatusCode, e.Message)
}

// NetworkError represents a network-level error
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ValidationError represents a client-side validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// RateLimitError represents a rate limiting error
type RateLimitError struct {
	RetryAfter int // seconds until retry is allowed
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %d seconds", e.RetryAfter)
}

// SubmissionReason classifies why the remote refused a submission.
type SubmissionReason string

const (
	ReasonQuota          SubmissionReason = "quota"
	ReasonAuthentication SubmissionReason = "authentication"
	ReasonMalformed      SubmissionReason = "malformed"
	ReasonRejected       SubmissionReason = "rejected"
	ReasonNetwork        SubmissionReason = "network"
)

// SubmissionError is returned by Submit when the task could not be created,
// uploaded or queued.
type SubmissionError struct {
	Reason SubmissionReason
	// Stage is the step that failed: create, upload or submit.
	Stage string
	Err   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed at %s (%s): %v", e.Stage, e.Reason, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// NotReadyError is returned by Fetch before the job has succeeded.
type NotReadyError struct {
	TaskID string
	Status Status
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("task %s is not ready (status %s)", e.TaskID, e.Status)
}

// DataUnavailableError is returned when the result of a successful job has
// expired or been purged.
type DataUnavailableError struct {
	TaskID     string
	StatusCode int
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("result of task %s is no longer available (status %d)", e.TaskID, e.StatusCode)
}

// TimeoutError is returned by Wait when the poll timeout elapses. The remote
// job keeps running.
type TimeoutError struct {
	TaskID string
	Status Status
	After  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %s still %s after %s", e.TaskID, e.Status, e.After)
}

// RemoteSolverError carries the solver's diagnostic for a failed job.
type RemoteSolverError struct {
	TaskID string
	// RemoteStatus is the raw status reported by the API, e.g. "diverged".
	RemoteStatus string
	Message      string
}

func (e *RemoteSolverError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("task %s failed (%s)", e.TaskID, e.RemoteStatus)
	}
	return fmt.Sprintf("task %s failed (%s): %s", e.TaskID, e.RemoteStatus, e.Message)
}

// apiError converts a service error into the client's error types.
func apiError(err error) error {
	var se *services.StatusError
	if !errors.As(err, &se) {
		return err
	}
	if se.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: se.RetryAfter}
	}
	return &APIError{StatusCode: se.StatusCode, Message: se.Message, RequestID: se.RequestID}
}

func submissionError(stage string, err error) error {
	sub := &SubmissionError{Reason: ReasonRejected, Stage: stage, Err: apiError(err)}

	var se *services.StatusError
	var ne *NetworkError
	switch {
	case errors.As(err, &se):
		switch {
		case se.StatusCode == http.StatusPaymentRequired,
			se.StatusCode == http.StatusTooManyRequests,
			strings.Contains(strings.ToLower(se.Message), "quota"):
			sub.Reason = ReasonQuota
		case se.StatusCode == http.StatusUnauthorized, se.StatusCode == http.StatusForbidden:
			sub.Reason = ReasonAuthentication
		case se.StatusCode == http.StatusBadRequest, se.StatusCode == http.StatusUnprocessableEntity:
			sub.Reason = ReasonMalformed
		}
	case errors.As(err, &ne):
		sub.Reason = ReasonNetwork
	case errors.Is(err, ErrMissingAPIKey):
		sub.Reason = ReasonAuthentication
	}
	return sub
}

// transient reports whether a poll failure may succeed when repeated.
func transient(err error) bool {
	var ne *NetworkError
	var rl *RateLimitError
	var ae *APIError
	switch {
	case errors.As(err, &ne), errors.As(err, &rl):
		return true
	case errors.As(err, &ae):
		return ae.StatusCode >= 500
	}
	return false
}
