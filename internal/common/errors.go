// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Resolution errors.
	ErrNoMatch          = errors.New("no matching person")
	ErrNoEntities       = errors.New("no campaign entities disambiguated")
	ErrResolutionFailed = errors.New("identity resolution failed")

	// Data service errors. ErrRowLimit marks a paged fetch truncated at the
	// row safety ceiling; the partial result is still returned.
	ErrDataFetch = errors.New("data service fetch failed")
	ErrRowLimit  = errors.New("row safety ceiling reached, result truncated")
	ErrNotFound  = errors.New("not found")

	// Reasoning service errors.
	ErrReasoningTimeout   = errors.New("reasoning service timed out")
	ErrReasoningMalformed = errors.New("reasoning service output malformed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// StageError marks a pipeline stage failure. An empty result list is not a
// StageError; the distinction lets callers tell "nothing found" apart from
// "the stage itself failed".
type StageError struct {
	Err   error
	Stage string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err as a failure of the named pipeline stage.
func NewStageError(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
