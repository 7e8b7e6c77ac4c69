package rewards

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying credit failures. InvalidInput is rejected
// outright; TransientStorage is retried up to the policy budget and then
// surfaced as the user's failure. AlreadySettled is not an error: it is
// reported through CreditResult.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrTransientStorage = errors.New("transient storage error")
	ErrRunInProgress    = errors.New("batch run already in progress")
)

// Error codes carried by RewardError.
const (
	CodeInvalidInput     = "invalid_input"
	CodeTransientStorage = "transient_storage"
)

// RewardError wraps a failure with a stable machine-readable code.
type RewardError struct {
	Code    string
	Message string
	Err     error
}

func (e *RewardError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RewardError) Unwrap() error {
	return e.Err
}

func invalidInput(format string, args ...interface{}) error {
	return &RewardError{
		Code:    CodeInvalidInput,
		Message: fmt.Sprintf(format, args...),
		Err:     ErrInvalidInput,
	}
}

func transient(cause error, format string, args ...interface{}) error {
	return &RewardError{
		Code:    CodeTransientStorage,
		Message: fmt.Sprintf(format, args...),
		Err:     fmt.Errorf("%w: %w", ErrTransientStorage, cause),
	}
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientStorage)
}

// IsInvalidInput reports whether err is a caller mistake that must not be retried.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// UserFailure records one user's failure inside a batch.
type UserFailure struct {
	UserID uint   `json:"user_id"`
	Reason string `json:"reason"`
}

// BatchResult aggregates a fan-out run. A batch never aborts on a
// per-user failure; failures are collected here instead.
type BatchResult struct {
	Succeeded int           `json:"succeeded"`
	Failed    []UserFailure `json:"failed"`
}

// FailedCount returns the number of failed users.
func (r BatchResult) FailedCount() int {
	return len(r.Failed)
}
