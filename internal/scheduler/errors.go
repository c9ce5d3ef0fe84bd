package scheduler

import (
	"errors"
	"fmt"
	"time"
)

type Code string

const (
	ErrSchedulerNotRunning     Code = "scheduler_not_running"
	ErrSchedulerAlreadyRunning Code = "scheduler_already_running"
	ErrInvalidConfiguration    Code = "invalid_configuration"
	ErrDuplicateJob            Code = "duplicate_job"
	ErrJobFailed               Code = "job_failed"
	ErrShutdownTimeout         Code = "shutdown_timeout"
)

// Error is returned by every Scheduler operation. Job is set for job runs and
// Cause for wrapped failures.
type Error struct {
	Code    Code
	Message string
	Job     string
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("scheduler [%s]: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Temporary is true for failed job runs, which get another attempt at the
// next activation.
func (e *Error) Temporary() bool { return e.Code == ErrJobFailed }

func NewSchedulerError(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

func NewJobError(job string, cause error) error {
	return &Error{
		Code:    ErrJobFailed,
		Message: fmt.Sprintf("job %s failed: %v", job, cause),
		Job:     job,
		Cause:   cause,
	}
}

func NewShutdownError(message string, timeout time.Duration) error {
	return &Error{Code: ErrShutdownTimeout, Message: fmt.Sprintf("%s after %s", message, timeout)}
}

func NewConfigurationError(field string, value interface{}, message string) error {
	return &Error{
		Code:    ErrInvalidConfiguration,
		Message: fmt.Sprintf("%s %q: %s", field, fmt.Sprint(value), message),
	}
}

func IsTemporaryError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Temporary()
}

func IsConfigurationError(err error) bool {
	return HasCode(err, ErrInvalidConfiguration)
}

func HasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
