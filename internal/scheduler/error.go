package scheduler

import (
	"errors"
	"fmt"
	"time"
)

// Common errors
var (
	// ErrInvalidTimeFormat indicates a wall time is not HH:MM:SS
	ErrInvalidTimeFormat = errors.New("invalid time format")

	// ErrJobIDParseFailed indicates parsing job ID from qsub output failed
	ErrJobIDParseFailed = errors.New("failed to parse job ID from scheduler output")
)

// ReservationNotFoundError is returned when qrstat knows no reservation with the given id.
type ReservationNotFoundError struct {
	ID string
}

func (e *ReservationNotFoundError) Error() string {
	return fmt.Sprintf("advance reservation %s not found", e.ID)
}

// ReservationFormatError is returned when the reservation listing lacks a required field
// or a field cannot be parsed.
type ReservationFormatError struct {
	ID     string // Reservation id
	Field  string // Field name (e.g. "end_time", "h_rt")
	Reason string
}

func (e *ReservationFormatError) Error() string {
	return fmt.Sprintf("reservation %s: field %s: %s", e.ID, e.Field, e.Reason)
}

// ResourceExhaustedError is returned when no usable wall time remains.
type ResourceExhaustedError struct {
	ReservationID string
	End           time.Time     // Reservation end (zero when not from a reservation)
	Remaining     time.Duration // Usable wall time that was computed (<= 0)
}

func (e *ResourceExhaustedError) Error() string {
	if e.ReservationID != "" {
		return fmt.Sprintf("reservation %s has no usable wall time left (ends %s, usable %s after safety margin)",
			e.ReservationID, e.End.Format(reservationTimeLayout), e.Remaining)
	}
	return fmt.Sprintf("no usable wall time (%s)", e.Remaining)
}

// SubmissionError represents an error during job submission
type SubmissionError struct {
	Scheduler string // Scheduler name
	JobName   string // Job name
	Output    string // Scheduler output
	Err       error  // Underlying error
}

func (e *SubmissionError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s submission failed for job %s: %v\nOutput: %s",
			e.Scheduler, e.JobName, e.Err, e.Output)
	}
	return fmt.Sprintf("%s submission failed for job %s: %v",
		e.Scheduler, e.JobName, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// NewSubmissionError creates a new SubmissionError
func NewSubmissionError(scheduler string, jobName string, output string, err error) *SubmissionError {
	return &SubmissionError{
		Scheduler: scheduler,
		JobName:   jobName,
		Output:    output,
		Err:       err,
	}
}

// IsReservationNotFound checks if an error is a ReservationNotFoundError
func IsReservationNotFound(err error) bool {
	var rnf *ReservationNotFoundError
	return errors.As(err, &rnf)
}

// IsReservationFormatError checks if an error is a ReservationFormatError
func IsReservationFormatError(err error) bool {
	var rfe *ReservationFormatError
	return errors.As(err, &rfe)
}

// IsResourceExhausted checks if an error is a ResourceExhaustedError
func IsResourceExhausted(err error) bool {
	var ree *ResourceExhaustedError
	return errors.As(err, &ree)
}

// IsSubmissionError checks if an error is a SubmissionError
func IsSubmissionError(err error) bool {
	var se *SubmissionError
	return errors.As(err, &se)
}
