// Package fault holds the error taxonomy shared by the booking engine.
// Every failure returned to a caller is one of these kinds, so transports can
// map them without string matching.
package fault

import (
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindUnknown     Kind = "unknown"
	KindValidation  Kind = "validation"
	KindConflict    Kind = "conflict"
	KindLockTimeout Kind = "lock_timeout"
	KindComputation Kind = "computation"
	KindNotFound    Kind = "not_found"
)

// Validation codes surfaced to clients.
const (
	CodeInvalidRoomOrDates = "invalid_room_or_dates"
	CodeCapacityExceeded   = "capacity_exceeded"
	CodeInvalidGuests      = "invalid_guests"
	CodeInvalidChildren    = "invalid_children"
	CodeInvalidExtra       = "invalid_extra"
	CodeQuantityOutOfRange = "quantity_out_of_range"
	CodeInvalidTransition  = "invalid_transition"
	CodeInvalidGuest       = "invalid_guest"
	CodeCheckInInPast      = "check_in_in_past"
)

// ValidationError reports malformed input. Never retried.
type ValidationError struct {
	Code  string
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
	}
	return "validation: " + e.Msg
}

func Validation(code, field, msg string) *ValidationError {
	return &ValidationError{Code: code, Field: field, Msg: msg}
}

// ConflictReason explains why a room cannot be reserved.
type ConflictReason string

const (
	ReasonDatesUnavailable ConflictReason = "dates_unavailable"
	ReasonRoomMaintenance  ConflictReason = "room_maintenance"
)

// ConflictError means the dates are taken; the caller should search again.
type ConflictError struct {
	Reason    ConflictReason
	RoomID    string
	Conflicts []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: room %s: %s", e.RoomID, e.Reason)
}

// LockTimeoutError means the per-room guard could not be taken in time.
type LockTimeoutError struct {
	Key     string
	Timeout time.Duration
	Err     error
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("lock %s not acquired within %s", e.Key, e.Timeout)
}

func (e *LockTimeoutError) Unwrap() error { return e.Err }

// ComputationError marks missing or inconsistent reference data.
type ComputationError struct {
	Op  string
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation: %s: %v", e.Op, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

func Computation(op string, err error) *ComputationError {
	return &ComputationError{Op: op, Err: err}
}

// NotFoundError is returned for lookups of unknown bookings.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// KindOf classifies err by walking its wrap chain.
func KindOf(err error) Kind {
	var (
		validation  *ValidationError
		conflict    *ConflictError
		lockTimeout *LockTimeoutError
		computation *ComputationError
		notFound    *NotFoundError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &conflict):
		return KindConflict
	case errors.As(err, &lockTimeout):
		return KindLockTimeout
	case errors.As(err, &notFound):
		return KindNotFound
	case errors.As(err, &computation):
		return KindComputation
	default:
		return KindUnknown
	}
}
