// Package errors defines the service error taxonomy: every error carries a
// stable code, an HTTP status for the route layer, and an optional details
// bag. Callers match kinds with stderrors.As against *Error or the typed
// domain errors, never by message.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// Error codes.
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// Error is the base error shape shared by all service errors.
type Error struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message, HTTPStatus: statusFor(code)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code, message string) *Error {
	return &Error{Code: code, Message: message, HTTPStatus: statusFor(code), cause: err}
}

// InvalidInput reports a validation failure for a named field.
func InvalidInput(field, message string) *Error {
	return &Error{
		Code:       ErrCodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]interface{}{"field": field},
	}
}

// NotFound reports a missing entity.
func NotFound(entity, id string) *Error {
	return &Error{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found: %s", entity, id),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]interface{}{"entity": entity, "id": id},
	}
}

// Unauthorized reports a permission failure at the route boundary.
func Unauthorized(message string) *Error {
	return &Error{Code: ErrCodeUnauthorized, Message: message, HTTPStatus: http.StatusForbidden}
}

// Conflict reports a state conflict.
func Conflict(message string) *Error {
	return &Error{Code: ErrCodeConflict, Message: message, HTTPStatus: http.StatusConflict}
}

func statusFor(code string) int {
	switch code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// HTTPStatus extracts the HTTP status for an error, defaulting to 500.
func HTTPStatus(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.HTTPStatus
	}
	return http.StatusInternalServerError
}

// CodeOf extracts the error code, defaulting to INTERNAL_ERROR.
func CodeOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// InvalidStatusTransitionError reports a disallowed lifecycle transition.
// It is a validation-kind error carrying the attempted states; it unwraps to
// a base *Error so generic code/status extraction still works.
type InvalidStatusTransitionError struct {
	base          *Error
	CurrentStatus string
	TargetStatus  string
}

// InvalidStatusTransition creates an InvalidStatusTransitionError for the
// given states.
func InvalidStatusTransition(current, target string) *InvalidStatusTransitionError {
	return &InvalidStatusTransitionError{
		base: &Error{
			Code:       ErrCodeValidation,
			Message:    fmt.Sprintf("Cannot transition from %s to %s", current, target),
			HTTPStatus: http.StatusBadRequest,
			Details:    map[string]interface{}{"currentStatus": current, "targetStatus": target},
		},
		CurrentStatus: current,
		TargetStatus:  target,
	}
}

func (e *InvalidStatusTransitionError) Error() string { return e.base.Message }
func (e *InvalidStatusTransitionError) Unwrap() error { return e.base }

// PeriodLockedError reports that a time interval intersects an active lock.
// It is a conflict-kind error carrying the conflicting period.
type PeriodLockedError struct {
	base        *Error
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// PeriodLocked creates a PeriodLockedError for the given interval.
func PeriodLocked(start, end time.Time) *PeriodLockedError {
	return &PeriodLockedError{
		base: &Error{
			Code:       ErrCodeConflict,
			Message: fmt.Sprintf("Time period is locked: %s to %s",
				start.Format(time.RFC3339), end.Format(time.RFC3339)),
			HTTPStatus: http.StatusConflict,
			Details:    map[string]interface{}{"periodStart": start, "periodEnd": end},
		},
		PeriodStart: start,
		PeriodEnd:   end,
	}
}

func (e *PeriodLockedError) Error() string { return e.base.Message }
func (e *PeriodLockedError) Unwrap() error { return e.base }

// Is and As re-exports so callers do not need a second errors import.
var (
	Is = stderrors.Is
	As = stderrors.As
)
