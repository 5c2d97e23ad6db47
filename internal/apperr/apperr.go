package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// ServiceError wraps a failure from an external collaborator (Gmail,
// Calendar, Drive, OpenAI, the database). Always recoverable at the
// per-email or per-step granularity.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func Service(service, op string, err error) *ServiceError {
	return &ServiceError{Service: service, Op: op, Err: err}
}

func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// ValidationError reports a bad input value. Rejected before persistence,
// never silently clamped.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DedupConflict reports an attempt to queue an already-seen message id.
// Callers treat it as a no-op, not a failure.
type DedupConflict struct {
	MessageID string
}

func (e *DedupConflict) Error() string {
	return fmt.Sprintf("message %s already queued", e.MessageID)
}

func Dedup(messageID string) *DedupConflict {
	return &DedupConflict{MessageID: messageID}
}

func IsDedupConflict(err error) bool {
	var dc *DedupConflict
	return errors.As(err, &dc)
}
