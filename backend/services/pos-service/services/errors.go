package services

import (
	"errors"
	"fmt"
)

// ServiceError represents a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// PersistenceError means local durable storage failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("local storage %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ValidationError means the server rejected the order itself. Sending the
// same payload again is not expected to help.
type ValidationError struct {
	StatusCode int
	Message    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("order rejected (%d): %s", e.StatusCode, e.Message)
}

// TransientError means the commit did not reach a decision: transport
// failure, timeout or a temporary server condition.
type TransientError struct {
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("order service unavailable (%d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("order service unreachable: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

func IsPersistence(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}

// classify names an error for logs and metrics.
func classify(err error) string {
	switch {
	case IsValidation(err):
		return "validation"
	case IsTransient(err):
		return "transient"
	case IsPersistence(err):
		return "persistence"
	default:
		return "unknown"
	}
}
