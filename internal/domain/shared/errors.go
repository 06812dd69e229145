// Package shared contains common domain types, errors, and value objects
// that are used across all domain packages.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrConflict      = errors.New("conflicting concurrent write")

	// Validation errors
	ErrValidation    = errors.New("validation error")
	ErrInvalidID     = errors.New("invalid ID")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrInvalidFormat = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")

	// Authorization errors
	ErrForbidden = errors.New("forbidden")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "preregistration", "exam", "credential"
	Op      string // Operation that failed, e.g., "Create", "Finalize"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Preregistration domain errors
var (
	ErrPreregistrationNotFound = NewDomainError("preregistration", "Find", ErrNotFound, "preregistration not found")
	ErrDuplicateContact        = NewDomainError("preregistration", "Create", ErrAlreadyExists, "contact already registered")
	ErrInvalidStatus           = NewDomainError("preregistration", "Transition", ErrInvalidInput, "unknown status value")
	ErrIllegalTransition       = NewDomainError("preregistration", "Transition", ErrStateTransition, "status transition not allowed")
)

// Exam domain errors
var (
	ErrNoActiveQuestions = NewDomainError("exam", "GenerateForm", ErrNotFound, "no active questions for exam type")
	ErrFormNotFound      = NewDomainError("exam", "FindForm", ErrNotFound, "exam form instance not found")
	ErrUnknownExamType   = NewDomainError("exam", "Validate", ErrInvalidInput, "unknown exam type")
)

// Assessment domain errors
var (
	ErrAssessmentNotFound = NewDomainError("assessment", "Find", ErrNotFound, "no assessment recorded")
	ErrVersionConflict    = NewDomainError("assessment", "AppendHistory", ErrConflict, "history version already taken")
)

// Credential domain errors
var (
	ErrCredentialNotFound = NewDomainError("credential", "Find", ErrNotFound, "credential not found")
	ErrHandleTaken        = NewDomainError("credential", "Issue", ErrAlreadyExists, "login handle already taken")
	ErrAlreadyIssued      = NewDomainError("credential", "Issue", ErrAlreadyExists, "credential already issued for this advisor")
)

// Advisor profile domain errors
var (
	ErrProfileNotFound = NewDomainError("advisor", "Find", ErrNotFound, "advisor profile not found")
	ErrNoValidGroups   = NewDomainError("advisor", "SetGroups", ErrValidation, "no valid group labels after filtering")
	ErrDocumentAccess  = NewDomainError("advisor", "Document", ErrForbidden, "document belongs to another advisor")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsConflict reports whether the error came from a concurrent-write conflict
// (duplicate history version, duplicate handle). Conflicts are transient and
// safe to retry with adjusted input.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrInvalidFormat)
}
