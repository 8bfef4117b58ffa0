package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by clients, services and handlers.
var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrEditWindowExpired  = errors.New("edit window expired")
	ErrBackendUnavailable = errors.New("production backend unavailable")
	ErrMalformedResponse  = errors.New("malformed backend response")
)

// FieldError describes a validation failure for a single field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists the fields that blocked a submission.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	fields := make([]string, 0, len(e.Errors))
	allRequired := true
	for _, fe := range e.Errors {
		fields = append(fields, fe.Field)
		allRequired = allRequired && fe.Message == "required"
	}
	if allRequired {
		return fmt.Sprintf("validation: required fields missing: %s", strings.Join(fields, ", "))
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+" "+fe.Message)
	}
	return "validation: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationErrors builds a ValidationError from field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// BackendError is a non-2xx answer from the production backend. Message holds
// the backend's own text so it can be shown to the operator verbatim.
type BackendError struct {
	Status  int
	Message string
	Kind    error
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

func (e *BackendError) Unwrap() error { return e.Kind }

// ExpiredError reports an update refused because the edit window has closed.
type ExpiredError struct {
	Message string
	// Local is true when the refusal happened before any network call.
	Local bool
}

func (e *ExpiredError) Error() string { return e.Message }

func (e *ExpiredError) Unwrap() error { return ErrEditWindowExpired }
