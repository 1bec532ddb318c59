package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound covers both a missing record and one owned by someone else,
	// so callers cannot probe for other users' report ids.
	ErrNotFound = errors.New("resource not found")
	// ErrValidation marks malformed payloads or credentials. See ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated is returned for a missing, malformed, or expired token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidCredentials hides whether the e-mail or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConflict           = errors.New("conflict")
	// ErrGeocodeUpstream wraps any reverse-geocoding failure: non-success status,
	// undecodable body, or transport fault.
	ErrGeocodeUpstream = errors.New("geocode upstream failure")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level detail and matches ErrValidation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}
