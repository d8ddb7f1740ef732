package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
)

// NotFoundError reports a record that no longer exists. Message is meant to
// be shown to the user as is.
type NotFoundError struct {
	Resource string
	ID       int64
	Message  string
}

func (e NotFoundError) Error() string {
	return e.Message
}

func (e NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError builds the error for a missing meme or template.
func NewNotFoundError(resource string, id int64) NotFoundError {
	return NotFoundError{
		Resource: resource,
		ID:       id,
		Message:  fmt.Sprintf("%s no longer exists", resource),
	}
}

// IsNotFound reports whether err, or anything it wraps, is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ValidationError represents a rejected request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
