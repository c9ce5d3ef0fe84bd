package common

import (
	"fmt"

	"github.com/google/uuid"
)

// ID represents an opaque unique identifier
type ID string

// NewID generates a new unique identifier
func NewID() ID {
	return ID(uuid.New().String())
}

// IsValid checks if the ID is a valid UUID
func (id ID) IsValid() bool {
	_, err := uuid.Parse(string(id))
	return err == nil
}

// String returns the string representation of the ID
func (id ID) String() string {
	return string(id)
}

// DisplayFields are the optional sender names captured from an update
type DisplayFields struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	UserName  string `json:"user_name,omitempty"`
}

// Name returns the best available display name
func (d DisplayFields) Name() string {
	switch {
	case d.UserName != "":
		return d.UserName
	case d.FirstName != "":
		return d.FirstName
	default:
		return d.LastName
	}
}

// Common error types
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// RepositoryError represents database operation failures
type RepositoryError struct {
	Operation string
	Cause     error
}

func (e RepositoryError) Error() string {
	return fmt.Sprintf("repository error during %s: %v", e.Operation, e.Cause)
}

func (e RepositoryError) Unwrap() error {
	return e.Cause
}

// WrapRepositoryError wraps err as a RepositoryError, passing nil through
func WrapRepositoryError(err error, operation string) error {
	if err == nil {
		return nil
	}
	return RepositoryError{Operation: operation, Cause: err}
}
