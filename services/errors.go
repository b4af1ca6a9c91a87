package services

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("resource not found")
	ErrUserNotFound       = fmt.Errorf("User not found: %w", ErrNotFound)
	ErrTaskNotFound       = fmt.Errorf("Task not found: %w", ErrNotFound)
	ErrConflict           = errors.New("resource already exists")
	ErrInternal           = errors.New("Internal server error")
)

// DomainError carries a client facing message for one of the sentinel kinds.
type DomainError struct {
	Kind    error
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Kind
}

func validationError(format string, args ...interface{}) error {
	return &DomainError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func conflictError(message string) error {
	return &DomainError{Kind: ErrConflict, Message: message}
}

// PublicMessage returns the text safe to show a client for err.
func PublicMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	switch {
	case errors.Is(err, ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, ErrUserNotFound):
		return "User not found"
	case errors.Is(err, ErrInvalidCredentials):
		return ErrInvalidCredentials.Error()
	}
	return ErrInternal.Error()
}
