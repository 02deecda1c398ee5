package app

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or revoked token")
	ErrEmailTaken         = errors.New("the email has already been taken")
	ErrPostNotFound       = errors.New("post not found")
)

// ValidationError lists the violated constraints per input field. A
// conflict recorded with AddConflict is reachable through errors.Is.
type ValidationError struct {
	Fields map[string][]string
	cause  error
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) AddConflict(field, message string, cause error) {
	e.Add(field, message)
	e.cause = cause
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// OrNil returns nil when no field failed, so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, strings.Join(e.Fields[field], " "))
	}
	return strings.Join(parts, " ")
}
