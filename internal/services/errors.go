// Package services holds the request pipeline and the response orchestrator.
// This file centralizes the service-level error values so handlers can map
// them to HTTP results with errors.Is.
package services

import (
	"errors"
	"strings"
)

var (
	// ErrValidation marks malformed or missing input. Client fault; never retried.
	ErrValidation = errors.New("invalid payload")

	// ErrPersistence marks a storage failure that aborted the pipeline.
	ErrPersistence = errors.New("persistence failure")

	// ErrGeneration marks a failed model call (error, timeout, or empty text).
	ErrGeneration = errors.New("response generation failed")

	// ErrConversationNotFound is returned when the requested conversation does
	// not exist.
	ErrConversationNotFound = errors.New("conversation not found")
)

// FieldError is one rejected field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every problem found in a payload. It unwraps to
// ErrValidation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Reason: reason}}}
}
