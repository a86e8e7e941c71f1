package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Sentinel errors shared across repositories, services and handlers.
var (
	// ErrNotFound is returned for single-entity lookups that match no row.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized is returned when a principal touches a row outside
	// its data partition.
	ErrUnauthorized = errors.New("access denied")

	// ErrPrecondition signals a broken server-side invariant, e.g. a
	// company admin without a customer. Never caused by client input.
	ErrPrecondition = errors.New("precondition violated")
)

// ValidationError carries per-field validation failures for client input.
// Handlers serialize Fields as the 400 response body.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldError builds a ValidationError for a single field.
func FieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// wrapValidation converts ozzo validation.Errors into a ValidationError.
// Non-validation errors pass through unchanged.
func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for field, ferr := range verrs {
			fields[field] = ferr.Error()
		}
		return &ValidationError{Fields: fields}
	}
	return err
}
