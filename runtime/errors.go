package runtime

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("oolong: validation failed")
	// ErrBusiness is matched by every BusinessError.
	ErrBusiness = errors.New("oolong: business rule violated")
)

// ValidationError reports a value rejected by a validator, a sanitizer
// or a field constraint.
type ValidationError struct {
	Entity string
	Field  string
	Rule   string
}

// NewValidationError returns a new ValidationError.
func NewValidationError(entity, field, rule string) *ValidationError {
	return &ValidationError{Entity: entity, Field: field, Rule: rule}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("oolong: %s.%s: %s", e.Entity, e.Field, e.Rule)
}

// Is reports whether the target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// BusinessError is raised by the exceptions of an interface.
type BusinessError struct {
	Message string
}

// NewBusinessError returns a new BusinessError.
func NewBusinessError(msg string) *BusinessError {
	return &BusinessError{Message: msg}
}

// Error implements the error interface.
func (e *BusinessError) Error() string {
	return e.Message
}

// Is reports whether the target is ErrBusiness.
func (e *BusinessError) Is(target error) bool {
	return target == ErrBusiness
}
