package oolong

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Standard sentinel errors for the compilation phases.
var (
	// ErrLink is returned when modules, entities or types cannot be linked.
	ErrLink = errors.New("oolong: link error")

	// ErrNotFound is returned when a referenced module, entity or type does not exist.
	ErrNotFound = errors.New("oolong: reference not found")

	// ErrDuplicate is returned when a name or an id is registered twice.
	ErrDuplicate = errors.New("oolong: duplicate definition")

	// ErrTypeCycle is returned when a type alias chain refers back to itself.
	ErrTypeCycle = errors.New("oolong: circular type alias")

	// ErrCompliance is returned when the physical model violates a database rule.
	ErrCompliance = errors.New("oolong: compliance check failed")

	// ErrConflict is returned when code generation would emit ambiguous output.
	ErrConflict = errors.New("oolong: generation conflict")

	// ErrInvariant signals an internal bug rather than a problem of the input.
	ErrInvariant = errors.New("oolong: internal invariant violated")
)

// LinkError is a fatal error raised while loading and linking modules.
type LinkError struct {
	// Kind is one of ErrNotFound, ErrDuplicate, ErrTypeCycle or nil.
	Kind    error
	Ref     string // offending reference
	File    string // file that holds the reference
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *LinkError) Error() string {
	var b strings.Builder
	b.WriteString("oolong: link error")
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Ref != "" {
		fmt.Fprintf(&b, " (ref %q", e.Ref)
		if e.File != "" {
			fmt.Fprintf(&b, " in %s", e.File)
		}
		b.WriteString(")")
	} else if e.File != "" {
		fmt.Fprintf(&b, " (in %s)", e.File)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *LinkError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrLink or the error kind.
func (e *LinkError) Is(target error) bool {
	return target == ErrLink || (e.Kind != nil && target == e.Kind)
}

// NewLinkError returns a new LinkError.
func NewLinkError(kind error, ref, file, message string) *LinkError {
	return &LinkError{Kind: kind, Ref: ref, File: file, Message: message}
}

// NotFoundError returns a LinkError of kind ErrNotFound.
func NotFoundError(what, ref, file string) *LinkError {
	return NewLinkError(ErrNotFound, ref, file, what+" not found")
}

// DuplicateError returns a LinkError of kind ErrDuplicate.
func DuplicateError(what, ref, file string) *LinkError {
	return NewLinkError(ErrDuplicate, ref, file, "duplicate "+what)
}

// ComplianceError holds every rule violation found on one entity.
type ComplianceError struct {
	Entity   string
	Problems []string
}

// Error implements the error interface.
func (e *ComplianceError) Error() string {
	return fmt.Sprintf("oolong: entity %q: %s", e.Entity, strings.Join(e.Problems, "; "))
}

// Is reports whether the target is ErrCompliance.
func (e *ComplianceError) Is(target error) bool {
	return target == ErrCompliance
}

// ComplianceErrors aggregates the compliance errors of a whole schema.
type ComplianceErrors []*ComplianceError

// Error implements the error interface.
func (e ComplianceErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ce := range e {
		msgs[i] = ce.Error()
	}
	return strings.Join(msgs, "\n")
}

// Is reports whether the target is ErrCompliance.
func (e ComplianceErrors) Is(target error) bool {
	return target == ErrCompliance
}

// Entities returns the names of the non-compliant entities.
func (e ComplianceErrors) Entities() []string {
	names := make([]string, len(e))
	for i, ce := range e {
		names[i] = ce.Entity
	}
	return names
}

// ConflictError is raised when two definitions would produce the same output.
type ConflictError struct {
	Subject string
	Message string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("oolong: conflict on %s: %s", e.Subject, e.Message)
}

// Is reports whether the target is ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NewConflictError returns a new ConflictError.
func NewConflictError(subject, format string, args ...any) *ConflictError {
	return &ConflictError{Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// InvariantError reports an internal bug detected by a defensive assertion.
type InvariantError struct {
	Where   string
	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("oolong: internal error in %s: %s", e.Where, e.Message)
}

// Is reports whether the target is ErrInvariant.
func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}

// IsLinkError reports whether the error is a LinkError.
func IsLinkError(err error) bool {
	var e *LinkError
	return errors.As(err, &e)
}

// IsComplianceError reports whether the error carries compliance violations.
func IsComplianceError(err error) bool {
	return err != nil && errors.Is(err, ErrCompliance)
}

// IsConflictError reports whether the error is a ConflictError.
func IsConflictError(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}
