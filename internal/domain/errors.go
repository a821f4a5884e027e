package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput signals a report that is not well-formed XML or lacks required containers.
	ErrMalformedInput = errors.New("malformed input")
	// ErrFieldCoercion signals a numeric field holding non-numeric text.
	ErrFieldCoercion = errors.New("field coercion failed")
	// ErrInvalidArgument signals a caller error such as mutually exclusive criteria.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrToolFailure signals a BLAST binary that exited non-zero or could not be launched.
	ErrToolFailure = errors.New("external tool failure")
	// ErrReportNotFound signals a missing stored report.
	ErrReportNotFound = errors.New("report not found")
	// ErrQueryNotFound signals a query accession absent from a stored report.
	ErrQueryNotFound = errors.New("query not found")
	// ErrHitNotFound signals a missing stored hit.
	ErrHitNotFound = errors.New("hit not found")
)

// FieldCoercionError wraps ErrFieldCoercion with the offending field and raw value.
type FieldCoercionError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldCoercionError) Error() string {
	return fmt.Sprintf("%s: %s=%q: %v", ErrFieldCoercion.Error(), e.Field, e.Value, e.Err)
}

func (e *FieldCoercionError) Unwrap() error { return ErrFieldCoercion }

// NewFieldCoercion creates a field coercion error.
func NewFieldCoercion(field, value string, err error) error {
	return &FieldCoercionError{Field: field, Value: value, Err: err}
}

// ToolError wraps ErrToolFailure with the command line and its standard error.
type ToolError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *ToolError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: running %q: %v\n\nstderr:\n%s", ErrToolFailure.Error(), e.Command, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: running %q: %v", ErrToolFailure.Error(), e.Command, e.Err)
}

func (e *ToolError) Unwrap() error { return ErrToolFailure }
