package shred

import (
	"fmt"

	"github.com/ajitpratap0/csvparquet/pkg/errors"
	"github.com/ajitpratap0/csvparquet/pkg/schema"
)

// ArityMismatchError is returned when a record's field count differs from
// the schema's column count. No sink call has been made when it is returned.
type ArityMismatchError struct {
	Expected int
	Actual   int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("invalid input data: expecting %d columns, input had %d", e.Expected, e.Actual)
}

// ErrorType implements errors.Typed.
func (e *ArityMismatchError) ErrorType() errors.ErrorType {
	return errors.ErrorTypeValidation
}

// ValueParseError is returned when a textual value cannot be decoded as its
// column's kind. The sink may already hold part of the record.
type ValueParseError struct {
	Position int
	Raw      string
	Kind     schema.Kind
	Err      error
}

func (e *ValueParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("column %d: cannot parse %q as %s: %v", e.Position, e.Raw, e.Kind, e.Err)
	}
	return fmt.Sprintf("column %d: cannot parse %q as %s", e.Position, e.Raw, e.Kind)
}

func (e *ValueParseError) Unwrap() error {
	return e.Err
}

// ErrorType implements errors.Typed.
func (e *ValueParseError) ErrorType() errors.ErrorType {
	return errors.ErrorTypeData
}
