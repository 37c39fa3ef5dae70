package schema

import (
	"fmt"
	"strings"

	"github.com/ajitpratap0/csvparquet/pkg/errors"
)

// Kind is the primitive physical type of a flat column.
type Kind int

const (
	// Bool is a boolean column ("boolean" in schema text)
	Bool Kind = iota
	// Int32 is a 32-bit signed integer column
	Int32
	// Int64 is a 64-bit signed integer column
	Int64
	// Float is an IEEE-754 single-precision column
	Float
	// Double is an IEEE-754 double-precision column
	Double
	// Binary is an opaque byte-sequence column
	Binary
)

// Kinds lists every supported kind in declaration order.
var Kinds = [...]Kind{Bool, Int32, Int64, Float, Double, Binary}

var kindNames = [...]string{
	Bool:   "boolean",
	Int32:  "int32",
	Int64:  "int64",
	Float:  "float",
	Double: "double",
	Binary: "binary",
}

// String returns the schema-text spelling of the kind.
func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is one of the six supported kinds.
func (k Kind) Valid() bool {
	return k >= Bool && k <= Binary
}

// ParseKind maps a schema-text type name to a Kind. Matching is
// case-insensitive.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return Kind(k), true
		}
	}
	return 0, false
}

// Repetition is the repetition class of a column.
type Repetition int

const (
	// Required columns hold exactly one value per record
	Required Repetition = iota
	// Optional columns hold zero or one value per record
	Optional
	// Repeated columns hold an ordered list of values per record
	Repeated
)

var repetitionNames = [...]string{
	Required: "required",
	Optional: "optional",
	Repeated: "repeated",
}

func (r Repetition) String() string {
	if r >= Required && r <= Repeated {
		return repetitionNames[r]
	}
	return fmt.Sprintf("Repetition(%d)", int(r))
}

// ParseRepetition maps a schema-text repetition keyword to a Repetition.
func ParseRepetition(name string) (Repetition, bool) {
	for r, n := range repetitionNames {
		if strings.EqualFold(n, name) {
			return Repetition(r), true
		}
	}
	return 0, false
}

// UnsupportedColumnKindError is returned when a schema names a physical type
// outside the supported primitives.
type UnsupportedColumnKindError struct {
	Name string
	Type string
}

func (e *UnsupportedColumnKindError) Error() string {
	return fmt.Sprintf("unsupported column kind %q for column %q", e.Type, e.Name)
}

// ErrorType implements errors.Typed.
func (e *UnsupportedColumnKindError) ErrorType() errors.ErrorType {
	return errors.ErrorTypeSchema
}
