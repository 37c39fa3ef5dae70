// Package schema models flat columnar schemas: an ordered, immutable list of
// primitive columns, each marked required, optional or repeated.
//
// A Schema is built once per output stream, either from (repetition, type,
// name) triples with New or from schema text with Parse:
//
//	sch, err := schema.Parse(`message m {
//	    required boolean a;
//	    optional int32 b;
//	}`)
//
// Column order defines the position used to align record fields.
package schema

import (
	"strings"

	"github.com/ajitpratap0/csvparquet/pkg/errors"
)

// DefaultMessageName is used when a schema is built without a name.
const DefaultMessageName = "m"

// Field is one (repetition, type, name) triple as produced by a schema
// parser. Repetition and Type use their schema-text spelling.
type Field struct {
	Repetition string
	Type       string
	Name       string
}

// ColumnDescriptor describes one column of a flat schema.
type ColumnDescriptor struct {
	Position   int
	Name       string
	Kind       Kind
	Repetition Repetition
}

// Schema is an ordered list of column descriptors indexed by position.
// It is never mutated after construction and is safe to share.
type Schema struct {
	name    string
	columns []ColumnDescriptor
}

// New builds a Schema from parser triples. Positions are assigned in slice
// order starting at 0.
func New(name string, fields []Field) (*Schema, error) {
	if name == "" {
		name = DefaultMessageName
	}

	columns := make([]ColumnDescriptor, 0, len(fields))
	seen := make(map[string]int, len(fields))

	for i, f := range fields {
		if f.Name == "" {
			return nil, errors.New(errors.ErrorTypeSchema, "column name is empty").
				WithDetail("position", i)
		}
		if prev, ok := seen[f.Name]; ok {
			return nil, errors.Newf(errors.ErrorTypeSchema, "duplicate column name %q", f.Name).
				WithDetail("position", i).
				WithDetail("previous", prev)
		}
		seen[f.Name] = i

		rep, ok := ParseRepetition(f.Repetition)
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeSchema, "unknown repetition %q for column %q", f.Repetition, f.Name).
				WithDetail("position", i)
		}
		kind, ok := ParseKind(f.Type)
		if !ok {
			return nil, &UnsupportedColumnKindError{Name: f.Name, Type: f.Type}
		}

		columns = append(columns, ColumnDescriptor{
			Position:   i,
			Name:       f.Name,
			Kind:       kind,
			Repetition: rep,
		})
	}

	return &Schema{name: name, columns: columns}, nil
}

// Name returns the message name.
func (s *Schema) Name() string {
	return s.name
}

// ColumnCount returns the number of columns.
func (s *Schema) ColumnCount() int {
	return len(s.columns)
}

// ColumnAt returns the descriptor at position i. It panics if i is out of
// range, like a slice index.
func (s *Schema) ColumnAt(i int) ColumnDescriptor {
	return s.columns[i]
}

// Columns returns a copy of all descriptors in position order.
func (s *Schema) Columns() []ColumnDescriptor {
	out := make([]ColumnDescriptor, len(s.columns))
	copy(out, s.columns)
	return out
}

// Fields returns the schema as parser triples, the inverse of New.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.columns))
	for i, c := range s.columns {
		out[i] = Field{Repetition: c.Repetition.String(), Type: c.Kind.String(), Name: c.Name}
	}
	return out
}

// String renders the schema in message text form. The result parses back
// into an equal schema.
func (s *Schema) String() string {
	var b strings.Builder
	b.WriteString("message ")
	b.WriteString(s.name)
	b.WriteString(" {\n")
	for _, c := range s.columns {
		b.WriteString("  ")
		b.WriteString(c.Repetition.String())
		b.WriteByte(' ')
		b.WriteString(c.Kind.String())
		b.WriteByte(' ')
		b.WriteString(c.Name)
		b.WriteString(";\n")
	}
	b.WriteString("}\n")
	return b.String()
}
