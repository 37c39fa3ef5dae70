// Package shred converts flat textual records into the call sequence of a
// column-oriented write protocol.
//
// A record is one string per schema column. The empty string means the
// field has no value; repeated columns join their elements with '|':
//
//	sch, _ := schema.Parse("message m { required boolean a; repeated int32 c; }")
//	s := shred.New(sch, sink)
//	err := s.Write([]string{"true", "1|2|3"})
//
// The empty string is also how an empty repeated list is written, so null
// and empty lists cannot be told apart. There is no escaping for the
// delimiter: a repeated binary element cannot contain '|'.
package shred

import (
	"strings"

	"github.com/ajitpratap0/csvparquet/pkg/schema"
)

// Delimiter separates the elements of a repeated column's value.
const Delimiter = "|"

// Shredder writes records for one schema into one ColumnSink. It holds no
// per-record state and is not safe for concurrent use, since the sink is
// not.
type Shredder struct {
	schema *schema.Schema
	sink   ColumnSink
}

// New binds a Shredder to a schema and sink for the life of the stream.
func New(sch *schema.Schema, sink ColumnSink) *Shredder {
	return &Shredder{schema: sch, sink: sink}
}

// Schema returns the schema records are aligned against.
func (s *Shredder) Schema() *schema.Schema {
	return s.schema
}

// Write emits one record. A record with the wrong number of fields is
// rejected with *ArityMismatchError before any sink call. A decode failure
// returns *ValueParseError and sink failures are returned unchanged; in
// both cases the sink keeps whatever was emitted before the failure and the
// output stream should be discarded.
//
// Required columns are not checked for empty values here; the sink decides
// what an absent required field means.
func (s *Shredder) Write(record []string) error {
	n := s.schema.ColumnCount()
	if len(record) != n {
		return &ArityMismatchError{Expected: n, Actual: len(record)}
	}

	if err := s.sink.StartMessage(); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		value := record[i]
		if value == "" {
			continue
		}
		if err := s.writeField(s.schema.ColumnAt(i), value); err != nil {
			return err
		}
	}

	return s.sink.EndMessage()
}

func (s *Shredder) writeField(col schema.ColumnDescriptor, value string) error {
	if err := s.sink.StartField(col.Name, col.Position); err != nil {
		return err
	}

	if col.Repetition != schema.Repeated {
		if err := s.emit(col, value); err != nil {
			return err
		}
	} else {
		for _, item := range strings.Split(value, Delimiter) {
			if err := s.emit(col, item); err != nil {
				return err
			}
		}
	}

	return s.sink.EndField(col.Name, col.Position)
}

func (s *Shredder) emit(col schema.ColumnDescriptor, raw string) error {
	v, err := decodeAt(col.Position, raw, col.Kind)
	if err != nil {
		return err
	}
	return v.Emit(s.sink)
}
