package schema

import (
	"strings"

	"github.com/fraugster/parquet-go/parquet"
	"github.com/fraugster/parquet-go/parquetschema"

	"github.com/ajitpratap0/csvparquet/pkg/errors"
)

// Parse parses message schema text such as
//
//	message m { required boolean a; optional int32 b; }
//
// into a flat Schema. Group columns are rejected. Logical type annotations
// are accepted by the grammar but ignored.
func Parse(text string) (*Schema, error) {
	def, err := parquetschema.ParseSchemaDefinition(text)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "failed to parse schema text")
	}

	fields, err := flatFields(def)
	if err != nil {
		return nil, err
	}

	var name string
	if def.RootColumn != nil && def.RootColumn.SchemaElement != nil {
		name = def.RootColumn.SchemaElement.Name
	}
	return New(name, fields)
}

// flatFields turns the root's children into parser triples.
func flatFields(def *parquetschema.SchemaDefinition) ([]Field, error) {
	if def.RootColumn == nil {
		return nil, errors.New(errors.ErrorTypeSchema, "schema has no root message")
	}

	fields := make([]Field, 0, len(def.RootColumn.Children))
	for i, col := range def.RootColumn.Children {
		elem := col.SchemaElement
		if elem == nil {
			return nil, errors.New(errors.ErrorTypeSchema, "column has no schema element").
				WithDetail("position", i)
		}
		if len(col.Children) > 0 || !elem.IsSetType() {
			return nil, errors.Newf(errors.ErrorTypeSchema, "column %q is a group; only flat schemas are supported", elem.Name).
				WithDetail("position", i)
		}
		fields = append(fields, Field{
			Repetition: repetitionText(elem.GetRepetitionType()),
			Type:       typeText(elem.GetType()),
			Name:       elem.Name,
		})
	}
	return fields, nil
}

func repetitionText(r parquet.FieldRepetitionType) string {
	switch r {
	case parquet.FieldRepetitionType_REQUIRED:
		return "required"
	case parquet.FieldRepetitionType_OPTIONAL:
		return "optional"
	case parquet.FieldRepetitionType_REPEATED:
		return "repeated"
	}
	return strings.ToLower(r.String())
}

// typeText maps physical types back to their schema-text keyword so that
// New can report unsupported ones (int96, fixed_len_byte_array) by name.
func typeText(t parquet.Type) string {
	switch t {
	case parquet.Type_BYTE_ARRAY:
		return "binary"
	case parquet.Type_FIXED_LEN_BYTE_ARRAY:
		return "fixed_len_byte_array"
	}
	return strings.ToLower(t.String())
}
