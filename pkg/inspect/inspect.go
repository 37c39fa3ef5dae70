// Package inspect reads parquet files written by csvparquet back into rows.
//
// It backs the cat command and the round-trip checks of the writer and the
// test-file generator. Columns are decoded through the Arrow parquet reader;
// repeated columns come back as lists.
package inspect

import (
	"bytes"
	"context"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	pqschema "github.com/apache/arrow-go/v18/parquet/schema"
	"github.com/goccy/go-json"

	"github.com/ajitpratap0/csvparquet/pkg/errors"
	"github.com/ajitpratap0/csvparquet/pkg/pool"
	"github.com/ajitpratap0/csvparquet/pkg/shred"
)

// Table is the decoded content of a parquet file. A row holds nil for a
// null, a scalar, or []any for a repeated column.
type Table struct {
	Schema    string
	CreatedBy string
	RowGroups int
	Columns   []string
	Rows      [][]any
}

// ReadFile decodes the parquet file at path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open parquet file").
			WithDetail("path", path)
	}
	defer f.Close()
	return Read(f)
}

// ReadBytes decodes an in-memory parquet file.
func ReadBytes(data []byte) (*Table, error) {
	return Read(bytes.NewReader(data))
}

// Read decodes every row of a parquet file.
func Read(r parquet.ReaderAtSeeker) (*Table, error) {
	fr, err := file.NewParquetReader(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create parquet reader")
	}
	defer fr.Close()

	var sb strings.Builder
	pqschema.PrintSchema(fr.MetaData().Schema.Root(), &sb, 2)

	t := &Table{
		Schema:    sb.String(),
		CreatedBy: fr.MetaData().GetCreatedBy(),
		RowGroups: fr.NumRowGroups(),
	}

	arrowReader, err := pqarrow.NewFileReader(fr, pqarrow.ArrowReadProperties{BatchSize: 4096}, memory.DefaultAllocator)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create arrow reader")
	}
	arrowSchema, err := arrowReader.Schema()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "failed to convert parquet schema")
	}
	for _, f := range arrowSchema.Fields() {
		t.Columns = append(t.Columns, f.Name)
	}
	if fr.NumRows() == 0 {
		return t, nil
	}

	rr, err := arrowReader.GetRecordReader(context.Background(), nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create record reader")
	}
	defer rr.Release()

	for rr.Next() {
		rec := rr.Record()
		for i := 0; i < int(rec.NumRows()); i++ {
			row := make([]any, rec.NumCols())
			for j := range row {
				row[j] = value(rec.Column(j), i)
			}
			t.Rows = append(t.Rows, row)
		}
	}
	if err := rr.Err(); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read record batch")
	}
	return t, nil
}

func value(col arrow.Array, i int) any {
	if col.IsNull(i) {
		return nil
	}

	switch c := col.(type) {
	case *array.Boolean:
		return c.Value(i)
	case *array.Int32:
		return c.Value(i)
	case *array.Int64:
		return c.Value(i)
	case *array.Float32:
		return c.Value(i)
	case *array.Float64:
		return c.Value(i)
	case *array.Binary:
		return string(c.Value(i))
	case *array.String:
		return c.Value(i)
	case *array.List:
		start, end := c.ValueOffsets(i)
		items := make([]any, 0, end-start)
		for j := start; j < end; j++ {
			items = append(items, value(c.ListValues(), int(j)))
		}
		return items
	default:
		return col.ValueStr(i)
	}
}

// Records renders each row in the textual record form accepted by the
// writer: nulls and empty lists become "", list items are joined with the
// repeated-value delimiter.
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = Format(v)
		}
		out[i] = rec
	}
	return out
}

// Format renders one decoded value as record text.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = Format(item)
		}
		return strings.Join(parts, shred.Delimiter)
	}
	return ""
}

// WriteJSONLines writes one JSON object per row with keys in column order.
// Non-finite floats are written as strings.
func (t *Table) WriteJSONLines(w io.Writer) error {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	for _, row := range t.Rows {
		buf.Reset()
		buf.WriteByte('{')
		for j, v := range row {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(t.Columns[j])
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeData, "failed to encode column name")
			}
			val, err := json.Marshal(jsonSafe(v))
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeData, "failed to encode value").
					WithDetail("column", t.Columns[j])
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteString("}\n")
		if _, err := w.Write(buf.Bytes()); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write output")
		}
	}
	return nil
}

func jsonSafe(v any) any {
	switch x := v.(type) {
	case float32:
		if math.IsInf(float64(x), 0) || math.IsNaN(float64(x)) {
			return Format(x)
		}
	case float64:
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return Format(x)
		}
	case []any:
		items := make([]any, len(x))
		for i, item := range x {
			items[i] = jsonSafe(item)
		}
		return items
	}
	return v
}
