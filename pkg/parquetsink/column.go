package parquetsink

import (
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	pqschema "github.com/apache/arrow-go/v18/parquet/schema"

	"github.com/ajitpratap0/csvparquet/pkg/schema"
)

// values buffers one column's non-null values between row group flushes.
type values interface {
	len() int
	bytes() int64
	truncate(n int)
	write(cw file.ColumnChunkWriter, def, rep []int16) error
}

type typedValues[T any] struct {
	data  []T
	size  int64
	width func(T) int64
	batch func(cw file.ColumnChunkWriter, data []T, def, rep []int16) error
}

func (v *typedValues[T]) add(x T) {
	v.data = append(v.data, x)
	v.size += v.width(x)
}

func (v *typedValues[T]) len() int     { return len(v.data) }
func (v *typedValues[T]) bytes() int64 { return v.size }

func (v *typedValues[T]) truncate(n int) {
	for _, x := range v.data[n:] {
		v.size -= v.width(x)
	}
	v.data = v.data[:n]
}

func (v *typedValues[T]) write(cw file.ColumnChunkWriter, def, rep []int16) error {
	return v.batch(cw, v.data, def, rep)
}

func fixed[T any](n int64) func(T) int64 {
	return func(T) int64 { return n }
}

func newValues(kind schema.Kind) values {
	switch kind {
	case schema.Bool:
		return &typedValues[bool]{width: fixed[bool](1), batch: func(cw file.ColumnChunkWriter, d []bool, def, rep []int16) error {
			_, err := cw.(*file.BooleanColumnChunkWriter).WriteBatch(d, def, rep)
			return err
		}}
	case schema.Int32:
		return &typedValues[int32]{width: fixed[int32](4), batch: func(cw file.ColumnChunkWriter, d []int32, def, rep []int16) error {
			_, err := cw.(*file.Int32ColumnChunkWriter).WriteBatch(d, def, rep)
			return err
		}}
	case schema.Int64:
		return &typedValues[int64]{width: fixed[int64](8), batch: func(cw file.ColumnChunkWriter, d []int64, def, rep []int16) error {
			_, err := cw.(*file.Int64ColumnChunkWriter).WriteBatch(d, def, rep)
			return err
		}}
	case schema.Float:
		return &typedValues[float32]{width: fixed[float32](4), batch: func(cw file.ColumnChunkWriter, d []float32, def, rep []int16) error {
			_, err := cw.(*file.Float32ColumnChunkWriter).WriteBatch(d, def, rep)
			return err
		}}
	case schema.Double:
		return &typedValues[float64]{width: fixed[float64](8), batch: func(cw file.ColumnChunkWriter, d []float64, def, rep []int16) error {
			_, err := cw.(*file.Float64ColumnChunkWriter).WriteBatch(d, def, rep)
			return err
		}}
	case schema.Binary:
		return &typedValues[parquet.ByteArray]{
			width: func(b parquet.ByteArray) int64 { return int64(len(b)) + 4 },
			batch: func(cw file.ColumnChunkWriter, d []parquet.ByteArray, def, rep []int16) error {
				_, err := cw.(*file.ByteArrayColumnChunkWriter).WriteBatch(d, def, rep)
				return err
			},
		}
	}
	return nil
}

// column holds the buffered levels and values of one schema column.
type column struct {
	desc   schema.ColumnDescriptor
	maxDef int16
	maxRep int16
	def    []int16
	rep    []int16
	values values

	// per-message state
	seen       bool
	fieldCount int
	msgCount   int
}

func newColumn(desc schema.ColumnDescriptor) *column {
	c := &column{desc: desc, values: newValues(desc.Kind)}
	switch desc.Repetition {
	case schema.Optional:
		c.maxDef = 1
	case schema.Repeated:
		c.maxDef = 1
		c.maxRep = 1
	}
	return c
}

// appendValue records the levels for one present value. The value itself
// has already been appended to c.values.
func (c *column) appendValue() {
	var r int16
	if c.msgCount > 0 {
		r = c.maxRep
	}
	c.def = append(c.def, c.maxDef)
	c.rep = append(c.rep, r)
	c.fieldCount++
	c.msgCount++
}

// appendNull records an absent optional value or an empty list.
func (c *column) appendNull() {
	c.def = append(c.def, 0)
	c.rep = append(c.rep, 0)
}

func (c *column) resetMessage() {
	c.seen = false
	c.fieldCount = 0
	c.msgCount = 0
}

func (c *column) bufferedBytes() int64 {
	return c.values.bytes() + int64(len(c.def)+len(c.rep))*2
}

// mark is a truncation point used to drop a partially written record.
type mark struct {
	levels int
	values int
}

func (c *column) mark() mark {
	return mark{levels: len(c.def), values: c.values.len()}
}

func (c *column) rollback(m mark) {
	c.def = c.def[:m.levels]
	c.rep = c.rep[:m.levels]
	c.values.truncate(m.values)
	c.resetMessage()
}

func (c *column) flush(cw file.ColumnChunkWriter) error {
	var def, rep []int16
	if c.maxDef > 0 {
		def = c.def
	}
	if c.maxRep > 0 {
		rep = c.rep
	}
	if err := c.values.write(cw, def, rep); err != nil {
		return err
	}
	c.def = c.def[:0]
	c.rep = c.rep[:0]
	c.values.truncate(0)
	return nil
}

// parquetSchema converts a flat schema into the parquet root group node.
func parquetSchema(sch *schema.Schema) (*pqschema.GroupNode, error) {
	fields := make(pqschema.FieldList, 0, sch.ColumnCount())
	for _, c := range sch.Columns() {
		node, err := pqschema.NewPrimitiveNode(c.Name, repetitionOf(c.Repetition), physicalType(c.Kind), -1, -1)
		if err != nil {
			return nil, err
		}
		fields = append(fields, node)
	}
	return pqschema.NewGroupNode(sch.Name(), parquet.Repetitions.Required, fields, -1)
}

func repetitionOf(r schema.Repetition) parquet.Repetition {
	switch r {
	case schema.Optional:
		return parquet.Repetitions.Optional
	case schema.Repeated:
		return parquet.Repetitions.Repeated
	}
	return parquet.Repetitions.Required
}

func physicalType(k schema.Kind) parquet.Type {
	switch k {
	case schema.Bool:
		return parquet.Types.Boolean
	case schema.Int32:
		return parquet.Types.Int32
	case schema.Int64:
		return parquet.Types.Int64
	case schema.Float:
		return parquet.Types.Float
	case schema.Double:
		return parquet.Types.Double
	}
	return parquet.Types.ByteArray
}
