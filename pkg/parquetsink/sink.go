// Package parquetsink implements the shred.ColumnSink record protocol on top
// of the Apache Arrow parquet file writer.
//
// Values are buffered per column together with their definition and
// repetition levels and written out as one row group whenever the buffered
// size reaches Options.BlockSize. Close writes the final row group and the
// file footer.
package parquetsink

import (
	"io"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"go.uber.org/zap"

	"github.com/ajitpratap0/csvparquet/pkg/errors"
	"github.com/ajitpratap0/csvparquet/pkg/schema"
	"github.com/ajitpratap0/csvparquet/pkg/shred"
)

var _ shred.ColumnSink = (*Writer)(nil)

type state int

const (
	stateInit state = iota
	stateMessage
	stateField
	stateClosed
)

var stateNames = [...]string{"INIT", "IN_MESSAGE", "IN_FIELD", "CLOSED"}

func (s state) String() string { return stateNames[s] }

// Writer is a shred.ColumnSink that produces a parquet file. It is not safe
// for concurrent use.
type Writer struct {
	schema  *schema.Schema
	opts    Options
	logger  *zap.Logger
	fw      *file.Writer
	columns []*column

	state   state
	current *column
	marks   []mark

	rows      int64
	bufRows   int64
	rowGroups int
}

// New creates a Writer that writes a parquet file for sch to w. The caller
// keeps ownership of w; Close does not close it.
func New(w io.Writer, sch *schema.Schema, opts Options) (*Writer, error) {
	opts = opts.withDefaults()

	props, err := opts.writerProperties()
	if err != nil {
		return nil, err
	}

	root, err := parquetSchema(sch)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSchema, "failed to build parquet schema")
	}

	columns := make([]*column, sch.ColumnCount())
	for i := range columns {
		columns[i] = newColumn(sch.ColumnAt(i))
	}

	return &Writer{
		schema:  sch,
		opts:    opts,
		logger:  opts.Logger.With(zap.String("schema", sch.Name())),
		fw:      file.NewParquetWriter(writerOnly{w}, root, file.WithWriterProps(props)),
		columns: columns,
		marks:   make([]mark, len(columns)),
	}, nil
}

// writerOnly hides any Close method of the destination so the parquet
// writer cannot close a stream it does not own.
type writerOnly struct {
	io.Writer
}

// Schema returns the schema the file is written with.
func (w *Writer) Schema() *schema.Schema { return w.schema }

// Rows returns the number of complete records accepted so far.
func (w *Writer) Rows() int64 { return w.rows }

// RowGroups returns the number of row groups written so far.
func (w *Writer) RowGroups() int { return w.rowGroups }

// BufferedBytes estimates the size of the row group being built.
func (w *Writer) BufferedBytes() int64 {
	var n int64
	for _, c := range w.columns {
		n += c.bufferedBytes()
	}
	return n
}

func (w *Writer) protocolError(op string, want state) *errors.Error {
	return errors.Newf(errors.ErrorTypeProtocol, "%s called in state %s, want %s", op, w.state, want).
		WithDetail("row", w.rows)
}

// StartMessage begins a record.
func (w *Writer) StartMessage() error {
	if w.state != stateInit {
		return w.protocolError("startMessage", stateInit)
	}
	for i, c := range w.columns {
		w.marks[i] = c.mark()
		c.resetMessage()
	}
	w.state = stateMessage
	return nil
}

// StartField opens the column at position, whose name must match.
func (w *Writer) StartField(name string, position int) error {
	if w.state != stateMessage {
		return w.protocolError("startField", stateMessage)
	}
	if position < 0 || position >= len(w.columns) {
		return errors.Newf(errors.ErrorTypeProtocol, "field position %d out of range [0,%d)", position, len(w.columns))
	}
	c := w.columns[position]
	if c.desc.Name != name {
		return errors.Newf(errors.ErrorTypeProtocol, "field %q does not match column %q at position %d", name, c.desc.Name, position)
	}
	if c.seen {
		return errors.Newf(errors.ErrorTypeProtocol, "field %q already written in this record", name)
	}
	c.seen = true
	c.fieldCount = 0
	w.current = c
	w.state = stateField
	return nil
}

// EndField closes the open column. Required and optional fields must have
// received exactly one value; a repeated field with none is an empty list.
func (w *Writer) EndField(name string, position int) error {
	if w.state != stateField {
		return w.protocolError("endField", stateField)
	}
	c := w.current
	if c.desc.Name != name || c.desc.Position != position {
		return errors.Newf(errors.ErrorTypeProtocol, "endField(%s,%d) does not match open field (%s,%d)",
			name, position, c.desc.Name, c.desc.Position)
	}
	if c.desc.Repetition != schema.Repeated && c.fieldCount != 1 {
		return errors.Newf(errors.ErrorTypeProtocol, "%s field %q received %d values, want 1",
			c.desc.Repetition, name, c.fieldCount)
	}
	if c.fieldCount == 0 {
		c.appendNull()
	}
	w.current = nil
	w.state = stateMessage
	return nil
}

// EndMessage completes the record. Columns that were not written become
// nulls or empty lists; a missing required column is an error.
func (w *Writer) EndMessage() error {
	if w.state != stateMessage {
		return w.protocolError("endMessage", stateMessage)
	}
	for _, c := range w.columns {
		if !c.seen && c.desc.Repetition == schema.Required {
			return errors.Newf(errors.ErrorTypeProtocol, "required field %q missing", c.desc.Name).
				WithDetail("position", c.desc.Position).
				WithDetail("row", w.rows)
		}
	}
	for _, c := range w.columns {
		if !c.seen {
			c.appendNull()
		}
	}

	w.rows++
	w.bufRows++
	w.state = stateInit

	if w.BufferedBytes() >= w.opts.BlockSize {
		return w.Flush()
	}
	return nil
}

// Discard drops the record in progress, if any, returning the writer to the
// state it had before StartMessage. It lets a caller skip a record that
// failed part way through instead of abandoning the whole file.
func (w *Writer) Discard() {
	if w.state != stateMessage && w.state != stateField {
		return
	}
	for i, c := range w.columns {
		c.rollback(w.marks[i])
	}
	w.current = nil
	w.state = stateInit
}

func (w *Writer) open(kind schema.Kind) (*column, error) {
	if w.state != stateField {
		return nil, w.protocolError("add "+kind.String(), stateField)
	}
	c := w.current
	if c.desc.Kind != kind {
		return nil, errors.Newf(errors.ErrorTypeProtocol, "cannot add %s value to %s column %q", kind, c.desc.Kind, c.desc.Name)
	}
	if c.desc.Repetition != schema.Repeated && c.fieldCount > 0 {
		return nil, errors.Newf(errors.ErrorTypeProtocol, "%s field %q already has a value", c.desc.Repetition, c.desc.Name)
	}
	return c, nil
}

func add[T any](w *Writer, kind schema.Kind, v T) error {
	c, err := w.open(kind)
	if err != nil {
		return err
	}
	c.values.(*typedValues[T]).add(v)
	c.appendValue()
	return nil
}

func (w *Writer) AddBool(v bool) error      { return add(w, schema.Bool, v) }
func (w *Writer) AddInt32(v int32) error    { return add(w, schema.Int32, v) }
func (w *Writer) AddInt64(v int64) error    { return add(w, schema.Int64, v) }
func (w *Writer) AddFloat(v float32) error  { return add(w, schema.Float, v) }
func (w *Writer) AddDouble(v float64) error { return add(w, schema.Double, v) }

func (w *Writer) AddBinary(v []byte) error {
	b := make(parquet.ByteArray, len(v))
	copy(b, v)
	return add(w, schema.Binary, b)
}

// Flush writes buffered records as a row group. It is a no-op when nothing
// is buffered and fails if a record is in progress.
func (w *Writer) Flush() error {
	if w.state != stateInit {
		return w.protocolError("flush", stateInit)
	}
	if w.bufRows == 0 {
		return nil
	}

	size := w.BufferedBytes()
	rgw := w.fw.AppendRowGroup()
	for _, c := range w.columns {
		cw, err := rgw.NextColumn()
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to open column chunk").
				WithDetail("column", c.desc.Name)
		}
		if err := c.flush(cw); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write column chunk").
				WithDetail("column", c.desc.Name)
		}
		if err := cw.Close(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to close column chunk").
				WithDetail("column", c.desc.Name)
		}
	}
	if err := rgw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close row group")
	}

	w.logger.Debug("flushed row group",
		zap.Int("row_group", w.rowGroups),
		zap.Int64("rows", w.bufRows),
		zap.Int64("buffered_bytes", size))

	w.rowGroups++
	w.bufRows = 0
	return nil
}

// Close flushes buffered records and writes the file footer. A record left
// open by a failed write is dropped and reported as an error after the file
// has been finished.
func (w *Writer) Close() error {
	if w.state == stateClosed {
		return nil
	}

	var pending error
	if w.state != stateInit {
		pending = errors.New(errors.ErrorTypeProtocol, "closed with a record in progress; partial record dropped").
			WithDetail("row", w.rows)
		w.Discard()
	}

	if err := w.Flush(); err != nil {
		return err
	}
	w.state = stateClosed
	if err := w.fw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write parquet footer")
	}

	w.logger.Debug("closed parquet writer",
		zap.Int64("rows", w.rows),
		zap.Int("row_groups", w.rowGroups))
	return pending
}
