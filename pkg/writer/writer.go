// Package writer converts delimited text records into a parquet file.
//
// A Writer binds a schema to a parquet destination and shreds each record
// into it. It adds the operational concerns around the shredding core:
// structured logging, Prometheus counters, tracing of whole-stream
// conversions and, optionally, skipping records that fail validation.
//
// Basic usage:
//
//	sch, err := schema.Parse(text)
//	w, err := writer.New(out, sch,
//	    writer.WithSinkOptions(parquetsink.Options{Compression: "snappy"}),
//	    writer.WithLogger(logger))
//	err = w.Write([]string{"true", "", "1|2|3"})
//	err = w.Close()
package writer

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/csvparquet/pkg/errors"
	"github.com/ajitpratap0/csvparquet/pkg/metrics"
	"github.com/ajitpratap0/csvparquet/pkg/observability"
	"github.com/ajitpratap0/csvparquet/pkg/parquetsink"
	"github.com/ajitpratap0/csvparquet/pkg/schema"
	"github.com/ajitpratap0/csvparquet/pkg/shred"
)

// RecordReader yields records until it returns io.EOF.
type RecordReader interface {
	Read() ([]string, error)
}

// Stats summarises the records handled by a Writer.
type Stats struct {
	RecordsWritten int64         `json:"records_written"`
	RecordsSkipped int64         `json:"records_skipped"`
	RowGroups      int           `json:"row_groups"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Option configures a Writer.
type Option func(*Writer)

// WithSinkOptions sets the parquet file options.
func WithSinkOptions(opts parquetsink.Options) Option {
	return func(w *Writer) { w.sinkOpts = opts }
}

// WithLogger sets the logger. The default discards all output.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithMetrics reports activity to collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(w *Writer) { w.metrics = collector }
}

// WithSkipInvalid drops records with the wrong field count, an unparseable
// value or an empty required value instead of failing. Each skipped record
// is logged. I/O failures are never skipped.
func WithSkipInvalid(skip bool) Option {
	return func(w *Writer) { w.skipInvalid = skip }
}

// Writer writes records for one schema to one parquet stream. It is not safe
// for concurrent use.
type Writer struct {
	sinkOpts    parquetsink.Options
	logger      *zap.Logger
	metrics     *metrics.Collector
	skipInvalid bool

	sink     *parquetsink.Writer
	counter  *countingSink
	shredder *shred.Shredder

	start   time.Time
	record  int64
	skipped int64
	failed  error
	closed  bool
}

// New creates a Writer that writes sch records to out. The caller keeps
// ownership of out and closes it after Close.
func New(out io.Writer, sch *schema.Schema, opts ...Option) (*Writer, error) {
	w := &Writer{
		sinkOpts: parquetsink.DefaultOptions(),
		logger:   zap.NewNop(),
		start:    time.Now(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.sinkOpts.Logger == nil {
		w.sinkOpts.Logger = w.logger
	}

	sink, err := parquetsink.New(out, sch, w.sinkOpts)
	if err != nil {
		return nil, err
	}
	w.sink = sink
	w.counter = &countingSink{ColumnSink: sink}
	w.shredder = shred.New(sch, w.counter)

	w.logger.Debug("parquet writer created",
		zap.String("schema", sch.Name()),
		zap.Int("columns", sch.ColumnCount()),
		zap.String("compression", w.sinkOpts.Compression),
		zap.Bool("skip_invalid", w.skipInvalid))
	return w, nil
}

// Schema returns the schema records are written with.
func (w *Writer) Schema() *schema.Schema { return w.sink.Schema() }

// Write shreds one record into the file. A record that fails part way
// through leaves the file unusable unless WithSkipInvalid is set, in which
// case invalid records are dropped and Write returns nil.
func (w *Writer) Write(record []string) error {
	if w.closed {
		return errors.New(errors.ErrorTypeProtocol, "write on closed writer")
	}
	if w.failed != nil {
		return w.failed
	}

	timer := metrics.NewTimer()
	groups := w.sink.RowGroups()
	w.record++

	if err := w.shredder.Write(record); err != nil {
		return w.reject(err)
	}

	w.counter.commit(w.metrics)
	w.metrics.RecordWritten()
	w.metrics.RowGroupsFlushed(w.sink.RowGroups() - groups)
	w.metrics.ObserveWrite(timer.Stop())
	return nil
}

func (w *Writer) reject(err error) error {
	reason := rejectReason(err)
	w.counter.reset()
	w.metrics.RecordRejected(reason)

	if w.skipInvalid && reason != metrics.ReasonIO {
		w.sink.Discard()
		w.skipped++
		w.logger.Warn("skipping invalid record",
			zap.Int64("record", w.record),
			zap.String("reason", reason),
			zap.Error(err))
		return nil
	}

	w.logger.Error("failed to write record",
		zap.Int64("record", w.record),
		zap.String("reason", reason),
		zap.Error(err))
	w.failed = err
	return err
}

func rejectReason(err error) string {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeValidation:
		return metrics.ReasonArity
	case errors.ErrorTypeData:
		return metrics.ReasonParse
	case errors.ErrorTypeProtocol:
		return metrics.ReasonProtocol
	default:
		return metrics.ReasonIO
	}
}

// WriteAll writes every record from r until io.EOF. The context is checked
// between records. It returns the number of records read.
func (w *Writer) WriteAll(ctx context.Context, r RecordReader) (int64, error) {
	var n int64
	err := observability.Trace(ctx, "writer", "write_all", func(ctx context.Context) error {
		tracker := metrics.NewThroughputTracker(w.metrics)
		defer tracker.GetAndReset()

		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := r.Read()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeData, "failed to read input record").
					WithDetail("record", n+1)
			}
			n++
			if err := w.Write(rec); err != nil {
				return err
			}
			tracker.Increment(1)
		}
	})
	return n, err
}

// Flush writes buffered records as a row group.
func (w *Writer) Flush() error {
	groups := w.sink.RowGroups()
	if err := w.sink.Flush(); err != nil {
		return err
	}
	w.metrics.RowGroupsFlushed(w.sink.RowGroups() - groups)
	return nil
}

// Stats reports the records written and skipped so far.
func (w *Writer) Stats() Stats {
	return Stats{
		RecordsWritten: w.sink.Rows(),
		RecordsSkipped: w.skipped,
		RowGroups:      w.sink.RowGroups(),
		Elapsed:        time.Since(w.start),
	}
}

// Close writes the remaining row group and the file footer. It is safe to
// call more than once.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	groups := w.sink.RowGroups()
	err := w.sink.Close()
	w.metrics.RowGroupsFlushed(w.sink.RowGroups() - groups)

	stats := w.Stats()
	w.logger.Info("parquet file written",
		zap.Int64("records", stats.RecordsWritten),
		zap.Int64("skipped", stats.RecordsSkipped),
		zap.Int("row_groups", stats.RowGroups),
		zap.Duration("elapsed", stats.Elapsed),
		zap.Error(err))
	return err
}
