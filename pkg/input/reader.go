// Package input reads delimited text records for the parquet writer.
//
// Records are returned as raw field slices; typing happens later against the
// parquet schema. Files ending in a known compression extension are
// decompressed transparently.
package input

import (
	"encoding/csv"
	"io"
	"os"
	"unicode/utf8"

	"github.com/ajitpratap0/csvparquet/pkg/compression"
	"github.com/ajitpratap0/csvparquet/pkg/errors"
)

// Options controls how records are split.
type Options struct {
	Delimiter  rune `yaml:"delimiter" mapstructure:"delimiter"`
	SkipHeader bool `yaml:"skip_header" mapstructure:"skip_header"`
	LazyQuotes bool `yaml:"lazy_quotes" mapstructure:"lazy_quotes"`

	// Compression overrides detection by file extension when set.
	Compression compression.Algorithm `yaml:"compression" mapstructure:"compression"`
}

// DefaultOptions returns comma separated input without a header row.
func DefaultOptions() Options {
	return Options{Delimiter: ','}
}

// Reader yields one []string per input line. The field count is not
// enforced; arity is checked by the writer against its schema.
type Reader struct {
	csv     *csv.Reader
	closers []io.Closer
	line    int
	header  []string
}

// Open opens the file at path, choosing a decompressor from its extension.
func Open(path string, opts Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open input file").
			WithDetail("path", path)
	}

	alg := opts.Compression
	if alg == "" {
		alg = compression.DetectAlgorithm(path)
	}
	dec, err := compression.NewReader(f, alg)
	if err != nil {
		f.Close()
		return nil, err
	}

	r, err := newReader(dec, opts)
	if err != nil {
		dec.Close()
		f.Close()
		return nil, err
	}
	r.closers = []io.Closer{dec, f}
	return r, nil
}

// NewReader reads records from src, which is decompressed with
// opts.Compression. The caller keeps ownership of src.
func NewReader(src io.Reader, opts Options) (*Reader, error) {
	dec, err := compression.NewReader(src, opts.Compression)
	if err != nil {
		return nil, err
	}
	r, err := newReader(dec, opts)
	if err != nil {
		dec.Close()
		return nil, err
	}
	r.closers = []io.Closer{dec}
	return r, nil
}

func newReader(src io.Reader, opts Options) (*Reader, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if !validDelim(opts.Delimiter) {
		return nil, errors.Newf(errors.ErrorTypeConfig, "invalid delimiter %q", opts.Delimiter)
	}

	c := csv.NewReader(src)
	c.Comma = opts.Delimiter
	c.FieldsPerRecord = -1 // Allow variable number of fields
	c.LazyQuotes = opts.LazyQuotes

	r := &Reader{csv: c}
	if opts.SkipHeader {
		header, err := r.Read()
		if err != nil && err != io.EOF {
			return nil, err
		}
		r.header = header
	}
	return r, nil
}

// Header returns the skipped header row, if any.
func (r *Reader) Header() []string { return r.header }

// Line returns the number of records read so far, header included.
func (r *Reader) Line() int { return r.line }

// Read returns the next record, or io.EOF when the input is exhausted.
func (r *Reader) Read() ([]string, error) {
	rec, err := r.csv.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read record").
			WithDetail("line", r.line+1)
	}
	r.line++
	return rec, nil
}

// Close releases the decompressor and, for Open, the file.
func (r *Reader) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = errors.Wrap(err, errors.ErrorTypeFile, "failed to close input")
		}
	}
	r.closers = nil
	return first
}

func validDelim(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && r != '|' && utf8.ValidRune(r) && r != utf8.RuneError
}
