package parquetsink

import (
	"strings"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"go.uber.org/zap"

	"github.com/ajitpratap0/csvparquet/pkg/errors"
)

const (
	// DefaultBlockSize is the buffered size at which a row group is flushed
	DefaultBlockSize = 128 * 1024 * 1024 // 128MB
	// DefaultPageSize is the target data page size
	DefaultPageSize = 1024 * 1024 // 1MB

	createdBy = "csvparquet"
)

// Options configures the parquet file produced by a Writer. None of these
// settings change which values are written.
type Options struct {
	// Compression is the page codec: uncompressed, snappy, gzip, zstd or brotli
	Compression string
	// EnableDictionary turns on dictionary encoding for every column
	EnableDictionary bool
	// BlockSize is the approximate buffered byte size of one row group
	BlockSize int64
	// PageSize is the target data page size in bytes
	PageSize int64
	// Logger receives row group flush events; nil disables logging
	Logger *zap.Logger
}

// DefaultOptions returns uncompressed, non-dictionary options with the
// default block and page sizes.
func DefaultOptions() Options {
	return Options{
		Compression: "uncompressed",
		BlockSize:   DefaultBlockSize,
		PageSize:    DefaultPageSize,
	}
}

func (o Options) withDefaults() Options {
	if o.Compression == "" {
		o.Compression = "uncompressed"
	}
	if o.BlockSize <= 0 {
		o.BlockSize = DefaultBlockSize
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

func (o Options) writerProperties() (*parquet.WriterProperties, error) {
	codec, err := ParseCodec(o.Compression)
	if err != nil {
		return nil, err
	}
	return parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithDictionaryDefault(o.EnableDictionary),
		parquet.WithDataPageSize(o.PageSize),
		parquet.WithCreatedBy(createdBy),
	), nil
}

// ParseCodec maps a codec name to its parquet compression. "none" and ""
// mean uncompressed.
func ParseCodec(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "", "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	case "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "brotli":
		return compress.Codecs.Brotli, nil
	}
	return compress.Codecs.Uncompressed, errors.Newf(errors.ErrorTypeConfig, "unsupported parquet compression %q", name)
}
