// Package config provides configuration management for csvparquet.
//
// A Config groups the settings of one conversion run into sections:
//   - Writer: parquet codec, dictionary, row group and page sizes
//   - Input: delimiter, header handling, input decompression
//   - Output: object store client settings
//   - Logging, Metrics, Tracing: observability
//
// # Loading
//
// Load reads a YAML file on top of the defaults, substitutes ${VAR_NAME}
// references from the environment, and applies CSVPARQUET_* environment
// overrides (CSVPARQUET_WRITER_COMPRESSION overrides writer.compression):
//
//	cfg, err := config.Load("csvparquet.yaml")
//
// Commands that bind flags build the viper instance themselves with New,
// ReadFile and Decode so that flags, environment and file share one
// precedence order.
//
// # Environment Variable Substitution
//
//	# csvparquet.yaml
//	output:
//	  gcs_credentials_file: ${GOOGLE_APPLICATION_CREDENTIALS}
package config

import (
	"bytes"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/csvparquet/pkg/compression"
	"github.com/ajitpratap0/csvparquet/pkg/errors"
	"github.com/ajitpratap0/csvparquet/pkg/input"
	"github.com/ajitpratap0/csvparquet/pkg/logger"
	"github.com/ajitpratap0/csvparquet/pkg/observability"
	"github.com/ajitpratap0/csvparquet/pkg/parquetsink"
	"github.com/ajitpratap0/csvparquet/pkg/storage"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "CSVPARQUET"

// Config is the complete configuration of a conversion run.
type Config struct {
	Writer  WriterConfig                `yaml:"writer" mapstructure:"writer"`
	Input   InputConfig                 `yaml:"input" mapstructure:"input"`
	Output  storage.Options             `yaml:"output" mapstructure:"output"`
	Logging logger.Config               `yaml:"logging" mapstructure:"logging"`
	Metrics MetricsConfig               `yaml:"metrics" mapstructure:"metrics"`
	Tracing observability.TracingConfig `yaml:"tracing" mapstructure:"tracing"`
}

// WriterConfig contains parquet file settings
type WriterConfig struct {
	// Compression is the page codec: uncompressed, snappy, gzip, zstd or brotli
	Compression      string `yaml:"compression" mapstructure:"compression"`
	EnableDictionary bool   `yaml:"enable_dictionary" mapstructure:"enable_dictionary"`
	// BlockSize is the row group size target in bytes
	BlockSize   int64 `yaml:"block_size" mapstructure:"block_size"`
	PageSize    int64 `yaml:"page_size" mapstructure:"page_size"`
	SkipInvalid bool  `yaml:"skip_invalid" mapstructure:"skip_invalid"`
}

// InputConfig contains delimited text input settings
type InputConfig struct {
	Delimiter  string `yaml:"delimiter" mapstructure:"delimiter"`
	SkipHeader bool   `yaml:"skip_header" mapstructure:"skip_header"`
	LazyQuotes bool   `yaml:"lazy_quotes" mapstructure:"lazy_quotes"`
	// Compression overrides detection from the file extension
	Compression string `yaml:"compression" mapstructure:"compression"`
}

// MetricsConfig contains Prometheus settings
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// TextFile receives the final metric values in the Prometheus text
	// format, for the node exporter textfile collector
	TextFile string `yaml:"text_file" mapstructure:"text_file"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	sink := parquetsink.DefaultOptions()
	return &Config{
		Writer: WriterConfig{
			Compression:      sink.Compression,
			EnableDictionary: sink.EnableDictionary,
			BlockSize:        sink.BlockSize,
			PageSize:         sink.PageSize,
		},
		Input: InputConfig{
			Delimiter: ",",
		},
		Output: storage.Options{
			S3PartSize:    16 * 1024 * 1024,
			S3Concurrency: 4,
		},
		Logging: logger.DefaultConfig(),
		Tracing: observability.DefaultTracingConfig(),
	}
}

// New returns a viper instance holding the defaults with CSVPARQUET_*
// environment overrides enabled.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Loading the defaults as a document registers every key, which
	// AutomaticEnv needs for Unmarshal to see environment values.
	defaults, err := yaml.Marshal(Default())
	if err == nil {
		err = v.ReadConfig(bytes.NewReader(defaults))
	}
	if err != nil {
		panic("config: invalid defaults: " + err.Error())
	}
	return v
}

// ReadFile merges the YAML file at path into v after substituting
// environment variables.
func ReadFile(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the operator
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").
			WithDetail("path", path)
	}

	content := substituteEnvVars(string(data))
	if err := v.MergeConfig(strings.NewReader(content)); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse YAML").
			WithDetail("path", path)
	}
	return nil
}

// Decode unmarshals and validates the configuration held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load loads the configuration file at path over the defaults. An empty
// path yields the defaults with environment overrides.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		if err := ReadFile(v, path); err != nil {
			return nil, err
		}
	}
	return Decode(v)
}

// Save saves a configuration to a YAML file
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to marshal YAML")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to write config file").
			WithDetail("path", path)
	}
	return nil
}

// Validate validates the configuration for correctness.
func (c *Config) Validate() error {
	if _, err := parquetsink.ParseCodec(c.Writer.Compression); err != nil {
		return err
	}
	if c.Writer.BlockSize <= 0 {
		return errors.New(errors.ErrorTypeConfig, "writer.block_size must be positive")
	}
	if c.Writer.PageSize <= 0 {
		return errors.New(errors.ErrorTypeConfig, "writer.page_size must be positive")
	}
	if _, err := c.Input.Options(); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid logging.level")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return errors.New(errors.ErrorTypeConfig, "tracing.sampling_rate must be within [0,1]")
	}
	return nil
}

// SinkOptions converts the writer section to parquet file options.
func (w WriterConfig) SinkOptions(log *zap.Logger) parquetsink.Options {
	return parquetsink.Options{
		Compression:      w.Compression,
		EnableDictionary: w.EnableDictionary,
		BlockSize:        w.BlockSize,
		PageSize:         w.PageSize,
		Logger:           log,
	}
}

// Options converts the input section to reader options.
func (i InputConfig) Options() (input.Options, error) {
	delim := i.Delimiter
	if delim == `\t` {
		delim = "\t"
	}
	r, size := utf8.DecodeRuneInString(delim)
	if delim == "" || size != len(delim) || r == utf8.RuneError {
		return input.Options{}, errors.Newf(errors.ErrorTypeConfig, "input.delimiter must be a single character, got %q", i.Delimiter)
	}
	switch r {
	case '|', '"', '\r', '\n':
		return input.Options{}, errors.Newf(errors.ErrorTypeConfig, "input.delimiter %q is reserved", r)
	}

	var alg compression.Algorithm
	if i.Compression != "" {
		a, err := compression.ParseAlgorithm(i.Compression)
		if err != nil {
			return input.Options{}, err
		}
		alg = a
	}

	return input.Options{
		Delimiter:   r,
		SkipHeader:  i.SkipHeader,
		LazyQuotes:  i.LazyQuotes,
		Compression: alg,
	}, nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
// Substituted text is not scanned again.
func substituteEnvVars(content string) string {
	from := 0
	for {
		start := strings.Index(content[from:], "${")
		if start == -1 {
			break
		}
		start += from
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
		from = start + len(envValue)
	}
	return content
}
