package main

import (
	"context"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/csvparquet/pkg/config"
	"github.com/ajitpratap0/csvparquet/pkg/errors"
	"github.com/ajitpratap0/csvparquet/pkg/input"
	"github.com/ajitpratap0/csvparquet/pkg/logger"
	"github.com/ajitpratap0/csvparquet/pkg/metrics"
	"github.com/ajitpratap0/csvparquet/pkg/observability"
	"github.com/ajitpratap0/csvparquet/pkg/schema"
	"github.com/ajitpratap0/csvparquet/pkg/storage"
	"github.com/ajitpratap0/csvparquet/pkg/writer"
)

// flagBindings maps command flags to configuration keys. A flag set on the
// command line overrides the environment and the config file.
var flagBindings = map[string]string{
	"compression":  "writer.compression",
	"dictionary":   "writer.enable_dictionary",
	"block-size":   "writer.block_size",
	"page-size":    "writer.page_size",
	"skip-invalid": "writer.skip_invalid",
	"delimiter":    "input.delimiter",
	"skip-header":  "input.skip_header",
	"lazy-quotes":  "input.lazy_quotes",
	"input-codec":  "input.compression",
	"log-level":    "logging.level",
	"metrics-file": "metrics.text_file",
	"trace":        "tracing.enabled",
}

func newWriteCommand() *cobra.Command {
	var configFile, schemaFile, inputPath, outputURI string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Convert delimited text records to a parquet file",
		Long: `Convert delimited text records to a parquet file.
The output may be a local path, an s3://bucket/key or a gs://bucket/object URI.

Example:
  csvparquet write --schema schema.txt --input data.csv.gz --output s3://bucket/data.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := config.New()
			if configFile != "" {
				if err := config.ReadFile(v, configFile); err != nil {
					return err
				}
			}
			if err := bindFlags(v, cmd); err != nil {
				return err
			}
			cfg, err := config.Decode(v)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("metrics-file") {
				cfg.Metrics.Enabled = true
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return runWrite(ctx, cmd, cfg, schemaFile, inputPath, outputURI)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVarP(&schemaFile, "schema", "s", "", "Path to parquet message schema file (required)")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "-", "Input file, - for stdin")
	cmd.Flags().StringVarP(&outputURI, "output", "o", "", "Output path or URI (required)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Abort the conversion after this duration")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("output")

	cmd.Flags().String("compression", "", "Page codec (uncompressed, snappy, gzip, zstd, brotli)")
	cmd.Flags().Bool("dictionary", false, "Enable dictionary encoding")
	cmd.Flags().Int64("block-size", 0, "Row group size target in bytes")
	cmd.Flags().Int64("page-size", 0, "Data page size target in bytes")
	cmd.Flags().Bool("skip-invalid", false, "Skip records that do not match the schema instead of failing")
	cmd.Flags().String("delimiter", "", `Field delimiter, \t for tab`)
	cmd.Flags().Bool("skip-header", false, "Skip the first input line")
	cmd.Flags().Bool("lazy-quotes", false, "Allow quotes in unquoted fields")
	cmd.Flags().String("input-codec", "", "Input compression, detected from the extension when empty")
	cmd.Flags().String("log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().String("metrics-file", "", "Write final metrics to this file in Prometheus text format")
	cmd.Flags().Bool("trace", false, "Export trace spans to stderr")

	return cmd
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for flag, key := range flagBindings {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "failed to bind flag").
				WithDetail("flag", flag)
		}
	}
	return nil
}

func runWrite(ctx context.Context, cmd *cobra.Command, cfg *config.Config, schemaFile, inputPath, outputURI string) error {
	baseLog, err := logger.Init(cfg.Logging)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize logger")
	}
	defer func() { _ = logger.Sync() }()

	cfg.Tracing.ServiceVersion = version
	shutdown, err := observability.InitTracing(cfg.Tracing, cmd.ErrOrStderr())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize tracing")
	}
	defer func() {
		if serr := shutdown(context.Background()); serr != nil {
			baseLog.Warn("failed to flush trace spans", zap.Error(serr))
		}
	}()

	ctx = logger.ContextWithRunID(ctx, uuid.NewString())
	ctx = logger.ContextWithFile(ctx, outputURI)
	log := logger.WithContext(ctx, baseLog).With(zap.String("component", "csvparquet-cli"))

	sch, err := readSchema(schemaFile)
	if err != nil {
		return err
	}

	inOpts, err := cfg.Input.Options()
	if err != nil {
		return err
	}
	records, err := openInput(inputPath, inOpts)
	if err != nil {
		return err
	}
	defer records.Close()

	var reg *prometheus.Registry
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		collector = metrics.NewCollector(reg, outputURI)
	}

	store := cfg.Output
	store.ContentType = "application/vnd.apache.parquet"
	out, err := storage.Create(ctx, outputURI, store)
	if err != nil {
		return err
	}

	log.Info("starting conversion",
		zap.String("schema", schemaFile),
		zap.String("input", inputPath),
		zap.Int("columns", sch.ColumnCount()),
		zap.String("compression", cfg.Writer.Compression))

	w, err := writer.New(out, sch,
		writer.WithSinkOptions(cfg.Writer.SinkOptions(log)),
		writer.WithLogger(log),
		writer.WithMetrics(collector),
		writer.WithSkipInvalid(cfg.Writer.SkipInvalid))
	if err != nil {
		_ = out.Abort(err)
		return err
	}

	_, werr := w.WriteAll(ctx, records)
	if cerr := w.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		// a stream cut short by a bad record is not a valid result
		if aerr := out.Abort(werr); aerr != nil {
			log.Warn("failed to discard output", zap.Error(aerr))
		}
		log.Error("conversion failed", zap.Error(werr), zap.Int("line", records.Line()))
		return werr
	}
	if err := out.Close(); err != nil {
		log.Error("conversion failed", zap.Error(err))
		return err
	}

	stats := w.Stats()
	log.Info("conversion completed",
		zap.Int64("records_written", stats.RecordsWritten),
		zap.Int64("records_skipped", stats.RecordsSkipped),
		zap.Int("row_groups", stats.RowGroups),
		zap.Duration("duration", stats.Elapsed))

	if reg != nil && cfg.Metrics.TextFile != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics.TextFile, reg); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write metrics file").
				WithDetail("path", cfg.Metrics.TextFile)
		}
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode stats")
	}
	_, err = cmd.OutOrStdout().Write(append(data, '\n'))
	return err
}

func readSchema(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the operator
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read schema file").
			WithDetail("path", path)
	}
	return schema.Parse(string(data))
}

func openInput(path string, opts input.Options) (*input.Reader, error) {
	if path == "" || path == "-" {
		return input.NewReader(os.Stdin, opts)
	}
	return input.Open(path, opts)
}
