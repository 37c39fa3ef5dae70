package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/csvparquet/pkg/compression"
	"github.com/ajitpratap0/csvparquet/pkg/config"
	"github.com/ajitpratap0/csvparquet/pkg/errors"
	"github.com/ajitpratap0/csvparquet/pkg/logger"
	"github.com/ajitpratap0/csvparquet/pkg/matrix"
	"github.com/ajitpratap0/csvparquet/pkg/schema"
	"github.com/ajitpratap0/csvparquet/pkg/storage"
)

func newGenCommand() *cobra.Command {
	var configFile, outDir, csvCodec string
	var patterns, kinds []string
	var columns []int
	var rotate bool
	base := matrix.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate parquet test files for repetition and type combinations",
		Long: `Generate parquet test files for every combination of repetition pattern,
column type and column count. Each case is written as <name>.parquet, a JSON
description with the schema and records, and the CSV input producing it.

Example:
  csvparquet gen --out testdata --columns 1,3,10 --rotate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Logging)
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize logger")
			}
			defer func() { _ = log.Sync() }()

			dir, err := storage.ParseURI(outDir)
			if err != nil {
				return err
			}
			if csvCodec != "" {
				if base.CSVCompression, err = compression.ParseAlgorithm(csvCodec); err != nil {
					return err
				}
			}
			base.Sink = cfg.Writer.SinkOptions(log)

			cases, err := selectCases(base, columns, rotate, patterns, kinds)
			if err != nil {
				return err
			}

			for _, opts := range cases {
				c, err := matrix.Generate(opts)
				if err != nil {
					return err
				}
				files, err := matrix.Emit(cmd.Context(), c, dir, cfg.Output, log)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), files.Parquet)
			}
			log.Info("generation completed", zap.Int("cases", len(cases)), zap.Stringer("dir", dir))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory, path or URI")
	cmd.Flags().StringSliceVar(&patterns, "patterns", nil, "Repetition patterns to generate (default all)")
	cmd.Flags().StringSliceVar(&kinds, "types", nil, "First column types to generate (default all)")
	cmd.Flags().IntSliceVar(&columns, "columns", []int{1, 3}, "Column counts to generate")
	cmd.Flags().BoolVar(&rotate, "rotate", true, "Also generate rotated-type cases for multi-column counts")
	cmd.Flags().IntVar(&base.Records, "records", base.Records, "Records per case")
	cmd.Flags().Int64Var(&base.Seed, "seed", base.Seed, "Random seed")
	cmd.Flags().Float64Var(&base.NullRate, "null-rate", base.NullRate, "Probability of a null optional value")
	cmd.Flags().IntVar(&base.MaxRepeat, "max-repeat", base.MaxRepeat, "Maximum items in a repeated value")
	cmd.Flags().StringVar(&csvCodec, "csv-compression", "", "Compress the generated CSV files")

	return cmd
}

// selectCases expands the full matrix and keeps the requested patterns and
// first types.
func selectCases(base matrix.Options, columns []int, rotate bool, patterns, kinds []string) ([]matrix.Options, error) {
	wantPattern := map[matrix.Pattern]bool{}
	for _, name := range patterns {
		p, err := matrix.ParsePattern(name)
		if err != nil {
			return nil, err
		}
		wantPattern[p] = true
	}
	wantKind := map[schema.Kind]bool{}
	for _, name := range kinds {
		k, ok := schema.ParseKind(name)
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeConfig, "unknown column type %q", name)
		}
		wantKind[k] = true
	}

	var out []matrix.Options
	for _, opts := range matrix.Expand(base, columns, rotate) {
		if len(wantPattern) > 0 && !wantPattern[opts.Pattern] {
			continue
		}
		if len(wantKind) > 0 && !wantKind[opts.FirstType] {
			continue
		}
		out = append(out, opts)
	}
	return out, nil
}
