package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/csvparquet/pkg/config"
	"github.com/ajitpratap0/csvparquet/pkg/inspect"
	"github.com/ajitpratap0/csvparquet/pkg/shred"
	"github.com/ajitpratap0/csvparquet/pkg/shred/shredtest"
)

func newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <file>",
		Short: "Parse a message schema and print its normalized form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sch, err := readSchema(args[0])
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), sch.String())
			return err
		},
	}
}

func newTraceCommand() *cobra.Command {
	var schemaFile, inputPath, delimiter string
	var skipHeader bool

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the column sink calls each record produces",
		Long: `Shred records into a recording sink and print the call sequence of each
record. Records that fail are reported and tracing continues.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sch, err := readSchema(schemaFile)
			if err != nil {
				return err
			}
			opts, err := config.InputConfig{Delimiter: delimiter, SkipHeader: skipHeader}.Options()
			if err != nil {
				return err
			}
			records, err := openInput(inputPath, opts)
			if err != nil {
				return err
			}
			defer records.Close()

			rec := shredtest.NewRecorder()
			shredder := shred.New(sch, rec)
			out := cmd.OutOrStdout()
			for {
				fields, err := records.Read()
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return err
				}
				rec.Reset()
				werr := shredder.Write(fields)
				fmt.Fprintf(out, "line %d: %s\n", records.Line(), rec.Trace())
				if werr != nil {
					fmt.Fprintf(out, "line %d: error: %v\n", records.Line(), werr)
				}
			}
		},
	}

	cmd.Flags().StringVarP(&schemaFile, "schema", "s", "", "Path to parquet message schema file (required)")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "-", "Input file, - for stdin")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", `Field delimiter, \t for tab`)
	cmd.Flags().BoolVar(&skipHeader, "skip-header", false, "Skip the first input line")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func newCatCommand() *cobra.Command {
	var showSchema bool

	cmd := &cobra.Command{
		Use:   "cat <file.parquet>",
		Short: "Print the rows of a parquet file as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := inspect.ReadFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if showSchema {
				fmt.Fprintf(out, "# created by: %s\n# row groups: %d\n%s", table.CreatedBy, table.RowGroups, table.Schema)
			}
			return table.WriteJSONLines(out)
		},
	}
	cmd.Flags().BoolVar(&showSchema, "schema", false, "Print the file schema before the rows")
	return cmd
}

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init <file>",
		Short: "Write the default configuration as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(args[0], config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	})
	return cmd
}
