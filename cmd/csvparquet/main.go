package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "csvparquet",
		Short: "csvparquet - delimited text to parquet converter",
		Long: `csvparquet converts flat delimited text records into parquet files.
Every record is typed against a flat parquet message schema and shredded
into columns with definition and repetition levels.`,
		SilenceUsage: true,
	}

	// Version command
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "csvparquet v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(
		newWriteCommand(),
		newGenCommand(),
		newSchemaCommand(),
		newTraceCommand(),
		newCatCommand(),
		newConfigCommand(),
	)
	return root
}
