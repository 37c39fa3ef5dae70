// Package errors provides examples of structured error handling in csvparquet.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/csvparquet/pkg/errors"
)

// Example demonstrates basic error creation and wrapping.
func Example() {
	// Create a new error with type
	err := errors.New(errors.ErrorTypeSchema, "duplicate column name")

	// Add context details
	err = err.WithDetail("column", "var_0").
		WithDetail("position", 3)

	fmt.Println(err.Error())

	// Output:
	// schema: duplicate column name
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeFile, "failed to read CSV file").
		WithDetail("file", "data.csv").
		WithDetail("line", 42)

	if errors.IsType(err, errors.ErrorTypeFile) {
		fmt.Println("This is a file error")
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("Original error was unexpected EOF")
	}

	// Output:
	// This is a file error
	// Original error was unexpected EOF
}

// ExampleTypeOf demonstrates classifying arbitrary errors.
func ExampleTypeOf() {
	wrapped := fmt.Errorf("record 7: %w", errors.New(errors.ErrorTypeData, "bad int32"))
	fmt.Println(errors.TypeOf(wrapped))
	fmt.Println(errors.TypeOf(io.EOF))

	// Output:
	// data
	// internal
}
