package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rocjay1/koala-laundry/internal/launcher"
	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// execute runs the CLI and maps the outcome to a process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCommand(stdin, stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	// The dashboard runner already reported its own failure on the terminal.
	var exitErr *launcher.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	fmt.Fprintf(stderr, "Error: %s\n", err)
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	return 1
}

// codedError carries a specific exit code alongside an error.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }

func (e *codedError) Unwrap() error { return e.err }
