package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// errRejected reports that check found at least one rejected query.
var errRejected = errors.New("query rejected")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errRejected) {
			fmt.Fprintln(os.Stderr, "querycost:", err)
		}
		os.Exit(exitCode(err))
	}
}

func run(args []string, in io.Reader, out, errOut io.Writer) error {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.Execute()
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errRejected):
		return 1
	default:
		return 2
	}
}
