package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/twbmeta/twbmeta/internal/cli"
	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

func main() {
	// A panic anywhere in the pipeline exits with its own code so callers
	// can tell crashes apart from ordinary failures.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(twbmeta.ExitPanic)
		}
	}()

	if err := cli.Execute(); err != nil {
		os.Exit(twbmeta.ExitCodeForError(err))
	}
}
