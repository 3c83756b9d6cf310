package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleLogger writes progress and diagnostic messages for a pipeline run.
// Output goes to stderr so reports written to stdout stay machine-readable.
// Safe for concurrent use by multiple goroutines.
type ConsoleLogger struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

// NewConsoleLogger returns a logger writing to stderr. When verbose is
// false, Verbose calls are discarded.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return NewConsoleLoggerTo(os.Stderr, verbose)
}

// NewConsoleLoggerTo returns a logger writing to w.
func NewConsoleLoggerTo(w io.Writer, verbose bool) *ConsoleLogger {
	return &ConsoleLogger{out: w, verbose: verbose}
}

// Verbose logs detailed diagnostic information when verbose mode is enabled.
func (l *ConsoleLogger) Verbose(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.write("[debug] ", format, args)
}

// Info logs progress messages about normal operation.
func (l *ConsoleLogger) Info(format string, args ...interface{}) {
	l.write("", format, args)
}

// Error logs failures.
func (l *ConsoleLogger) Error(format string, args ...interface{}) {
	l.write("Error: ", format, args)
}

func (l *ConsoleLogger) write(prefix, format string, args []interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprint(l.out, prefix+msg+"\n")
}
