package twbmeta

// Logger receives progress and diagnostic messages from the extraction
// pipeline and the comparison client. Implementations must be safe for
// concurrent use.
type Logger interface {
	// Verbose logs diagnostic detail, emitted only in verbose mode.
	Verbose(format string, args ...interface{})

	// Info logs progress messages.
	Info(format string, args ...interface{})

	// Error logs failures.
	Error(format string, args ...interface{})
}
