package logging

// NullLogger discards all messages. It is the default wherever a caller
// passes no logger.
type NullLogger struct{}

// NewNullLogger returns a NullLogger.
func NewNullLogger() *NullLogger { return &NullLogger{} }

func (*NullLogger) Verbose(format string, args ...interface{}) {}
func (*NullLogger) Info(format string, args ...interface{})    {}
func (*NullLogger) Error(format string, args ...interface{})   {}
