// Package logging implements the twbmeta.Logger interface for the
// extraction pipeline: ConsoleLogger writes to stderr (stdout is reserved
// for report output), NullLogger discards everything. Both are safe for
// concurrent use.
package logging
