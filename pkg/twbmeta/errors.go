package twbmeta

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrFileNotFound indicates the input workbook file does not exist.
	ErrFileNotFound = errors.New("workbook file not found")

	// ErrNoDocument indicates a packaged archive contained no workbook document.
	ErrNoDocument = errors.New("no workbook document found in archive")

	// ErrServerUnavailable indicates the metadata service could not be reached.
	ErrServerUnavailable = errors.New("metadata service unavailable")

	// ErrValidationFailed indicates the extracted model failed completeness validation.
	ErrValidationFailed = errors.New("validation failed")
)

// StructuralParseError is the only fatal error class of the extraction
// pipeline: the document tree is not well-formed, or its root element is
// absent or unrecognized. Every other condition degrades to a warning on
// the model.
type StructuralParseError struct {
	Path    string // source file, if known
	Element string // offending element name, if known
	Message string
	Err     error
}

func (e *StructuralParseError) Error() string {
	msg := "structural parse error"
	if e.Path != "" {
		msg += " in " + e.Path
	}
	if e.Element != "" {
		msg += fmt.Sprintf(" [element: %s]", e.Element)
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StructuralParseError) Unwrap() error {
	return e.Err
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var parseErr *StructuralParseError
	if errors.As(err, &parseErr) {
		return ExitParseFailed
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrFileNotFound), errors.Is(err, ErrNoDocument):
		return ExitFileMissing
	case errors.Is(err, ErrServerUnavailable):
		return ExitServerError
	case errors.Is(err, ErrValidationFailed):
		return ExitValidationFailed
	}

	return ExitGeneralError
}
