package twbmeta

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess          = 0  // Extraction completed successfully
	ExitGeneralError     = 1  // Unknown or unclassified error
	ExitUsageError       = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic            = 3  // Internal panic (unexpected crash)
	ExitConfigError      = 10 // Invalid configuration or parameters
	ExitFileMissing      = 11 // Workbook file or embedded document not found
	ExitParseFailed      = 12 // Document tree not well-formed or root unrecognized
	ExitServerError      = 13 // Metadata service request failed
	ExitValidationFailed = 14 // Completeness validation failed
)

const (
	// PackagedExtension is the file extension of archive-wrapped workbooks.
	PackagedExtension = ".twbx"

	// DocumentExtension is the file extension of bare workbook documents.
	DocumentExtension = ".twb"

	// ParametersDatasource is the reserved pseudo-datasource name holding
	// parameter definitions instead of fields.
	ParametersDatasource = "Parameters"

	// MaxComplexityScore caps the formula complexity score.
	MaxComplexityScore = 100
)
