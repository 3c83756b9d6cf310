// Package output renders a completed WorkbookMetadata model into its
// consumer formats: machine-readable JSON, a multi-sheet Excel report, a
// standalone HTML report, and a styled console summary.
package output

import (
	"encoding/json"
	"os"

	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

// MarshalJSON renders the model as indented JSON with a trailing newline.
// Field order follows the struct tags, so output is reproducible.
func MarshalJSON(m *twbmeta.WorkbookMetadata) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WriteJSON writes the JSON rendering of the model to path.
func WriteJSON(path string, m *twbmeta.WorkbookMetadata) error {
	data, err := MarshalJSON(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
