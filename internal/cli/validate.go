package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/twbmeta/twbmeta/pkg/twbmeta"

	"github.com/twbmeta/twbmeta/internal/extract"
	"github.com/twbmeta/twbmeta/internal/logging"
	"github.com/twbmeta/twbmeta/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workbook>",
	Short: "Check the extracted model for completeness",
	Long: `Extract the workbook and run completeness checks over the result:
empty identities, broken LOD decompositions, out-of-bounds complexity
scores, dangling relationship endpoints, duplicate edges.

Warnings and informational findings lower the score but do not fail
validation; any error-severity finding does.

Examples:
  # Human-readable validation report
  twbmeta validate superstore.twbx

  # Machine-readable result for CI gates
  twbmeta validate superstore.twbx --json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var validateJSON bool

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output validation results as JSON")
}

func runValidate(cmd *cobra.Command, args []string) error {
	log := logging.NewConsoleLogger(getVerboseFlag(cmd))

	m, err := extract.Extract(args[0], extract.Options{Logger: log})
	if err != nil {
		return err
	}

	result := validation.Validate(m)

	if validateJSON {
		payload := map[string]interface{}{
			"workbook": m.Name,
			"valid":    result.Valid,
			"score":    result.Score(),
			"issues":   result.Issues,
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		fmt.Fprint(os.Stderr, result.Report())
	}

	if !result.Valid {
		return fmt.Errorf("%w: workbook %q", twbmeta.ErrValidationFailed, m.Name)
	}
	return nil
}
