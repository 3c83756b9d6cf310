// Package cli wires the extraction pipeline, validator, report generators,
// and comparison client into the twbmeta command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "twbmeta",
	Short: "Workbook metadata extraction and analysis",
	Long: `twbmeta parses a workbook document (.twb, or packaged .twbx) into a
cross-referenced semantic model: datasources, fields, calculated fields
with formula analysis, worksheets, filters with plain-language
explanations, dashboards, parameters, a relationship graph, and a
flattened metric-per-worksheet table.

The model can be written as JSON, an Excel report, or an HTML report,
checked for completeness, or compared against the inventory a metadata
service reports for the same workbook.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or parameters
  11 - Workbook file or embedded document not found
  12 - Document not well-formed or root unrecognized
  13 - Metadata service request failed
  14 - Completeness validation failed`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("help", false, "Help for twbmeta")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
