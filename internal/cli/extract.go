package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twbmeta/twbmeta/pkg/twbmeta"

	"github.com/twbmeta/twbmeta/internal/config"
	"github.com/twbmeta/twbmeta/internal/extract"
	"github.com/twbmeta/twbmeta/internal/logging"
	"github.com/twbmeta/twbmeta/internal/output"
)

var extractCmd = &cobra.Command{
	Use:   "extract <workbook>",
	Short: "Extract the semantic model from a workbook document",
	Long: `Parse a workbook document (.twb or packaged .twbx) and write the
extracted model in one or more report formats.

Formats:
  json   - the full model, machine readable
  excel  - multi-sheet report (fields, calculations, worksheets, metrics)
  html   - standalone report page

Defaults come from twbmeta.yaml in the working directory when present.

Examples:
  # JSON into the current directory
  twbmeta extract superstore.twbx

  # Excel and HTML reports into ./reports
  twbmeta extract superstore.twbx --format excel,html --output reports`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

var (
	extractOutputDir string
	extractFormats   []string
)

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&extractOutputDir, "output", "o", "", "Output directory (default: from config, else current directory)")
	extractCmd.Flags().StringSliceVarP(&extractFormats, "format", "f", nil, "Report formats: json, excel, html (default: from config, else json)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	workbookPath := args[0]
	verbose := getVerboseFlag(cmd)
	log := logging.NewConsoleLogger(verbose)

	cfg, err := config.LoadOrDefault(".")
	if err != nil {
		return err
	}
	outputDir := cfg.Output.Directory
	if extractOutputDir != "" {
		outputDir = extractOutputDir
	}
	formats := cfg.Output.Formats
	if len(extractFormats) > 0 {
		formats = extractFormats
	}
	if err := checkFormats(formats); err != nil {
		return err
	}

	m, err := extract.Extract(workbookPath, extract.Options{Logger: log})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	for _, format := range formats {
		path, err := writeReport(outputDir, format, m)
		if err != nil {
			return err
		}
		log.Info("Wrote %s report to %s", format, path)
	}

	fmt.Fprint(os.Stderr, output.Summary(m))
	return nil
}

func checkFormats(formats []string) error {
	if len(formats) == 0 {
		return fmt.Errorf("%w: no output format selected", twbmeta.ErrInvalidConfig)
	}
	for _, format := range formats {
		switch strings.ToLower(format) {
		case "json", "excel", "html":
		default:
			return fmt.Errorf("%w: unknown output format %q (expected json, excel, or html)", twbmeta.ErrInvalidConfig, format)
		}
	}
	return nil
}

func writeReport(dir, format string, m *twbmeta.WorkbookMetadata) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		path := filepath.Join(dir, m.Name+"_metadata.json")
		return path, output.WriteJSON(path, m)
	case "excel":
		path := filepath.Join(dir, m.Name+"_report.xlsx")
		return path, output.WriteExcel(path, m)
	case "html":
		path := filepath.Join(dir, m.Name+"_report.html")
		return path, output.WriteHTML(path, m)
	default:
		return "", fmt.Errorf("%w: unknown output format %q", twbmeta.ErrInvalidConfig, format)
	}
}
