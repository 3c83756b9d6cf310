package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/twbmeta/twbmeta/pkg/twbmeta"

	"github.com/twbmeta/twbmeta/internal/config"
	"github.com/twbmeta/twbmeta/internal/extract"
	"github.com/twbmeta/twbmeta/internal/logging"
	"github.com/twbmeta/twbmeta/internal/server"
)

var compareCmd = &cobra.Command{
	Use:   "compare <workbook>",
	Short: "Compare the local extraction against the metadata service",
	Long: `Extract the workbook locally, fetch the inventory the metadata
service reports for the same workbook, and compare the two: fields,
calculated fields, worksheets, dashboards, and parameters. The result
is a weighted agreement percentage plus the individual differences.

Server connection comes from twbmeta.yaml (server.url, server.site,
server.api_version). Credentials come from the environment or a .env
file: TWBMETA_TOKEN_NAME and TWBMETA_TOKEN_SECRET.

Examples:
  # Compare against the published workbook of the same name
  twbmeta compare superstore.twbx

  # The published name differs from the file name
  twbmeta compare superstore.twbx --workbook "Superstore Sales"

  # Fail the pipeline below 95% agreement
  twbmeta compare superstore.twbx --min-match 95`,
	Args: cobra.ExactArgs(1),
	RunE: runCompare,
}

var (
	compareWorkbookName string
	compareJSON         bool
	compareMinMatch     float64
)

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVar(&compareWorkbookName, "workbook", "", "Published workbook name on the server (default: workbook file name)")
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "Output the comparison result as JSON")
	compareCmd.Flags().Float64Var(&compareMinMatch, "min-match", 0, "Minimum acceptable match percentage (0 disables the gate)")
}

func runCompare(cmd *cobra.Command, args []string) error {
	log := logging.NewConsoleLogger(getVerboseFlag(cmd))

	cfg, err := config.LoadOrDefault(".")
	if err != nil {
		return err
	}
	creds, err := config.LoadCredentials(".")
	if err != nil {
		return err
	}

	local, err := extract.Extract(args[0], extract.Options{Logger: log})
	if err != nil {
		return err
	}

	client, err := server.NewClient(server.Options{
		BaseURL:     cfg.Server.URL,
		Site:        cfg.Server.Site,
		APIVersion:  cfg.Server.APIVersion,
		TokenName:   creds.TokenName,
		TokenSecret: creds.TokenSecret,
		Logger:      log,
	})
	if err != nil {
		return err
	}

	remoteName := compareWorkbookName
	if remoteName == "" {
		remoteName = local.Name
	}
	remote, err := client.FetchWorkbook(cmd.Context(), remoteName)
	if err != nil {
		return err
	}

	result := server.Compare(local, remote)

	if compareJSON {
		payload := struct {
			*server.ComparisonResult
			MatchPercentage float64 `json:"match_percentage"`
		}{result, result.MatchPercentage()}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		fmt.Fprint(os.Stderr, result.Report())
	}

	if compareMinMatch > 0 && result.MatchPercentage() < compareMinMatch {
		return fmt.Errorf("%w: match %.2f%% below required %.2f%%",
			twbmeta.ErrValidationFailed, result.MatchPercentage(), compareMinMatch)
	}
	return nil
}
