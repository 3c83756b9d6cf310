package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

const sampleWorkbook = `<?xml version='1.0' encoding='utf-8' ?>
<workbook version='18.1'>
  <datasources>
    <datasource name='federated.0abc' caption='Superstore'>
      <connection class='postgres' server='db.example.com' dbname='sales'/>
      <column name='[Sales]' datatype='real' role='measure' aggregation='sum'/>
      <column name='[Region]' datatype='string' role='dimension'/>
    </datasource>
  </datasources>
  <worksheets>
    <worksheet name='Overview'>
      <table>
        <panes><pane><mark class='Bar'/></pane></panes>
        <rows>[federated.0abc].[sum:Sales:qk]</rows>
        <cols>[federated.0abc].[none:Region:nk]</cols>
      </table>
    </worksheet>
  </worksheets>
</workbook>`

func writeSampleWorkbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.twb")
	if err := os.WriteFile(path, []byte(sampleWorkbook), 0o644); err != nil {
		t.Fatalf("Expected no error writing fixture, got: %v", err)
	}
	return path
}

func resetExtractFlags() {
	extractOutputDir = ""
	extractFormats = nil
}

func TestRootCmd_LongHelpListsExitCodes(t *testing.T) {
	if !strings.Contains(rootCmd.Long, "Exit Codes:") {
		t.Error("Expected root help to document exit codes")
	}
	for _, line := range []string{"14 - Completeness validation failed", "12 - Document not well-formed"} {
		if !strings.Contains(rootCmd.Long, line) {
			t.Errorf("Expected root help to contain %q", line)
		}
	}
}

func TestExtractCmd_ArgsValidation(t *testing.T) {
	if err := extractCmd.Args(extractCmd, []string{}); err == nil {
		t.Fatal("Expected error for missing args")
	}
	if err := extractCmd.Args(extractCmd, []string{"a", "b"}); err == nil {
		t.Fatal("Expected error for too many args")
	}
}

func TestCheckFormats(t *testing.T) {
	if err := checkFormats([]string{"json", "excel", "html"}); err != nil {
		t.Errorf("Expected no error for known formats, got: %v", err)
	}

	err := checkFormats([]string{"pdf"})
	if err == nil {
		t.Fatal("Expected error for unknown format")
	}
	if twbmeta.ExitCodeForError(err) != twbmeta.ExitConfigError {
		t.Errorf("Expected config error exit code, got %d", twbmeta.ExitCodeForError(err))
	}

	if err := checkFormats(nil); err == nil {
		t.Fatal("Expected error for empty format list")
	}
}

func TestRunExtract_WritesReports(t *testing.T) {
	resetExtractFlags()
	defer resetExtractFlags()

	workbook := writeSampleWorkbook(t)
	outDir := t.TempDir()
	extractOutputDir = outDir
	extractFormats = []string{"json", "excel", "html"}

	if err := runExtract(extractCmd, []string{workbook}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	for _, name := range []string{"sample_metadata.json", "sample_report.xlsx", "sample_report.html"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("Expected report %s to exist, got: %v", name, err)
		}
	}
}

func TestRunExtract_MissingWorkbook(t *testing.T) {
	resetExtractFlags()
	defer resetExtractFlags()
	extractOutputDir = t.TempDir()
	extractFormats = []string{"json"}

	err := runExtract(extractCmd, []string{"/nonexistent/workbook.twb"})
	if err == nil {
		t.Fatal("Expected error for missing workbook")
	}
	if twbmeta.ExitCodeForError(err) != twbmeta.ExitFileMissing {
		t.Errorf("Expected file-missing exit code, got %d", twbmeta.ExitCodeForError(err))
	}
}

func TestRunValidate_CleanWorkbook(t *testing.T) {
	validateJSON = false
	if err := runValidate(validateCmd, []string{writeSampleWorkbook(t)}); err != nil {
		t.Errorf("Expected validation to pass, got: %v", err)
	}
}

func TestRunCompare_MissingServerConfig(t *testing.T) {
	t.Setenv("TWBMETA_TOKEN_NAME", "")
	t.Setenv("TWBMETA_TOKEN_SECRET", "")

	err := runCompare(compareCmd, []string{writeSampleWorkbook(t)})
	if err == nil {
		t.Fatal("Expected error without server configuration")
	}
	if twbmeta.ExitCodeForError(err) != twbmeta.ExitConfigError {
		t.Errorf("Expected config error exit code, got %d", twbmeta.ExitCodeForError(err))
	}
}

func TestWriteReport_UnknownFormat(t *testing.T) {
	_, err := writeReport(t.TempDir(), "pdf", &twbmeta.WorkbookMetadata{Name: "x"})
	if err == nil {
		t.Fatal("Expected error for unknown format")
	}
}
