package server

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

// DifferenceType classifies one finding of a local/remote comparison.
type DifferenceType string

const (
	DiffMissingLocal  DifferenceType = "missing_local"
	DiffMissingRemote DifferenceType = "missing_remote"
	DiffValueMismatch DifferenceType = "value_mismatch"
	DiffTypeMismatch  DifferenceType = "type_mismatch"
)

// DifferenceSeverity ranks comparison findings. The match percentage
// weights these 4 / 2 / 1 / 0.5.
type DifferenceSeverity string

const (
	DiffInfo     DifferenceSeverity = "info"
	DiffWarning  DifferenceSeverity = "warning"
	DiffError    DifferenceSeverity = "error"
	DiffCritical DifferenceSeverity = "critical"
)

// Difference is one disagreement between the local extraction and the
// remote inventory.
type Difference struct {
	Category    string             `json:"category"`
	ItemName    string             `json:"item_name"`
	Type        DifferenceType     `json:"type"`
	Severity    DifferenceSeverity `json:"severity"`
	Description string             `json:"description"`
	LocalValue  string             `json:"local_value,omitempty"`
	RemoteValue string             `json:"remote_value,omitempty"`
}

// ComparisonResult accumulates differences plus the severity tallies that
// feed the match percentage.
type ComparisonResult struct {
	LocalSource  string       `json:"local_source"`
	RemoteSource string       `json:"remote_source"`
	Differences  []Difference `json:"differences"`

	TotalCompared int `json:"total_items_compared"`

	CriticalCount int `json:"critical_differences"`
	ErrorCount    int `json:"error_differences"`
	WarningCount  int `json:"warning_differences"`
	InfoCount     int `json:"info_differences"`
}

func (r *ComparisonResult) add(d Difference) {
	r.Differences = append(r.Differences, d)
	switch d.Severity {
	case DiffCritical:
		r.CriticalCount++
	case DiffError:
		r.ErrorCount++
	case DiffWarning:
		r.WarningCount++
	default:
		r.InfoCount++
	}
}

// MatchPercentage condenses the findings into a 0..100 agreement score.
// Each difference subtracts its severity weight, scaled by the number of
// compared items; an empty comparison scores 100.
func (r *ComparisonResult) MatchPercentage() float64 {
	if r.TotalCompared == 0 {
		return 100.0
	}
	weighted := float64(r.CriticalCount)*4 +
		float64(r.ErrorCount)*2 +
		float64(r.WarningCount)*1 +
		float64(r.InfoCount)*0.5
	score := 100 - weighted/float64(r.TotalCompared)*10
	if score < 0 {
		score = 0
	}
	return float64(int(score*100+0.5)) / 100
}

// Report renders the comparison for console output.
func (r *ComparisonResult) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Compared %s against %s: %.2f%% match (%d item(s), %d difference(s))\n",
		r.LocalSource, r.RemoteSource, r.MatchPercentage(), r.TotalCompared, len(r.Differences))
	for _, d := range r.Differences {
		fmt.Fprintf(&b, "  [%s] %s %q: %s\n", d.Severity, d.Category, d.ItemName, d.Description)
		if d.LocalValue != "" || d.RemoteValue != "" {
			fmt.Fprintf(&b, "    local: %s  remote: %s\n", d.LocalValue, d.RemoteValue)
		}
	}
	return b.String()
}

// Compare matches the locally extracted model against the remote inventory.
// Datasources are matched on display name: remote services report the
// human-facing caption, not the internal federated identifier.
func Compare(local, remote *twbmeta.WorkbookMetadata) *ComparisonResult {
	result := &ComparisonResult{
		LocalSource:  local.SourceFile,
		RemoteSource: "metadata service",
	}
	if result.LocalSource == "" {
		result.LocalSource = local.Name
	}

	if local.Name != remote.Name {
		result.add(Difference{
			Category: "workbook", ItemName: "name",
			Type: DiffValueMismatch, Severity: DiffWarning,
			Description: "Workbook name mismatch",
			LocalValue:  local.Name, RemoteValue: remote.Name,
		})
	}
	result.TotalCompared++

	compareDatasources(result, local.Datasources, remote.Datasources)
	compareSheets(result, local.Sheets, remote.Sheets)
	compareDashboards(result, local.Dashboards, remote.Dashboards)
	compareParameters(result, local.Parameters, remote.Parameters)

	return result
}

func compareDatasources(result *ComparisonResult, local, remote []twbmeta.Datasource) {
	localByName := map[string]twbmeta.Datasource{}
	for _, ds := range local {
		localByName[ds.DisplayName()] = ds
	}
	remoteByName := map[string]twbmeta.Datasource{}
	for _, ds := range remote {
		remoteByName[ds.DisplayName()] = ds
	}

	for _, name := range onlyIn(localByName, remoteByName) {
		result.add(Difference{
			Category: "datasource", ItemName: name,
			Type: DiffMissingRemote, Severity: DiffWarning,
			Description: fmt.Sprintf("Datasource '%s' found locally but not on the server", name),
		})
		result.TotalCompared++
	}
	for _, name := range onlyIn(remoteByName, localByName) {
		result.add(Difference{
			Category: "datasource", ItemName: name,
			Type: DiffMissingLocal, Severity: DiffWarning,
			Description: fmt.Sprintf("Datasource '%s' found on the server but not locally", name),
		})
		result.TotalCompared++
	}

	for _, name := range inBoth(localByName, remoteByName) {
		compareFields(result, name, localByName[name].Fields, remoteByName[name].Fields)
		compareCalculatedFields(result, name, localByName[name].CalculatedFields, remoteByName[name].CalculatedFields)
		result.TotalCompared++
	}
}

func compareFields(result *ComparisonResult, dsName string, local, remote []twbmeta.Field) {
	localByName := map[string]twbmeta.Field{}
	for _, f := range local {
		localByName[f.Name] = f
	}
	remoteByName := map[string]twbmeta.Field{}
	for _, f := range remote {
		remoteByName[f.Name] = f
	}

	for _, name := range onlyIn(localByName, remoteByName) {
		result.add(Difference{
			Category: "field", ItemName: name,
			Type: DiffMissingRemote, Severity: DiffInfo,
			Description: fmt.Sprintf("Field '%s' in datasource '%s' not reported by the server", name, dsName),
		})
	}
	for _, name := range onlyIn(remoteByName, localByName) {
		result.add(Difference{
			Category: "field", ItemName: name,
			Type: DiffMissingLocal, Severity: DiffInfo,
			Description: fmt.Sprintf("Field '%s' in datasource '%s' not found locally", name, dsName),
		})
	}

	for _, name := range inBoth(localByName, remoteByName) {
		lf, rf := localByName[name], remoteByName[name]
		if lf.DataType != rf.DataType {
			result.add(Difference{
				Category: "field", ItemName: name,
				Type: DiffTypeMismatch, Severity: DiffWarning,
				Description: fmt.Sprintf("Data type mismatch for field '%s'", name),
				LocalValue:  string(lf.DataType), RemoteValue: string(rf.DataType),
			})
		}
		if lf.Role != rf.Role {
			result.add(Difference{
				Category: "field", ItemName: name,
				Type: DiffValueMismatch, Severity: DiffInfo,
				Description: fmt.Sprintf("Role mismatch for field '%s'", name),
				LocalValue:  string(lf.Role), RemoteValue: string(rf.Role),
			})
		}
	}

	result.TotalCompared += len(union(localByName, remoteByName))
}

func compareCalculatedFields(result *ComparisonResult, dsName string, local, remote []twbmeta.CalculatedField) {
	localByName := map[string]twbmeta.CalculatedField{}
	for _, c := range local {
		localByName[c.DisplayName()] = c
	}
	remoteByName := map[string]twbmeta.CalculatedField{}
	for _, c := range remote {
		remoteByName[c.DisplayName()] = c
	}

	for _, name := range onlyIn(localByName, remoteByName) {
		result.add(Difference{
			Category: "calculated_field", ItemName: name,
			Type: DiffMissingRemote, Severity: DiffWarning,
			Description: fmt.Sprintf("Calculated field '%s' in datasource '%s' not reported by the server", name, dsName),
		})
	}
	for _, name := range onlyIn(remoteByName, localByName) {
		result.add(Difference{
			Category: "calculated_field", ItemName: name,
			Type: DiffMissingLocal, Severity: DiffWarning,
			Description: fmt.Sprintf("Calculated field '%s' in datasource '%s' not found locally", name, dsName),
		})
	}

	for _, name := range inBoth(localByName, remoteByName) {
		lc, rc := localByName[name], remoteByName[name]
		if normalizeFormula(lc.Formula) != normalizeFormula(rc.Formula) {
			result.add(Difference{
				Category: "calculated_field", ItemName: name,
				Type: DiffValueMismatch, Severity: DiffError,
				Description: fmt.Sprintf("Formula mismatch for calculated field '%s'", name),
				LocalValue:  truncate(lc.Formula, 100), RemoteValue: truncate(rc.Formula, 100),
			})
		}
	}

	result.TotalCompared += len(union(localByName, remoteByName))
}

func compareSheets(result *ComparisonResult, local, remote []twbmeta.Sheet) {
	localByName := map[string]twbmeta.Sheet{}
	for _, s := range local {
		localByName[s.Name] = s
	}
	remoteByName := map[string]twbmeta.Sheet{}
	for _, s := range remote {
		remoteByName[s.Name] = s
	}

	for _, name := range onlyIn(localByName, remoteByName) {
		result.add(Difference{
			Category: "sheet", ItemName: name,
			Type: DiffMissingRemote, Severity: DiffWarning,
			Description: fmt.Sprintf("Sheet '%s' found locally but not on the server", name),
		})
	}
	for _, name := range onlyIn(remoteByName, localByName) {
		result.add(Difference{
			Category: "sheet", ItemName: name,
			Type: DiffMissingLocal, Severity: DiffWarning,
			Description: fmt.Sprintf("Sheet '%s' found on the server but not locally", name),
		})
	}

	for _, name := range inBoth(localByName, remoteByName) {
		localFields := toSet(localByName[name].AllFieldsUsed)
		remoteFields := toSet(remoteByName[name].AllFieldsUsed)

		if missing := sortedKeys(subtract(localFields, remoteFields)); len(missing) > 0 {
			result.add(Difference{
				Category: "sheet_field", ItemName: name,
				Type: DiffMissingRemote, Severity: DiffInfo,
				Description: fmt.Sprintf("Fields in sheet '%s' not reported by the server: %s", name, strings.Join(missing, ", ")),
			})
		}
		if missing := sortedKeys(subtract(remoteFields, localFields)); len(missing) > 0 {
			result.add(Difference{
				Category: "sheet_field", ItemName: name,
				Type: DiffMissingLocal, Severity: DiffInfo,
				Description: fmt.Sprintf("Fields in sheet '%s' not found locally: %s", name, strings.Join(missing, ", ")),
			})
		}
	}

	result.TotalCompared += len(union(localByName, remoteByName))
}

func compareDashboards(result *ComparisonResult, local, remote []twbmeta.Dashboard) {
	localByName := map[string]twbmeta.Dashboard{}
	for _, d := range local {
		localByName[d.Name] = d
	}
	remoteByName := map[string]twbmeta.Dashboard{}
	for _, d := range remote {
		remoteByName[d.Name] = d
	}

	for _, name := range onlyIn(localByName, remoteByName) {
		result.add(Difference{
			Category: "dashboard", ItemName: name,
			Type: DiffMissingRemote, Severity: DiffWarning,
			Description: fmt.Sprintf("Dashboard '%s' found locally but not on the server", name),
		})
	}
	for _, name := range onlyIn(remoteByName, localByName) {
		result.add(Difference{
			Category: "dashboard", ItemName: name,
			Type: DiffMissingLocal, Severity: DiffWarning,
			Description: fmt.Sprintf("Dashboard '%s' found on the server but not locally", name),
		})
	}

	for _, name := range inBoth(localByName, remoteByName) {
		localSheets := toSet(localByName[name].Worksheets)
		remoteSheets := toSet(remoteByName[name].Worksheets)
		if missing := sortedKeys(subtract(localSheets, remoteSheets)); len(missing) > 0 {
			result.add(Difference{
				Category: "dashboard", ItemName: name,
				Type: DiffValueMismatch, Severity: DiffInfo,
				Description: fmt.Sprintf("Worksheets in dashboard '%s' not reported by the server: %s", name, strings.Join(missing, ", ")),
			})
		}
		if missing := sortedKeys(subtract(remoteSheets, localSheets)); len(missing) > 0 {
			result.add(Difference{
				Category: "dashboard", ItemName: name,
				Type: DiffValueMismatch, Severity: DiffInfo,
				Description: fmt.Sprintf("Worksheets in dashboard '%s' not found locally: %s", name, strings.Join(missing, ", ")),
			})
		}
	}

	result.TotalCompared += len(union(localByName, remoteByName))
}

func compareParameters(result *ComparisonResult, local, remote []twbmeta.Parameter) {
	localByName := map[string]twbmeta.Parameter{}
	for _, p := range local {
		localByName[p.Name] = p
	}
	remoteByName := map[string]twbmeta.Parameter{}
	for _, p := range remote {
		remoteByName[p.Name] = p
	}

	for _, name := range onlyIn(localByName, remoteByName) {
		result.add(Difference{
			Category: "parameter", ItemName: name,
			Type: DiffMissingRemote, Severity: DiffInfo,
			Description: fmt.Sprintf("Parameter '%s' not reported by the server", name),
		})
	}
	for _, name := range onlyIn(remoteByName, localByName) {
		result.add(Difference{
			Category: "parameter", ItemName: name,
			Type: DiffMissingLocal, Severity: DiffInfo,
			Description: fmt.Sprintf("Parameter '%s' not found locally", name),
		})
	}

	result.TotalCompared += len(union(localByName, remoteByName))
}

var federatedPrefix = regexp.MustCompile(`\[federated\.[^\]]+\]\.`)

// normalizeFormula makes formulas comparable across extraction methods:
// whitespace collapsed, datasource qualifiers stripped, case folded.
func normalizeFormula(formula string) string {
	normalized := strings.Join(strings.Fields(formula), " ")
	normalized = federatedPrefix.ReplaceAllString(normalized, "")
	return strings.ToLower(normalized)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Set helpers over map keys. Results come back sorted so difference order
// is reproducible run to run.

func onlyIn[V any](a, b map[string]V) []string {
	var names []string
	for name := range a {
		if _, ok := b[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func inBoth[V any](a, b map[string]V) []string {
	var names []string
	for name := range a {
		if _, ok := b[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func union[V any](a, b map[string]V) map[string]bool {
	out := map[string]bool{}
	for name := range a {
		out[name] = true
	}
	for name := range b {
		out[name] = true
	}
	return out
}

func toSet(items []string) map[string]bool {
	out := map[string]bool{}
	for _, item := range items {
		out[item] = true
	}
	return out
}

func subtract(a, b map[string]bool) map[string]bool {
	out := map[string]bool{}
	for name := range a {
		if !b[name] {
			out[name] = true
		}
	}
	return out
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
