// Package validation checks a completed WorkbookMetadata model for
// completeness: empty identities, dangling relationship endpoints, broken
// LOD decompositions, out-of-bounds complexity scores. Validation never
// mutates the model; it produces a Result that callers render or map to an
// exit code.
package validation

import (
	"fmt"
	"strings"

	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

// Severity ranks validation findings. Only SeverityError makes a model
// invalid; warnings and infos lower the score without failing validation.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Score penalty per finding, by severity.
const (
	penaltyError   = 20
	penaltyWarning = 5
	penaltyInfo    = 1
)

// Issue is one validation finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Category string   `json:"category"`
	Message  string   `json:"message"`
}

// Result contains the outcome of model validation.
// Valid is false once any error-severity issue has been added.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// AddError appends an error finding and marks the result invalid.
func (r *Result) AddError(category, format string, args ...interface{}) {
	r.Valid = false
	r.Issues = append(r.Issues, Issue{SeverityError, category, fmt.Sprintf(format, args...)})
}

// AddWarning appends a warning finding.
func (r *Result) AddWarning(category, format string, args ...interface{}) {
	r.Issues = append(r.Issues, Issue{SeverityWarning, category, fmt.Sprintf(format, args...)})
}

// AddInfo appends an informational finding.
func (r *Result) AddInfo(category, format string, args ...interface{}) {
	r.Issues = append(r.Issues, Issue{SeverityInfo, category, fmt.Sprintf(format, args...)})
}

// Score condenses the findings into 0..100. A clean model scores 100;
// each finding subtracts its severity penalty, floored at 0.
func (r *Result) Score() int {
	score := 100
	for _, issue := range r.Issues {
		switch issue.Severity {
		case SeverityError:
			score -= penaltyError
		case SeverityWarning:
			score -= penaltyWarning
		default:
			score -= penaltyInfo
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Report renders the findings as a plain-text block for console output.
func (r *Result) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Validation score: %d/100\n", r.Score())
	if len(r.Issues) == 0 {
		b.WriteString("No issues found.\n")
		return b.String()
	}
	for _, issue := range r.Issues {
		fmt.Fprintf(&b, "  [%s] %s: %s\n", issue.Severity, issue.Category, issue.Message)
	}
	return b.String()
}

// Validate runs all completeness checks over the model:
//   - workbook identity (name, version)
//   - datasources that define no fields at all
//   - LOD decomposition: lod_* calculations must carry dimensions and an
//     inner expression
//   - complexity score bounds
//   - relationship edges whose endpoints name no surviving entity
//   - duplicate relationship triples
//   - sheets without a visual configuration
func Validate(m *twbmeta.WorkbookMetadata) *Result {
	result := &Result{Valid: true, Issues: []Issue{}}

	if strings.TrimSpace(m.Name) == "" {
		result.AddError("workbook", "workbook name is empty")
	}
	if strings.TrimSpace(m.Version) == "" {
		result.AddWarning("workbook", "workbook version is missing")
	}

	for _, ds := range m.Datasources {
		if len(ds.Fields) == 0 && len(ds.CalculatedFields) == 0 {
			result.AddWarning("datasource", "datasource %q defines no fields", ds.DisplayName())
		}
		for _, calc := range ds.CalculatedFields {
			checkCalculatedField(result, calc)
		}
	}

	checkRelationships(result, m)

	for _, sheet := range m.Sheets {
		if sheet.Visual == nil {
			result.AddInfo("sheet", "sheet %q has no visual configuration", sheet.Name)
		}
	}

	return result
}

func checkCalculatedField(result *Result, calc twbmeta.CalculatedField) {
	if calc.CalculationType.IsLOD() {
		if len(calc.LODDimensions) == 0 {
			result.AddError("calculated_field",
				"calculated field %q is classified %s but has no dimension declarations", calc.DisplayName(), calc.CalculationType)
		}
		if strings.TrimSpace(calc.LODExpression) == "" {
			result.AddError("calculated_field",
				"calculated field %q is classified %s but has no inner expression", calc.DisplayName(), calc.CalculationType)
		}
	}
	if calc.ComplexityScore < 0 || calc.ComplexityScore > twbmeta.MaxComplexityScore {
		result.AddError("calculated_field",
			"calculated field %q has complexity score %d, outside 0..%d", calc.DisplayName(), calc.ComplexityScore, twbmeta.MaxComplexityScore)
	}
	if calc.CalculationType == twbmeta.CalcUnknown {
		result.AddWarning("calculated_field",
			"calculated field %q could not be classified; its formula may be malformed", calc.DisplayName())
	}
}

// checkRelationships verifies that edge endpoints resolve against the
// surviving entity set and that no (type, source, target) triple repeats.
// calc_to_field targets are exempt from resolution: a calculation may
// legitimately reference fields that were skipped or are server-computed.
func checkRelationships(result *Result, m *twbmeta.WorkbookMetadata) {
	known := indexEntityNames(m)

	seen := map[[3]string]bool{}
	for _, rel := range m.Relationships {
		key := [3]string{rel.Type, rel.SourceName, rel.TargetName}
		if seen[key] {
			result.AddError("relationship",
				"duplicate %s edge from %q to %q", rel.Type, rel.SourceName, rel.TargetName)
		}
		seen[key] = true

		if !known[rel.SourceType][rel.SourceName] {
			result.AddWarning("relationship",
				"%s edge names unknown %s %q as source", rel.Type, rel.SourceType, rel.SourceName)
		}
		if rel.Type == twbmeta.RelCalcToField {
			continue
		}
		if !known[rel.TargetType][rel.TargetName] {
			result.AddWarning("relationship",
				"%s edge names unknown %s %q as target", rel.Type, rel.TargetType, rel.TargetName)
		}
	}
}

// indexEntityNames builds the endpoint lookup keyed by the type labels used
// on relationship edges.
func indexEntityNames(m *twbmeta.WorkbookMetadata) map[string]map[string]bool {
	fields := map[string]bool{}
	calcs := map[string]bool{}
	for _, ds := range m.Datasources {
		for _, f := range ds.Fields {
			fields[f.Name] = true
		}
		for _, c := range ds.CalculatedFields {
			calcs[c.Name] = true
		}
	}

	sheets := map[string]bool{}
	for _, sheet := range m.Sheets {
		sheets[sheet.Name] = true
	}
	dashboards := map[string]bool{}
	for _, dash := range m.Dashboards {
		dashboards[dash.Name] = true
	}
	params := map[string]bool{}
	for _, p := range m.Parameters {
		params[p.Name] = true
	}

	return map[string]map[string]bool{
		"field":            fields,
		"calculated_field": calcs,
		"sheet":            sheets,
		"dashboard":        dashboards,
		"parameter":        params,
	}
}
