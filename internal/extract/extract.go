// Package extract orchestrates the extraction pipeline: archive opening,
// document parsing, structural entity extraction, formula analysis, filter
// interpretation, relationship derivation, and metric flattening, assembled
// into one WorkbookMetadata aggregate.
//
// The pipeline is a single synchronous pass. Only a malformed document or
// unrecognized root aborts it; every other defect degrades to a warning on
// the model.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/twbmeta/twbmeta/internal/archive"
	"github.com/twbmeta/twbmeta/internal/formula"
	"github.com/twbmeta/twbmeta/internal/graph"
	"github.com/twbmeta/twbmeta/internal/logging"
	"github.com/twbmeta/twbmeta/internal/metrics"
	"github.com/twbmeta/twbmeta/internal/parser"
	"github.com/twbmeta/twbmeta/internal/xmltree"
	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

// Options configures one extraction run.
type Options struct {
	// Logger receives progress and degradation diagnostics. Defaults to a
	// no-op logger.
	Logger twbmeta.Logger
}

// Extract runs the full pipeline against the workbook file at path.
func Extract(path string, opts Options) (*twbmeta.WorkbookMetadata, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NewNullLogger()
	}

	wb, err := archive.Open(path, log)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	doc, err := os.Open(wb.DocumentPath)
	if err != nil {
		return nil, fmt.Errorf("opening document %s: %w", wb.DocumentPath, err)
	}
	defer doc.Close()

	root, err := xmltree.Parse(doc)
	if err != nil {
		return nil, &twbmeta.StructuralParseError{
			Path:    path,
			Message: "document is not well-formed XML",
			Err:     err,
		}
	}

	p := parser.New(log, len(wb.ExtractFiles) > 0)
	parsed, err := p.Parse(root)
	if err != nil {
		if perr, ok := err.(*twbmeta.StructuralParseError); ok && perr.Path == "" {
			perr.Path = path
		}
		return nil, err
	}

	m := &twbmeta.WorkbookMetadata{
		Name:                workbookName(path),
		Version:             parsed.Version,
		Build:               parsed.Build,
		SourceFile:          path,
		ExtractionID:        uuid.New(),
		ExtractionTimestamp: time.Now().UTC(),
		Datasources:         parsed.Datasources,
		Sheets:              parsed.Sheets,
		Dashboards:          parsed.Dashboards,
		Parameters:          parsed.Parameters,
		Warnings:            p.Warnings(),
	}

	analyzeFormulas(m, log)

	m.Relationships = graph.Build(m)
	m.MetricRows = metrics.Flatten(m)
	m.ComputeTotals()

	log.Info("Extracted %s: %d sheets, %d dashboards, %d calculated fields, %d relationships",
		m.Name, m.TotalSheets, m.TotalDashboards, m.TotalCalculatedFields, len(m.Relationships))

	return m, nil
}

// analyzeFormulas attaches formula analysis to every calculated field.
// Formulas that degrade to unknown are recorded as warnings, never errors.
func analyzeFormulas(m *twbmeta.WorkbookMetadata, log twbmeta.Logger) {
	for di := range m.Datasources {
		ds := &m.Datasources[di]
		for ci := range ds.CalculatedFields {
			calc := &ds.CalculatedFields[ci]
			a := formula.Analyze(calc.Formula)

			calc.CalculationType = a.CalculationType
			calc.FunctionsUsed = a.FunctionsUsed
			calc.AggregationsUsed = a.AggregationsUsed
			calc.ReferencedParameters = a.ReferencedParameters
			calc.LODType = a.LODType
			calc.LODDimensions = cleanAll(a.LODDimensions)
			calc.LODExpression = a.LODExpression
			calc.TableCalcType = a.TableCalcType
			calc.ComplexityScore = a.ComplexityScore
			calc.ReferencedFields = cleanAll(a.ReferencedFields)

			if a.CalculationType == twbmeta.CalcUnknown {
				msg := fmt.Sprintf("Formula analysis degraded to unknown for calculated field %q", calc.Name)
				m.Warnings = append(m.Warnings, msg)
				log.Verbose("%s", msg)
			}
		}
	}
}

// cleanAll reduces raw bracket tokens to clean field names, deduplicated in
// first-appearance order.
func cleanAll(tokens []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range tokens {
		name := parser.CleanFieldName(t)
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func workbookName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
