// Package metrics produces the denormalized metric-row projection: one row
// per (metric, worksheet, shelf position) occurrence, joining field
// identity, formula analysis, shelf context, worksheet filters, and
// dashboard containment into flat records suitable for tabular reports.
package metrics

import (
	"github.com/twbmeta/twbmeta/internal/graph"
	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

// fieldIndex resolves metric names against the parsed datasources. Built
// once after the entity set is finalized; rows hold names, never pointers
// into the entity graph.
type fieldIndex struct {
	fields map[string]fieldEntry
	calcs  map[string]calcEntry
}

type fieldEntry struct {
	field      twbmeta.Field
	datasource twbmeta.Datasource
}

type calcEntry struct {
	calc       twbmeta.CalculatedField
	datasource twbmeta.Datasource
}

func buildIndex(datasources []twbmeta.Datasource) *fieldIndex {
	idx := &fieldIndex{
		fields: map[string]fieldEntry{},
		calcs:  map[string]calcEntry{},
	}
	for _, ds := range datasources {
		for _, f := range ds.Fields {
			if _, ok := idx.fields[f.Name]; !ok {
				idx.fields[f.Name] = fieldEntry{field: f, datasource: ds}
			}
		}
		for _, c := range ds.CalculatedFields {
			if _, ok := idx.calcs[c.Name]; !ok {
				idx.calcs[c.Name] = calcEntry{calc: c, datasource: ds}
			}
		}
	}
	return idx
}

// Flatten emits metric rows for every shelf and encoding placement across
// all worksheets, in worksheet document order and shelf order within a
// worksheet. An unresolvable metric name yields a row with metric type
// "unknown" rather than an error.
func Flatten(m *twbmeta.WorkbookMetadata) []twbmeta.MetricRow {
	idx := buildIndex(m.Datasources)
	containment := graph.IndexSheetDashboards(m.Dashboards)

	var rows []twbmeta.MetricRow
	for _, sheet := range m.Sheets {
		if sheet.Visual == nil {
			continue
		}

		filters := make([]string, 0, len(sheet.Filters))
		details := make([]twbmeta.MetricFilterDetail, 0, len(sheet.Filters))
		for _, f := range sheet.Filters {
			filters = append(filters, f.Field)
			details = append(details, twbmeta.MetricFilterDetail{
				Field:       f.Field,
				FilterType:  string(f.Type),
				Explanation: f.Explanation,
			})
		}

		for _, entry := range placements(sheet.Visual) {
			row := idx.newRow(entry, sheet)
			row.FiltersApplied = filters
			row.FilterDetails = details
			row.DashboardsContainingWorksheet = containment[sheet.Name]
			rows = append(rows, row)
		}
	}

	return rows
}

// placements lists every shelf entry of the visual in fixed shelf order:
// rows, columns, color, size, shape, label, detail, tooltip.
func placements(v *twbmeta.VisualConfig) []twbmeta.ShelfEntry {
	var entries []twbmeta.ShelfEntry
	entries = append(entries, v.Rows...)
	entries = append(entries, v.Columns...)
	for _, single := range []*twbmeta.ShelfEntry{v.Color, v.Size, v.Shape} {
		if single != nil {
			entries = append(entries, *single)
		}
	}
	entries = append(entries, v.Label...)
	entries = append(entries, v.Detail...)
	entries = append(entries, v.Tooltip...)
	return entries
}

func (idx *fieldIndex) newRow(entry twbmeta.ShelfEntry, sheet twbmeta.Sheet) twbmeta.MetricRow {
	row := twbmeta.MetricRow{
		MetricName:    entry.Field,
		WorksheetName: sheet.Name,
		ShelfPosition: entry.Shelf,
	}
	if sheet.Visual != nil {
		row.ChartType = sheet.Visual.ChartTypeDetail
		if row.ChartType == "" {
			row.ChartType = string(sheet.Visual.ChartType)
		}
	}
	if entry.Aggregation != twbmeta.AggNone {
		row.AggregationUsed = string(entry.Aggregation)
	}

	if ce, ok := idx.calcs[row.MetricName]; ok {
		calc := ce.calc
		row.MetricType = twbmeta.MetricTypeCalculatedField
		row.MetricCaption = calc.Caption
		row.DatasourceName = ce.datasource.Name
		row.DatasourceCaption = ce.datasource.Caption
		row.Formula = calc.Formula
		row.FormulaReadable = calc.FormulaReadable
		row.CalculationType = string(calc.CalculationType)
		row.DataType = string(calc.DataType)
		row.AggregationsInFormula = calc.AggregationsUsed
		row.FunctionsUsed = calc.FunctionsUsed
		row.ReferencedFields = calc.ReferencedFields
		row.ReferencedParameters = calc.ReferencedParameters
		row.LODType = calc.LODType
		row.LODDimensions = calc.LODDimensions
		row.LODExpression = calc.LODExpression
		row.ComplexityScore = calc.ComplexityScore
		return row
	}

	if fe, ok := idx.fields[row.MetricName]; ok {
		field := fe.field
		if field.Role == twbmeta.RoleMeasure {
			row.MetricType = twbmeta.MetricTypeMeasure
		} else {
			row.MetricType = twbmeta.MetricTypeDimension
		}
		row.MetricCaption = field.Caption
		row.DatasourceName = fe.datasource.Name
		row.DatasourceCaption = fe.datasource.Caption
		row.DataType = string(field.DataType)
		if row.AggregationUsed == "" && field.DefaultAggregation != twbmeta.AggNone {
			row.AggregationUsed = string(field.DefaultAggregation)
		}
		return row
	}

	// Transient or server-computed pseudo-fields resolve to nothing; the
	// row is still emitted so reports show the placement.
	row.MetricType = twbmeta.MetricTypeUnknown
	return row
}
