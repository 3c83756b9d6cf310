package output

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

// Report sheet names, in workbook order.
const (
	sheetSummary       = "Summary"
	sheetFields        = "Fields"
	sheetCalculated    = "Calculated Fields"
	sheetWorksheets    = "Worksheets"
	sheetFilters       = "Filters"
	sheetDashboards    = "Dashboards"
	sheetParameters    = "Parameters"
	sheetRelationships = "Relationships"
	sheetMetrics       = "Metrics"
)

// WriteExcel writes the multi-sheet Excel report to path.
func WriteExcel(path string, m *twbmeta.WorkbookMetadata) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return err
	}

	// The default sheet becomes the summary.
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return err
	}

	sections := []struct {
		name string
		fill func(*sheetWriter)
	}{
		{sheetSummary, func(s *sheetWriter) { fillSummary(s, m) }},
		{sheetFields, func(s *sheetWriter) { fillFields(s, m) }},
		{sheetCalculated, func(s *sheetWriter) { fillCalculated(s, m) }},
		{sheetWorksheets, func(s *sheetWriter) { fillWorksheets(s, m) }},
		{sheetFilters, func(s *sheetWriter) { fillFilters(s, m) }},
		{sheetDashboards, func(s *sheetWriter) { fillDashboards(s, m) }},
		{sheetParameters, func(s *sheetWriter) { fillParameters(s, m) }},
		{sheetRelationships, func(s *sheetWriter) { fillRelationships(s, m) }},
		{sheetMetrics, func(s *sheetWriter) { fillMetrics(s, m) }},
	}

	for _, section := range sections {
		s, err := newSheetWriter(f, section.name, headerStyle)
		if err != nil {
			return err
		}
		section.fill(s)
		if s.err != nil {
			return fmt.Errorf("filling sheet %s: %w", section.name, s.err)
		}
	}

	return f.SaveAs(path)
}

// sheetWriter appends rows to one sheet, carrying the first error so the
// fill functions stay linear.
type sheetWriter struct {
	f     *excelize.File
	name  string
	row   int
	style int
	err   error
}

func newSheetWriter(f *excelize.File, name string, headerStyle int) (*sheetWriter, error) {
	if idx, err := f.GetSheetIndex(name); err != nil {
		return nil, err
	} else if idx < 0 {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}
	return &sheetWriter{f: f, name: name, row: 1, style: headerStyle}, nil
}

func (s *sheetWriter) writeRow(values ...interface{}) {
	if s.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		s.err = err
		return
	}
	if err := s.f.SetSheetRow(s.name, cell, &values); err != nil {
		s.err = err
		return
	}
	s.row++
}

// writeHeader writes the column header row in bold.
func (s *sheetWriter) writeHeader(titles ...interface{}) {
	s.writeRow(titles...)
	if s.err != nil {
		return
	}
	end, err := excelize.CoordinatesToCellName(len(titles), 1)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetCellStyle(s.name, "A1", end, s.style)
}

func fillSummary(s *sheetWriter, m *twbmeta.WorkbookMetadata) {
	s.writeHeader("Property", "Value")
	s.writeRow("Workbook", m.Name)
	s.writeRow("Version", m.Version)
	if m.Build != "" {
		s.writeRow("Build", m.Build)
	}
	if m.SourceFile != "" {
		s.writeRow("Source File", m.SourceFile)
	}
	s.writeRow("Extraction ID", m.ExtractionID.String())
	s.writeRow("Extracted At", m.ExtractionTimestamp.Format("2006-01-02 15:04:05 MST"))
	s.writeRow("Datasources", len(m.Datasources))
	s.writeRow("Fields", m.TotalFields)
	s.writeRow("Calculated Fields", m.TotalCalculatedFields)
	s.writeRow("Worksheets", m.TotalSheets)
	s.writeRow("Dashboards", m.TotalDashboards)
	s.writeRow("Parameters", m.TotalParameters)
	s.writeRow("Filters", m.TotalFilters)
	s.writeRow("Relationships", len(m.Relationships))
	s.writeRow("Metric Rows", len(m.MetricRows))
	s.writeRow("Warnings", len(m.Warnings))
}

func fillFields(s *sheetWriter, m *twbmeta.WorkbookMetadata) {
	s.writeHeader("Datasource", "Field", "Caption", "Data Type", "Role", "Default Aggregation", "Hidden")
	for _, ds := range m.Datasources {
		for _, field := range ds.Fields {
			s.writeRow(ds.DisplayName(), field.Name, field.Caption,
				string(field.DataType), string(field.Role),
				string(field.DefaultAggregation), field.IsHidden)
		}
	}
}

func fillCalculated(s *sheetWriter, m *twbmeta.WorkbookMetadata) {
	s.writeHeader("Datasource", "Name", "Type", "Complexity", "Formula",
		"LOD Type", "LOD Dimensions", "Referenced Fields", "Referenced Parameters", "Aggregations")
	for _, ds := range m.Datasources {
		for _, calc := range ds.CalculatedFields {
			formula := calc.FormulaReadable
			if formula == "" {
				formula = calc.Formula
			}
			s.writeRow(ds.DisplayName(), calc.DisplayName(),
				string(calc.CalculationType), calc.ComplexityScore, formula,
				calc.LODType, strings.Join(calc.LODDimensions, ", "),
				strings.Join(calc.ReferencedFields, ", "),
				strings.Join(calc.ReferencedParameters, ", "),
				strings.Join(calc.AggregationsUsed, ", "))
		}
	}
}

func fillWorksheets(s *sheetWriter, m *twbmeta.WorkbookMetadata) {
	s.writeHeader("Name", "Datasource", "Chart Type", "Rows", "Columns", "Filters", "Fields Used")
	for _, sheet := range m.Sheets {
		chartType, rows, cols := "", "", ""
		if v := sheet.Visual; v != nil {
			chartType = chartTypeLabel(v)
			rows = joinShelf(v.Rows)
			cols = joinShelf(v.Columns)
		}
		s.writeRow(sheet.Name, sheet.DatasourceName, chartType, rows, cols,
			len(sheet.Filters), strings.Join(sheet.AllFieldsUsed, ", "))
	}
}

func fillFilters(s *sheetWriter, m *twbmeta.WorkbookMetadata) {
	s.writeHeader("Worksheet", "Field", "Type", "Context", "Explanation")
	for _, sheet := range m.Sheets {
		for _, filter := range sheet.Filters {
			s.writeRow(sheet.Name, filter.Field, string(filter.Type),
				filter.IsContextFilter, filter.Explanation)
		}
	}
}

func fillDashboards(s *sheetWriter, m *twbmeta.WorkbookMetadata) {
	s.writeHeader("Name", "Size", "Layout", "Worksheets", "Zones", "Actions")
	for _, dash := range m.Dashboards {
		s.writeRow(dash.Name, fmt.Sprintf("%dx%d", dash.Width, dash.Height),
			dash.LayoutType, strings.Join(dash.Worksheets, ", "),
			len(dash.Zones), len(dash.Actions))
	}
}

func fillParameters(s *sheetWriter, m *twbmeta.WorkbookMetadata) {
	s.writeHeader("Name", "Data Type", "Current Value", "Allowable Values", "Values / Range")
	for _, param := range m.Parameters {
		detail := strings.Join(param.AllowableValues, ", ")
		if param.RangeMin != "" || param.RangeMax != "" {
			detail = param.RangeMin + " .. " + param.RangeMax
		}
		s.writeRow(param.DisplayName(), string(param.DataType),
			param.CurrentValue, param.AllowableType, detail)
	}
}

func fillRelationships(s *sheetWriter, m *twbmeta.WorkbookMetadata) {
	s.writeHeader("Type", "Source Type", "Source", "Target Type", "Target", "Description")
	for _, rel := range m.Relationships {
		s.writeRow(rel.Type, rel.SourceType, rel.SourceName,
			rel.TargetType, rel.TargetName, rel.Description)
	}
}

func fillMetrics(s *sheetWriter, m *twbmeta.WorkbookMetadata) {
	s.writeHeader("Metric", "Type", "Worksheet", "Shelf", "Aggregation",
		"Chart Type", "Datasource", "Complexity", "Dashboards")
	for _, row := range m.MetricRows {
		s.writeRow(row.MetricName, row.MetricType, row.WorksheetName,
			row.ShelfPosition, row.AggregationUsed, row.ChartType,
			row.DatasourceName, row.ComplexityScore,
			strings.Join(row.DashboardsContainingWorksheet, ", "))
	}
}

func joinShelf(entries []twbmeta.ShelfEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Aggregation != twbmeta.AggNone {
			parts = append(parts, fmt.Sprintf("%s(%s)", strings.ToUpper(string(e.Aggregation)), e.Field))
			continue
		}
		parts = append(parts, e.Field)
	}
	return strings.Join(parts, ", ")
}

func chartTypeLabel(v *twbmeta.VisualConfig) string {
	if v.ChartTypeDetail != "" {
		return v.ChartTypeDetail
	}
	return string(v.ChartType)
}
