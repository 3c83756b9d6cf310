package output

import (
	"html/template"
	"io"
	"os"
	"strings"

	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"join": func(items []string) string { return strings.Join(items, ", ") },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Name}} — Workbook Metadata</title>
<style>
  body { font-family: system-ui, sans-serif; margin: 2rem; color: #1a1a2e; }
  h1 { border-bottom: 2px solid #3949ab; padding-bottom: .3rem; }
  h2 { margin-top: 2rem; color: #3949ab; }
  table { border-collapse: collapse; width: 100%; margin-top: .5rem; }
  th, td { border: 1px solid #cfd8dc; padding: .35rem .6rem; text-align: left; font-size: .9rem; }
  th { background: #e8eaf6; }
  .totals span { display: inline-block; margin-right: 1.5rem; }
  .totals b { font-size: 1.3rem; }
  .warning { color: #b26500; }
  code { background: #f5f5f5; padding: .1rem .3rem; }
</style>
</head>
<body>
<h1>{{.Name}}</h1>
<p>Document version {{.Version}}{{if .Build}} (build {{.Build}}){{end}},
extracted {{.ExtractionTimestamp.Format "2006-01-02 15:04:05 MST"}},
run <code>{{.ExtractionID}}</code>.</p>

<p class="totals">
  <span><b>{{.TotalFields}}</b> fields</span>
  <span><b>{{.TotalCalculatedFields}}</b> calculated fields</span>
  <span><b>{{.TotalSheets}}</b> worksheets</span>
  <span><b>{{.TotalDashboards}}</b> dashboards</span>
  <span><b>{{.TotalParameters}}</b> parameters</span>
  <span><b>{{.TotalFilters}}</b> filters</span>
</p>

{{range .Datasources}}
<h2>Datasource: {{.DisplayName}}</h2>
<p>{{.ConnectionType}}{{if .Server}} on <code>{{.Server}}</code>{{end}}{{if .Database}},
database <code>{{.Database}}</code>{{end}}{{if .HasExtract}} (extract){{end}}</p>
{{if .Fields}}
<table>
  <tr><th>Field</th><th>Data Type</th><th>Role</th><th>Default Aggregation</th><th>Hidden</th></tr>
  {{range .Fields}}
  <tr><td>{{.DisplayName}}</td><td>{{.DataType}}</td><td>{{.Role}}</td><td>{{.DefaultAggregation}}</td><td>{{if .IsHidden}}yes{{end}}</td></tr>
  {{end}}
</table>
{{end}}
{{if .CalculatedFields}}
<table>
  <tr><th>Calculated Field</th><th>Type</th><th>Complexity</th><th>Formula</th></tr>
  {{range .CalculatedFields}}
  <tr><td>{{.DisplayName}}</td><td>{{.CalculationType}}</td><td>{{.ComplexityScore}}</td>
      <td><code>{{if .FormulaReadable}}{{.FormulaReadable}}{{else}}{{.Formula}}{{end}}</code></td></tr>
  {{end}}
</table>
{{end}}
{{end}}

{{if .Sheets}}
<h2>Worksheets</h2>
<table>
  <tr><th>Name</th><th>Datasource</th><th>Chart</th><th>Filters</th><th>Fields Used</th></tr>
  {{range .Sheets}}
  <tr><td>{{.Name}}</td><td>{{.DatasourceName}}</td>
      <td>{{if .Visual}}{{if .Visual.ChartTypeDetail}}{{.Visual.ChartTypeDetail}}{{else}}{{.Visual.ChartType}}{{end}}{{end}}</td>
      <td>{{len .Filters}}</td><td>{{join .AllFieldsUsed}}</td></tr>
  {{end}}
</table>
{{end}}

{{if .Dashboards}}
<h2>Dashboards</h2>
<table>
  <tr><th>Name</th><th>Size</th><th>Layout</th><th>Worksheets</th><th>Actions</th></tr>
  {{range .Dashboards}}
  <tr><td>{{.Name}}</td><td>{{.Width}}&times;{{.Height}}</td><td>{{.LayoutType}}</td>
      <td>{{join .Worksheets}}</td><td>{{len .Actions}}</td></tr>
  {{end}}
</table>
{{end}}

{{if .Parameters}}
<h2>Parameters</h2>
<table>
  <tr><th>Name</th><th>Data Type</th><th>Current Value</th><th>Allowable Values</th></tr>
  {{range .Parameters}}
  <tr><td>{{.DisplayName}}</td><td>{{.DataType}}</td><td>{{.CurrentValue}}</td>
      <td>{{if .AllowableValues}}{{join .AllowableValues}}{{else}}{{.RangeMin}} .. {{.RangeMax}}{{end}}</td></tr>
  {{end}}
</table>
{{end}}

{{if .Relationships}}
<h2>Relationships</h2>
<table>
  <tr><th>Type</th><th>Source</th><th>Target</th><th>Description</th></tr>
  {{range .Relationships}}
  <tr><td>{{.Type}}</td><td>{{.SourceName}}</td><td>{{.TargetName}}</td><td>{{.Description}}</td></tr>
  {{end}}
</table>
{{end}}

{{if .Warnings}}
<h2 class="warning">Warnings</h2>
<ul>
  {{range .Warnings}}<li class="warning">{{.}}</li>{{end}}
</ul>
{{end}}
</body>
</html>
`))

// RenderHTML writes the HTML report for the model to w.
func RenderHTML(w io.Writer, m *twbmeta.WorkbookMetadata) error {
	return htmlReport.Execute(w, m)
}

// WriteHTML writes the HTML report to path.
func WriteHTML(path string, m *twbmeta.WorkbookMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := RenderHTML(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
