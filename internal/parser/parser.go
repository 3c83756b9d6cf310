package parser

import (
	"fmt"
	"strings"

	"github.com/twbmeta/twbmeta/internal/logging"
	"github.com/twbmeta/twbmeta/internal/xmltree"
	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

// connectionTypes maps connection class names to display names.
var connectionTypes = map[string]string{
	"sqlserver":    "SQL Server",
	"postgres":     "PostgreSQL",
	"mysql":        "MySQL",
	"oracle":       "Oracle",
	"snowflake":    "Snowflake",
	"bigquery":     "BigQuery",
	"redshift":     "Redshift",
	"databricks":   "Databricks",
	"synapse":      "Azure Synapse",
	"excel":        "Excel",
	"excel-direct": "Excel",
	"textscan":     "CSV/Text",
	"hyper":        "Tableau Extract",
	"federated":    "Federated",
	"googlesheets": "Google Sheets",
	"salesforce":   "Salesforce",
}

var dataTypes = map[string]twbmeta.DataType{
	"string":   twbmeta.DataTypeString,
	"integer":  twbmeta.DataTypeInteger,
	"real":     twbmeta.DataTypeReal,
	"boolean":  twbmeta.DataTypeBoolean,
	"date":     twbmeta.DataTypeDate,
	"datetime": twbmeta.DataTypeDateTime,
	"spatial":  twbmeta.DataTypeSpatial,
}

var aggregations = map[string]twbmeta.AggregationType{
	"sum": twbmeta.AggSum, "avg": twbmeta.AggAvg,
	"count": twbmeta.AggCount, "countd": twbmeta.AggCountD,
	"min": twbmeta.AggMin, "max": twbmeta.AggMax,
	"median": twbmeta.AggMedian, "attr": twbmeta.AggAttr,
	"stdev": twbmeta.AggStdev, "stdevp": twbmeta.AggStdevP,
	"var": twbmeta.AggVar, "varp": twbmeta.AggVarP,
	"percentile": twbmeta.AggPercentile, "collect": twbmeta.AggCollect,
}

// Result is the full structural entity set of one workbook document, in
// document order. Calculated fields carry raw formulas only; the analysis
// attributes are attached by a later stage.
type Result struct {
	Version string
	Build   string

	Datasources []twbmeta.Datasource
	Parameters  []twbmeta.Parameter
	Sheets      []twbmeta.Sheet
	Dashboards  []twbmeta.Dashboard
}

// Parser walks a workbook document tree into the typed entity model.
type Parser struct {
	log        twbmeta.Logger
	hasExtract bool
	warnings   []string
}

// New returns a parser. hasExtract marks whether the archive the document
// came from bundled data extract files; it is echoed on every datasource.
func New(log twbmeta.Logger, hasExtract bool) *Parser {
	if log == nil {
		log = logging.NewNullLogger()
	}
	return &Parser{log: log, hasExtract: hasExtract}
}

// Warnings returns entity-skip and degradation warnings accumulated during
// the last Parse call, in occurrence order.
func (p *Parser) Warnings() []string {
	return p.warnings
}

func (p *Parser) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.warnings = append(p.warnings, msg)
	p.log.Verbose("%s", msg)
}

// Parse converts a document tree rooted at a workbook element into the
// entity set. A root that is not a workbook element is fatal; every defect
// below the root degrades to a skipped entity and a warning.
func (p *Parser) Parse(root *xmltree.Node) (*Result, error) {
	if root == nil || root.Name != "workbook" {
		got := "(none)"
		if root != nil {
			got = root.Name
		}
		return nil, &twbmeta.StructuralParseError{
			Element: got,
			Message: "document root is not a workbook element",
		}
	}

	p.warnings = nil

	res := &Result{
		Version: root.Attr("version"),
		Build:   root.Attr("source-build"),
	}
	if res.Version == "" {
		res.Version = "unknown"
	}

	for _, ds := range root.FindAll("datasource") {
		if ds.Attr("name") == twbmeta.ParametersDatasource {
			res.Parameters = append(res.Parameters, p.parseParameters(ds)...)
			continue
		}
		if d, ok := p.parseDatasource(ds); ok {
			res.Datasources = append(res.Datasources, d)
		}
	}

	for _, ws := range root.FindAll("worksheet") {
		if sheet, ok := p.parseWorksheet(ws); ok {
			res.Sheets = append(res.Sheets, sheet)
		}
	}

	for _, dash := range root.FindAll("dashboard") {
		if d, ok := p.parseDashboard(dash); ok {
			res.Dashboards = append(res.Dashboards, d)
		}
	}

	p.log.Verbose("Parsed %d datasources, %d sheets, %d dashboards, %d parameters",
		len(res.Datasources), len(res.Sheets), len(res.Dashboards), len(res.Parameters))

	return res, nil
}

func (p *Parser) parseDatasource(node *xmltree.Node) (twbmeta.Datasource, bool) {
	name := node.Attr("name")
	caption := node.Attr("caption")
	if name == "" && caption == "" {
		p.warnf("Skipped datasource without name or caption")
		return twbmeta.Datasource{}, false
	}

	d := twbmeta.Datasource{
		Name:           name,
		Caption:        caption,
		ConnectionType: "unknown",
		HasExtract:     p.hasExtract,
	}

	if conn := node.Find("connection"); conn != nil {
		d.ConnectionClass = conn.Attr("class")
		d.ConnectionType = connectionType(d.ConnectionClass)
		d.Server = conn.Attr("server")
		d.Database = conn.Attr("dbname")
	}

	d.Tables = parseTables(node)
	d.Joins = parseJoins(node)
	d.CustomSQL = parseCustomSQL(node)

	for _, col := range node.FindAll("column") {
		colName := col.Attr("name")
		calc := col.Find("calculation")

		if calc != nil {
			if cf, ok := p.parseCalculatedField(col, calc); ok {
				d.CalculatedFields = append(d.CalculatedFields, cf)
			}
			continue
		}

		// Internal bookkeeping columns carry no user-facing identity.
		if colName == "" || strings.HasPrefix(colName, "[Calculation_") || strings.HasPrefix(colName, "[:") {
			if colName == "" {
				p.warnf("Skipped field without name in datasource %q", d.DisplayName())
			}
			continue
		}

		d.Fields = append(d.Fields, twbmeta.Field{
			Name:               CleanFieldName(colName),
			Caption:            col.Attr("caption"),
			DataType:           dataType(col.Attr("datatype")),
			Role:               fieldRole(col.Attr("role"), twbmeta.RoleDimension),
			DefaultAggregation: aggregation(col.Attr("aggregation")),
			IsHidden:           col.Attr("hidden") == "true",
			SemanticRole:       col.Attr("semantic-role"),
		})
	}

	return d, true
}

func (p *Parser) parseCalculatedField(col, calc *xmltree.Node) (twbmeta.CalculatedField, bool) {
	formula := calc.Attr("formula")
	if formula == "" {
		return twbmeta.CalculatedField{}, false
	}

	name := CleanFieldName(col.Attr("name"))
	if name == "" {
		p.warnf("Skipped calculated field without name")
		return twbmeta.CalculatedField{}, false
	}

	return twbmeta.CalculatedField{
		Field: twbmeta.Field{
			Name:     name,
			Caption:  col.Attr("caption"),
			DataType: dataType(col.Attr("datatype")),
			Role:     fieldRole(col.Attr("role"), twbmeta.RoleMeasure),
		},
		Formula:         formula,
		FormulaReadable: CleanFormula(formula),
	}, true
}

func (p *Parser) parseParameters(node *xmltree.Node) []twbmeta.Parameter {
	var params []twbmeta.Parameter

	for _, col := range node.FindAll("column") {
		name := strings.Trim(col.Attr("name"), "[]")
		if name == "" {
			p.warnf("Skipped parameter without name")
			continue
		}

		param := twbmeta.Parameter{
			Name:          name,
			Caption:       col.Attr("caption"),
			DataType:      dataType(col.Attr("datatype")),
			AllowableType: "all",
		}

		if calc := col.Find("calculation"); calc != nil {
			param.CurrentValue = strings.Trim(calc.Attr("formula"), `'"`)
		}

		if rng := col.Find("range"); rng != nil && rng.Attr("granularity") != "" {
			param.AllowableType = "range"
			param.RangeMin = rng.Attr("min")
			param.RangeMax = rng.Attr("max")
		}

		if members := col.Find("members"); members != nil {
			param.AllowableType = "list"
			for _, m := range members.FindAll("member") {
				if v := m.Attr("value"); v != "" {
					param.AllowableValues = append(param.AllowableValues, strings.Trim(v, `'"`))
				}
			}
		}

		params = append(params, param)
	}

	return params
}

func parseTables(node *xmltree.Node) []twbmeta.Table {
	var tables []twbmeta.Table
	seen := map[string]bool{}

	for _, rel := range node.FindAll("relation") {
		name := rel.Attr("name")
		if name == "" {
			name = rel.Attr("table")
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		typ := rel.Attr("type")
		if typ == "" {
			typ = "table"
		}
		tables = append(tables, twbmeta.Table{Name: name, Type: typ})
	}

	return tables
}

func parseJoins(node *xmltree.Node) []twbmeta.Join {
	var joins []twbmeta.Join

	for _, rel := range node.FindAll("relation") {
		joinType := rel.Attr("join")
		if joinType == "" {
			continue
		}

		join := twbmeta.Join{Type: joinType}
		children := rel.ChildrenNamed("relation")
		if len(children) > 0 {
			join.LeftTable = children[0].Attr("name")
		}
		if len(children) > 1 {
			join.RightTable = children[1].Attr("name")
		}
		joins = append(joins, join)
	}

	return joins
}

func parseCustomSQL(node *xmltree.Node) string {
	for _, rel := range node.FindAll("relation") {
		if rel.Attr("type") == "text" && strings.TrimSpace(rel.Text) != "" {
			return strings.TrimSpace(rel.Text)
		}
	}
	return ""
}

func connectionType(class string) string {
	if class == "" {
		return "unknown"
	}
	if t, ok := connectionTypes[strings.ToLower(class)]; ok {
		return t
	}
	return class
}

func dataType(s string) twbmeta.DataType {
	if t, ok := dataTypes[s]; ok {
		return t
	}
	if s == "" {
		return twbmeta.DataTypeString
	}
	return twbmeta.DataTypeUnknown
}

func fieldRole(s string, fallback twbmeta.FieldRole) twbmeta.FieldRole {
	switch s {
	case "measure":
		return twbmeta.RoleMeasure
	case "dimension":
		return twbmeta.RoleDimension
	default:
		return fallback
	}
}

func aggregation(s string) twbmeta.AggregationType {
	if a, ok := aggregations[strings.ToLower(s)]; ok {
		return a
	}
	return twbmeta.AggNone
}
