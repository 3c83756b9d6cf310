// Package twbmeta defines the public semantic model produced by workbook
// metadata extraction, along with the interfaces and error taxonomy shared
// by the extraction pipeline and its consumers.
//
// The JSON field names and enum value spellings in this package are a
// compatibility surface: downstream report generators and the server
// comparison client match on these literal strings.
package twbmeta

import (
	"time"

	"github.com/google/uuid"
)

// DataType is the declared type of a field, calculated field, or parameter.
type DataType string

const (
	DataTypeString   DataType = "string"
	DataTypeInteger  DataType = "integer"
	DataTypeReal     DataType = "real"
	DataTypeBoolean  DataType = "boolean"
	DataTypeDate     DataType = "date"
	DataTypeDateTime DataType = "datetime"
	DataTypeSpatial  DataType = "spatial"
	DataTypeUnknown  DataType = "unknown"
)

// FieldRole distinguishes dimensions from measures.
type FieldRole string

const (
	RoleDimension FieldRole = "dimension"
	RoleMeasure   FieldRole = "measure"
)

// AggregationType is a default or shelf-level aggregation applied to a field.
type AggregationType string

const (
	AggNone       AggregationType = "none"
	AggSum        AggregationType = "sum"
	AggAvg        AggregationType = "avg"
	AggCount      AggregationType = "count"
	AggCountD     AggregationType = "countd"
	AggMin        AggregationType = "min"
	AggMax        AggregationType = "max"
	AggMedian     AggregationType = "median"
	AggAttr       AggregationType = "attr"
	AggStdev      AggregationType = "stdev"
	AggStdevP     AggregationType = "stdevp"
	AggVar        AggregationType = "var"
	AggVarP       AggregationType = "varp"
	AggPercentile AggregationType = "percentile"
	AggCollect    AggregationType = "collect"
)

// MarkType is the rendering primitive declared for a visualization.
type MarkType string

const (
	MarkBar       MarkType = "bar"
	MarkLine      MarkType = "line"
	MarkArea      MarkType = "area"
	MarkSquare    MarkType = "square"
	MarkCircle    MarkType = "circle"
	MarkShape     MarkType = "shape"
	MarkText      MarkType = "text"
	MarkMap       MarkType = "map"
	MarkPie       MarkType = "pie"
	MarkGantt     MarkType = "gantt"
	MarkPolygon   MarkType = "polygon"
	MarkDensity   MarkType = "density"
	MarkHeatmap   MarkType = "heatmap"
	MarkAutomatic MarkType = "automatic"
)

// CalculationType classifies a calculated field's formula.
type CalculationType string

const (
	CalcSimple     CalculationType = "simple"
	CalcAggregate  CalculationType = "aggregate"
	CalcLODFixed   CalculationType = "lod_fixed"
	CalcLODInclude CalculationType = "lod_include"
	CalcLODExclude CalculationType = "lod_exclude"
	CalcTableCalc  CalculationType = "table_calc"
	CalcUnknown    CalculationType = "unknown"
)

// IsLOD reports whether the calculation type is a level-of-detail expression.
func (c CalculationType) IsLOD() bool {
	return c == CalcLODFixed || c == CalcLODInclude || c == CalcLODExclude
}

// FilterType is the canonical kind of a worksheet filter.
type FilterType string

const (
	FilterCategorical  FilterType = "categorical"
	FilterRange        FilterType = "range"
	FilterRelativeDate FilterType = "relative_date"
	FilterTopN         FilterType = "top_n"
	FilterCondition    FilterType = "condition"
	FilterFormula      FilterType = "formula"
	FilterUnknown      FilterType = "unknown"
)

// Field is a stored (non-calculated) column owned by exactly one datasource.
type Field struct {
	Name               string          `json:"name"`
	Caption            string          `json:"caption,omitempty"`
	DataType           DataType        `json:"data_type"`
	Role               FieldRole       `json:"role"`
	DefaultAggregation AggregationType `json:"default_aggregation"`
	IsHidden           bool            `json:"is_hidden"`
	SemanticRole       string          `json:"semantic_role,omitempty"`
}

// DisplayName returns the caption when present, falling back to the name.
func (f Field) DisplayName() string {
	if f.Caption != "" {
		return f.Caption
	}
	return f.Name
}

// CalculatedField is a field derived from a formula. The analysis attributes
// (calculation type, token inventories, LOD decomposition, complexity) are
// populated by the formula analyzer, never by the structural parser.
type CalculatedField struct {
	Field

	Formula         string          `json:"formula"`
	FormulaReadable string          `json:"formula_readable,omitempty"`
	CalculationType CalculationType `json:"calculation_type"`

	FunctionsUsed        []string `json:"functions_used"`
	AggregationsUsed     []string `json:"aggregations_used"`
	ReferencedFields     []string `json:"referenced_fields"`
	ReferencedParameters []string `json:"referenced_parameters"`

	// LOD decomposition. Populated only when CalculationType is lod_*;
	// the invariant is non-empty LODDimensions and LODExpression.
	LODType       string   `json:"lod_type,omitempty"`
	LODDimensions []string `json:"lod_dimensions,omitempty"`
	LODExpression string   `json:"lod_expression,omitempty"`

	TableCalcType string `json:"table_calc_type,omitempty"`

	ComplexityScore int `json:"complexity_score"`
}

// Table describes one relation participating in a datasource.
type Table struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Join describes one join between two relations of a datasource.
type Join struct {
	Type       string `json:"type"`
	LeftTable  string `json:"left_table,omitempty"`
	RightTable string `json:"right_table,omitempty"`
}

// Datasource is a named connection plus its field definitions, in document
// order. Document order is significant: it is echoed in reports and drives
// relationship traversal.
type Datasource struct {
	Name            string `json:"name"`
	Caption         string `json:"caption,omitempty"`
	ConnectionType  string `json:"connection_type"`
	ConnectionClass string `json:"connection_class,omitempty"`
	Server          string `json:"server,omitempty"`
	Database        string `json:"database,omitempty"`

	Tables    []Table `json:"tables,omitempty"`
	Joins     []Join  `json:"joins,omitempty"`
	CustomSQL string  `json:"custom_sql,omitempty"`

	Fields           []Field           `json:"fields"`
	CalculatedFields []CalculatedField `json:"calculated_fields"`

	HasExtract bool `json:"has_extract"`
}

// DisplayName returns the caption when present, falling back to the name.
func (d Datasource) DisplayName() string {
	if d.Caption != "" {
		return d.Caption
	}
	return d.Name
}

// ShelfEntry is one field placed on a shelf, with the aggregation applied in
// that shelf context (which may differ from the field's default aggregation).
type ShelfEntry struct {
	Field       string          `json:"field"`
	Shelf       string          `json:"shelf"`
	Aggregation AggregationType `json:"aggregation"`
	Original    string          `json:"original,omitempty"`
}

// Axis holds range configuration for one chart axis.
type Axis struct {
	AxisType    string   `json:"axis_type"`
	RangeMin    *float64 `json:"range_min,omitempty"`
	RangeMax    *float64 `json:"range_max,omitempty"`
	RangeAuto   bool     `json:"range_auto"`
	IncludeZero bool     `json:"include_zero"`
}

// VisualConfig is the chart configuration of one worksheet.
//
// ChartType is the mark class declared in the document. ChartTypeDetail is
// the refined name derived from mark plus shelf composition (for example
// "vertical_bar" or "scatter_plot"); ChartTypeInferred is true when that
// refinement came from heuristics rather than an explicit mark class.
type VisualConfig struct {
	ChartType         MarkType `json:"chart_type"`
	ChartTypeDetail   string   `json:"chart_type_detail,omitempty"`
	ChartTypeInferred bool     `json:"chart_type_inferred"`

	Rows    []ShelfEntry `json:"rows"`
	Columns []ShelfEntry `json:"columns"`

	Color   *ShelfEntry  `json:"color,omitempty"`
	Size    *ShelfEntry  `json:"size,omitempty"`
	Shape   *ShelfEntry  `json:"shape,omitempty"`
	Label   []ShelfEntry `json:"label,omitempty"`
	Detail  []ShelfEntry `json:"detail,omitempty"`
	Tooltip []ShelfEntry `json:"tooltip,omitempty"`

	XAxis *Axis `json:"x_axis,omitempty"`
	YAxis *Axis `json:"y_axis,omitempty"`

	IsDualAxis        bool `json:"is_dual_axis"`
	HasReferenceLines bool `json:"has_reference_lines"`
	HasTrendLines     bool `json:"has_trend_lines"`
}

// CategoricalFilter is the payload of a grouped-membership filter.
type CategoricalFilter struct {
	IncludeValues []string `json:"include_values,omitempty"`
	ExcludeValues []string `json:"exclude_values,omitempty"`
	IncludeNull   bool     `json:"include_null"`
}

// RangeFilter is the payload of a quantitative range filter. Bounds are kept
// as the document's literal attribute text; either side may be empty.
type RangeFilter struct {
	Min string `json:"min,omitempty"`
	Max string `json:"max,omitempty"`
}

// RelativeDateFilter is the payload of a relative-date filter.
type RelativeDateFilter struct {
	DateType string `json:"type"`
	Value    int    `json:"value,omitempty"`
	Period   string `json:"period"`
}

// TopNFilter is the payload of a top/bottom-N filter.
type TopNFilter struct {
	Direction string `json:"direction"`
	Value     int    `json:"value"`
	ByField   string `json:"by_field,omitempty"`
}

// ConditionFilter is the payload of a condition or formula filter.
type ConditionFilter struct {
	Expression  string `json:"expression"`
	Aggregation string `json:"aggregation,omitempty"`
	Comparison  string `json:"comparison,omitempty"`
	Value       string `json:"value,omitempty"`
}

// Filter is a tagged union over the canonical filter kinds: exactly the
// payload matching Type is non-nil. Unrecognized node shapes map to
// FilterUnknown with the raw node text preserved in RawExpression.
type Filter struct {
	Field           string     `json:"field"`
	Type            FilterType `json:"filter_type"`
	IsContextFilter bool       `json:"is_context_filter"`

	Categorical  *CategoricalFilter  `json:"categorical,omitempty"`
	Range        *RangeFilter        `json:"range,omitempty"`
	RelativeDate *RelativeDateFilter `json:"relative_date,omitempty"`
	TopN         *TopNFilter         `json:"top_n,omitempty"`
	Condition    *ConditionFilter    `json:"condition,omitempty"`

	RawExpression string `json:"raw_expression,omitempty"`

	Explanation string `json:"calculation_explanation"`
}

// SortField is one sort directive on a worksheet.
type SortField struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
	SortType  string `json:"type"`
}

// Sheet is one worksheet: its visual configuration, its filters in document
// order, and the derived set of all field names it uses (first-use order).
type Sheet struct {
	Name           string `json:"name"`
	Title          string `json:"title,omitempty"`
	DatasourceName string `json:"datasource_name,omitempty"`

	Visual *VisualConfig `json:"visual,omitempty"`

	Filters      []Filter    `json:"filters"`
	QuickFilters []string    `json:"quick_filters,omitempty"`
	SortFields   []SortField `json:"sort_fields,omitempty"`

	AllFieldsUsed []string `json:"all_fields_used"`
}

// DashboardZone is one rectangular region within a dashboard layout.
type DashboardZone struct {
	ZoneType      string  `json:"zone_type"`
	Name          string  `json:"name,omitempty"`
	WorksheetName string  `json:"worksheet_name,omitempty"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	IsFloating    bool    `json:"is_floating"`
}

// DashboardAction is one interactivity link between worksheets.
type DashboardAction struct {
	Name             string   `json:"name"`
	ActionType       string   `json:"action_type"`
	Trigger          string   `json:"trigger,omitempty"`
	SourceWorksheets []string `json:"source_worksheets"`
	TargetWorksheets []string `json:"target_worksheets"`
	SourceFields     []string `json:"source_fields,omitempty"`
	TargetFields     []string `json:"target_fields,omitempty"`
	URLTemplate      string   `json:"url_template,omitempty"`
}

// Dashboard is one dashboard: its size, zones, contained worksheets,
// actions, and the filters/parameters it exposes.
type Dashboard struct {
	Name   string `json:"name"`
	Title  string `json:"title,omitempty"`
	Width  int    `json:"width"`
	Height int    `json:"height"`

	Worksheets []string          `json:"worksheets"`
	Zones      []DashboardZone   `json:"zones"`
	Actions    []DashboardAction `json:"actions"`

	ExposedFilters    []string `json:"exposed_filters,omitempty"`
	ExposedParameters []string `json:"exposed_parameters,omitempty"`
	LayoutType        string   `json:"layout_type"`
}

// Parameter is a workbook-level parameter from the reserved "Parameters"
// pseudo-datasource.
type Parameter struct {
	Name            string   `json:"name"`
	Caption         string   `json:"caption,omitempty"`
	DataType        DataType `json:"data_type"`
	CurrentValue    string   `json:"current_value,omitempty"`
	AllowableType   string   `json:"allowable_values_type"`
	AllowableValues []string `json:"allowable_values,omitempty"`
	RangeMin        string   `json:"range_min,omitempty"`
	RangeMax        string   `json:"range_max,omitempty"`
}

// DisplayName returns the caption when present, falling back to the name.
func (p Parameter) DisplayName() string {
	if p.Caption != "" {
		return p.Caption
	}
	return p.Name
}

// Relationship is one directed edge in the derived relationship graph.
// Relationships reference entities by name only; they never own them.
type Relationship struct {
	Type        string            `json:"relationship_type"`
	SourceType  string            `json:"source_type"`
	SourceName  string            `json:"source_name"`
	TargetType  string            `json:"target_type"`
	TargetName  string            `json:"target_name"`
	Description string            `json:"description,omitempty"`
	Details     map[string]string `json:"relationship_details,omitempty"`
}

// Relationship type enumerators. Appended to the edge list in this order;
// report generation depends on exact reproducibility.
const (
	RelFieldToSheet     = "field_to_sheet"
	RelCalcToField      = "calc_to_field"
	RelSheetToDashboard = "sheet_to_dashboard"
	RelAction           = "action"
	RelParameter        = "parameter"
)

// WorkbookMetadata is the aggregate root handed to output, validation, and
// comparison consumers. All sequences preserve document order; re-running
// extraction on the same input reproduces it byte for byte.
type WorkbookMetadata struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Build      string `json:"build,omitempty"`
	SourceFile string `json:"source_file,omitempty"`

	ExtractionID        uuid.UUID `json:"extraction_id"`
	ExtractionTimestamp time.Time `json:"extraction_timestamp"`

	Datasources   []Datasource   `json:"datasources"`
	Sheets        []Sheet        `json:"sheets"`
	Dashboards    []Dashboard    `json:"dashboards"`
	Parameters    []Parameter    `json:"parameters"`
	Relationships []Relationship `json:"relationships"`
	MetricRows    []MetricRow    `json:"metric_rows"`

	TotalSheets           int `json:"total_sheets"`
	TotalDashboards       int `json:"total_dashboards"`
	TotalFields           int `json:"total_fields"`
	TotalCalculatedFields int `json:"total_calculated_fields"`
	TotalParameters       int `json:"total_parameters"`
	TotalFilters          int `json:"total_filters"`

	// Warnings accumulated from non-fatal degradations (skipped entities,
	// unrecognized filter shapes, unparseable formulas).
	Warnings []string `json:"warnings,omitempty"`
}

// ComputeTotals recomputes the derived summary counters from the entity
// sequences. Call once after the pipeline finishes populating the model.
func (m *WorkbookMetadata) ComputeTotals() {
	m.TotalSheets = len(m.Sheets)
	m.TotalDashboards = len(m.Dashboards)
	m.TotalParameters = len(m.Parameters)

	m.TotalFields = 0
	m.TotalCalculatedFields = 0
	for _, ds := range m.Datasources {
		m.TotalFields += len(ds.Fields)
		m.TotalCalculatedFields += len(ds.CalculatedFields)
	}

	m.TotalFilters = 0
	for _, sheet := range m.Sheets {
		m.TotalFilters += len(sheet.Filters)
	}
}
