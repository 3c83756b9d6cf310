package twbmeta

// MetricType classifies how a metric row's name resolved against the parsed
// datasource fields.
const (
	MetricTypeCalculatedField = "calculated_field"
	MetricTypeMeasure         = "measure"
	MetricTypeDimension       = "dimension"
	MetricTypeUnknown         = "unknown"
)

// MetricFilterDetail summarizes one worksheet filter as applied to a metric
// row, including the generated natural-language explanation.
type MetricFilterDetail struct {
	Field       string `json:"field"`
	FilterType  string `json:"type"`
	Explanation string `json:"explanation"`
}

// MetricRow is the denormalized projection: one row per (metric, worksheet,
// shelf position) occurrence. A metric appearing on two shelves of the same
// worksheet yields two rows. MetricType is "unknown" when the name cannot be
// resolved against any known datasource field; that is expected for transient
// or server-computed pseudo-fields, not an error.
type MetricRow struct {
	MetricName    string `json:"metric_name"`
	MetricCaption string `json:"metric_caption,omitempty"`
	MetricType    string `json:"metric_type"`

	DatasourceName    string `json:"datasource_name,omitempty"`
	DatasourceCaption string `json:"datasource_caption,omitempty"`

	WorksheetName string `json:"worksheet_name"`
	ChartType     string `json:"chart_type,omitempty"`
	ShelfPosition string `json:"shelf_position"`

	Formula         string `json:"formula,omitempty"`
	FormulaReadable string `json:"formula_readable,omitempty"`
	CalculationType string `json:"calculation_type,omitempty"`
	DataType        string `json:"data_type,omitempty"`

	// AggregationUsed is the aggregation applied in this shelf context,
	// which may differ from the field's default aggregation.
	AggregationUsed string `json:"aggregation_used,omitempty"`

	AggregationsInFormula []string `json:"aggregations_in_formula,omitempty"`
	FunctionsUsed         []string `json:"functions_used,omitempty"`
	ReferencedFields      []string `json:"referenced_fields,omitempty"`
	ReferencedParameters  []string `json:"referenced_parameters,omitempty"`

	LODType       string   `json:"lod_type,omitempty"`
	LODDimensions []string `json:"lod_dimensions,omitempty"`
	LODExpression string   `json:"lod_expression,omitempty"`

	FiltersApplied []string             `json:"filters_applied,omitempty"`
	FilterDetails  []MetricFilterDetail `json:"filter_details,omitempty"`

	DashboardsContainingWorksheet []string `json:"dashboards,omitempty"`

	ComplexityScore int `json:"complexity_score"`
}
