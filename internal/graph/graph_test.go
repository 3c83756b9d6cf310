package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

func sampleModel() *twbmeta.WorkbookMetadata {
	return &twbmeta.WorkbookMetadata{
		Datasources: []twbmeta.Datasource{
			{
				Name: "Superstore",
				Fields: []twbmeta.Field{
					{Name: "Sales", Role: twbmeta.RoleMeasure},
					{Name: "Region", Role: twbmeta.RoleDimension},
					{Name: "Profit", Role: twbmeta.RoleMeasure},
				},
				CalculatedFields: []twbmeta.CalculatedField{
					{
						Field:                twbmeta.Field{Name: "Profit Ratio"},
						ReferencedFields:     []string{"Profit", "Sales"},
						ReferencedParameters: []string{"Growth Rate"},
					},
				},
			},
		},
		Sheets: []twbmeta.Sheet{
			{Name: "Sales by Region", AllFieldsUsed: []string{"Sales", "Region"}},
			{Name: "Trend", AllFieldsUsed: []string{"Sales"}},
			{Name: "Unplaced", AllFieldsUsed: []string{"Profit"}},
		},
		Dashboards: []twbmeta.Dashboard{
			{
				Name:       "Overview",
				Worksheets: []string{"Sales by Region", "Trend"},
				Actions: []twbmeta.DashboardAction{
					{
						Name:             "Filter by Region",
						ActionType:       "filter",
						SourceWorksheets: []string{"Sales by Region"},
						TargetWorksheets: []string{"Trend"},
					},
				},
			},
		},
		Parameters: []twbmeta.Parameter{
			{Name: "Growth Rate"},
		},
	}
}

func edgesOfType(edges []twbmeta.Relationship, relType string) []twbmeta.Relationship {
	var out []twbmeta.Relationship
	for _, e := range edges {
		if e.Type == relType {
			out = append(out, e)
		}
	}
	return out
}

func TestBuild_FieldToSheet(t *testing.T) {
	edges := edgesOfType(Build(sampleModel()), twbmeta.RelFieldToSheet)

	require.Len(t, edges, 4)
	assert.Equal(t, "Sales", edges[0].SourceName)
	assert.Equal(t, "Sales by Region", edges[0].TargetName)
	assert.Equal(t, "Sales", edges[1].SourceName)
	assert.Equal(t, "Trend", edges[1].TargetName)
	assert.Equal(t, "Region", edges[2].SourceName)
	assert.Equal(t, "Profit", edges[3].SourceName)
}

func TestBuild_CalcToField(t *testing.T) {
	edges := edgesOfType(Build(sampleModel()), twbmeta.RelCalcToField)

	require.Len(t, edges, 2)
	assert.Equal(t, "Profit Ratio", edges[0].SourceName)
	assert.Equal(t, "Profit", edges[0].TargetName)
	assert.Equal(t, "Sales", edges[1].TargetName)
}

func TestBuild_SheetToDashboard(t *testing.T) {
	edges := edgesOfType(Build(sampleModel()), twbmeta.RelSheetToDashboard)

	// The unplaced worksheet yields no containment edge.
	require.Len(t, edges, 2)
	assert.Equal(t, "Sales by Region", edges[0].SourceName)
	assert.Equal(t, "Overview", edges[0].TargetName)
	assert.Equal(t, "Trend", edges[1].SourceName)
}

func TestBuild_ActionEdgesCarryDetails(t *testing.T) {
	edges := edgesOfType(Build(sampleModel()), twbmeta.RelAction)

	require.Len(t, edges, 1)
	assert.Equal(t, "Sales by Region", edges[0].SourceName)
	assert.Equal(t, "Trend", edges[0].TargetName)
	assert.Equal(t, "Filter by Region", edges[0].Details["action_name"])
	assert.Equal(t, "filter", edges[0].Details["action_type"])
	assert.Equal(t, "Overview", edges[0].Details["dashboard"])
}

func TestBuild_ParameterEdges(t *testing.T) {
	edges := edgesOfType(Build(sampleModel()), twbmeta.RelParameter)

	require.Len(t, edges, 1)
	assert.Equal(t, "Growth Rate", edges[0].SourceName)
	assert.Equal(t, "Profit Ratio", edges[0].TargetName)
}

func TestBuild_NoDuplicateTriples(t *testing.T) {
	m := sampleModel()
	// Same worksheet listed twice in the dashboard must not double edges.
	m.Dashboards[0].Worksheets = append(m.Dashboards[0].Worksheets, "Trend")

	edges := Build(m)

	seen := map[[3]string]bool{}
	for _, e := range edges {
		key := [3]string{e.Type, e.SourceName, e.TargetName}
		assert.False(t, seen[key], "duplicate edge %v", key)
		seen[key] = true
	}
}

func TestBuild_RuleOrder(t *testing.T) {
	edges := Build(sampleModel())

	order := map[string]int{
		twbmeta.RelFieldToSheet:     0,
		twbmeta.RelCalcToField:      1,
		twbmeta.RelSheetToDashboard: 2,
		twbmeta.RelAction:           3,
		twbmeta.RelParameter:        4,
	}
	last := -1
	for _, e := range edges {
		rank := order[e.Type]
		assert.GreaterOrEqual(t, rank, last, "edge %v out of rule order", e)
		if rank > last {
			last = rank
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	first := Build(sampleModel())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Build(sampleModel()))
	}
}
