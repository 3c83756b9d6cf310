package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

const sampleDocument = `<?xml version='1.0' encoding='utf-8' ?>
<workbook version='18.1'>
  <datasources>
    <datasource name='Parameters'>
      <column name='[Growth Rate]' datatype='real'>
        <calculation formula='0.05'/>
      </column>
    </datasource>
    <datasource name='federated.0abc' caption='Superstore'>
      <connection class='postgres' server='db.example.com' dbname='sales'/>
      <column name='[Sales]' datatype='real' role='measure' aggregation='sum'/>
      <column name='[Profit]' datatype='real' role='measure' aggregation='sum'/>
      <column name='[Customer ID]' datatype='string' role='dimension'/>
      <column name='[Calculation_1]' caption='Sales per Customer' datatype='real' role='measure'>
        <calculation formula='{FIXED [Customer ID] : SUM([federated.0abc].[Sales])}'/>
      </column>
      <column name='[Calculation_2]' caption='Adjusted Sales' datatype='real' role='measure'>
        <calculation formula='[Sales] * [Parameters].[Growth Rate]'/>
      </column>
    </datasource>
  </datasources>
  <worksheets>
    <worksheet name='Customer Value'>
      <table>
        <panes><pane><mark class='Bar'/></pane></panes>
        <rows>[federated.0abc].[sum:Sales:qk]</rows>
        <cols>[federated.0abc].[none:Customer ID:nk]</cols>
      </table>
    </worksheet>
  </worksheets>
  <dashboards>
    <dashboard name='Overview'>
      <zones>
        <zone name='Customer Value' x='0' y='0' w='100000' h='100000'/>
      </zones>
    </dashboard>
  </dashboards>
</workbook>`

func writeDocument(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.twb")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExtract_FullPipeline(t *testing.T) {
	m, err := Extract(writeDocument(t, sampleDocument), Options{})
	require.NoError(t, err)

	assert.Equal(t, "sample", m.Name)
	assert.Equal(t, "18.1", m.Version)
	assert.NotEqual(t, "", m.ExtractionID.String())
	assert.False(t, m.ExtractionTimestamp.IsZero())

	assert.Equal(t, 1, m.TotalSheets)
	assert.Equal(t, 1, m.TotalDashboards)
	assert.Equal(t, 3, m.TotalFields)
	assert.Equal(t, 2, m.TotalCalculatedFields)
	assert.Equal(t, 1, m.TotalParameters)
}

func TestExtract_FormulaAnalysisAttached(t *testing.T) {
	m, err := Extract(writeDocument(t, sampleDocument), Options{})
	require.NoError(t, err)

	require.Len(t, m.Datasources, 1)
	calcs := m.Datasources[0].CalculatedFields
	require.Len(t, calcs, 2)

	lod := calcs[0]
	assert.Equal(t, twbmeta.CalcLODFixed, lod.CalculationType)
	assert.Equal(t, []string{"Customer ID"}, lod.LODDimensions)
	assert.Equal(t, []string{"SUM"}, lod.AggregationsUsed)
	assert.Equal(t, 40, lod.ComplexityScore)
	// Field references come out cleaned of datasource qualifiers.
	assert.Equal(t, []string{"Customer ID", "Sales"}, lod.ReferencedFields)
	assert.Equal(t, "{FIXED [Customer ID] : SUM([Sales])}", lod.FormulaReadable)

	param := calcs[1]
	assert.Equal(t, []string{"Growth Rate"}, param.ReferencedParameters)
	assert.Equal(t, []string{"Sales"}, param.ReferencedFields)
}

func TestExtract_RelationshipsAndMetricRows(t *testing.T) {
	m, err := Extract(writeDocument(t, sampleDocument), Options{})
	require.NoError(t, err)

	var sheetToDash, paramEdges int
	for _, rel := range m.Relationships {
		switch rel.Type {
		case twbmeta.RelSheetToDashboard:
			sheetToDash++
			assert.Equal(t, "Customer Value", rel.SourceName)
			assert.Equal(t, "Overview", rel.TargetName)
		case twbmeta.RelParameter:
			paramEdges++
			assert.Equal(t, "Growth Rate", rel.SourceName)
			// Edge endpoints carry internal names; captions appear only
			// in descriptions.
			assert.Equal(t, "Calculation_2", rel.TargetName)
			assert.Contains(t, rel.Description, "Adjusted Sales")
		}
	}
	assert.Equal(t, 1, sheetToDash)
	assert.Equal(t, 1, paramEdges)

	require.Len(t, m.MetricRows, 2)
	assert.Equal(t, "Sales", m.MetricRows[0].MetricName)
	assert.Equal(t, twbmeta.MetricTypeMeasure, m.MetricRows[0].MetricType)
	assert.Equal(t, []string{"Overview"}, m.MetricRows[0].DashboardsContainingWorksheet)
	assert.Equal(t, "Customer ID", m.MetricRows[1].MetricName)
	assert.Equal(t, twbmeta.MetricTypeDimension, m.MetricRows[1].MetricType)
}

func TestExtract_MalformedDocument(t *testing.T) {
	path := writeDocument(t, `<workbook><unclosed>`)

	_, err := Extract(path, Options{})

	var parseErr *twbmeta.StructuralParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, path, parseErr.Path)
}

func TestExtract_WrongRootElement(t *testing.T) {
	_, err := Extract(writeDocument(t, `<spreadsheet version='1'/>`), Options{})

	var parseErr *twbmeta.StructuralParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "spreadsheet", parseErr.Element)
}

func TestExtract_Reproducible(t *testing.T) {
	path := writeDocument(t, sampleDocument)

	first, err := Extract(path, Options{})
	require.NoError(t, err)
	second, err := Extract(path, Options{})
	require.NoError(t, err)

	// Run identity differs; everything derived from the document must not.
	second.ExtractionID = first.ExtractionID
	second.ExtractionTimestamp = first.ExtractionTimestamp
	assert.Equal(t, first, second)
}
