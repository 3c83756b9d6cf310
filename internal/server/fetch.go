package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

const queryWorkbook = `
query GetWorkbook($name: String!) {
  workbooks(filter: {name: $name}) {
    luid
    name
    projectName
  }
}`

const querySheets = `
query GetSheets($workbookLuid: String!) {
  sheets(filter: {workbook: {luid: $workbookLuid}}) {
    name
    containedInDashboards { name }
    sheetFieldInstances {
      name
      datasourceField { name }
    }
  }
}`

const queryDatasources = `
query GetDatasources($workbookLuid: String!) {
  embeddedDatasources(filter: {workbook: {luid: $workbookLuid}}) {
    name
    hasExtracts
    fields {
      name
      dataType
      role
      isCalculated
      formula
      aggregation
      isHidden
    }
  }
}`

const queryDashboards = `
query GetDashboards($workbookLuid: String!) {
  dashboards(filter: {workbook: {luid: $workbookLuid}}) {
    name
    containsSheets { name }
  }
}`

type remoteField struct {
	Name         string `json:"name"`
	DataType     string `json:"dataType"`
	Role         string `json:"role"`
	IsCalculated bool   `json:"isCalculated"`
	Formula      string `json:"formula"`
	Aggregation  string `json:"aggregation"`
	IsHidden     bool   `json:"isHidden"`
}

type remoteDatasource struct {
	Name        string        `json:"name"`
	HasExtracts bool          `json:"hasExtracts"`
	Fields      []remoteField `json:"fields"`
}

type remoteSheet struct {
	Name                  string        `json:"name"`
	ContainedInDashboards []remoteNamed `json:"containedInDashboards"`
	SheetFieldInstances   []remoteNamed `json:"sheetFieldInstances"`
}

type remoteNamed struct {
	Name string `json:"name"`
}

type remoteDashboard struct {
	Name           string        `json:"name"`
	ContainsSheets []remoteNamed `json:"containsSheets"`
}

// FetchWorkbook queries the service for one workbook by name and assembles
// the remote inventory into the shared model shape. Version, filters, and
// visual configuration are not available remotely and stay empty.
func (c *Client) FetchWorkbook(ctx context.Context, name string) (*twbmeta.WorkbookMetadata, error) {
	var wbData struct {
		Workbooks []struct {
			LUID string `json:"luid"`
			Name string `json:"name"`
		} `json:"workbooks"`
	}
	if err := c.graphql(ctx, queryWorkbook, map[string]interface{}{"name": name}, &wbData); err != nil {
		return nil, err
	}
	if len(wbData.Workbooks) == 0 {
		return nil, fmt.Errorf("workbook %q not found on the server", name)
	}
	wb := wbData.Workbooks[0]
	c.log.Verbose("Found workbook %s (luid %s)", wb.Name, wb.LUID)

	vars := map[string]interface{}{"workbookLuid": wb.LUID}

	var dsData struct {
		EmbeddedDatasources []remoteDatasource `json:"embeddedDatasources"`
	}
	if err := c.graphql(ctx, queryDatasources, vars, &dsData); err != nil {
		return nil, err
	}

	var sheetData struct {
		Sheets []remoteSheet `json:"sheets"`
	}
	if err := c.graphql(ctx, querySheets, vars, &sheetData); err != nil {
		return nil, err
	}

	var dashData struct {
		Dashboards []remoteDashboard `json:"dashboards"`
	}
	if err := c.graphql(ctx, queryDashboards, vars, &dashData); err != nil {
		return nil, err
	}

	m := &twbmeta.WorkbookMetadata{Name: wb.Name}
	for _, ds := range dsData.EmbeddedDatasources {
		m.Datasources = append(m.Datasources, buildDatasource(ds))
	}
	for _, sheet := range sheetData.Sheets {
		m.Sheets = append(m.Sheets, buildSheet(sheet))
	}
	for _, dash := range dashData.Dashboards {
		d := twbmeta.Dashboard{Name: dash.Name}
		for _, s := range dash.ContainsSheets {
			d.Worksheets = append(d.Worksheets, s.Name)
		}
		m.Dashboards = append(m.Dashboards, d)
	}
	m.ComputeTotals()
	return m, nil
}

func buildDatasource(ds remoteDatasource) twbmeta.Datasource {
	out := twbmeta.Datasource{
		Name:       ds.Name,
		HasExtract: ds.HasExtracts,
	}
	for _, f := range ds.Fields {
		base := twbmeta.Field{
			Name:               f.Name,
			DataType:           mapDataType(f.DataType),
			Role:               mapRole(f.Role),
			DefaultAggregation: mapAggregation(f.Aggregation),
			IsHidden:           f.IsHidden,
		}
		if f.IsCalculated {
			out.CalculatedFields = append(out.CalculatedFields, twbmeta.CalculatedField{
				Field:   base,
				Formula: f.Formula,
			})
			continue
		}
		out.Fields = append(out.Fields, base)
	}
	return out
}

func buildSheet(sheet remoteSheet) twbmeta.Sheet {
	out := twbmeta.Sheet{Name: sheet.Name}
	seen := map[string]bool{}
	for _, inst := range sheet.SheetFieldInstances {
		if inst.Name == "" || seen[inst.Name] {
			continue
		}
		seen[inst.Name] = true
		out.AllFieldsUsed = append(out.AllFieldsUsed, inst.Name)
	}
	return out
}

func mapDataType(apiType string) twbmeta.DataType {
	switch strings.ToUpper(apiType) {
	case "STRING":
		return twbmeta.DataTypeString
	case "INTEGER":
		return twbmeta.DataTypeInteger
	case "REAL":
		return twbmeta.DataTypeReal
	case "BOOLEAN":
		return twbmeta.DataTypeBoolean
	case "DATE":
		return twbmeta.DataTypeDate
	case "DATETIME":
		return twbmeta.DataTypeDateTime
	default:
		return twbmeta.DataTypeUnknown
	}
}

func mapRole(apiRole string) twbmeta.FieldRole {
	if strings.EqualFold(apiRole, "MEASURE") {
		return twbmeta.RoleMeasure
	}
	return twbmeta.RoleDimension
}

func mapAggregation(apiAgg string) twbmeta.AggregationType {
	switch strings.ToUpper(apiAgg) {
	case "SUM":
		return twbmeta.AggSum
	case "AVG", "AVERAGE":
		return twbmeta.AggAvg
	case "MIN":
		return twbmeta.AggMin
	case "MAX":
		return twbmeta.AggMax
	case "COUNT":
		return twbmeta.AggCount
	case "COUNTD":
		return twbmeta.AggCountD
	case "MEDIAN":
		return twbmeta.AggMedian
	case "ATTR":
		return twbmeta.AggAttr
	default:
		return twbmeta.AggNone
	}
}
