// Package graph derives the directed relationship edge list connecting
// fields, calculated fields, worksheets, dashboards, actions, and
// parameters.
//
// Edges reference entities by name only and never own them. The builder
// appends edges rule by rule in a fixed order, and within each rule in
// entity document order; deduplication is by (type, source, target). This
// ordering is a stability contract: report generation depends on the edge
// list being exactly reproducible across runs on the same input.
package graph

import (
	"fmt"

	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

// builder accumulates edges with (type, source, target) deduplication.
type builder struct {
	edges []twbmeta.Relationship
	seen  map[[3]string]bool
}

func (b *builder) add(rel twbmeta.Relationship) {
	key := [3]string{rel.Type, rel.SourceName, rel.TargetName}
	if b.seen[key] {
		return
	}
	b.seen[key] = true
	b.edges = append(b.edges, rel)
}

// Build derives all relationship edges from the completed entity set. Only
// entities that survived parsing are linked; fields skipped upstream can
// never appear as edge endpoints because derivation walks the final model.
func Build(m *twbmeta.WorkbookMetadata) []twbmeta.Relationship {
	b := &builder{seen: map[[3]string]bool{}}

	fieldToSheets := indexFieldUsage(m.Sheets)
	sheetToDashboards := IndexSheetDashboards(m.Dashboards)

	// Rule 1: stored fields used by worksheets.
	for _, ds := range m.Datasources {
		for _, field := range ds.Fields {
			for _, sheetName := range fieldToSheets[field.Name] {
				b.add(twbmeta.Relationship{
					Type:        twbmeta.RelFieldToSheet,
					SourceType:  "field",
					SourceName:  field.Name,
					TargetType:  "sheet",
					TargetName:  sheetName,
					Description: fmt.Sprintf("Field '%s' is used in sheet '%s'", field.DisplayName(), sheetName),
				})
			}
		}
	}

	// Rule 2: calculated field dependencies.
	for _, ds := range m.Datasources {
		for _, calc := range ds.CalculatedFields {
			for _, ref := range calc.ReferencedFields {
				b.add(twbmeta.Relationship{
					Type:        twbmeta.RelCalcToField,
					SourceType:  "calculated_field",
					SourceName:  calc.Name,
					TargetType:  "field",
					TargetName:  ref,
					Description: fmt.Sprintf("Calculated field '%s' references '%s'", calc.DisplayName(), ref),
				})
			}
		}
	}

	// Rule 3: worksheets embedded in dashboards.
	for _, sheet := range m.Sheets {
		for _, dashName := range sheetToDashboards[sheet.Name] {
			b.add(twbmeta.Relationship{
				Type:        twbmeta.RelSheetToDashboard,
				SourceType:  "sheet",
				SourceName:  sheet.Name,
				TargetType:  "dashboard",
				TargetName:  dashName,
				Description: fmt.Sprintf("Sheet '%s' is embedded in dashboard '%s'", sheet.Name, dashName),
			})
		}
	}

	// Rule 4: dashboard actions, one edge per source/target pair.
	for _, dash := range m.Dashboards {
		for _, action := range dash.Actions {
			for _, src := range action.SourceWorksheets {
				for _, tgt := range action.TargetWorksheets {
					b.add(twbmeta.Relationship{
						Type:       twbmeta.RelAction,
						SourceType: "sheet",
						SourceName: src,
						TargetType: "sheet",
						TargetName: tgt,
						Details: map[string]string{
							"action_name": action.Name,
							"action_type": action.ActionType,
							"dashboard":   dash.Name,
						},
						Description: fmt.Sprintf("%s action '%s' links '%s' to '%s'", action.ActionType, action.Name, src, tgt),
					})
				}
			}
		}
	}

	// Rule 5: parameters feeding calculated fields.
	for _, param := range m.Parameters {
		for _, ds := range m.Datasources {
			for _, calc := range ds.CalculatedFields {
				if !references(calc.ReferencedParameters, param.Name) {
					continue
				}
				b.add(twbmeta.Relationship{
					Type:        twbmeta.RelParameter,
					SourceType:  "parameter",
					SourceName:  param.Name,
					TargetType:  "calculated_field",
					TargetName:  calc.Name,
					Description: fmt.Sprintf("Parameter '%s' is used in calculated field '%s'", param.DisplayName(), calc.DisplayName()),
				})
			}
		}
	}

	return b.edges
}

// indexFieldUsage maps each field name to the worksheets using it, in sheet
// document order.
func indexFieldUsage(sheets []twbmeta.Sheet) map[string][]string {
	index := map[string][]string{}
	for _, sheet := range sheets {
		for _, field := range sheet.AllFieldsUsed {
			index[field] = append(index[field], sheet.Name)
		}
	}
	return index
}

// IndexSheetDashboards maps each worksheet name to the dashboards containing
// it, in dashboard document order. Shared with the metric flattener, which
// embeds the same containment answer per row.
func IndexSheetDashboards(dashboards []twbmeta.Dashboard) map[string][]string {
	index := map[string][]string{}
	for _, dash := range dashboards {
		for _, ws := range dash.Worksheets {
			if !references(index[ws], dash.Name) {
				index[ws] = append(index[ws], dash.Name)
			}
		}
	}
	return index
}

func references(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}
