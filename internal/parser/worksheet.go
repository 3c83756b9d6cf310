package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/twbmeta/twbmeta/internal/xmltree"
	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

// shelfEntryRegex matches one shelf entry: an optional datasource qualifier
// followed by the field token, e.g. [federated.abc].[sum:Sales:qk].
var shelfEntryRegex = regexp.MustCompile(`(?:\[[^\]]+\]\.)?\[[^\]]+\]`)

// aggWrapperRegex matches an explicit aggregation wrapper like SUM([Sales]).
var aggWrapperRegex = regexp.MustCompile(`(?i)^([A-Z]+)\(([^)]+)\)$`)

func (p *Parser) parseWorksheet(node *xmltree.Node) (twbmeta.Sheet, bool) {
	name := node.Attr("name")
	if name == "" {
		p.warnf("Skipped worksheet without name")
		return twbmeta.Sheet{}, false
	}

	sheet := twbmeta.Sheet{
		Name:  name,
		Title: node.Attr("title"),
	}

	if deps := node.Find("datasource-dependencies"); deps != nil {
		sheet.DatasourceName = deps.Attr("datasource")
	}

	sheet.Visual = p.parseVisual(node)

	for _, fnode := range node.FindAll("filter") {
		if fnode.Attr("column") == "" {
			continue
		}
		filter := Interpret(fnode)
		sheet.Filters = append(sheet.Filters, filter)
		if fnode.Attr("quick-filter") == "true" {
			sheet.QuickFilters = append(sheet.QuickFilters, filter.Field)
		}
	}

	for _, snode := range node.FindAll("sort") {
		sort := twbmeta.SortField{
			Field:     CleanFieldName(snode.Attr("column")),
			Direction: snode.Attr("direction"),
			SortType:  snode.Attr("type"),
		}
		if sort.Direction == "" {
			sort.Direction = "ascending"
		}
		if sort.SortType == "" {
			sort.SortType = "alphabetic"
		}
		sheet.SortFields = append(sheet.SortFields, sort)
	}

	sheet.AllFieldsUsed = collectFieldsUsed(sheet)

	return sheet, true
}

// collectFieldsUsed gathers every field name the sheet touches across
// shelves, encodings, and filters, deduplicated in first-use order.
func collectFieldsUsed(sheet twbmeta.Sheet) []string {
	var fields []string
	seen := map[string]bool{}

	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			fields = append(fields, name)
		}
	}
	addEntries := func(entries []twbmeta.ShelfEntry) {
		for _, e := range entries {
			add(e.Field)
		}
	}

	if v := sheet.Visual; v != nil {
		addEntries(v.Rows)
		addEntries(v.Columns)
		for _, single := range []*twbmeta.ShelfEntry{v.Color, v.Size, v.Shape} {
			if single != nil {
				add(single.Field)
			}
		}
		addEntries(v.Label)
		addEntries(v.Detail)
		addEntries(v.Tooltip)
	}
	for _, f := range sheet.Filters {
		add(f.Field)
	}

	return fields
}

func (p *Parser) parseVisual(node *xmltree.Node) *twbmeta.VisualConfig {
	table := node.Find("table")
	if table == nil {
		return nil
	}

	v := &twbmeta.VisualConfig{
		ChartType: twbmeta.MarkAutomatic,
	}

	panes := table.Find("panes")
	if panes != nil {
		if mark := panes.Find("mark"); mark != nil {
			v.ChartType = markType(mark.Attr("class"))
		}
		v.IsDualAxis = len(panes.ChildrenNamed("pane")) > 1
	}

	v.Rows = parseShelf(node, "rows")
	v.Columns = parseShelf(node, "cols")

	v.ChartTypeDetail, v.ChartTypeInferred = inferChartType(v.ChartType, v.Rows)

	v.Color = parseEncoding(node, "color")
	v.Size = parseEncoding(node, "size")
	v.Shape = parseEncoding(node, "shape")
	v.Label = parseEncodingList(node, "text", "label")
	v.Detail = parseEncodingList(node, "lod", "detail")
	v.Tooltip = parseEncodingList(node, "tooltip", "tooltip")

	v.XAxis = parseAxis(node, "x")
	v.YAxis = parseAxis(node, "y")

	v.HasReferenceLines = node.Find("reference-line") != nil
	v.HasTrendLines = node.Find("trend-line") != nil

	return v
}

// parseShelf decomposes the shelf's text into ordered entries, extracting
// the aggregation applied in this shelf context. Aggregation appears either
// as a wrapper (SUM([Sales])) or in shelf notation (sum:Sales:qk).
func parseShelf(node *xmltree.Node, shelfName string) []twbmeta.ShelfEntry {
	shelf := node.Find(shelfName)
	if shelf == nil || shelf.Text == "" {
		return nil
	}

	var entries []twbmeta.ShelfEntry
	for _, raw := range shelfEntryRegex.FindAllString(shelf.Text, -1) {
		token := raw
		if idx := strings.LastIndex(token, "].["); idx >= 0 {
			token = token[idx+2:]
		}
		token = strings.Trim(token, "[]")

		agg := twbmeta.AggNone
		if m := aggWrapperRegex.FindStringSubmatch(token); m != nil {
			if a, ok := aggregations[strings.ToLower(m[1])]; ok {
				agg = a
				token = strings.Trim(m[2], "[]")
			}
		}
		if agg == twbmeta.AggNone && strings.Contains(token, ":") {
			if a, ok := aggregations[strings.ToLower(strings.SplitN(token, ":", 2)[0])]; ok {
				agg = a
			}
		}

		entries = append(entries, twbmeta.ShelfEntry{
			Field:       CleanFieldName(token),
			Shelf:       shelfName,
			Aggregation: agg,
			Original:    raw,
		})
	}

	return entries
}

func parseEncoding(node *xmltree.Node, attr string) *twbmeta.ShelfEntry {
	entries := parseEncodingList(node, attr, attr)
	if len(entries) == 0 {
		return nil
	}
	return &entries[0]
}

func parseEncodingList(node *xmltree.Node, attr, shelf string) []twbmeta.ShelfEntry {
	var entries []twbmeta.ShelfEntry

	for _, enc := range node.FindAll("encoding") {
		if enc.Attr("attr") != attr {
			continue
		}
		column := enc.Attr("column")
		if column == "" {
			continue
		}
		entries = append(entries, twbmeta.ShelfEntry{
			Field:       CleanFieldName(column),
			Shelf:       shelf,
			Aggregation: twbmeta.AggNone,
			Original:    column,
		})
	}

	return entries
}

func parseAxis(node *xmltree.Node, axisType string) *twbmeta.Axis {
	axis := &twbmeta.Axis{
		AxisType:    axisType,
		RangeAuto:   true,
		IncludeZero: true,
	}

	found := false
	for _, ruler := range node.FindAll("ruler") {
		scope := ruler.Attr("scope")
		if scope != axisType && scope != axisType+"-axis" {
			continue
		}
		found = true
		if min, err := strconv.ParseFloat(ruler.Attr("min"), 64); err == nil {
			axis.RangeMin = &min
		}
		if max, err := strconv.ParseFloat(ruler.Attr("max"), 64); err == nil {
			axis.RangeMax = &max
		}
		axis.IncludeZero = ruler.Attr("include-zero") != "false"
	}
	if !found {
		return nil
	}

	axis.RangeAuto = axis.RangeMin == nil && axis.RangeMax == nil
	return axis
}

// inferChartType refines the declared mark class using shelf composition.
// The second return reports whether the detail came from a heuristic rather
// than directly from the mark class.
func inferChartType(mark twbmeta.MarkType, rows []twbmeta.ShelfEntry) (string, bool) {
	switch mark {
	case twbmeta.MarkBar:
		for _, r := range rows {
			if r.Aggregation != twbmeta.AggNone {
				return "horizontal_bar", true
			}
		}
		return "vertical_bar", true
	case twbmeta.MarkLine:
		return "line_chart", true
	case twbmeta.MarkArea:
		return "area_chart", true
	case twbmeta.MarkCircle:
		return "scatter_plot", true
	case twbmeta.MarkMap:
		return "map", true
	case twbmeta.MarkText:
		return "text_table", true
	case twbmeta.MarkPie:
		return "pie_chart", true
	}
	return string(mark), false
}

var markTypes = map[string]twbmeta.MarkType{
	"bar":       twbmeta.MarkBar,
	"line":      twbmeta.MarkLine,
	"area":      twbmeta.MarkArea,
	"square":    twbmeta.MarkSquare,
	"circle":    twbmeta.MarkCircle,
	"shape":     twbmeta.MarkShape,
	"text":      twbmeta.MarkText,
	"map":       twbmeta.MarkMap,
	"pie":       twbmeta.MarkPie,
	"ganttbar":  twbmeta.MarkGantt,
	"polygon":   twbmeta.MarkPolygon,
	"automatic": twbmeta.MarkAutomatic,
	"heatmap":   twbmeta.MarkHeatmap,
	"density":   twbmeta.MarkDensity,
}

func markType(class string) twbmeta.MarkType {
	if m, ok := markTypes[strings.ToLower(class)]; ok {
		return m
	}
	return twbmeta.MarkAutomatic
}
