package parser

import (
	"strconv"

	"github.com/twbmeta/twbmeta/internal/xmltree"
	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

const (
	defaultDashboardWidth  = 1000
	defaultDashboardHeight = 800
)

func (p *Parser) parseDashboard(node *xmltree.Node) (twbmeta.Dashboard, bool) {
	name := node.Attr("name")
	if name == "" {
		p.warnf("Skipped dashboard without name")
		return twbmeta.Dashboard{}, false
	}

	d := twbmeta.Dashboard{
		Name:       name,
		Title:      node.Attr("title"),
		Width:      defaultDashboardWidth,
		Height:     defaultDashboardHeight,
		LayoutType: "tiled",
	}

	if size := node.Find("size"); size != nil {
		if w, err := strconv.Atoi(size.Attr("maxwidth")); err == nil && w > 0 {
			d.Width = w
		}
		if h, err := strconv.Atoi(size.Attr("maxheight")); err == nil && h > 0 {
			d.Height = h
		}
	}

	floating, tiled := 0, 0
	for _, znode := range node.FindAll("zone") {
		zone := parseZone(znode)
		d.Zones = append(d.Zones, zone)

		if zone.IsFloating {
			floating++
		} else {
			tiled++
		}

		switch zone.ZoneType {
		case "worksheet":
			d.Worksheets = append(d.Worksheets, zone.WorksheetName)
		case "filter":
			if zone.Name != "" {
				d.ExposedFilters = append(d.ExposedFilters, zone.Name)
			}
		case "parameter":
			if zone.Name != "" {
				d.ExposedParameters = append(d.ExposedParameters, zone.Name)
			}
		}
	}

	if floating > 0 {
		if tiled == 0 {
			d.LayoutType = "floating"
		} else {
			d.LayoutType = "mixed"
		}
	}

	for _, anode := range node.FindAll("action") {
		d.Actions = append(d.Actions, parseAction(anode))
	}

	return d, true
}

func parseZone(node *xmltree.Node) twbmeta.DashboardZone {
	name := node.Attr("name")
	rawType := node.Attr("type")

	zone := twbmeta.DashboardZone{
		Name:       name,
		X:          parseCoord(node.Attr("x"), 0),
		Y:          parseCoord(node.Attr("y"), 0),
		Width:      parseCoord(node.Attr("w"), 100),
		Height:     parseCoord(node.Attr("h"), 100),
		IsFloating: node.Attr("floating") == "true",
	}

	switch rawType {
	case "text", "web", "image":
		zone.ZoneType = rawType
	case "paramctrl":
		zone.ZoneType = "parameter"
	case "filter":
		zone.ZoneType = "filter"
	case "legend", "color":
		zone.ZoneType = "legend"
	case "horizontal", "vertical":
		zone.ZoneType = "container"
	default:
		// A typeless named zone embeds a worksheet.
		if name != "" {
			zone.ZoneType = "worksheet"
			zone.WorksheetName = name
		} else {
			zone.ZoneType = "blank"
		}
	}

	return zone
}

func parseCoord(s string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return fallback
}

func parseAction(node *xmltree.Node) twbmeta.DashboardAction {
	action := twbmeta.DashboardAction{
		Name:    node.Attr("name"),
		Trigger: node.Attr("trigger"),
	}
	if action.Trigger == "" {
		action.Trigger = "select"
	}

	switch node.Attr("type") {
	case "", "filter":
		action.ActionType = "filter"
	case "highlight":
		action.ActionType = "highlight"
	case "url", "web":
		action.ActionType = "url"
		action.URLTemplate = node.Attr("url")
	default:
		action.ActionType = node.Attr("type")
	}

	for _, src := range node.FindAll("source") {
		if ws := src.Attr("worksheet"); ws != "" {
			action.SourceWorksheets = append(action.SourceWorksheets, ws)
		}
	}
	for _, tgt := range node.FindAll("target") {
		if ws := tgt.Attr("worksheet"); ws != "" {
			action.TargetWorksheets = append(action.TargetWorksheets, ws)
		}
	}
	for _, fm := range node.FindAll("field-mapping") {
		if src := fm.Attr("source"); src != "" {
			action.SourceFields = append(action.SourceFields, CleanFieldName(src))
		}
		if tgt := fm.Attr("target"); tgt != "" {
			action.TargetFields = append(action.TargetFields, CleanFieldName(tgt))
		}
	}

	return action
}
