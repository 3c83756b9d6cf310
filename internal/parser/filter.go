package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/twbmeta/twbmeta/internal/xmltree"
	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

// Interpret converts a raw filter node into its canonical descriptor.
//
// A node may ambiguously satisfy more than one weaker shape, so dispatch
// checks the structural patterns in fixed precedence: top-N, relative date,
// range, grouped membership, condition/formula, then unknown. Interpret is a
// pure function of the node and never fails; unrecognized shapes produce an
// unknown filter with the raw node text preserved.
func Interpret(node *xmltree.Node) twbmeta.Filter {
	f := twbmeta.Filter{
		Field:           CleanFieldName(node.Attr("column")),
		IsContextFilter: node.Attr("context-filter") == "true",
	}

	switch {
	case node.Find("top") != nil:
		f.Type = twbmeta.FilterTopN
		f.TopN = parseTopN(node.Find("top"))

	case node.Find("relative-date") != nil:
		f.Type = twbmeta.FilterRelativeDate
		f.RelativeDate = parseRelativeDate(node.Find("relative-date"))

	case node.Find("range") != nil:
		rng := node.Find("range")
		f.Type = twbmeta.FilterRange
		f.Range = &twbmeta.RangeFilter{
			Min: rng.Attr("min"),
			Max: rng.Attr("max"),
		}

	case node.Find("groupfilter") != nil:
		f.Type = twbmeta.FilterCategorical
		f.Categorical = parseCategorical(node.Find("groupfilter"))

	case node.Find("condition") != nil:
		f.Type = twbmeta.FilterCondition
		f.Condition = parseCondition(node.Find("condition"))

	case hasFormulaCalculation(node):
		f.Type = twbmeta.FilterFormula
		f.Condition = &twbmeta.ConditionFilter{
			Expression: node.Find("calculation").Attr("formula"),
		}

	default:
		f.Type = twbmeta.FilterUnknown
		f.RawExpression = node.String()
	}

	f.Explanation = explain(f)
	return f
}

func hasFormulaCalculation(node *xmltree.Node) bool {
	calc := node.Find("calculation")
	return calc != nil && calc.Attr("formula") != ""
}

func parseTopN(node *xmltree.Node) *twbmeta.TopNFilter {
	top := &twbmeta.TopNFilter{
		Direction: node.Attr("type"),
		ByField:   CleanFieldName(node.Attr("column")),
	}
	if top.Direction != "bottom" {
		top.Direction = "top"
	}
	if v, err := strconv.Atoi(node.Attr("value")); err == nil {
		top.Value = v
	}
	return top
}

func parseRelativeDate(node *xmltree.Node) *twbmeta.RelativeDateFilter {
	rel := &twbmeta.RelativeDateFilter{
		DateType: node.Attr("type"),
		Period:   node.Attr("period"),
	}
	if v, err := strconv.Atoi(node.Attr("value")); err == nil {
		rel.Value = v
	}
	return rel
}

// parseCategorical flattens the grouping tree into include/exclude value
// sets. Polarity follows the grouping function: union and bare member nodes
// include, an except wrapper excludes. Values keep document order with
// duplicates removed.
func parseCategorical(group *xmltree.Node) *twbmeta.CategoricalFilter {
	cat := &twbmeta.CategoricalFilter{IncludeNull: true}

	collect := func(root *xmltree.Node) []string {
		var values []string
		seen := map[string]bool{}
		add := func(n *xmltree.Node) {
			v := strings.Trim(n.Attr("member"), `'"`)
			if v != "" && !seen[v] {
				seen[v] = true
				values = append(values, v)
			}
		}
		if root.Attr("function") == "member" {
			add(root)
		}
		for _, m := range root.FindAll("groupfilter") {
			if m.Attr("function") == "member" {
				add(m)
			}
			if m.Attr("function") == "null" {
				cat.IncludeNull = true
			}
		}
		return values
	}

	switch group.Attr("function") {
	case "member", "union", "intersection":
		cat.IncludeValues = collect(group)
	case "except":
		cat.ExcludeValues = collect(group)
		for _, m := range group.FindAll("groupfilter") {
			if m.Attr("function") == "null" {
				cat.IncludeNull = false
			}
		}
	}

	return cat
}

func parseCondition(node *xmltree.Node) *twbmeta.ConditionFilter {
	cond := &twbmeta.ConditionFilter{
		Expression: node.Attr("formula"),
	}
	if calc := node.Find("calculation"); calc != nil {
		cond.Aggregation = calc.Attr("aggregation")
		cond.Comparison = calc.Attr("comparison")
		cond.Value = calc.Attr("value")
		if cond.Expression == "" {
			cond.Expression = calc.Attr("formula")
		}
	}
	return cond
}

// explain renders the natural-language description of the filter. The
// wording is a compatibility surface consumed by reports and the server
// comparison; change the templates only in lockstep with those consumers.
func explain(f twbmeta.Filter) string {
	switch f.Type {
	case twbmeta.FilterCategorical:
		switch {
		case len(f.Categorical.IncludeValues) > 0:
			return fmt.Sprintf("Show records where [%s] is one of: %s",
				f.Field, strings.Join(f.Categorical.IncludeValues, ", "))
		case len(f.Categorical.ExcludeValues) > 0:
			return fmt.Sprintf("Exclude records where [%s] is: %s",
				f.Field, strings.Join(f.Categorical.ExcludeValues, ", "))
		default:
			return fmt.Sprintf("Categorical filter on [%s]", f.Field)
		}

	case twbmeta.FilterRange:
		switch {
		case f.Range.Min != "" && f.Range.Max != "":
			return fmt.Sprintf("Show records where [%s] is between %s and %s",
				f.Field, f.Range.Min, f.Range.Max)
		case f.Range.Min != "":
			return fmt.Sprintf("Show records where [%s] >= %s", f.Field, f.Range.Min)
		case f.Range.Max != "":
			return fmt.Sprintf("Show records where [%s] <= %s", f.Field, f.Range.Max)
		default:
			return fmt.Sprintf("Range filter on [%s]", f.Field)
		}

	case twbmeta.FilterRelativeDate:
		switch f.RelativeDate.DateType {
		case "current":
			return fmt.Sprintf("Show records for the current %s", f.RelativeDate.Period)
		case "last", "next":
			return fmt.Sprintf("Show records from the %s %d %s",
				f.RelativeDate.DateType, f.RelativeDate.Value, f.RelativeDate.Period)
		default:
			return fmt.Sprintf("Relative date filter on [%s]", f.Field)
		}

	case twbmeta.FilterTopN:
		explanation := fmt.Sprintf("Show %s %d values of [%s]",
			f.TopN.Direction, f.TopN.Value, f.Field)
		if f.TopN.ByField != "" {
			explanation += " by " + f.TopN.ByField
		}
		return explanation

	case twbmeta.FilterCondition, twbmeta.FilterFormula:
		if f.Condition.Expression != "" {
			return "Show records where " + f.Condition.Expression
		}
		if f.Condition.Aggregation != "" && f.Condition.Comparison != "" {
			return fmt.Sprintf("Show records where %s([%s]) %s %s",
				f.Condition.Aggregation, f.Field, f.Condition.Comparison, f.Condition.Value)
		}
		return fmt.Sprintf("Condition filter on [%s]", f.Field)

	default:
		if f.RawExpression != "" {
			return "Show records where " + f.RawExpression
		}
		return fmt.Sprintf("Filter on [%s]", f.Field)
	}
}
