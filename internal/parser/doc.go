// Package parser walks a parsed workbook document tree into the typed
// entity model: datasources with their field definitions, worksheets with
// shelf and encoding placement, dashboards with zones and actions, and
// workbook parameters.
//
// The parser is structural only. Calculation formulas are carried through
// as raw text for the formula analyzer, and relationship derivation happens
// downstream; filter nodes are interpreted here because interpretation is a
// pure function of the node.
//
// # Degradation
//
// A missing root or unrecognized document shape is fatal. Everything below
// that degrades: an entity missing its required identity attribute is
// skipped and recorded as a warning, unknown attributes and elements are
// ignored, and missing optional attributes default to empty values. Output
// entity order always equals document order.
package parser
