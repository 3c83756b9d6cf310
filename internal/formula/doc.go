// Package formula performs best-effort lexical analysis of calculation
// formulas written in the workbook expression mini-language.
//
// # Overview
//
// The expression language has no published grammar, and the goal here is
// dependency extraction and coarse classification, not evaluation. Analyze
// therefore runs a minimal bracket/brace/quote-aware scanner over the raw
// text instead of building a syntax tree:
//   - classification: simple, aggregate, lod_fixed/include/exclude,
//     table_calc, or unknown
//   - LOD decomposition: dimension list and inner expression
//   - token inventories: functions, aggregations, referenced fields,
//     referenced parameters
//   - a 0-100 complexity score
//
// Quote awareness matters: string literals may contain '[', ']', '{' or '}'
// and must never corrupt dependency extraction.
//
// # Degradation
//
// Malformed input never fails analysis. Unbalanced brackets or braces
// degrade the classification to unknown while keeping whatever token sets
// the scanner could salvage.
//
// Analyze is a pure function with no I/O and no shared state; independent
// formulas may be analyzed concurrently without coordination.
package formula
