package formula

import (
	"strings"
	"unicode"

	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

// Aggregation function names recognized for classification.
var aggregateFunctions = map[string]bool{
	"SUM": true, "AVG": true, "MIN": true, "MAX": true,
	"COUNT": true, "COUNTD": true, "MEDIAN": true,
	"STDEV": true, "STDEVP": true, "VAR": true, "VARP": true,
	"CORR": true, "COVAR": true, "COVARP": true,
	"ATTR": true, "COLLECT": true, "PERCENTILE": true,
}

// Table calculation function names recognized for classification.
var tableCalcFunctions = map[string]bool{
	"RUNNING_SUM": true, "RUNNING_AVG": true, "RUNNING_COUNT": true,
	"RUNNING_MIN": true, "RUNNING_MAX": true,
	"WINDOW_SUM": true, "WINDOW_AVG": true, "WINDOW_COUNT": true,
	"WINDOW_MIN": true, "WINDOW_MAX": true, "WINDOW_MEDIAN": true,
	"WINDOW_STDEV": true, "WINDOW_STDEVP": true, "WINDOW_VAR": true, "WINDOW_VARP": true,
	"INDEX": true, "FIRST": true, "LAST": true, "SIZE": true,
	"LOOKUP": true, "PREVIOUS_VALUE": true,
	"RANK": true, "RANK_DENSE": true, "RANK_MODIFIED": true,
	"RANK_PERCENTILE": true, "RANK_UNIQUE": true,
	"TOTAL": true, "SCRIPT_BOOL": true, "SCRIPT_INT": true,
	"SCRIPT_REAL": true, "SCRIPT_STR": true,
}

// Complexity score weights. The score is clamped to [0, MaxComplexityScore].
const (
	scoreLOD         = 30
	scoreTableCalc   = 40
	scoreAggregation = 10
	scorePerBranch   = 5
	scoreBranchCap   = 20
	scoreDeepNesting = 15
	nestingThreshold = 2
)

// Analysis is the result of analyzing one formula.
type Analysis struct {
	CalculationType twbmeta.CalculationType

	LODType       string
	LODDimensions []string
	LODExpression string

	TableCalcType string

	FunctionsUsed        []string
	AggregationsUsed     []string
	ReferencedFields     []string
	ReferencedParameters []string

	ComplexityScore int
}

// Analyze classifies a raw formula and extracts its dependency inventories.
// It is deterministic, performs no I/O, and never fails: malformed input
// degrades to CalcUnknown with whatever tokens could be salvaged.
func Analyze(src string) Analysis {
	res := scan(src)

	a := Analysis{
		FunctionsUsed:        res.functions,
		ReferencedParameters: res.parameters,
	}

	// A token used both bare and via [Parameters].[X] counts as a
	// parameter, never a field.
	paramSet := map[string]bool{}
	for _, p := range res.parameters {
		paramSet[p] = true
	}
	for _, f := range res.fields {
		if !paramSet[f] {
			a.ReferencedFields = append(a.ReferencedFields, f)
		}
	}

	for _, fn := range res.functions {
		if aggregateFunctions[fn] {
			a.AggregationsUsed = append(a.AggregationsUsed, fn)
		}
		if a.TableCalcType == "" && tableCalcFunctions[fn] {
			a.TableCalcType = fn
		}
	}

	lod, lodOK := detectLOD(src)

	switch {
	case !res.balanced:
		a.CalculationType = twbmeta.CalcUnknown
	case lodOK:
		a.LODType = lod.kind
		a.LODDimensions = lod.dimensions
		a.LODExpression = lod.expression
		switch lod.kind {
		case "FIXED":
			a.CalculationType = twbmeta.CalcLODFixed
		case "INCLUDE":
			a.CalculationType = twbmeta.CalcLODInclude
		case "EXCLUDE":
			a.CalculationType = twbmeta.CalcLODExclude
		}
	case a.TableCalcType != "":
		a.CalculationType = twbmeta.CalcTableCalc
	case len(a.AggregationsUsed) > 0:
		a.CalculationType = twbmeta.CalcAggregate
	default:
		a.CalculationType = twbmeta.CalcSimple
	}

	// Complexity is scored on detection, independent of which
	// classification branch won.
	score := 0
	if lodOK {
		score += scoreLOD
	}
	if a.TableCalcType != "" {
		score += scoreTableCalc
	}
	if len(a.AggregationsUsed) > 0 {
		score += scoreAggregation
	}
	branches := res.condBranches * scorePerBranch
	if branches > scoreBranchCap {
		branches = scoreBranchCap
	}
	score += branches
	if res.maxDepth > nestingThreshold {
		score += scoreDeepNesting
	}
	if score > twbmeta.MaxComplexityScore {
		score = twbmeta.MaxComplexityScore
	}
	a.ComplexityScore = score

	return a
}

// lodMatch is a decomposed level-of-detail wrapper.
type lodMatch struct {
	kind       string // FIXED, INCLUDE, EXCLUDE
	dimensions []string
	expression string
}

// detectLOD looks for a brace-delimited block of the shape
//
//	{FIXED [Dim1], [Dim2] : <expression>}
//
// (equally INCLUDE/EXCLUDE) anywhere in the formula: a table-scoped block
// like {SUM([Sales])} before the wrapper does not mask it. A wrapper with an
// empty dimension list or an empty inner expression does not count as a LOD
// match; the caller's classification then falls through to the weaker
// patterns.
func detectLOD(src string) (lodMatch, bool) {
	runes := []rune(src)

	for open := scanTo(runes, 0, '{'); open >= 0; open = scanTo(runes, open+1, '{') {
		// Keyword directly after the brace.
		i := open + 1
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		j := i
		for j < len(runes) && isIdentPart(runes[j]) {
			j++
		}
		kind := strings.ToUpper(string(runes[i:j]))
		if kind != "FIXED" && kind != "INCLUDE" && kind != "EXCLUDE" {
			continue
		}

		colon := scanTo(runes, j, ':')
		if colon < 0 {
			continue
		}
		closing := matchBrace(runes, open)
		if closing < 0 || closing < colon {
			continue
		}

		dims := splitDimensions(string(runes[j:colon]))
		expr := strings.TrimSpace(string(runes[colon+1 : closing]))
		if len(dims) == 0 || expr == "" {
			continue
		}

		return lodMatch{kind: kind, dimensions: dims, expression: expr}, true
	}
	return lodMatch{}, false
}

// scanTo returns the index of the first occurrence of target at or after
// start, skipping string literals and bracket tokens. Returns -1 if absent.
func scanTo(runes []rune, start int, target rune) int {
	for i := start; i < len(runes); i++ {
		switch runes[i] {
		case target:
			return i
		case '\'', '"':
			quote := runes[i]
			i++
			for i < len(runes) && runes[i] != quote {
				i++
			}
			if i >= len(runes) {
				return -1
			}
		case '[':
			for i < len(runes) && runes[i] != ']' {
				i++
			}
			if i >= len(runes) {
				return -1
			}
		}
	}
	return -1
}

// matchBrace returns the index of the brace closing the one at open,
// quote- and bracket-aware. Returns -1 when unbalanced.
func matchBrace(runes []rune, open int) int {
	depth := 0
	for i := open; i < len(runes); i++ {
		switch runes[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		case '\'', '"':
			quote := runes[i]
			i++
			for i < len(runes) && runes[i] != quote {
				i++
			}
			if i >= len(runes) {
				return -1
			}
		case '[':
			for i < len(runes) && runes[i] != ']' {
				i++
			}
			if i >= len(runes) {
				return -1
			}
		}
	}
	return -1
}

// splitDimensions extracts the dimension tokens from the text between the
// LOD keyword and the colon. Bracketed tokens win; otherwise bare tokens
// are split on commas.
func splitDimensions(text string) []string {
	var dims []string
	seen := map[string]bool{}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '[' {
			continue
		}
		j := i + 1
		for j < len(runes) && runes[j] != ']' {
			j++
		}
		if j >= len(runes) {
			break
		}
		token := string(runes[i+1 : j])
		if token != "" && !seen[token] {
			seen[token] = true
			dims = append(dims, token)
		}
		i = j
	}
	if dims != nil {
		return dims
	}

	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part != "" && !seen[part] {
			seen[part] = true
			dims = append(dims, part)
		}
	}
	return dims
}
