package parser

import (
	"regexp"
	"strings"
)

// shelfPrefixes are the role/aggregation markers that qualify a field name
// in shelf notation, e.g. "none:Category:nk" or "sum:Sales:qk".
var shelfPrefixes = map[string]bool{
	"none": true, "sum": true, "avg": true, "min": true, "max": true,
	"count": true, "countd": true, "attr": true, "usr": true,
	"calculation": true,
	"year": true, "month": true, "day": true, "week": true, "quarter": true,
}

// federatedPrefixRegex matches a datasource qualifier like [federated.xxx].
var federatedPrefixRegex = regexp.MustCompile(`\[federated\.[^\]]+\]\.`)

// bracketTokenRegex matches one bracket-delimited token.
var bracketTokenRegex = regexp.MustCompile(`\[([^\]]+)\]`)

// CleanFieldName converts an internal field reference to its human-readable
// name: multipart references like [ds].[field] keep the last part, federated
// datasource qualifiers are dropped, and shelf notation such as
// "none:Category:nk" is reduced to the bare field name.
func CleanFieldName(name string) string {
	if name == "" {
		return ""
	}

	if strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]") {
		if strings.Contains(name, "].[") {
			parts := strings.Split(name, "].[")
			name = strings.Trim(parts[len(parts)-1], "[]")
		} else {
			name = strings.Trim(name, "[]")
		}
	}

	// Bare federated qualifiers, e.g. "federated.0abc123.field".
	if strings.Contains(name, ".") && !strings.HasPrefix(name, "[") {
		parts := strings.Split(name, ".")
		if len(parts) > 1 && (len(parts[0]) > 15 || strings.Contains(strings.ToLower(parts[0]), "federated")) {
			name = parts[len(parts)-1]
		}
	}

	if strings.Contains(name, ":") {
		parts := strings.Split(name, ":")
		if shelfPrefixes[strings.ToLower(parts[0])] {
			if len(parts) >= 2 {
				name = parts[1]
			}
		} else if len(parts) > 1 {
			name = parts[0]
		}
	}

	return strings.Trim(name, "[] ")
}

// CleanFormula rewrites a raw formula into its readable variant: federated
// datasource qualifiers are removed and every bracket token is reduced to
// its clean field name. The raw formula is always kept alongside; this
// variant exists for reports and human inspection only.
func CleanFormula(formula string) string {
	readable := federatedPrefixRegex.ReplaceAllString(formula, "")

	return bracketTokenRegex.ReplaceAllStringFunc(readable, func(token string) string {
		inner := strings.Trim(token, "[]")
		return "[" + CleanFieldName(inner) + "]"
	})
}
