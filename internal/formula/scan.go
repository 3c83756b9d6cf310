package formula

import (
	"strings"
	"unicode"

	"github.com/twbmeta/twbmeta/pkg/twbmeta"
)

// scanResult holds everything one pass over the raw text can collect.
// Token slices preserve first-appearance order with duplicates removed,
// which keeps downstream output reproducible.
type scanResult struct {
	fields     []string // bracket-delimited tokens that are not parameter refs
	parameters []string // tokens from [Parameters].[X] constructs
	functions  []string // upper-cased identifiers followed by '('

	condBranches int // IF/ELSEIF/CASE/WHEN/IIF occurrences
	maxDepth     int // deepest paren/brace nesting outside strings
	balanced     bool
}

// conditional keywords counted toward the complexity score. IIF appears as
// a function call but still denotes one branch.
var conditionalKeywords = map[string]bool{
	"IF":     true,
	"ELSEIF": true,
	"CASE":   true,
	"WHEN":   true,
	"IIF":    true,
}

// scan walks the formula once, tracking string literals so that quoted
// '['/']'/'{'/'}' never register as structure.
func scan(src string) scanResult {
	res := scanResult{balanced: true}

	seenField := map[string]bool{}
	seenParam := map[string]bool{}
	seenFunc := map[string]bool{}

	var parens, braces, depth int
	pendingParamRef := false

	runes := []rune(src)
	i := 0
	for i < len(runes) {
		r := runes[i]

		switch {
		case r == '\'' || r == '"':
			// String literal: skip to the closing quote.
			quote := r
			i++
			for i < len(runes) && runes[i] != quote {
				i++
			}
			if i >= len(runes) {
				res.balanced = false
				return res
			}
			i++

		case r == '[':
			// Bracket-delimited token; brackets do not nest.
			j := i + 1
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			if j >= len(runes) {
				res.balanced = false
				return res
			}
			token := string(runes[i+1 : j])
			i = j + 1

			switch {
			case pendingParamRef:
				if !seenParam[token] {
					seenParam[token] = true
					res.parameters = append(res.parameters, token)
				}
				pendingParamRef = false
			case followedByDotBracket(runes, i):
				// Namespace qualifier of a [ns].[X] reference, not a
				// field in its own right. The parameter namespace marks
				// the following token as a parameter.
				if token == twbmeta.ParametersDatasource {
					pendingParamRef = true
				}
			default:
				if token != "" && !seenField[token] {
					seenField[token] = true
					res.fields = append(res.fields, token)
				}
			}

		case r == ']':
			res.balanced = false
			i++

		case r == '(' || r == '{':
			if r == '(' {
				parens++
			} else {
				braces++
			}
			depth++
			if depth > res.maxDepth {
				res.maxDepth = depth
			}
			i++

		case r == ')' || r == '}':
			if r == ')' {
				parens--
			} else {
				braces--
			}
			if parens < 0 || braces < 0 {
				res.balanced = false
			}
			depth--
			i++

		case isIdentStart(r):
			j := i + 1
			for j < len(runes) && isIdentPart(runes[j]) {
				j++
			}
			word := strings.ToUpper(string(runes[i:j]))
			i = j

			if conditionalKeywords[word] {
				res.condBranches++
			}
			// Function call: identifier directly followed (modulo
			// whitespace) by an opening parenthesis.
			k := i
			for k < len(runes) && unicode.IsSpace(runes[k]) {
				k++
			}
			if k < len(runes) && runes[k] == '(' {
				if !seenFunc[word] {
					seenFunc[word] = true
					res.functions = append(res.functions, word)
				}
			}

		default:
			i++
		}
	}

	if parens != 0 || braces != 0 {
		res.balanced = false
	}
	return res
}

// followedByDotBracket reports whether the text at pos continues with
// ".[", allowing whitespace, i.e. the tail of a [Parameters].[X] reference.
func followedByDotBracket(runes []rune, pos int) bool {
	i := pos
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	if i >= len(runes) || runes[i] != '.' {
		return false
	}
	i++
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return i < len(runes) && runes[i] == '['
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
