package validate

import (
	"fmt"
	"strings"
)

// checkSyntax runs the bracket/quote balance heuristics over file
// content. Counting ignores text inside string literals and comments so
// a brace inside a template string is not a false positive.
func checkSyntax(content string) []string {
	var errors []string

	counts := countDelimiters(content)
	if counts.openBraces != counts.closeBraces {
		errors = append(errors, fmt.Sprintf("unbalanced braces: %d opening, %d closing", counts.openBraces, counts.closeBraces))
	}
	if counts.openParens != counts.closeParens {
		errors = append(errors, fmt.Sprintf("unbalanced parentheses: %d opening, %d closing", counts.openParens, counts.closeParens))
	}
	if counts.openBrackets != counts.closeBrackets {
		errors = append(errors, fmt.Sprintf("unbalanced brackets: %d opening, %d closing", counts.openBrackets, counts.closeBrackets))
	}
	if counts.unterminatedString {
		errors = append(errors, "unterminated string literal")
	}
	return errors
}

type delimiterCounts struct {
	openBraces, closeBraces     int
	openParens, closeParens     int
	openBrackets, closeBrackets int
	unterminatedString          bool
}

// countDelimiters walks the content once with a small literal-aware
// scanner. It understands ', ", ` strings with backslash escapes and
// // and /* */ comments; that is enough precision for heuristic
// balance checks without parsing the language.
func countDelimiters(content string) delimiterCounts {
	var c delimiterCounts

	const (
		code = iota
		inString
		inLineComment
		inBlockComment
	)
	state := code
	var quote byte

	for i := 0; i < len(content); i++ {
		ch := content[i]
		switch state {
		case code:
			switch ch {
			case '{':
				c.openBraces++
			case '}':
				c.closeBraces++
			case '(':
				c.openParens++
			case ')':
				c.closeParens++
			case '[':
				c.openBrackets++
			case ']':
				c.closeBrackets++
			case '\'', '"', '`':
				state = inString
				quote = ch
			case '/':
				if i+1 < len(content) {
					switch content[i+1] {
					case '/':
						state = inLineComment
						i++
					case '*':
						state = inBlockComment
						i++
					}
				}
			}
		case inString:
			switch ch {
			case '\\':
				i++
			case quote:
				state = code
			case '\n':
				// Only template literals span lines.
				if quote != '`' {
					c.unterminatedString = true
					state = code
				}
			}
		case inLineComment:
			if ch == '\n' {
				state = code
			}
		case inBlockComment:
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				state = code
				i++
			}
		}
	}
	if state == inString {
		c.unterminatedString = true
	}
	return c
}

// candidateSuffixes lists the extensions tried when resolving an
// extensionless import specifier.
var candidateSuffixes = []string{"", ".ts", ".tsx", ".js", ".jsx", ".css", "/index.ts", "/index.tsx"}

func resolvesInSet(fromDir, specifier string, paths map[string]bool) bool {
	joined := joinRelative(fromDir, specifier)
	for _, suffix := range candidateSuffixes {
		if paths[joined+suffix] {
			return true
		}
	}
	return false
}

// joinRelative resolves specifier against fromDir, collapsing ./ and
// ../ segments.
func joinRelative(fromDir, specifier string) string {
	parts := []string{}
	if fromDir != "." && fromDir != "" {
		parts = strings.Split(fromDir, "/")
	}
	for _, segment := range strings.Split(specifier, "/") {
		switch segment {
		case "", ".":
		case "..":
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, segment)
		}
	}
	return strings.Join(parts, "/")
}
