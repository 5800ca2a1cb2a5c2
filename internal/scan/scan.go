// Package scan provides small string-scanning helpers that are aware of
// string literals, comments and nested delimiters. The schema parser and the
// coverage analyzer use these instead of line/regex scanning so that braces
// inside string literals or comments never confuse block extraction.
package scan

import "strings"

// Matching returns the index of the delimiter closing s[open], or -1 if the
// input ends before the delimiter is balanced. s[open] must be one of
// '(', '[' or '{'. String literals (single, double and backtick quoted) and
// // and /* */ comments are skipped.
func Matching(s string, open int) int {
	if open < 0 || open >= len(s) {
		return -1
	}
	var closer byte
	switch s[open] {
	case '(':
		closer = ')'
	case '[':
		closer = ']'
	case '{':
		closer = '}'
	default:
		return -1
	}
	opener := s[open]
	depth := 0
	for i := open; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\'', '"', '`':
			i = skipString(s, i)
			if i < 0 {
				return -1
			}
		case '/':
			i = skipComment(s, i)
			if i < 0 {
				return -1
			}
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// SplitTop splits s at occurrences of sep that sit at nesting depth zero,
// outside string literals and comments. Empty segments are dropped and each
// segment is space-trimmed.
func SplitTop(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	flush := func(end int) {
		part := strings.TrimSpace(s[start:end])
		if part != "" {
			parts = append(parts, part)
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\'', '"', '`':
			j := skipString(s, i)
			if j < 0 {
				flush(len(s))
				return parts
			}
			i = j
		case '/':
			j := skipComment(s, i)
			if j < 0 {
				flush(len(s))
				return parts
			}
			i = j
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case sep:
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(s))
	return parts
}

// IndexTop returns the index of the first occurrence of sep at nesting depth
// zero, outside strings and comments, or -1.
func IndexTop(s string, sep byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\'', '"', '`':
			j := skipString(s, i)
			if j < 0 {
				return -1
			}
			i = j
		case '/':
			j := skipComment(s, i)
			if j < 0 {
				return -1
			}
			i = j
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case sep:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Unquote trims surrounding whitespace and removes one matching pair of
// single, double or backtick quotes if present.
func Unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '\'' || first == '"' || first == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// skipString advances past the string literal starting at s[i] and returns
// the index of the closing quote, or -1 if unterminated.
func skipString(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			if quote != '`' {
				j++
			}
		case quote:
			return j
		}
	}
	return -1
}

// skipComment handles a '/' at s[i]. For // it returns the index of the line
// end, for /* */ the index of the closing '/'. A lone slash returns i.
// Unterminated block comments return -1.
func skipComment(s string, i int) int {
	if i+1 >= len(s) {
		return i
	}
	switch s[i+1] {
	case '/':
		j := strings.IndexByte(s[i:], '\n')
		if j < 0 {
			return len(s) - 1
		}
		return i + j
	case '*':
		j := strings.Index(s[i+2:], "*/")
		if j < 0 {
			return -1
		}
		return i + 2 + j + 1
	}
	return i
}
