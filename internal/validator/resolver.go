// Package validator resolves field validator expressions (e.g. a nested
// "v.optional(v.id(\"users\"))" construct) to normalized type names. It is a
// leaf utility shared by the schema parser and the document inferencer.
//
// Resolution is best-effort: unknown validator names pass through verbatim as
// type names, never as errors.
package validator

import (
	"fmt"
	"strings"

	"github.com/besingamkb/ex-convex/internal/scan"
)

// canonical maps primitive validator names to their canonical type name.
var canonical = map[string]string{
	"string":  "string",
	"number":  "number",
	"float64": "number",
	"int64":   "int64",
	"boolean": "boolean",
	"bytes":   "bytes",
	"null":    "null",
	"any":     "any",
	"array":   "array",
	"object":  "object",
	"record":  "record",
}

// Resolve maps a validator call to the set of type names it denotes.
//
//   - primitives map to a single canonical name
//   - id("t") maps to the parametric tag Id<t>
//   - literal("x") maps to the literal value itself
//   - optional(inner) recurses into inner; optionality is tracked separately
//   - union(a, b, ...) concatenates the resolution of each argument
//   - anything else passes through verbatim
func Resolve(name, args string) []string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "v.")
	if t, ok := canonical[name]; ok {
		return []string{t}
	}
	switch name {
	case "id":
		return []string{fmt.Sprintf("Id<%s>", scan.Unquote(firstArg(args)))}
	case "literal":
		return []string{scan.Unquote(args)}
	case "optional":
		return ResolveExpr(args)
	case "union":
		var out []string
		seen := make(map[string]bool)
		for _, arg := range scan.SplitTop(args, ',') {
			for _, t := range ResolveExpr(arg) {
				if !seen[t] {
					seen[t] = true
					out = append(out, t)
				}
			}
		}
		return out
	}
	return []string{name}
}

// ResolveExpr resolves a full validator expression, either a call like
// v.string() or a bare reference like v.string.
func ResolveExpr(expr string) []string {
	if name, args, ok := SplitCall(expr); ok {
		return Resolve(name, args)
	}
	name := strings.TrimPrefix(strings.TrimSpace(expr), "v.")
	if name == "" {
		return nil
	}
	return Resolve(name, "")
}

// SplitCall splits an expression of the form name(args) into its validator
// name (with any leading "v." stripped) and raw argument text. ok is false
// when expr is not a call.
func SplitCall(expr string) (name, args string, ok bool) {
	expr = strings.TrimSpace(expr)
	open := strings.IndexByte(expr, '(')
	if open <= 0 {
		return "", "", false
	}
	name = strings.TrimSpace(expr[:open])
	if !isIdent(strings.TrimPrefix(name, "v.")) {
		return "", "", false
	}
	end := scan.Matching(expr, open)
	if end < 0 {
		// Unterminated call: treat everything after the paren as arguments.
		return strings.TrimPrefix(name, "v."), expr[open+1:], true
	}
	return strings.TrimPrefix(name, "v."), expr[open+1 : end], true
}

// IDTarget inspects a field validator expression and returns the referenced
// table when the expression is an id validator, directly or wrapped in
// optional.
func IDTarget(expr string) (table string, ok bool) {
	name, args, isCall := SplitCall(expr)
	if !isCall {
		return "", false
	}
	switch name {
	case "id":
		target := scan.Unquote(firstArg(args))
		if target == "" {
			return "", false
		}
		return target, true
	case "optional":
		return IDTarget(args)
	}
	return "", false
}

// IsOptional reports whether expr is wrapped in an optional validator.
func IsOptional(expr string) bool {
	name, _, ok := SplitCall(expr)
	return ok && name == "optional"
}

func firstArg(args string) string {
	parts := scan.SplitTop(args, ',')
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
