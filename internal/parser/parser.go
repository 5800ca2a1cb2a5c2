// Package parser extracts table definitions, field types, indexes and
// inferred relations from schema-definition source text, following local
// import and re-export chains through an injected file resolver.
//
// Parsing is best-effort over heuristically recognized constructs: malformed
// input is skipped per item and never produces an error. Block bodies are
// located with a delimiter scanner that understands string literals and
// comments, so braces inside either cannot break extraction.
package parser

import (
	"regexp"
	"strings"

	"github.com/besingamkb/ex-convex/internal/scan"
	"github.com/besingamkb/ex-convex/internal/schema"
	"github.com/besingamkb/ex-convex/internal/validator"
)

var (
	// tasks: defineTable({...})
	reInlineTable = regexp.MustCompile(`([A-Za-z_$][A-Za-z0-9_$]*)\s*:\s*defineTable\s*\(`)
	// export const tasks = defineTable({...})
	reConstTable = regexp.MustCompile(`(?:export\s+)?const\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*=\s*defineTable\s*\(`)
)

// customSuffixes trigger the custom-validator naming convention: a bare
// identifier like "statusValidator" is recorded as type "status" with
// reduced confidence.
var customSuffixes = []string{"Validator", "Status", "Type", "Role"}

const customValidatorConfidence = 0.8

// Parse extracts tables, indexes and relations from entryText and from every
// file reachable through its relative import and re-export statements.
// resolver may be nil to disable import following. Parse never fails:
// unparseable constructs are skipped and unresolvable imports ignored.
func Parse(entryText string, resolver FileResolver) *schema.Definition {
	def := &schema.Definition{}
	w := newWalker(resolver)
	w.walk(entryText, ".", 0, def)
	return def
}

// ParseText extracts tables, indexes and relations from a single source text
// without following imports.
func ParseText(text string) *schema.Definition {
	def := &schema.Definition{}
	parseInto(text, def)
	return def
}

type tableMatch struct {
	name  string
	paren int // index of the defineTable opening paren
	start int // index where the whole match begins
}

func parseInto(text string, def *schema.Definition) {
	matches := findTableMatches(text)

	for i, m := range matches {
		tableEnd := len(text)
		if i+1 < len(matches) {
			tableEnd = matches[i+1].start
		}

		body := ""
		tail := ""
		if end := scan.Matching(text, m.paren); end >= 0 {
			body = text[m.paren+1 : end]
			if end+1 < tableEnd {
				tail = text[end+1 : tableEnd]
			}
		} else {
			// Unterminated call: take what is there, no index chain.
			body = text[m.paren+1 : tableEnd]
		}

		fields, relations := parseFields(m.name, fieldBlock(body))
		def.Tables = append(def.Tables, schema.TableSchema{
			Table:  m.name,
			Fields: fields,
		})
		def.Relations = append(def.Relations, relations...)
		def.Indexes = append(def.Indexes, parseIndexes(m.name, tail)...)
	}
}

// findTableMatches locates both supported table-definition shapes and returns
// them in source order.
func findTableMatches(text string) []tableMatch {
	var matches []tableMatch
	seen := make(map[int]bool) // keyed by paren index

	for _, re := range []*regexp.Regexp{reConstTable, reInlineTable} {
		for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
			m := tableMatch{
				name:  text[idx[2]:idx[3]],
				paren: idx[1] - 1,
				start: idx[0],
			}
			if seen[m.paren] {
				continue
			}
			seen[m.paren] = true
			matches = append(matches, m)
		}
	}

	// Source order regardless of which shape matched.
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j-1].paren > matches[j].paren; j-- {
			matches[j-1], matches[j] = matches[j], matches[j-1]
		}
	}
	return matches
}

// fieldBlock returns the contents of the object literal passed to
// defineTable, or "" when none is found.
func fieldBlock(body string) string {
	open := strings.IndexByte(body, '{')
	if open < 0 {
		return ""
	}
	end := scan.Matching(body, open)
	if end < 0 {
		return body[open+1:]
	}
	return body[open+1 : end]
}

// parseFields extracts field declarations of the shape "name: validator(...)"
// from one table block. Duplicate declarations of the same field keep their
// original position but take the last declaration's types and optionality.
func parseFields(table, block string) ([]schema.FieldStat, []schema.RelationEdge) {
	var fields []schema.FieldStat
	exprs := make(map[string]string)
	position := make(map[string]int)

	for _, entry := range scan.SplitTop(block, ',') {
		colon := scan.IndexTop(entry, ':')
		if colon < 0 {
			continue
		}
		name := scan.Unquote(entry[:colon])
		expr := strings.TrimSpace(entry[colon+1:])
		if name == "" || expr == "" {
			continue
		}

		stat, ok := fieldStat(name, expr)
		if !ok {
			continue
		}

		if at, dup := position[name]; dup {
			fields[at] = stat
		} else {
			position[name] = len(fields)
			fields = append(fields, stat)
		}
		exprs[name] = expr
	}

	var relations []schema.RelationEdge
	for _, f := range fields {
		if target, ok := validator.IDTarget(exprs[f.Path]); ok {
			relations = append(relations, schema.RelationEdge{
				FromTable:     table,
				FromFieldPath: f.Path,
				ToTable:       target,
				Confidence:    1.0,
				Source:        schema.RelationInferred,
			})
		}
	}
	return fields, relations
}

func fieldStat(name, expr string) (schema.FieldStat, bool) {
	stat := schema.FieldStat{Path: name, Confidence: 1.0}

	if vname, args, ok := validator.SplitCall(expr); ok {
		stat.Types = validator.Resolve(vname, args)
		if vname == "optional" {
			stat.OptionalRate = 1.0
		}
		return stat, len(stat.Types) > 0
	}

	// Bare identifier: custom validator convention.
	ident := strings.TrimSpace(expr)
	if !isIdentifier(ident) {
		return schema.FieldStat{}, false
	}
	stat.Confidence = customValidatorConfidence
	stat.Types = []string{stripCustomSuffix(ident)}
	return stat, true
}

func stripCustomSuffix(ident string) string {
	for _, suffix := range customSuffixes {
		if strings.HasSuffix(ident, suffix) && len(ident) > len(suffix) {
			return strings.TrimSuffix(ident, suffix)
		}
	}
	return ident
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || r == '.':
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

// indexMarker ties a chained declaration form to the index kind it produces
// and, for search/vector indexes, the object property naming the field.
var indexMarkers = []struct {
	marker string
	kind   schema.IndexKind
	prop   string
}{
	{".index(", schema.IndexByField, ""},
	{".searchIndex(", schema.IndexSearch, "searchField"},
	{".vectorIndex(", schema.IndexVector, "vectorField"},
}

// parseIndexes scans the chained declarations following a table definition,
// bounded to the text before the next table definition. Duplicate index names
// on the same table keep the first declaration.
func parseIndexes(table, tail string) []schema.IndexDefinition {
	var indexes []schema.IndexDefinition
	seen := make(map[string]bool)

	for _, im := range indexMarkers {
		for at := 0; ; {
			pos := strings.Index(tail[at:], im.marker)
			if pos < 0 {
				break
			}
			paren := at + pos + len(im.marker) - 1
			at = paren + 1

			end := scan.Matching(tail, paren)
			if end < 0 {
				break
			}
			args := scan.SplitTop(tail[paren+1:end], ',')
			if len(args) < 2 {
				continue
			}
			name := scan.Unquote(args[0])
			if name == "" || seen[name] {
				continue
			}

			var fields []string
			if im.prop == "" {
				fields = stringList(args[1])
			} else if v := objectProp(strings.Join(args[1:], ","), im.prop); v != "" {
				fields = []string{v}
			}
			if len(fields) == 0 {
				continue
			}

			seen[name] = true
			indexes = append(indexes, schema.IndexDefinition{
				Table:  table,
				Name:   name,
				Fields: fields,
				Kind:   im.kind,
			})
		}
	}
	return indexes
}

// stringList extracts the quoted strings of an array literal like
// ["projectId", "status"].
func stringList(expr string) []string {
	open := strings.IndexByte(expr, '[')
	if open < 0 {
		return nil
	}
	end := scan.Matching(expr, open)
	if end < 0 {
		end = len(expr)
	}
	var out []string
	for _, item := range scan.SplitTop(expr[open+1:end], ',') {
		if v := scan.Unquote(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// objectProp extracts the string value of key from an object literal like
// { searchField: "body", filterFields: [...] }.
func objectProp(expr, key string) string {
	open := strings.IndexByte(expr, '{')
	if open < 0 {
		return ""
	}
	end := scan.Matching(expr, open)
	if end < 0 {
		end = len(expr)
	}
	for _, entry := range scan.SplitTop(expr[open+1:end], ',') {
		colon := scan.IndexTop(entry, ':')
		if colon < 0 {
			continue
		}
		if scan.Unquote(entry[:colon]) == key {
			return scan.Unquote(entry[colon+1:])
		}
	}
	return ""
}
