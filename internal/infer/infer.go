// Package infer derives a table schema from sampled documents: it flattens
// nested structures into dot-delimited paths and statistically derives field
// types, optionality and confidence, plus foreign-key candidates from naming
// heuristics.
package infer

import (
	"sort"
	"strings"
	"time"

	"github.com/besingamkb/ex-convex/internal/schema"
)

// confidenceFloor is the minimum sample denominator: confidence saturates
// only once at least this many samples support the field, preventing false
// high confidence from tiny samples.
const confidenceFloor = 10

// relationConfidence is assigned to naming-heuristic relation edges. Always
// lower than a schema-declared relation's 1.0.
const relationConfidence = 0.6

type pathStat struct {
	count int
	types []string
	seen  map[string]bool
}

// Infer derives the schema of table from a sample of documents. An empty
// sample yields a valid zero-field schema, never an error.
func Infer(table string, docs []map[string]any) *schema.Inference {
	stats := make(map[string]*pathStat)

	for _, doc := range docs {
		observed := make(map[string]string)
		flatten("", doc, observed)
		for path, tag := range observed {
			st := stats[path]
			if st == nil {
				st = &pathStat{seen: make(map[string]bool)}
				stats[path] = st
			}
			st.count++
			if !st.seen[tag] {
				st.seen[tag] = true
				st.types = append(st.types, tag)
			}
		}
	}

	total := len(docs)
	fields := make([]schema.FieldStat, 0, len(stats))
	for path, st := range stats {
		fields = append(fields, schema.FieldStat{
			Path:         path,
			Types:        st.types,
			OptionalRate: float64(total-st.count) / float64(total),
			SampleCount:  st.count,
			Confidence:   confidence(st.count, total),
		})
	}

	// Presentation convention: _id first, _creationTime second, the rest
	// alphabetical by path.
	sort.Slice(fields, func(i, j int) bool {
		pi, pj := fieldRank(fields[i].Path), fieldRank(fields[j].Path)
		if pi != pj {
			return pi < pj
		}
		return fields[i].Path < fields[j].Path
	})

	return &schema.Inference{
		Schema: schema.TableSchema{
			Table:       table,
			Fields:      fields,
			SampledDocs: total,
			InferredAt:  time.Now().UTC(),
		},
		Relations: inferRelations(table, fields),
	}
}

// flatten records the type tag of every path in doc. A nested object
// contributes both its own path (type "object") and its descendants, so a
// path and its ancestors accumulate presence counts simultaneously.
func flatten(prefix string, doc map[string]any, out map[string]string) {
	for key, value := range doc {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		out[path] = typeTag(value)
		if nested, ok := value.(map[string]any); ok {
			flatten(path, nested, out)
		}
	}
}

func typeTag(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return "unknown"
}

func confidence(count, total int) float64 {
	denom := total
	if denom < confidenceFloor {
		denom = confidenceFloor
	}
	c := float64(count) / float64(denom)
	if c > 1 {
		c = 1
	}
	return c
}

func fieldRank(path string) int {
	switch path {
	case "_id":
		return 0
	case "_creationTime":
		return 1
	}
	return 2
}

// inferRelations treats every string-typed field whose last path segment ends
// in "Id" or "_id" as a foreign-key candidate. The target table is guessed by
// stripping the suffix and naively pluralizing.
func inferRelations(table string, fields []schema.FieldStat) []schema.RelationEdge {
	var edges []schema.RelationEdge
	for _, f := range fields {
		if !hasType(f.Types, "string") {
			continue
		}
		target := guessTargetTable(lastSegment(f.Path))
		if target == "" {
			continue
		}
		edges = append(edges, schema.RelationEdge{
			FromTable:     table,
			FromFieldPath: f.Path,
			ToTable:       target,
			Confidence:    relationConfidence,
			Source:        schema.RelationInferred,
		})
	}
	return edges
}

// guessTargetTable returns "" when segment does not look like a foreign key.
func guessTargetTable(segment string) string {
	var base string
	switch {
	case strings.HasSuffix(segment, "_id"):
		base = strings.TrimSuffix(segment, "_id")
	case strings.HasSuffix(segment, "Id"):
		base = strings.TrimSuffix(segment, "Id")
	default:
		return ""
	}
	base = strings.TrimPrefix(base, "_")
	if base == "" {
		return ""
	}
	if !strings.HasSuffix(base, "s") {
		base += "s"
	}
	return base
}

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
