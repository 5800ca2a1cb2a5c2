// Package exconvex derives a structured model of a Convex-style document
// database schema from two independent sources — schema-definition source
// text and sampled documents — and uses that model to detect missing or
// misused indexes in query call sites and to compute deterministic drift
// between schema snapshots over time.
//
// # Quick Start
//
// Parse a workspace schema and print it:
//
//	def := exconvex.ParseSchema("convex", nil)
//	_ = exconvex.FormatSchema(def, &exconvex.OutputOptions{Writer: os.Stdout})
//
// Check query call sites against the declared indexes:
//
//	issues := exconvex.CheckIndexes("convex", nil)
//
// Compare two stored snapshots:
//
//	d := exconvex.DiffSnapshots(from, to)
//	fmt.Println(d.Summary)
//
// All analysis entry points are best-effort: missing files and malformed
// input yield empty or partial results, never errors. Only output writing
// (file or directory creation) can fail.
package exconvex

import (
	"io"
	"os"

	"github.com/besingamkb/ex-convex/internal/coverage"
	"github.com/besingamkb/ex-convex/internal/drift"
	"github.com/besingamkb/ex-convex/internal/formatter"
	"github.com/besingamkb/ex-convex/internal/infer"
	"github.com/besingamkb/ex-convex/internal/parser"
	"github.com/besingamkb/ex-convex/internal/schema"
	"github.com/besingamkb/ex-convex/internal/workspace"
)

// DefaultMaxSampleDocs bounds how many sampled documents inference reads
// when the caller does not choose a cap.
const DefaultMaxSampleDocs = 100

// Options configures schema analysis.
//
// All fields are optional. If not specified:
//   - SchemaEntry: defaults to "schema.ts" (falling back to "schema.js")
//   - Tables: nil analyzes all tables
//   - ExcludeTables: empty excludes no tables
//   - MaxSampleDocs: defaults to DefaultMaxSampleDocs
type Options struct {
	// SchemaEntry is the schema-definition entry file, relative to the
	// workspace root.
	SchemaEntry string

	// Tables restricts analysis to the named tables.
	Tables []string

	// ExcludeTables omits the named tables. Applied after Tables.
	ExcludeTables []string

	// MaxSampleDocs caps how many sampled documents inference considers.
	MaxSampleDocs int
}

// OutputOptions configures result formatting.
//
// If OutputDir is set, multi-file output is written there (schemas only);
// otherwise results go to Writer, defaulting to os.Stdout. Format is "text"
// or "markdown", defaulting to "text".
type OutputOptions struct {
	Writer    io.Writer
	OutputDir string
	Format    string
}

// ParseSchema extracts tables, indexes and relations from the schema
// definition rooted at the given workspace directory, following relative
// imports and re-exports. A missing workspace or entry file yields an empty
// definition, never an error.
func ParseSchema(root string, opts *Options) *schema.Definition {
	opts = withDefaults(opts)
	ws := workspace.New(root)

	entry, ok := ws.SchemaEntry(opts.SchemaEntry)
	if !ok && opts.SchemaEntry == "" {
		entry, ok = ws.ReadFile("schema.js")
	}
	if !ok {
		return &schema.Definition{}
	}

	def := parser.Parse(entry, ws)
	filterDefinition(def, opts)
	return def
}

// InferTable derives a table schema from already-sampled documents. The
// sample is capped at opts.MaxSampleDocs. An empty sample yields a valid
// zero-field schema.
func InferTable(table string, docs []map[string]any, opts *Options) *schema.Inference {
	opts = withDefaults(opts)
	if len(docs) > opts.MaxSampleDocs {
		docs = docs[:opts.MaxSampleDocs]
	}
	return infer.Infer(table, docs)
}

// CheckIndexes parses the workspace schema, enumerates its query-usage
// sources and evaluates every query call chain against the declared indexes.
// Results come back ranked by severity. The analysis is advisory and never
// fails.
func CheckIndexes(root string, opts *Options) []schema.IndexCoverageIssue {
	def := ParseSchema(root, opts)
	sources := workspace.New(root).QuerySources()
	return coverage.Analyze(sources, def.Indexes)
}

// AnalyzeSources evaluates query-usage sources against known indexes without
// touching the filesystem. Useful when a collaborator already holds the
// source text.
func AnalyzeSources(sources []coverage.Source, known []schema.IndexDefinition) []schema.IndexCoverageIssue {
	return coverage.Analyze(sources, known)
}

// DiffSnapshots computes the ordered structural diff between two snapshots.
// Pure and deterministic; neither snapshot is mutated.
func DiffSnapshots(from, to *schema.SchemaSnapshot) *schema.SchemaDrift {
	return drift.Diff(from, to)
}

// FormatSchema writes a definition to the configured output. With OutputDir
// set it writes one file per table plus an overview, as multi-file output.
func FormatSchema(def *schema.Definition, opts *OutputOptions) error {
	opts = outputDefaults(opts)
	if opts.OutputDir != "" {
		return formatter.NewMultiFileFormatter(opts.OutputDir, opts.Format).FormatDefinition(def)
	}
	if opts.Format == "markdown" {
		return formatter.NewMarkdownFormatter(opts.Writer).FormatDefinition(def)
	}
	return formatter.NewTextFormatter(opts.Writer).FormatDefinition(def)
}

// FormatIssues writes a coverage report to the configured writer.
func FormatIssues(issues []schema.IndexCoverageIssue, opts *OutputOptions) error {
	opts = outputDefaults(opts)
	if opts.Format == "markdown" {
		return formatter.NewMarkdownFormatter(opts.Writer).FormatIssues(issues)
	}
	return formatter.NewTextFormatter(opts.Writer).FormatIssues(issues)
}

// FormatDrift writes a drift report to the configured writer.
func FormatDrift(d *schema.SchemaDrift, opts *OutputOptions) error {
	opts = outputDefaults(opts)
	if opts.Format == "markdown" {
		return formatter.NewMarkdownFormatter(opts.Writer).FormatDrift(d)
	}
	return formatter.NewTextFormatter(opts.Writer).FormatDrift(d)
}

func withDefaults(opts *Options) *Options {
	out := Options{}
	if opts != nil {
		out = *opts
	}
	if out.MaxSampleDocs <= 0 {
		out.MaxSampleDocs = DefaultMaxSampleDocs
	}
	return &out
}

func outputDefaults(opts *OutputOptions) *OutputOptions {
	out := OutputOptions{}
	if opts != nil {
		out = *opts
	}
	if out.Writer == nil {
		out.Writer = os.Stdout
	}
	if out.Format == "" {
		out.Format = "text"
	}
	if out.Format != "text" && out.Format != "markdown" {
		// Unknown formats degrade to text rather than failing an
		// otherwise-successful analysis.
		out.Format = "text"
	}
	return &out
}

// filterDefinition applies Tables/ExcludeTables to a parsed definition,
// dropping the indexes and relations of filtered tables too.
func filterDefinition(def *schema.Definition, opts *Options) {
	if len(opts.Tables) == 0 && len(opts.ExcludeTables) == 0 {
		return
	}

	include := make(map[string]bool)
	for _, name := range opts.Tables {
		include[name] = true
	}
	exclude := make(map[string]bool)
	for _, name := range opts.ExcludeTables {
		exclude[name] = true
	}
	keep := func(table string) bool {
		if len(include) > 0 && !include[table] {
			return false
		}
		return !exclude[table]
	}

	tables := def.Tables[:0]
	for _, t := range def.Tables {
		if keep(t.Table) {
			tables = append(tables, t)
		}
	}
	def.Tables = tables

	indexes := def.Indexes[:0]
	for _, idx := range def.Indexes {
		if keep(idx.Table) {
			indexes = append(indexes, idx)
		}
	}
	def.Indexes = indexes

	relations := def.Relations[:0]
	for _, rel := range def.Relations {
		if keep(rel.FromTable) {
			relations = append(relations, rel)
		}
	}
	def.Relations = relations
}
