package exconvex

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/besingamkb/ex-convex/internal/schema"
)

func writeWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func TestParseSchemaWorkspace(t *testing.T) {
	root := writeWorkspace(t, map[string]string{
		"schema.ts": `
import { tasks } from "./tables/tasks";

export default defineSchema({ tasks });
`,
		"tables/tasks.ts": `
export const tasks = defineTable({
  projectId: v.id("projects"),
  title: v.string(),
}).index("by_project", ["projectId"]);
`,
	})

	def := ParseSchema(root, nil)
	require.Len(t, def.Tables, 1)
	assert.Equal(t, "tasks", def.Tables[0].Table)
	require.Len(t, def.Indexes, 1)
	assert.Equal(t, "by_project", def.Indexes[0].Name)
	require.Len(t, def.Relations, 1)
	assert.Equal(t, "projects", def.Relations[0].ToTable)
}

func TestParseSchemaMissingWorkspace(t *testing.T) {
	def := ParseSchema(filepath.Join(t.TempDir(), "missing"), nil)
	require.NotNil(t, def)
	assert.Empty(t, def.Tables)
	assert.Empty(t, def.Indexes)
	assert.Empty(t, def.Relations)
}

func TestParseSchemaJSFallback(t *testing.T) {
	root := writeWorkspace(t, map[string]string{
		"schema.js": `tasks: defineTable({ title: v.string() }),`,
	})

	def := ParseSchema(root, nil)
	require.Len(t, def.Tables, 1)
	assert.Equal(t, "tasks", def.Tables[0].Table)
}

func TestParseSchemaTableFilters(t *testing.T) {
	root := writeWorkspace(t, map[string]string{
		"schema.ts": `
  tasks: defineTable({ projectId: v.id("projects") }).index("by_project", ["projectId"]),
  projects: defineTable({ name: v.string() }),
  logs: defineTable({ line: v.string() }),
`,
	})

	def := ParseSchema(root, &Options{Tables: []string{"tasks", "logs"}})
	require.Len(t, def.Tables, 2)
	assert.Equal(t, "tasks", def.Tables[0].Table)
	assert.Equal(t, "logs", def.Tables[1].Table)
	// Indexes and relations of filtered tables survive only for kept tables.
	require.Len(t, def.Indexes, 1)
	require.Len(t, def.Relations, 1)

	def = ParseSchema(root, &Options{ExcludeTables: []string{"tasks"}})
	require.Len(t, def.Tables, 2)
	assert.Empty(t, def.Indexes)
	assert.Empty(t, def.Relations)
}

func TestInferTableCapsSample(t *testing.T) {
	docs := make([]map[string]any, 0, 30)
	for i := 0; i < 30; i++ {
		docs = append(docs, map[string]any{"n": float64(i)})
	}

	inf := InferTable("metrics", docs, &Options{MaxSampleDocs: 10})
	assert.Equal(t, 10, inf.Schema.SampledDocs)
	require.Len(t, inf.Schema.Fields, 1)
	assert.Equal(t, 10, inf.Schema.Fields[0].SampleCount)
	assert.Equal(t, 1.0, inf.Schema.Fields[0].Confidence)
}

func TestInferTableNilOptions(t *testing.T) {
	inf := InferTable("tasks", []map[string]any{{"title": "a"}}, nil)
	assert.Equal(t, 1, inf.Schema.SampledDocs)
}

func TestCheckIndexesEndToEnd(t *testing.T) {
	root := writeWorkspace(t, map[string]string{
		"schema.ts": `
  tasks: defineTable({
    projectId: v.id("projects"),
  }).index("by_project", ["projectId"]),
`,
		"tasks.ts": `export const list = query(async (ctx) => {
  return await ctx.db.query("tasks").collect();
});`,
	})

	issues := CheckIndexes(root, nil)
	require.Len(t, issues, 1)
	assert.Equal(t, schema.SeverityHigh, issues[0].Severity)
	assert.Equal(t, "tasks", issues[0].Table)
	assert.Equal(t, "by_project", issues[0].SuggestedIndex)
}

func TestCheckIndexesMissingWorkspace(t *testing.T) {
	assert.Empty(t, CheckIndexes(filepath.Join(t.TempDir(), "missing"), nil))
}

func TestDiffSnapshotsPure(t *testing.T) {
	from := &schema.SchemaSnapshot{ID: "s1", Tables: []schema.TableSchema{
		{Table: "tasks", Fields: []schema.FieldStat{{Path: "title", Types: []string{"string"}}}},
	}}
	to := &schema.SchemaSnapshot{ID: "s2", Tables: []schema.TableSchema{
		{Table: "tasks", Fields: []schema.FieldStat{{Path: "title", Types: []string{"string"}}}},
		{Table: "users", Fields: []schema.FieldStat{{Path: "email", Types: []string{"string"}}}},
	}}

	d := DiffSnapshots(from, to)
	assert.Equal(t, "1 table added.", d.Summary)
	require.Len(t, d.TableDiffs, 1)
	assert.Equal(t, "users", d.TableDiffs[0].Table)

	// Inputs stay untouched.
	assert.Len(t, from.Tables, 1)
	assert.Len(t, to.Tables, 2)
}

func TestFormatSchemaWriter(t *testing.T) {
	def := &schema.Definition{Tables: []schema.TableSchema{
		{Table: "tasks", Fields: []schema.FieldStat{
			{Path: "title", Types: []string{"string"}, Confidence: 1.0},
		}},
	}}

	var text bytes.Buffer
	require.NoError(t, FormatSchema(def, &OutputOptions{Writer: &text}))
	assert.Contains(t, text.String(), "tasks")
	assert.Contains(t, text.String(), "title")

	var md bytes.Buffer
	require.NoError(t, FormatSchema(def, &OutputOptions{Writer: &md, Format: "markdown"}))
	assert.Contains(t, md.String(), "## tasks")
}

func TestFormatSchemaMultiFile(t *testing.T) {
	def := &schema.Definition{Tables: []schema.TableSchema{
		{Table: "tasks"},
		{Table: "projects"},
	}}

	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, FormatSchema(def, &OutputOptions{OutputDir: dir, Format: "markdown"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Len(t, names, 3) // overview plus one file per table
}

func TestFormatIssuesEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatIssues(nil, &OutputOptions{Writer: &buf}))
	assert.Contains(t, buf.String(), "No index coverage issues found.")
}

func TestFormatUnknownFormatDegradesToText(t *testing.T) {
	var buf bytes.Buffer
	err := FormatIssues(nil, &OutputOptions{Writer: &buf, Format: "yaml"})
	require.NoError(t, err)
	assert.NotEmpty(t, buf.String())
}

func TestInferThenDiffPipeline(t *testing.T) {
	docs := func(withDue bool) []map[string]any {
		out := make([]map[string]any, 0, 10)
		for i := 0; i < 10; i++ {
			d := map[string]any{"title": fmt.Sprintf("t%d", i)}
			if withDue {
				d["dueDate"] = float64(i)
			}
			out = append(out, d)
		}
		return out
	}

	before := InferTable("tasks", docs(false), nil)
	after := InferTable("tasks", docs(true), nil)

	d := DiffSnapshots(
		&schema.SchemaSnapshot{ID: "s1", Tables: []schema.TableSchema{before.Schema}},
		&schema.SchemaSnapshot{ID: "s2", Tables: []schema.TableSchema{after.Schema}},
	)
	assert.Equal(t, "1 table modified (1 field changes).", d.Summary)
	require.Len(t, d.TableDiffs, 1)
	require.Len(t, d.TableDiffs[0].FieldDiffs, 1)
	assert.Equal(t, "dueDate", d.TableDiffs[0].FieldDiffs[0].Path)
	assert.Equal(t, schema.ChangeAdded, d.TableDiffs[0].FieldDiffs[0].Change)
}
