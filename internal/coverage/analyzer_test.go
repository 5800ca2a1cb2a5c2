package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/besingamkb/ex-convex/internal/schema"
)

func byProject() []schema.IndexDefinition {
	return []schema.IndexDefinition{
		{Table: "tasks", Name: "by_project", Fields: []string{"projectId"}, Kind: schema.IndexByField},
	}
}

func TestAnalyzeFullTableScan(t *testing.T) {
	src := Source{
		Path: "convex/tasks.ts",
		Content: `export const list = query(async (ctx) => {
  return await ctx.db.query("tasks").collect();
});`,
	}

	issues := Analyze([]Source{src}, byProject())
	require.Len(t, issues, 1)
	assert.Equal(t, schema.SeverityHigh, issues[0].Severity)
	assert.Equal(t, "tasks", issues[0].Table)
	assert.Equal(t, "convex/tasks.ts:2", issues[0].FunctionPath)
	assert.Contains(t, issues[0].Message, "full table scan")
	assert.Equal(t, "by_project", issues[0].SuggestedIndex)
}

func TestAnalyzeUnknownIndex(t *testing.T) {
	src := Source{
		Path: "convex/tasks.ts",
		Content: `const due = await ctx.db.query("tasks")
  .withIndex("by_due_date", (q) => q.gte("dueDate", now))
  .collect();`,
	}

	issues := Analyze([]Source{src}, byProject())
	require.Len(t, issues, 1)
	assert.Equal(t, schema.SeverityHigh, issues[0].Severity)
	assert.Equal(t, `index "by_due_date" is not defined on table "tasks"`, issues[0].Message)
	assert.Empty(t, issues[0].SuggestedIndex)
}

func TestAnalyzeMemoryFilterWithoutIndex(t *testing.T) {
	src := Source{
		Path: "convex/tasks.ts",
		Content: `const open = await ctx.db.query("tasks")
  .filter((q) => q.eq(q.field("status"), "open"))
  .take(20);`,
	}

	issues := Analyze([]Source{src}, byProject())
	require.Len(t, issues, 1)
	assert.Equal(t, schema.SeverityMedium, issues[0].Severity)
	assert.Contains(t, issues[0].Message, "filters in memory")
}

func TestAnalyzeIndexFullScan(t *testing.T) {
	src := Source{
		Path: "convex/tasks.ts",
		Content: `const all = await ctx.db.query("tasks")
  .withIndex("by_project")
  .collect();`,
	}

	issues := Analyze([]Source{src}, byProject())
	require.Len(t, issues, 1)
	assert.Equal(t, schema.SeverityMedium, issues[0].Severity)
	assert.Contains(t, issues[0].Message, `scans the full index "by_project"`)
}

func TestAnalyzeConstrainedIndexClean(t *testing.T) {
	src := Source{
		Path: "convex/tasks.ts",
		Content: `const mine = await ctx.db.query("tasks")
  .withIndex("by_project", (q) => q.eq("projectId", projectId))
  .collect();`,
	}

	issues := Analyze([]Source{src}, byProject())
	assert.Empty(t, issues)
}

func TestAnalyzeIndexedButStillFiltering(t *testing.T) {
	src := Source{
		Path: "convex/tasks.ts",
		Content: `const open = await ctx.db.query("tasks")
  .withIndex("by_project", (q) => q.eq("projectId", projectId))
  .filter((q) => q.eq(q.field("status"), "open"))
  .collect();`,
	}

	issues := Analyze([]Source{src}, byProject())
	require.Len(t, issues, 1)
	assert.Equal(t, schema.SeverityLow, issues[0].Severity)
	assert.Equal(t, "by_project", issues[0].SuggestedIndex)
	assert.Contains(t, issues[0].Message, "compound index")
}

func TestAnalyzeSeverityOrdering(t *testing.T) {
	sources := []Source{
		{
			Path: "convex/a.ts",
			Content: `await ctx.db.query("tasks")
  .withIndex("by_project", (q) => q.eq("projectId", p))
  .filter((q) => q.eq(q.field("done"), false))
  .collect();`,
		},
		{
			Path:    "convex/b.ts",
			Content: `await ctx.db.query("tasks").collect();`,
		},
		{
			Path: "convex/c.ts",
			Content: `await ctx.db.query("tasks")
  .filter((q) => q.eq(q.field("done"), false))
  .first();`,
		},
	}

	issues := Analyze(sources, byProject())
	require.Len(t, issues, 3)
	assert.Equal(t, schema.SeverityHigh, issues[0].Severity)
	assert.Equal(t, "convex/b.ts:1", issues[0].FunctionPath)
	assert.Equal(t, schema.SeverityMedium, issues[1].Severity)
	assert.Equal(t, "convex/c.ts:1", issues[1].FunctionPath)
	assert.Equal(t, schema.SeverityLow, issues[2].Severity)
	assert.Equal(t, "convex/a.ts:1", issues[2].FunctionPath)
}

func TestAnalyzeNoInput(t *testing.T) {
	assert.Empty(t, Analyze(nil, nil))
	assert.Empty(t, Analyze([]Source{{Path: "a.ts", Content: "export const x = 1;"}}, nil))
}

func TestAnalyzeSuggestedIndexOnlyWhenDefined(t *testing.T) {
	src := Source{
		Path:    "convex/logs.ts",
		Content: `await ctx.db.query("logs").collect();`,
	}
	issues := Analyze([]Source{src}, byProject())
	require.Len(t, issues, 1)
	assert.Equal(t, schema.SeverityHigh, issues[0].Severity)
	assert.Empty(t, issues[0].SuggestedIndex)
}

func TestExtractUsagesChainWindow(t *testing.T) {
	src := Source{
		Path: "convex/tasks.ts",
		Content: `const a = await ctx.db.query("tasks")
  .withIndex("by_project", (q) => q.eq("projectId", p))
  .collect();
const unrelated = somethingElse.filter(x => x);`,
	}

	usages := extractUsages(src)
	require.Len(t, usages, 1)
	u := usages[0]
	assert.Equal(t, "tasks", u.table)
	assert.Equal(t, "by_project", u.indexName)
	assert.True(t, u.fullScan)
	// The chain stops at the terminating semicolon, before the
	// unrelated .filter on the next statement.
	assert.False(t, u.memoryFilter)
	assert.Equal(t, 1, u.constraintCount)
}

func TestExtractUsagesSingleLineStatement(t *testing.T) {
	// A statement complete on the entry line must not absorb the
	// following lines into its chain.
	src := Source{
		Path: "convex/tasks.ts",
		Content: `const rows = await ctx.db.query("tasks").withIndex("by_project", (q) => q.eq("projectId", p)).collect();
const names = rows.filter((r) => r.name);
await other.collect();`,
	}

	usages := extractUsages(src)
	require.Len(t, usages, 1)
	u := usages[0]
	assert.Equal(t, "by_project", u.indexName)
	assert.True(t, u.fullScan)
	assert.False(t, u.memoryFilter)
	assert.Equal(t, 1, u.constraintCount)
}

func TestAnalyzeCleanSingleLineQuery(t *testing.T) {
	src := Source{
		Path: "convex/tasks.ts",
		Content: `const rows = await ctx.db.query("tasks").withIndex("by_project", (q) => q.eq("projectId", p)).collect();
const names = rows.filter((r) => r.name);`,
	}

	assert.Empty(t, Analyze([]Source{src}, byProject()))
}

func TestExtractUsagesSingleQuotes(t *testing.T) {
	src := Source{
		Path:    "convex/tasks.ts",
		Content: `await ctx.db.query('tasks').take(5);`,
	}
	usages := extractUsages(src)
	require.Len(t, usages, 1)
	assert.Equal(t, "tasks", usages[0].table)
	assert.True(t, usages[0].bounded)
	assert.False(t, usages[0].fullScan)
}

func TestExtractUsagesDynamicTableSkipped(t *testing.T) {
	src := Source{
		Path:    "convex/tasks.ts",
		Content: `await ctx.db.query(tableName).collect();`,
	}
	assert.Empty(t, extractUsages(src))
}

func TestParseChainDynamicIndexIgnored(t *testing.T) {
	u := parseChain(`.query("tasks").withIndex(indexName).collect();`)
	assert.Equal(t, "", u.indexName)
	assert.True(t, u.fullScan)
}

func TestParseChainSearchIndex(t *testing.T) {
	u := parseChain(`.query("notes").withSearchIndex("search_body", (q) => q.search("body", text)).take(10);`)
	assert.Equal(t, "search_body", u.indexName)
	assert.True(t, u.bounded)
}
