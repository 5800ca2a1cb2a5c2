// Package coverage scans query-usage source text for database-query call
// chains, matches them against known index definitions and emits ranked
// findings. The analysis is advisory: unreadable or unparseable input is
// skipped, never fatal.
package coverage

import (
	"fmt"
	"sort"

	"github.com/besingamkb/ex-convex/internal/schema"
)

var severityRank = map[schema.Severity]int{
	schema.SeverityHigh:   0,
	schema.SeverityMedium: 1,
	schema.SeverityLow:    2,
}

// Analyze extracts query usages from sources and evaluates them against the
// known indexes. Issues come back sorted by severity (high before medium
// before low); ties keep discovery order (file scan order, then line order).
func Analyze(sources []Source, known []schema.IndexDefinition) []schema.IndexCoverageIssue {
	byTable := make(map[string][]schema.IndexDefinition)
	for _, idx := range known {
		byTable[idx.Table] = append(byTable[idx.Table], idx)
	}

	var issues []schema.IndexCoverageIssue
	for _, src := range sources {
		for _, u := range extractUsages(src) {
			issues = append(issues, evaluate(u, byTable[u.table])...)
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return severityRank[issues[i].Severity] < severityRank[issues[j].Severity]
	})
	return issues
}

// evaluate applies the coverage rules to one usage. Rules are independent and
// can all fire for the same usage, except that referencing an unknown index
// short-circuits the remaining checks.
func evaluate(u usage, tableIndexes []schema.IndexDefinition) []schema.IndexCoverageIssue {
	var issues []schema.IndexCoverageIssue
	base := schema.IndexCoverageIssue{
		FunctionPath: u.functionPath,
		Table:        u.table,
	}

	if u.indexName == "" {
		switch {
		case u.fullScan:
			issue := base
			issue.Severity = schema.SeverityHigh
			issue.Message = fmt.Sprintf("full table scan on %q: .collect() without an index", u.table)
			if len(tableIndexes) > 0 {
				issue.SuggestedIndex = tableIndexes[0].Name
			}
			issues = append(issues, issue)
		case u.memoryFilter:
			issue := base
			issue.Severity = schema.SeverityMedium
			issue.Message = fmt.Sprintf("query on %q filters in memory without an index; move the predicate into a .withIndex() range", u.table)
			issues = append(issues, issue)
		}
		return issues
	}

	if findIndex(tableIndexes, u.indexName) == nil {
		issue := base
		issue.Severity = schema.SeverityHigh
		issue.Message = fmt.Sprintf("index %q is not defined on table %q", u.indexName, u.table)
		issues = append(issues, issue)
		return issues
	}

	if u.fullScan && u.constraintCount == 0 {
		issue := base
		issue.Severity = schema.SeverityMedium
		issue.Message = fmt.Sprintf("query scans the full index %q: .collect() with no range constraints", u.indexName)
		issues = append(issues, issue)
	}

	if u.memoryFilter {
		issue := base
		issue.Severity = schema.SeverityLow
		issue.Message = fmt.Sprintf("query uses index %q but still filters in memory; consider a compound index", u.indexName)
		issue.SuggestedIndex = u.indexName
		issues = append(issues, issue)
	}

	return issues
}

func findIndex(indexes []schema.IndexDefinition, name string) *schema.IndexDefinition {
	for i := range indexes {
		if indexes[i].Name == name {
			return &indexes[i]
		}
	}
	return nil
}
