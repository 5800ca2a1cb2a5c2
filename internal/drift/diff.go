// Package drift computes deterministic structural diffs between two schema
// snapshots. Diffing is pure and read-only: snapshots are never mutated.
package drift

import (
	"fmt"
	"sort"
	"strings"

	"github.com/besingamkb/ex-convex/internal/schema"
)

// noChangesSummary is the fixed sentence emitted when the snapshots match.
const noChangesSummary = "No schema changes detected."

// Diff compares two snapshots and returns an ordered structural diff.
//
// Table diffs are ordered added, then modified, then removed; within one
// change kind, first-encounter order of the relevant snapshot is kept (added
// follows the to snapshot, modified and removed follow the from snapshot).
// Field diffs within a table are sorted alphabetically by path. Type sets are
// compared order-independently.
func Diff(from, to *schema.SchemaSnapshot) *schema.SchemaDrift {
	fromTables := tableMap(from)
	toTables := tableMap(to)

	var added, modified, removed []schema.TableDiff

	for _, t := range to.Tables {
		if _, ok := fromTables[t.Table]; !ok {
			added = append(added, oneSidedDiff(t, schema.ChangeAdded))
		}
	}

	for _, t := range from.Tables {
		after, ok := toTables[t.Table]
		if !ok {
			removed = append(removed, oneSidedDiff(t, schema.ChangeRemoved))
			continue
		}
		if fields := fieldDiffs(t, after); len(fields) > 0 {
			modified = append(modified, schema.TableDiff{
				Table:      t.Table,
				Change:     schema.ChangeModified,
				FieldDiffs: fields,
			})
		}
	}

	diffs := make([]schema.TableDiff, 0, len(added)+len(modified)+len(removed))
	diffs = append(diffs, added...)
	diffs = append(diffs, modified...)
	diffs = append(diffs, removed...)

	return &schema.SchemaDrift{
		FromSnapshotID: from.ID,
		ToSnapshotID:   to.ID,
		TableDiffs:     diffs,
		Summary:        summarize(added, modified, removed),
	}
}

func tableMap(s *schema.SchemaSnapshot) map[string]schema.TableSchema {
	m := make(map[string]schema.TableSchema, len(s.Tables))
	for _, t := range s.Tables {
		m[t.Table] = t
	}
	return m
}

// oneSidedDiff reports every field of a fully added or removed table.
func oneSidedDiff(t schema.TableSchema, change schema.ChangeKind) schema.TableDiff {
	fields := make([]schema.FieldDiff, 0, len(t.Fields))
	for _, f := range t.Fields {
		fd := schema.FieldDiff{Path: f.Path, Change: change}
		if change == schema.ChangeAdded {
			fd.NewTypes = sortedTypes(f.Types)
		} else {
			fd.OldTypes = sortedTypes(f.Types)
		}
		fields = append(fields, fd)
	}
	sortByPath(fields)
	return schema.TableDiff{Table: t.Table, Change: change, FieldDiffs: fields}
}

func fieldDiffs(before, after schema.TableSchema) []schema.FieldDiff {
	beforeFields := make(map[string]schema.FieldStat, len(before.Fields))
	for _, f := range before.Fields {
		beforeFields[f.Path] = f
	}
	afterFields := make(map[string]schema.FieldStat, len(after.Fields))
	for _, f := range after.Fields {
		afterFields[f.Path] = f
	}

	var diffs []schema.FieldDiff

	for _, f := range after.Fields {
		old, ok := beforeFields[f.Path]
		if !ok {
			diffs = append(diffs, schema.FieldDiff{
				Path:     f.Path,
				Change:   schema.ChangeAdded,
				NewTypes: sortedTypes(f.Types),
			})
			continue
		}
		oldTypes, newTypes := sortedTypes(old.Types), sortedTypes(f.Types)
		if !equalTypes(oldTypes, newTypes) {
			diffs = append(diffs, schema.FieldDiff{
				Path:     f.Path,
				Change:   schema.ChangeTypeChanged,
				OldTypes: oldTypes,
				NewTypes: newTypes,
			})
		}
	}

	for _, f := range before.Fields {
		if _, ok := afterFields[f.Path]; !ok {
			diffs = append(diffs, schema.FieldDiff{
				Path:     f.Path,
				Change:   schema.ChangeRemoved,
				OldTypes: sortedTypes(f.Types),
			})
		}
	}

	sortByPath(diffs)
	return diffs
}

func sortByPath(diffs []schema.FieldDiff) {
	sort.Slice(diffs, func(i, j int) bool { return diffs[i].Path < diffs[j].Path })
}

// sortedTypes returns a sorted copy, so type sets compare and render
// independently of insertion order.
func sortedTypes(types []string) []string {
	out := make([]string, len(types))
	copy(out, types)
	sort.Strings(out)
	return out
}

func equalTypes(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// summarize composes clauses only for non-zero categories, in a fixed order,
// joined by commas and terminated with a period.
func summarize(added, modified, removed []schema.TableDiff) string {
	var clauses []string
	if n := len(added); n > 0 {
		clauses = append(clauses, fmt.Sprintf("%d %s added", n, tableWord(n)))
	}
	if n := len(removed); n > 0 {
		clauses = append(clauses, fmt.Sprintf("%d %s removed", n, tableWord(n)))
	}
	if n := len(modified); n > 0 {
		changes := 0
		for _, t := range modified {
			changes += len(t.FieldDiffs)
		}
		clauses = append(clauses, fmt.Sprintf("%d %s modified (%d field changes)", n, tableWord(n), changes))
	}
	if len(clauses) == 0 {
		return noChangesSummary
	}
	return strings.Join(clauses, ", ") + "."
}

func tableWord(n int) string {
	if n == 1 {
		return "table"
	}
	return "tables"
}
