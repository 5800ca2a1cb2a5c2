// Package formatter renders analysis results (schemas, coverage issues,
// drift reports) as compact text or markdown for terminals and docs.
package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/besingamkb/ex-convex/internal/schema"
)

// TextFormatter formats analysis results as compact text.
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// FormatDefinition writes the parsed or inferred schema in compact text form.
func (f *TextFormatter) FormatDefinition(def *schema.Definition) error {
	for i, table := range def.Tables {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}
		f.formatTable(table, relationsFor(def, table.Table), indexesFor(def, table.Table))
	}
	return nil
}

func (f *TextFormatter) formatTable(table schema.TableSchema, relations []schema.RelationEdge, indexes []schema.IndexDefinition) {
	sampled := ""
	if table.SampledDocs > 0 {
		sampled = fmt.Sprintf(" (sampled %d docs)", table.SampledDocs)
	}
	_, _ = fmt.Fprintf(f.writer, "TABLE %s%s\n", table.Table, sampled)

	for _, field := range table.Fields {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", formatField(field))
	}

	if len(relations) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, rel := range relations {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s (%.2f, %s)\n",
				rel.FromFieldPath, rel.ToTable, rel.Confidence, rel.Source)
		}
	}

	if len(indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  INDEXES:")
		for _, idx := range indexes {
			kind := ""
			if idx.Kind != schema.IndexByField {
				kind = fmt.Sprintf(" [%s]", idx.Kind)
			}
			_, _ = fmt.Fprintf(f.writer, "    %s (%s)%s\n", idx.Name, strings.Join(idx.Fields, ", "), kind)
		}
	}
}

// FormatIssues writes coverage issues, one line each, in their ranked order.
func (f *TextFormatter) FormatIssues(issues []schema.IndexCoverageIssue) error {
	if len(issues) == 0 {
		_, _ = fmt.Fprintln(f.writer, "No index coverage issues found.")
		return nil
	}
	for _, issue := range issues {
		suggestion := ""
		if issue.SuggestedIndex != "" {
			suggestion = fmt.Sprintf(" (suggested index: %s)", issue.SuggestedIndex)
		}
		_, _ = fmt.Fprintf(f.writer, "[%s] %s: %s%s\n",
			strings.ToUpper(string(issue.Severity)), issue.FunctionPath, issue.Message, suggestion)
	}
	return nil
}

// FormatDrift writes a drift report: summary first, then per-table entries.
func (f *TextFormatter) FormatDrift(d *schema.SchemaDrift) error {
	_, _ = fmt.Fprintf(f.writer, "DRIFT %s → %s\n", d.FromSnapshotID, d.ToSnapshotID)
	_, _ = fmt.Fprintln(f.writer, d.Summary)

	for _, td := range d.TableDiffs {
		_, _ = fmt.Fprintf(f.writer, "\n%s %s\n", changeMarker(td.Change), td.Table)
		for _, fd := range td.FieldDiffs {
			switch fd.Change {
			case schema.ChangeAdded:
				_, _ = fmt.Fprintf(f.writer, "  + %s: %s\n", fd.Path, strings.Join(fd.NewTypes, "|"))
			case schema.ChangeRemoved:
				_, _ = fmt.Fprintf(f.writer, "  - %s: %s\n", fd.Path, strings.Join(fd.OldTypes, "|"))
			case schema.ChangeTypeChanged:
				_, _ = fmt.Fprintf(f.writer, "  ~ %s: %s → %s\n", fd.Path,
					strings.Join(fd.OldTypes, "|"), strings.Join(fd.NewTypes, "|"))
			}
		}
	}
	return nil
}

func changeMarker(change schema.ChangeKind) string {
	switch change {
	case schema.ChangeAdded:
		return "+"
	case schema.ChangeRemoved:
		return "-"
	}
	return "~"
}

func formatField(field schema.FieldStat) string {
	parts := []string{field.Path + ":", strings.Join(field.Types, "|")}

	switch {
	case field.OptionalRate >= 1:
		parts = append(parts, "OPTIONAL")
	case field.OptionalRate > 0:
		parts = append(parts, fmt.Sprintf("OPTIONAL %.0f%%", field.OptionalRate*100))
	}

	if field.Confidence < 1 {
		parts = append(parts, fmt.Sprintf("(confidence %.2f)", field.Confidence))
	}
	return strings.Join(parts, " ")
}

func relationsFor(def *schema.Definition, table string) []schema.RelationEdge {
	var out []schema.RelationEdge
	for _, rel := range def.Relations {
		if rel.FromTable == table {
			out = append(out, rel)
		}
	}
	return out
}

func indexesFor(def *schema.Definition, table string) []schema.IndexDefinition {
	var out []schema.IndexDefinition
	for _, idx := range def.Indexes {
		if idx.Table == table {
			out = append(out, idx)
		}
	}
	return out
}
