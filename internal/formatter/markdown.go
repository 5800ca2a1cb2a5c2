package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/besingamkb/ex-convex/internal/schema"
)

// MarkdownFormatter formats analysis results as markdown.
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter.
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// FormatDefinition writes the full schema as one markdown document.
func (f *MarkdownFormatter) FormatDefinition(def *schema.Definition) error {
	_, _ = fmt.Fprintln(f.writer, "# Schema")
	_, _ = fmt.Fprintln(f.writer)

	for _, table := range def.Tables {
		f.FormatTable(table, relationsFor(def, table.Table), indexesFor(def, table.Table))
	}
	return nil
}

// FormatTable writes a single table section (also used by the multi-file
// formatter).
func (f *MarkdownFormatter) FormatTable(table schema.TableSchema, relations []schema.RelationEdge, indexes []schema.IndexDefinition) {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", table.Table)

	_, _ = fmt.Fprintln(f.writer, "### Fields")
	_, _ = fmt.Fprintln(f.writer)
	for _, field := range table.Fields {
		notes := fieldNotes(field)
		if notes != "" {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", field.Path, strings.Join(field.Types, "|"), notes)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", field.Path, strings.Join(field.Types, "|"))
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	if len(relations) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range relations {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s (confidence %.2f, %s)\n",
				rel.FromFieldPath, rel.ToTable, rel.Confidence, rel.Source)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Indexes")
		_, _ = fmt.Fprintln(f.writer)
		for _, idx := range indexes {
			if idx.Kind != schema.IndexByField {
				_, _ = fmt.Fprintf(f.writer, "- %s on (%s), %s\n", idx.Name, strings.Join(idx.Fields, ", "), idx.Kind)
			} else {
				_, _ = fmt.Fprintf(f.writer, "- %s on (%s)\n", idx.Name, strings.Join(idx.Fields, ", "))
			}
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}

// FormatIssues writes coverage issues grouped under severity headings.
func (f *MarkdownFormatter) FormatIssues(issues []schema.IndexCoverageIssue) error {
	_, _ = fmt.Fprintln(f.writer, "# Index Coverage")
	_, _ = fmt.Fprintln(f.writer)

	if len(issues) == 0 {
		_, _ = fmt.Fprintln(f.writer, "No index coverage issues found.")
		return nil
	}

	current := schema.Severity("")
	for _, issue := range issues {
		if issue.Severity != current {
			current = issue.Severity
			_, _ = fmt.Fprintf(f.writer, "## %s\n\n", strings.ToUpper(string(current)))
		}
		line := fmt.Sprintf("- `%s` (%s): %s", issue.FunctionPath, issue.Table, issue.Message)
		if issue.SuggestedIndex != "" {
			line += fmt.Sprintf(" — suggested index: `%s`", issue.SuggestedIndex)
		}
		_, _ = fmt.Fprintln(f.writer, line)
	}
	return nil
}

// FormatDrift writes a drift report as markdown.
func (f *MarkdownFormatter) FormatDrift(d *schema.SchemaDrift) error {
	_, _ = fmt.Fprintf(f.writer, "# Schema Drift: %s → %s\n\n", d.FromSnapshotID, d.ToSnapshotID)
	_, _ = fmt.Fprintf(f.writer, "%s\n\n", d.Summary)

	for _, td := range d.TableDiffs {
		_, _ = fmt.Fprintf(f.writer, "## %s (%s)\n\n", td.Table, td.Change)
		for _, fd := range td.FieldDiffs {
			switch fd.Change {
			case schema.ChangeAdded:
				_, _ = fmt.Fprintf(f.writer, "- added `%s`: %s\n", fd.Path, strings.Join(fd.NewTypes, "|"))
			case schema.ChangeRemoved:
				_, _ = fmt.Fprintf(f.writer, "- removed `%s`: %s\n", fd.Path, strings.Join(fd.OldTypes, "|"))
			case schema.ChangeTypeChanged:
				_, _ = fmt.Fprintf(f.writer, "- changed `%s`: %s → %s\n", fd.Path,
					strings.Join(fd.OldTypes, "|"), strings.Join(fd.NewTypes, "|"))
			}
		}
		_, _ = fmt.Fprintln(f.writer)
	}
	return nil
}

func fieldNotes(field schema.FieldStat) string {
	var notes []string
	switch {
	case field.OptionalRate >= 1:
		notes = append(notes, "optional")
	case field.OptionalRate > 0:
		notes = append(notes, fmt.Sprintf("optional in %.0f%% of samples", field.OptionalRate*100))
	}
	if field.Confidence < 1 {
		notes = append(notes, fmt.Sprintf("confidence %.2f", field.Confidence))
	}
	return strings.Join(notes, ", ")
}
