package formatter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/besingamkb/ex-convex/internal/schema"
)

const (
	formatMarkdown = "markdown"
	formatText     = "text"
)

// MultiFileFormatter writes a schema to multiple files in a directory: an
// _overview file plus one file per table.
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter.
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// FormatDefinition writes the schema to multiple files.
func (f *MultiFileFormatter) FormatDefinition(def *schema.Definition) error {
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeOverview(def); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, table := range def.Tables {
		if err := f.writeTableFile(table, def); err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", table.Table, err)
		}
	}
	return nil
}

func (f *MultiFileFormatter) writeOverview(def *schema.Definition) error {
	ext := f.fileExtension()
	file, err := os.Create(filepath.Join(f.OutputDir, "_overview"+ext))
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if f.OutputFormat == formatMarkdown {
		_, _ = fmt.Fprintf(file, "# Schema Overview\n\n")
		_, _ = fmt.Fprintf(file, "Each table has a corresponding file: `<table_name>%s`\n\n", ext)
		_, _ = fmt.Fprintf(file, "## Tables\n\n")
	} else {
		_, _ = fmt.Fprintf(file, "SCHEMA OVERVIEW\n")
		_, _ = fmt.Fprintf(file, "Each table has a file: <table_name>%s\n\n", ext)
	}

	// Sort tables alphabetically for the overview.
	sorted := make([]schema.TableSchema, len(def.Tables))
	copy(sorted, def.Tables)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Table < sorted[j].Table
	})

	for _, table := range sorted {
		name := table.Table
		if f.OutputFormat == formatMarkdown {
			name = "**" + name + "**"
		}
		_, _ = fmt.Fprintf(file, "- %s", name)
		if targets := relationTargets(def, table.Table); len(targets) > 0 {
			_, _ = fmt.Fprintf(file, " (references: %s)", strings.Join(targets, ", "))
		}
		_, _ = fmt.Fprintf(file, "\n")
	}
	return nil
}

func (f *MultiFileFormatter) writeTableFile(table schema.TableSchema, def *schema.Definition) error {
	file, err := os.Create(filepath.Join(f.OutputDir, table.Table+f.fileExtension()))
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	relations := relationsFor(def, table.Table)
	indexes := indexesFor(def, table.Table)

	if f.OutputFormat == formatMarkdown {
		md := NewMarkdownFormatter(file)
		md.FormatTable(table, relations, indexes)

		if incoming := incomingRelations(def, table.Table); len(incoming) > 0 {
			_, _ = fmt.Fprintf(file, "### Referenced by\n\n")
			for _, rel := range incoming {
				_, _ = fmt.Fprintf(file, "- %s.%s (confidence %.2f)\n",
					rel.FromTable, rel.FromFieldPath, rel.Confidence)
			}
			_, _ = fmt.Fprintln(file)
		}
		return nil
	}

	txt := NewTextFormatter(file)
	txt.formatTable(table, relations, indexes)
	return nil
}

// incomingRelations finds all edges pointing at the given table.
func incomingRelations(def *schema.Definition, table string) []schema.RelationEdge {
	var incoming []schema.RelationEdge
	for _, rel := range def.Relations {
		if rel.ToTable == table {
			incoming = append(incoming, rel)
		}
	}
	return incoming
}

func relationTargets(def *schema.Definition, table string) []string {
	var targets []string
	seen := make(map[string]bool)
	for _, rel := range def.Relations {
		if rel.FromTable == table && !seen[rel.ToTable] {
			seen[rel.ToTable] = true
			targets = append(targets, rel.ToTable)
		}
	}
	return targets
}

func (f *MultiFileFormatter) fileExtension() string {
	if f.OutputFormat == formatMarkdown {
		return ".md"
	}
	return ".txt"
}
