// Package workspace implements the filesystem collaborators of the engine: a
// file resolver for import-following during schema parsing, and a bounded
// enumerator of query-usage source files.
package workspace

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/besingamkb/ex-convex/internal/coverage"
)

// maxQuerySources caps enumeration so a pathological workspace cannot blow
// up an advisory analysis.
const maxQuerySources = 500

// DefaultSchemaEntry is the conventional schema-definition entry file.
const DefaultSchemaEntry = "schema.ts"

// skipDirs are never descended into during query-source enumeration.
var skipDirs = map[string]bool{
	"_generated":   true,
	"node_modules": true,
	".git":         true,
}

// Workspace is rooted at a functions directory and serves file content by
// slash-separated relative path.
type Workspace struct {
	root string
}

func New(root string) *Workspace {
	return &Workspace{root: root}
}

// ReadFile returns the content of the file at rel and whether it exists.
// Paths escaping the workspace root are rejected. Implements the parser's
// FileResolver contract.
func (w *Workspace) ReadFile(rel string) (string, bool) {
	cleaned := path.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	full := filepath.Join(w.root, filepath.FromSlash(cleaned))
	data, err := os.ReadFile(full)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// SchemaEntry reads the schema-definition entry file. name defaults to
// DefaultSchemaEntry when empty.
func (w *Workspace) SchemaEntry(name string) (string, bool) {
	if name == "" {
		name = DefaultSchemaEntry
	}
	return w.ReadFile(name)
}

// QuerySources enumerates the .ts/.js files considered query source,
// excluding schema-definition files, generated code and vendored modules.
// Enumeration is capped at maxQuerySources files; unreadable files are
// skipped silently.
func (w *Workspace) QuerySources() []coverage.Source {
	var sources []coverage.Source

	_ = filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if len(sources) >= maxQuerySources {
			return filepath.SkipAll
		}

		name := d.Name()
		ext := filepath.Ext(name)
		if ext != ".ts" && ext != ".js" {
			return nil
		}
		if name == "schema.ts" || name == "schema.js" {
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			rel = p
		}
		sources = append(sources, coverage.Source{
			Path:    filepath.ToSlash(rel),
			Content: string(data),
		})
		return nil
	})

	return sources
}

// Exists reports whether the workspace root looks like a Convex functions
// directory (has a schema entry file).
func (w *Workspace) Exists() bool {
	_, ok := w.SchemaEntry("")
	if !ok {
		_, ok = w.ReadFile("schema.js")
	}
	return ok
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return strings.TrimSuffix(w.root, string(os.PathSeparator))
}
