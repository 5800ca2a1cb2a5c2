package parser

import (
	"path"
	"regexp"

	"github.com/besingamkb/ex-convex/internal/schema"
)

// FileResolver supplies source text for candidate relative paths during
// import resolution. Paths are slash-separated and relative to the workspace
// root handed to the resolver.
type FileResolver interface {
	// ReadFile returns the content of the file at the given candidate path
	// and reports whether it exists.
	ReadFile(path string) (string, bool)
}

// Traversal bounds. Every parse invocation gets a fresh visited set, so
// cyclic import chains terminate and no file is parsed twice.
const (
	maxImportDepth = 16
	maxImportFiles = 256
)

var (
	reImportFrom = regexp.MustCompile(`(?:import|export)\s[^;'"]*?from\s*['"](\.{1,2}/[^'"]+)['"]`)
	reImportBare = regexp.MustCompile(`import\s*['"](\.{1,2}/[^'"]+)['"]`)
)

type walker struct {
	resolver FileResolver
	visited  map[string]bool
	files    int
}

func newWalker(resolver FileResolver) *walker {
	return &walker{
		resolver: resolver,
		visited:  make(map[string]bool),
	}
}

// walk parses text and recurses into every resolvable relative import,
// resolving them against dir. Missing or unreadable targets are skipped.
func (w *walker) walk(text, dir string, depth int, def *schema.Definition) {
	parseInto(text, def)

	if w.resolver == nil || depth >= maxImportDepth {
		return
	}

	for _, imp := range importPaths(text) {
		target := path.Join(dir, imp)
		for _, candidate := range candidatePaths(target) {
			if w.visited[candidate] {
				break
			}
			if w.files >= maxImportFiles {
				return
			}
			content, ok := w.resolver.ReadFile(candidate)
			if !ok {
				continue
			}
			w.visited[candidate] = true
			w.files++
			w.walk(content, path.Dir(candidate), depth+1, def)
			break
		}
	}
}

// importPaths returns the relative import and re-export targets of text in
// source order, deduplicated.
func importPaths(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, re := range []*regexp.Regexp{reImportFrom, reImportBare} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				out = append(out, m[1])
			}
		}
	}
	return out
}

// candidatePaths lists the files an extensionless import target may resolve
// to: the direct file or a directory index file.
func candidatePaths(target string) []string {
	if ext := path.Ext(target); ext == ".ts" || ext == ".js" {
		return []string{target}
	}
	return []string{
		target + ".ts",
		target + ".js",
		target + "/index.ts",
		target + "/index.js",
	}
}
