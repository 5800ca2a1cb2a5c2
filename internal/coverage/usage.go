package coverage

import (
	"fmt"
	"strings"

	"github.com/besingamkb/ex-convex/internal/scan"
)

// Source is one query-usage source file handed in by the enumerating
// collaborator.
type Source struct {
	Path    string
	Content string
}

// chainWindow bounds how many lines after a query entry point are considered
// part of its call chain.
const chainWindow = 10

// usage is one extracted database-query call chain.
type usage struct {
	functionPath    string
	table           string
	indexName       string
	fullScan        bool // .collect()
	bounded         bool // .take(n)
	firstOnly       bool // .first() / .unique()
	memoryFilter    bool // .filter(...)
	constraintCount int  // .eq/.gt/.gte/.lt/.lte inside the chain
}

var queryMarkers = []string{".query(\"", ".query('"}

var constraintOps = []string{".eq(", ".gt(", ".gte(", ".lt(", ".lte("}

// extractUsages scans src line by line for database-query entry points with a
// literal table-name argument and captures a bounded window of the following
// lines as the chain text.
func extractUsages(src Source) []usage {
	lines := strings.Split(src.Content, "\n")
	var usages []usage

	for i, line := range lines {
		col, table := queryCall(line)
		if table == "" {
			continue
		}

		var chain strings.Builder
		chain.WriteString(line[col:])
		// A statement terminated on the entry line takes no window at all.
		if !strings.HasSuffix(strings.TrimSpace(line[col:]), ";") {
			for j := i + 1; j <= i+chainWindow && j < len(lines); j++ {
				chain.WriteString("\n")
				chain.WriteString(lines[j])
				if strings.HasSuffix(strings.TrimSpace(lines[j]), ";") {
					break
				}
			}
		}

		u := parseChain(chain.String())
		u.functionPath = fmt.Sprintf("%s:%d", src.Path, i+1)
		u.table = table
		usages = append(usages, u)
	}
	return usages
}

// queryCall returns the column of the first query entry point on the line and
// its literal table argument, or (-1, "") when there is none.
func queryCall(line string) (int, string) {
	for _, marker := range queryMarkers {
		at := strings.Index(line, marker)
		if at < 0 {
			continue
		}
		quote := marker[len(marker)-1:]
		rest := line[at+len(marker):]
		end := strings.Index(rest, quote)
		if end <= 0 {
			continue
		}
		return at, rest[:end]
	}
	return -1, ""
}

func parseChain(chain string) usage {
	u := usage{
		fullScan:     strings.Contains(chain, ".collect("),
		bounded:      strings.Contains(chain, ".take("),
		memoryFilter: strings.Contains(chain, ".filter("),
		firstOnly: strings.Contains(chain, ".first(") ||
			strings.Contains(chain, ".unique("),
	}

	u.indexName = referencedIndex(chain, ".withIndex(")
	if u.indexName == "" {
		u.indexName = referencedIndex(chain, ".withSearchIndex(")
	}

	for _, op := range constraintOps {
		u.constraintCount += strings.Count(chain, op)
	}
	return u
}

// referencedIndex extracts the literal first argument of an index stage.
func referencedIndex(chain, marker string) string {
	at := strings.Index(chain, marker)
	if at < 0 {
		return ""
	}
	paren := at + len(marker) - 1
	end := scan.Matching(chain, paren)
	if end < 0 {
		end = len(chain)
	}
	args := scan.SplitTop(chain[paren+1:end], ',')
	if len(args) == 0 {
		return ""
	}
	name := scan.Unquote(args[0])
	if name == args[0] {
		// Not a literal; nothing usable.
		return ""
	}
	return name
}
