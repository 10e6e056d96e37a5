// Package report turns analyzed records into a consolidated, navigable
// document. A Context is built once per run and rendered by an ordered list
// of independent sections.
package report

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/phobologic/contextweaver/internal/graph"
	"github.com/phobologic/contextweaver/internal/model"
)

// Context is the shared snapshot every section renders from. Sections must
// treat it as read-only.
type Context struct {
	// Root is the analyzed directory and Name its base name.
	Root string
	Name string

	// Records are sorted by path.
	Records   []model.FileRecord
	Incoming  graph.Incoming
	Metrics   map[string]model.ModuleMetrics
	TypeKinds map[string]string
	Adjacency map[string][]string
	Depths    map[string]int
	Ranks     map[string]float64
}

// NewContext builds the report context. records are copied and sorted by
// path; kinds are merged last-write-wins.
func NewContext(root string, records []model.FileRecord, incoming graph.Incoming, metrics map[string]model.ModuleMetrics) *Context {
	sorted := make([]model.FileRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	kinds := make(map[string]string)
	for i := range sorted {
		for name, kind := range sorted[i].TypeKinds {
			kinds[name] = kind
		}
	}

	if incoming == nil {
		incoming = graph.Incoming{}
	}
	if metrics == nil {
		metrics = map[string]model.ModuleMetrics{}
	}

	adjacency := graph.ModuleAdjacency(sorted)
	return &Context{
		Root:      root,
		Name:      filepath.Base(root),
		Records:   sorted,
		Incoming:  incoming,
		Metrics:   metrics,
		TypeKinds: kinds,
		Adjacency: adjacency,
		Depths:    graph.DependencyDepth(adjacency),
		Ranks:     graph.Rank(sorted, graph.BuildFileGraph(sorted)),
	}
}

// UseModuleGraph replaces the module adjacency and depths, typically with
// ones computed over the same records as Metrics.
func (c *Context) UseModuleGraph(adjacency map[string][]string) {
	c.Adjacency = adjacency
	c.Depths = graph.DependencyDepth(adjacency)
}

// Modules returns the sorted names of all modules owning at least one record.
func (c *Context) Modules() []string {
	seen := make(map[string]struct{})
	var out []string
	for i := range c.Records {
		m := c.Records[i].Module
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

var (
	anchorStrip    = regexp.MustCompile(`[^a-z0-9\s-]`)
	anchorCollapse = regexp.MustCompile(`[\s-]+`)
)

// Anchor converts heading text into a markdown link fragment.
func Anchor(text string) string {
	a := strings.ToLower(strings.TrimSpace(text))
	a = anchorStrip.ReplaceAllString(a, "")
	a = anchorCollapse.ReplaceAllString(a, "-")
	return strings.Trim(a, "-")
}

// FileHeading is the heading text of a file's entry in the File Contents
// section.
func FileHeading(path string) string {
	return "File: " + path
}

// FileLink is a markdown link to a file's entry.
func FileLink(path string) string {
	return "[`" + path + "`](#" + Anchor(FileHeading(path)) + ")"
}
