package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/contextweaver/internal/model"
	"github.com/phobologic/contextweaver/internal/ranking"
)

// hotspotCount is the number of files listed per hotspot table.
const hotspotCount = 5

func renderHeader(c *Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Code Context Report: %s\n\n", c.Name)

	languages := make(map[string]int)
	types, degraded := 0, 0
	for i := range c.Records {
		r := &c.Records[i]
		languages[r.Language]++
		types += len(r.Types)
		if r.Degraded {
			degraded++
		}
	}
	names := make([]string, 0, len(languages))
	for l := range languages {
		names = append(names, l)
	}
	sort.Strings(names)
	counts := make([]string, len(names))
	for i, l := range names {
		counts[i] = fmt.Sprintf("%s (%d)", l, languages[l])
	}

	fmt.Fprintf(&b, "* **Files:** %d\n", len(c.Records))
	fmt.Fprintf(&b, "* **Modules:** %d\n", len(c.Modules()))
	fmt.Fprintf(&b, "* **Types:** %d\n", types)
	if len(counts) > 0 {
		fmt.Fprintf(&b, "* **Languages:** %s\n", strings.Join(counts, ", "))
	}
	if degraded > 0 {
		fmt.Fprintf(&b, "* **Degraded:** %d file(s) could not be analyzed; raw content only\n", degraded)
	}
	b.WriteString("\n")
	return b.String()
}

func renderHotspots(c *Context) string {
	var b strings.Builder
	b.WriteString("# Hotspot Analysis\n\n")

	tables := []struct {
		title  string
		metric ranking.Metric
		label  func(v float64) string
	}{
		{"Top Files by Lines of Code", ranking.Lines, func(v float64) string { return fmt.Sprintf("%.0f LOC", v) }},
		{"Top Files by Import Count", ranking.Imports, func(v float64) string { return fmt.Sprintf("%.0f Imports", v) }},
		{"Top Files by Centrality", ranking.Centrality(c.Ranks), func(v float64) string { return fmt.Sprintf("rank %.4f", v) }},
		{"Top Files by Cyclomatic Complexity", ranking.Complexity, func(v float64) string { return fmt.Sprintf("complexity %.0f", v) }},
	}
	for _, t := range tables {
		entries := ranking.Top(c.Records, hotspotCount, t.metric)
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", t.title)
		for _, e := range entries {
			fmt.Fprintf(&b, "* **(%s)** - %s\n", t.label(e.Value), FileLink(e.Path))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func instabilityDescription(i float64) string {
	switch {
	case i <= 0.2:
		return "Very stable / core"
	case i >= 0.8:
		return "Very unstable / concrete"
	default:
		return "Intermediate stability"
	}
}

func renderInstability(c *Context) string {
	if len(c.Metrics) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Instability Analysis\n\n")
	b.WriteString("Instability (I) of every module, computed from the type dependencies between modules.\n")
	b.WriteString("Coupling and depth cover every analyzed file, including files this report leaves out.\n")
	b.WriteString("`I = Ce / (Ca + Ce)`\n")
	b.WriteString("- `Ca` (afferent): how many other modules depend on this module.\n")
	b.WriteString("- `Ce` (efferent): how many other modules this module depends on.\n")
	b.WriteString("- `Depth`: length of the longest dependency chain starting at the module.\n\n")
	b.WriteString("| Module | Ca | Ce | I | Depth | Description |\n")
	b.WriteString("|---|---|---|---|---|---|\n")

	modules := make([]string, 0, len(c.Metrics))
	for m := range c.Metrics {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	for _, m := range modules {
		mm := c.Metrics[m]
		fmt.Fprintf(&b, "| `%s` | %d | %d | %.2f | %d | %s |\n",
			m, mm.Afferent, mm.Efferent, mm.Instability, c.Depths[m], instabilityDescription(mm.Instability))
	}
	b.WriteString("\n")
	b.WriteString("- `I ≈ 0`: very stable; many modules depend on it and it depends on few. Often core contracts.\n")
	b.WriteString("- `I ≈ 1`: very unstable; it depends on many and few depend on it. Often concrete adapters.\n")
	b.WriteString("- Stable modules should be abstract and unstable ones concrete.\n\n")
	return b.String()
}

func renderMermaidDependencyGraph(c *Context) string {
	g := buildDependencyGraph(c)
	if len(g.relations) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Class Dependency Graph (Mermaid)\n\n")
	b.WriteString("Inheritance is drawn dashed, collaboration solid.\n\n")
	b.WriteString("```mermaid\ngraph TD;\n\n")
	modules := make([]string, 0, len(g.modules))
	for m := range g.modules {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	for _, m := range modules {
		if len(g.modules[m]) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  subgraph %s[\"%s\"]\n", mermaidID(m), m)
		for _, t := range sortedSet(g.modules[m]) {
			fmt.Fprintf(&b, "    %s\n", t)
		}
		b.WriteString("  end\n\n")
	}
	for _, r := range g.relations {
		fmt.Fprintf(&b, "  %s\n", r)
	}
	if len(g.interfaces) > 0 {
		b.WriteString("\n  classDef interface fill:#ccf,stroke:#333,stroke-width:2px\n")
		fmt.Fprintf(&b, "  class %s interface\n", strings.Join(g.interfaces, ","))
	}
	b.WriteString("```\n\n")
	return b.String()
}

func renderPlantUMLDependencyGraph(c *Context) string {
	g := buildDependencyGraph(c)
	if len(g.relations) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Class Dependency Graph (PlantUML)\n\n")
	b.WriteString("```plantuml\n@startuml\nhide empty members\n\n")
	modules := make([]string, 0, len(g.modules))
	for m := range g.modules {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	for _, m := range modules {
		if len(g.modules[m]) == 0 {
			continue
		}
		fmt.Fprintf(&b, "package %q {\n", m)
		for _, t := range sortedSet(g.modules[m]) {
			fmt.Fprintf(&b, "  %s\n", plantUMLDecl(t, c.TypeKinds))
		}
		b.WriteString("}\n\n")
	}
	for _, r := range g.relations {
		fmt.Fprintf(&b, "%s\n", r.PlantUML())
	}
	b.WriteString("@enduml\n```\n\n")
	return b.String()
}

func renderMermaidModuleDiagrams(c *Context) string {
	diagrams := buildModuleDiagrams(c)
	if len(diagrams) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Module Diagrams (Mermaid)\n\n")
	for _, d := range diagrams {
		fmt.Fprintf(&b, "## Module: %s\n\n", d.module)
		b.WriteString("```mermaid\ngraph TD;\n")
		for _, r := range d.relations {
			fmt.Fprintf(&b, "  %s\n", r)
		}
		b.WriteString("```\n\n")
	}
	return b.String()
}

func renderPlantUMLModuleDiagrams(c *Context) string {
	diagrams := buildModuleDiagrams(c)
	if len(diagrams) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Module Diagrams (PlantUML)\n\n")
	for _, d := range diagrams {
		fmt.Fprintf(&b, "## Module: %s\n\n", d.module)
		fmt.Fprintf(&b, "```plantuml\n@startuml %s\nhide empty members\n", mermaidID(d.module))
		for _, t := range d.types {
			fmt.Fprintf(&b, "%s\n", plantUMLDecl(t, c.TypeKinds))
		}
		b.WriteString("\n")
		for _, r := range d.relations {
			fmt.Fprintf(&b, "%s\n", r.PlantUML())
		}
		b.WriteString("@enduml\n```\n\n")
	}
	return b.String()
}

func renderModuleAdjacency(c *Context) (string, error) {
	if len(c.Adjacency) == 0 {
		return "", nil
	}

	adjacency := make(map[string][]string, len(c.Adjacency))
	for m, deps := range c.Adjacency {
		if deps == nil {
			deps = []string{}
		}
		adjacency[m] = deps
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(adjacency); err != nil {
		return "", fmt.Errorf("encoding module adjacency: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding module adjacency: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Module Adjacency List\n\n")
	b.WriteString("```yaml\n")
	b.Write(buf.Bytes())
	b.WriteString("```\n\n")
	return b.String(), nil
}

type treeNode struct {
	name     string
	path     string
	children map[string]*treeNode
}

func buildTree(records []model.FileRecord) *treeNode {
	root := &treeNode{children: make(map[string]*treeNode)}
	for i := range records {
		parts := strings.Split(records[i].Path, "/")
		node := root
		for j, part := range parts {
			if part == "" {
				continue
			}
			child, ok := node.children[part]
			if !ok {
				child = &treeNode{name: part, children: make(map[string]*treeNode)}
				node.children[part] = child
			}
			if j == len(parts)-1 {
				child.path = records[i].Path
			}
			node = child
		}
	}
	return root
}

// writeTree lists directories before files, each group sorted by name.
func writeTree(b *strings.Builder, node *treeNode, level int) {
	var dirs, files []*treeNode
	for _, child := range node.children {
		if child.path == "" {
			dirs = append(dirs, child)
		} else {
			files = append(files, child)
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].name < dirs[j].name })
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })

	indent := strings.Repeat("    ", level)
	for _, d := range dirs {
		fmt.Fprintf(b, "%s- %s/\n", indent, d.name)
		writeTree(b, d, level+1)
	}
	for _, f := range files {
		fmt.Fprintf(b, "%s- [%s](#%s)\n", indent, f.name, Anchor(FileHeading(f.path)))
	}
}

func renderDirectoryTree(c *Context) string {
	var b strings.Builder
	b.WriteString("# Directory Structure\n\n")
	fmt.Fprintf(&b, "- %s/\n", c.Name)
	writeTree(&b, buildTree(c.Records), 1)
	b.WriteString("\n")
	return b.String()
}
