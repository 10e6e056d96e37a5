package report

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/phobologic/contextweaver/internal/model"
)

// apiTypeLine matches public API outline lines that declare a type.
var apiTypeLine = regexp.MustCompile(`^\s*-\s+(?:type|class|module|interface|struct|record|enum)\s+([A-Za-z_][A-Za-z0-9_]*)`)

func renderFileContents(c *Context) string {
	var b strings.Builder
	b.WriteString("# Files\n\n")
	for i := range c.Records {
		writeFile(&b, c, &c.Records[i])
	}
	return b.String()
}

func writeFile(b *strings.Builder, c *Context, r *model.FileRecord) {
	fmt.Fprintf(b, "## %s\n\n", FileHeading(r.Path))

	if r.Degraded {
		b.WriteString("> Analysis failed for this file; only the raw content is shown.\n\n")
	}

	incoming := c.Incoming.Of(r.Path)
	writeContextDiagram(b, c, r, incoming)

	if len(incoming) > 0 {
		fmt.Fprintf(b, "**Used By:** %s\n\n", strings.Join(incoming, ", "))
	}

	if len(r.Metrics.PublicAPI) > 0 {
		b.WriteString("### Public API\n\n")
		for _, line := range r.Metrics.PublicAPI {
			b.WriteString(line + "\n")
			m := apiTypeLine.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			sem, ok := r.Semantics[m[1]]
			if !ok {
				continue
			}
			if len(sem.Modifiers) > 0 {
				fmt.Fprintf(b, "    - Modifiers: %s\n", strings.Join(sem.Modifiers, ", "))
			}
			if len(sem.Attributes) > 0 {
				fmt.Fprintf(b, "    - Attributes: %s\n", strings.Join(sem.Attributes, ", "))
			}
			if len(sem.Interfaces) > 0 {
				fmt.Fprintf(b, "    - Implements: %s\n", strings.Join(sem.Interfaces, ", "))
			}
		}
		b.WriteString("\n")
	}

	if len(r.Imports) > 0 {
		b.WriteString("### Imports\n\n")
		for _, imp := range r.Imports {
			fmt.Fprintf(b, "- %s\n", imp)
		}
		b.WriteString("\n")
	}

	b.WriteString("### Metrics\n\n")
	fmt.Fprintf(b, "* **Lines of Code:** %d\n", r.Lines)
	if r.Metrics.Complexity != nil {
		fmt.Fprintf(b, "* **Cyclomatic Complexity:** %d\n", *r.Metrics.Complexity)
	}
	if r.Metrics.MaxNesting != nil {
		fmt.Fprintf(b, "* **Max Nesting Depth:** %d\n", *r.Metrics.MaxNesting)
	}
	if rank, ok := c.Ranks[r.Path]; ok {
		fmt.Fprintf(b, "* **Centrality:** %.4f\n", rank)
	}
	b.WriteString("\n")

	content := strings.TrimSpace(r.Content)
	f := fence(content)
	b.WriteString("### Source Code\n\n")
	fmt.Fprintf(b, "%s%s\n%s\n%s\n\n", f, r.Language, content, f)
}

// writeContextDiagram draws the outgoing edges of r together with an edge
// from every incoming entity to the file's primary type.
func writeContextDiagram(b *strings.Builder, c *Context, r *model.FileRecord, incoming []string) {
	var rels []model.Relation
	for _, dep := range r.Dependencies {
		if dep.WellFormed() {
			rels = append(rels, dep)
		}
	}
	primary := r.PrimaryType()
	for _, src := range incoming {
		rels = append(rels, model.Relation{Source: src, Target: primary, Kind: model.Usage})
	}
	if len(rels) == 0 {
		return
	}
	rels = sortRelations(rels)

	participants := make(map[string]struct{})
	for _, rel := range rels {
		participants[rel.Source] = struct{}{}
		participants[rel.Target] = struct{}{}
	}
	names := make([]string, 0, len(participants))
	for p := range participants {
		names = append(names, p)
	}
	sort.Strings(names)

	b.WriteString("### Context\n\n")
	b.WriteString("```mermaid\ngraph LR;\n")
	for _, rel := range rels {
		fmt.Fprintf(b, "  %s\n", rel)
	}
	for _, t := range r.Types {
		if _, ok := participants[t]; ok {
			fmt.Fprintf(b, "  style %s fill:#f9f,stroke:#333,stroke-width:2px\n", t)
		}
	}
	b.WriteString("```\n\n")

	b.WriteString("```plantuml\n@startuml\nleft to right direction\nhide empty members\n")
	for _, p := range names {
		decl := plantUMLDecl(p, c.TypeKinds)
		if r.Defines(p) {
			decl += " #Pink"
		}
		b.WriteString(decl + "\n")
	}
	for _, rel := range rels {
		fmt.Fprintf(b, "%s\n", rel.PlantUML())
	}
	b.WriteString("@enduml\n```\n\n")
}
