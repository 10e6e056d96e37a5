package report

import (
	"sort"
	"strings"

	"github.com/phobologic/contextweaver/internal/model"
)

// plantUMLDecl declares a type in PlantUML using its recorded kind.
func plantUMLDecl(name string, kinds map[string]string) string {
	keyword, stereotype := "class", ""
	switch kinds[name] {
	case model.KindInterface:
		keyword = "interface"
	case model.KindEnum:
		keyword = "enum"
	case model.KindRecord:
		stereotype = "<<record>>"
	case model.KindStruct:
		stereotype = "<<struct>>"
	}
	if stereotype == "" {
		return keyword + " " + name
	}
	return keyword + " " + name + " " + stereotype
}

// mermaidID turns a module name into a valid Mermaid identifier.
func mermaidID(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, name)
}

// fence returns a code fence longer than any backtick run in content.
func fence(content string) string {
	longest, run := 0, 0
	for _, r := range content {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	if longest < 3 {
		return "```"
	}
	return strings.Repeat("`", longest+1)
}

// sortRelations deduplicates relations and orders them by notation.
func sortRelations(rels []model.Relation) []model.Relation {
	seen := make(map[model.Relation]struct{}, len(rels))
	out := make([]model.Relation, 0, len(rels))
	for _, r := range rels {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type dependencyGraph struct {
	// modules maps a module to the source types it contributes.
	modules    map[string]map[string]struct{}
	relations  []model.Relation
	interfaces []string
}

func buildDependencyGraph(c *Context) dependencyGraph {
	g := dependencyGraph{modules: make(map[string]map[string]struct{})}
	interfaces := make(map[string]struct{})
	var rels []model.Relation
	for i := range c.Records {
		r := &c.Records[i]
		if g.modules[r.Module] == nil {
			g.modules[r.Module] = make(map[string]struct{})
		}
		for _, dep := range r.Dependencies {
			if !dep.WellFormed() {
				continue
			}
			rels = append(rels, dep)
			g.modules[r.Module][dep.Source] = struct{}{}
			if c.TypeKinds[dep.Target] == model.KindInterface {
				interfaces[dep.Target] = struct{}{}
			}
		}
	}
	g.relations = sortRelations(rels)
	g.interfaces = sortedSet(interfaces)
	return g
}

type moduleDiagram struct {
	module    string
	relations []model.Relation
	types     []string
}

// buildModuleDiagrams groups relations by the module of the declaring file.
// Modules without relations are omitted.
func buildModuleDiagrams(c *Context) []moduleDiagram {
	rels := make(map[string][]model.Relation)
	types := make(map[string]map[string]struct{})
	for i := range c.Records {
		r := &c.Records[i]
		for _, dep := range r.Dependencies {
			if !dep.WellFormed() {
				continue
			}
			rels[r.Module] = append(rels[r.Module], dep)
			if types[r.Module] == nil {
				types[r.Module] = make(map[string]struct{})
			}
			types[r.Module][dep.Source] = struct{}{}
			types[r.Module][dep.Target] = struct{}{}
		}
	}

	var out []moduleDiagram
	for _, m := range c.Modules() {
		if len(rels[m]) == 0 {
			continue
		}
		out = append(out, moduleDiagram{
			module:    m,
			relations: sortRelations(rels[m]),
			types:     sortedSet(types[m]),
		})
	}
	return out
}
