package report

import (
	"fmt"
	"strings"
)

// Section is one independently rendered part of the report. Render returns
// an empty string when the section has nothing to show.
type Section interface {
	Name() string
	Description() string
	Required() bool
	Render(c *Context) (string, error)
}

type section struct {
	name        string
	description string
	required    bool
	render      func(c *Context) (string, error)
}

func (s *section) Name() string                      { return s.name }
func (s *section) Description() string               { return s.description }
func (s *section) Required() bool                    { return s.required }
func (s *section) Render(c *Context) (string, error) { return s.render(c) }

// infallible adapts a renderer that cannot fail.
func infallible(render func(c *Context) string) func(c *Context) (string, error) {
	return func(c *Context) (string, error) { return render(c), nil }
}

// Section names.
const (
	HeaderName                  = "Header"
	HotspotsName                = "Hotspots"
	InstabilityName             = "Instability"
	MermaidDependencyGraphName  = "Dependency Graph (Mermaid)"
	PlantUMLDependencyGraphName = "Dependency Graph (PlantUML)"
	MermaidModuleDiagramsName   = "Module Diagrams (Mermaid)"
	PlantUMLModuleDiagramsName  = "Module Diagrams (PlantUML)"
	ModuleAdjacencyName         = "Module Adjacency (YAML)"
	DirectoryTreeName           = "Directory Tree"
	FileContentsName            = "File Contents"
)

// DefaultSections returns every built-in section in report order.
func DefaultSections() []Section {
	return []Section{
		&section{HeaderName, "Title and summary of the analyzed tree", true, infallible(renderHeader)},
		&section{HotspotsName, "Top files by size, imports, centrality and complexity", false, infallible(renderHotspots)},
		&section{InstabilityName, "Afferent/efferent coupling and instability per module", false, infallible(renderInstability)},
		&section{MermaidDependencyGraphName, "Global type dependency graph with Mermaid.js", false, infallible(renderMermaidDependencyGraph)},
		&section{PlantUMLDependencyGraphName, "Global type dependency graph with PlantUML", false, infallible(renderPlantUMLDependencyGraph)},
		&section{MermaidModuleDiagramsName, "Per-module dependency diagrams with Mermaid.js", false, infallible(renderMermaidModuleDiagrams)},
		&section{PlantUMLModuleDiagramsName, "Per-module dependency diagrams with PlantUML", false, infallible(renderPlantUMLModuleDiagrams)},
		&section{ModuleAdjacencyName, "Module dependencies as a YAML adjacency list", false, renderModuleAdjacency},
		&section{DirectoryTreeName, "Directory structure with links to each file", false, infallible(renderDirectoryTree)},
		&section{FileContentsName, "Per-file context diagrams, API, imports, metrics and source", true, infallible(renderFileContents)},
	}
}

// Composer renders a fixed, ordered list of sections.
type Composer struct {
	sections []Section
}

// NewComposer returns a composer over sections, or over DefaultSections when
// none are given.
func NewComposer(sections ...Section) *Composer {
	if len(sections) == 0 {
		sections = DefaultSections()
	}
	return &Composer{sections: sections}
}

// Sections returns the registered sections in order.
func (c *Composer) Sections() []Section {
	return c.sections
}

// Optional returns the names of all optional sections in order.
func (c *Composer) Optional() []string {
	var names []string
	for _, s := range c.sections {
		if !s.Required() {
			names = append(names, s.Name())
		}
	}
	return names
}

// Active returns the names of the sections Render would include: every
// required section and each optional one listed in enabled.
func (c *Composer) Active(enabled []string) []string {
	set := make(map[string]struct{}, len(enabled))
	for _, name := range enabled {
		set[name] = struct{}{}
	}
	var names []string
	for _, s := range c.sections {
		if _, ok := set[s.Name()]; ok || s.Required() {
			names = append(names, s.Name())
		}
	}
	return names
}

// Render renders the active sections in registration order.
func (c *Composer) Render(ctx *Context, enabled []string) (string, error) {
	active := make(map[string]struct{})
	for _, name := range c.Active(enabled) {
		active[name] = struct{}{}
	}

	var b strings.Builder
	for _, s := range c.sections {
		if _, ok := active[s.Name()]; !ok {
			continue
		}
		out, err := s.Render(ctx)
		if err != nil {
			return "", fmt.Errorf("rendering %s section: %w", s.Name(), err)
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

// Resolve maps user-supplied fragments to section names. A fragment matches
// every section whose name contains it, case-insensitively. The result is in
// registration order without duplicates. A fragment matching nothing is an
// error.
func (c *Composer) Resolve(fragments []string) ([]string, error) {
	matched := make(map[string]struct{})
	var unknown []string
	for _, f := range fragments {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		found := false
		for _, s := range c.sections {
			if strings.Contains(strings.ToLower(s.Name()), f) {
				matched[s.Name()] = struct{}{}
				found = true
			}
		}
		if !found {
			unknown = append(unknown, f)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown section %q", strings.Join(unknown, ", "))
	}

	var names []string
	for _, s := range c.sections {
		if _, ok := matched[s.Name()]; ok {
			names = append(names, s.Name())
		}
	}
	return names, nil
}

// Exclude returns the optional section names not matched by fragments.
func (c *Composer) Exclude(fragments []string) ([]string, error) {
	excluded, err := c.Resolve(fragments)
	if err != nil {
		return nil, err
	}
	skip := make(map[string]struct{}, len(excluded))
	for _, name := range excluded {
		skip[name] = struct{}{}
	}
	var names []string
	for _, name := range c.Optional() {
		if _, ok := skip[name]; !ok {
			names = append(names, name)
		}
	}
	return names, nil
}
