// Package parse extracts structural facts from source files using tree-sitter.
package parse

import (
	"context"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/contextweaver/internal/lang"
	"github.com/phobologic/contextweaver/internal/model"
)

// Facts are the structural facts of one source file.
type Facts struct {
	Types        []string
	TypeKinds    map[string]string
	Semantics    map[string]model.TypeSemantics
	Imports      []string
	Dependencies []model.Relation
	Complexity   int
	MaxNesting   int
	PublicAPI    []string
}

// KnownFunc reports whether a type name is defined somewhere in the project.
type KnownFunc func(name string) bool

// parseTree checks ctx once and then parses without a cancelable context.
// ParseCtx sets a sticky cancel flag on the parser when ctx ends, even after
// the parse has returned, and pooled parsers must never carry that flag.
func parseTree(ctx context.Context, parser *sitter.Parser, source []byte) (*sitter.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tree, err := parser.ParseCtx(context.WithoutCancel(ctx), nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	return tree, nil
}

// DeclaredTypes returns the names of the types declared in source, in order.
// The parser must be created for l.
func DeclaredTypes(ctx context.Context, l *lang.Language, parser *sitter.Parser, source []byte) ([]string, error) {
	if len(source) == 0 {
		return nil, nil
	}
	tree, err := parseTree(ctx, parser, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var names []string
	seen := make(map[string]struct{})
	walk(tree.RootNode(), func(n *sitter.Node) {
		for _, d := range l.DeclareTypes(n, source) {
			if _, ok := seen[d.Name]; !ok {
				seen[d.Name] = struct{}{}
				names = append(names, d.Name)
			}
		}
	})
	return names, nil
}

// Extract parses source and returns its facts. Usage edges are only emitted
// towards types for which known returns true; a nil known restricts them to
// types declared in the same file. The parser must be created for l.
func Extract(ctx context.Context, l *lang.Language, parser *sitter.Parser, source []byte, known KnownFunc) (*Facts, error) {
	facts := &Facts{
		TypeKinds:  map[string]string{},
		Semantics:  map[string]model.TypeSemantics{},
		Complexity: 1,
	}
	if len(source) == 0 {
		return facts, nil
	}

	tree, err := parseTree(ctx, parser, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	root := tree.RootNode()

	var decls []lang.TypeDecl
	imports := map[string]struct{}{}
	walk(root, func(n *sitter.Node) {
		decls = append(decls, l.DeclareTypes(n, source)...)
		for _, imp := range l.Imports(n, source) {
			imports[imp] = struct{}{}
		}
		if l.IsBranch(n, source) {
			facts.Complexity++
		}
	})

	for _, d := range decls {
		if _, dup := facts.TypeKinds[d.Name]; dup {
			continue
		}
		facts.Types = append(facts.Types, d.Name)
		facts.TypeKinds[d.Name] = d.Kind
		if !emptySemantics(d.Semantics) {
			facts.Semantics[d.Name] = d.Semantics
		}
	}

	if known == nil {
		local := facts.TypeKinds
		known = func(name string) bool {
			_, ok := local[name]
			return ok
		}
	}
	facts.Dependencies = dependencies(l, root, source, decls, known)

	for imp := range imports {
		facts.Imports = append(facts.Imports, imp)
	}
	sort.Strings(facts.Imports)

	facts.MaxNesting = maxNesting(root, l.Nesting)
	facts.PublicAPI = l.PublicAPI(root, source)
	return facts, nil
}

// dependencies builds inheritance edges from declared bases and usage edges
// from type references inside each type's body (or its methods, for
// languages that declare methods outside the type).
func dependencies(l *lang.Language, root *sitter.Node, source []byte, decls []lang.TypeDecl, known KnownFunc) []model.Relation {
	edges := map[model.Relation]struct{}{}
	inherits := map[[2]string]struct{}{}

	for _, d := range decls {
		for _, base := range d.Bases {
			if _, implicit := l.BaseRoots[base]; implicit || base == d.Name || base == "" {
				continue
			}
			edges[model.Relation{Source: d.Name, Target: base, Kind: model.Inheritance}] = struct{}{}
			inherits[[2]string{d.Name, base}] = struct{}{}
		}
	}

	addUsage := func(src string, body *sitter.Node) {
		walk(body, func(n *sitter.Node) {
			ref := l.TypeRef(n, source)
			if ref == "" || ref == src || !known(ref) {
				return
			}
			if _, ok := inherits[[2]string{src, ref}]; ok {
				return
			}
			edges[model.Relation{Source: src, Target: ref, Kind: model.Usage}] = struct{}{}
		})
	}

	for _, d := range decls {
		for _, body := range d.Body {
			addUsage(d.Name, body)
		}
	}
	if l.MethodOwner != nil {
		for _, n := range lang.NamedChildren(root) {
			if owner := l.MethodOwner(n, source); owner != "" {
				addUsage(owner, n)
			}
		}
	}

	out := make([]model.Relation, 0, len(edges))
	for e := range edges {
		if e.WellFormed() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// walk visits node and all of its named descendants depth-first.
func walk(node *sitter.Node, visit func(*sitter.Node)) {
	if node == nil {
		return
	}
	visit(node)
	for i := 0; i < int(node.NamedChildCount()); i++ {
		walk(node.NamedChild(i), visit)
	}
}

func maxNesting(node *sitter.Node, nesting map[string]struct{}) int {
	best := 0
	var visit func(n *sitter.Node, depth int)
	visit = func(n *sitter.Node, depth int) {
		if _, ok := nesting[n.Type()]; ok {
			depth++
			if depth > best {
				best = depth
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i), depth)
		}
	}
	visit(node, 0)
	return best
}

func emptySemantics(s model.TypeSemantics) bool {
	return len(s.Modifiers) == 0 && len(s.Interfaces) == 0 && len(s.Attributes) == 0
}
