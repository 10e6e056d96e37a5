// Package lang provides a language registry mapping file extensions to
// tree-sitter languages and the syntax hooks used to extract facts from them.
package lang

import (
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/contextweaver/internal/model"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// TypeDecl is a type declared in a syntax tree.
type TypeDecl struct {
	Name string
	Kind string
	// Bases are inherited, embedded or implemented types, in source order.
	Bases     []string
	Semantics model.TypeSemantics
	// Body holds the subtrees whose type references belong to this type.
	Body []*sitter.Node
}

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Name       string
	Extensions []string
	lang       *sitter.Language

	// DeclareTypes returns the types declared directly by node, if any.
	DeclareTypes func(node *sitter.Node, source []byte) []TypeDecl

	// Imports returns the imported modules or paths named by node, if any.
	Imports func(node *sitter.Node, source []byte) []string

	// TypeRef returns the type name node refers to, or "".
	TypeRef func(node *sitter.Node, source []byte) string

	// MethodOwner returns the type a declaration outside any type body belongs
	// to (Go methods). Nil for languages where methods live in the type body.
	MethodOwner func(node *sitter.Node, source []byte) string

	// PublicAPI lists the public declarations of a file as an indented outline.
	PublicAPI func(root *sitter.Node, source []byte) []string

	// IsBranch reports whether node adds a decision point to cyclomatic
	// complexity.
	IsBranch func(node *sitter.Node, source []byte) bool

	// Nesting holds the node types that open a new nesting level.
	Nesting map[string]struct{}

	// BaseRoots are implicit root types that never produce inheritance edges.
	BaseRoots map[string]struct{}
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

// extensionMap is built lazily after all init() functions have run.
var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language name for a file extension, or "" if unsupported.
func ForExtension(ext string) string {
	return getExtensionMap()[strings.ToLower(ext)]
}

// ForPath returns the language registered for the extension of path, or nil.
func ForPath(path string) *Language {
	i := strings.LastIndex(path, ".")
	if i < 0 || strings.Contains(path[i:], "/") {
		return nil
	}
	name := ForExtension(path[i:])
	if name == "" {
		return nil
	}
	return Languages[name]
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// FieldText returns the text of the named field of node, or "".
func FieldText(node *sitter.Node, field string, source []byte) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return NodeText(child, source)
}

// NamedChildren returns the named children of node.
func NamedChildren(node *sitter.Node) []*sitter.Node {
	n := int(node.NamedChildCount())
	out := make([]*sitter.Node, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, node.NamedChild(i))
	}
	return out
}

// LastSegment returns the part of a qualified name after the final separator
// ("." or "::").
func LastSegment(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, s := range items {
		m[s] = struct{}{}
	}
	return m
}
