package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"

	"github.com/phobologic/contextweaver/internal/model"
)

func init() {
	Languages["ruby"] = &Language{
		Name:         "ruby",
		Extensions:   []string{".rb"},
		lang:         ruby.GetLanguage(),
		DeclareTypes: rubyDeclareTypes,
		Imports:      rubyImports,
		TypeRef:      rubyTypeRef,
		PublicAPI:    rubyPublicAPI,
		IsBranch:     rubyIsBranch,
		Nesting: set(
			"if", "unless", "while", "until", "for", "case",
			"begin", "block", "do_block", "lambda",
		),
		BaseRoots: set("Object", "BasicObject"),
	}
}

var rubyMixins = set("include", "extend", "prepend")

// rubyClassName extracts the name from a class or module node.
func rubyClassName(node *sitter.Node, source []byte) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return LastSegment(NodeText(name, source))
	}
	for _, child := range NamedChildren(node) {
		if child.Type() == "constant" || child.Type() == "scope_resolution" {
			return LastSegment(NodeText(child, source))
		}
	}
	return ""
}

func rubySuperclass(node *sitter.Node, source []byte) string {
	for _, child := range NamedChildren(node) {
		if child.Type() != "superclass" {
			continue
		}
		for _, sc := range NamedChildren(child) {
			if sc.Type() == "constant" || sc.Type() == "scope_resolution" {
				return NodeText(sc, source)
			}
		}
	}
	return ""
}

// rubyStatements returns the body statements of a class or module. Newer
// grammars wrap them in a body_statement.
func rubyStatements(node *sitter.Node) []*sitter.Node {
	if body := node.ChildByFieldName("body"); body != nil {
		return NamedChildren(body)
	}
	var out []*sitter.Node
	for _, child := range NamedChildren(node) {
		switch child.Type() {
		case "constant", "scope_resolution", "superclass":
		default:
			out = append(out, child)
		}
	}
	return out
}

// rubyCall returns the method name and argument nodes of a receiver-less
// call such as `include Comparable` or `require "json"`.
func rubyCall(node *sitter.Node, source []byte) (string, []*sitter.Node) {
	if node.Type() != "call" && node.Type() != "method_call" && node.Type() != "command" {
		return "", nil
	}
	if node.ChildByFieldName("receiver") != nil {
		return "", nil
	}
	method := FieldText(node, "method", source)
	var args []*sitter.Node
	if list := node.ChildByFieldName("arguments"); list != nil {
		args = NamedChildren(list)
	}
	return method, args
}

func rubyDeclareTypes(node *sitter.Node, source []byte) []TypeDecl {
	var kind string
	switch node.Type() {
	case "class":
		kind = model.KindClass
	case "module":
		// Modules are mixed into classes, which makes them the closest thing
		// Ruby has to an interface.
		kind = model.KindInterface
	default:
		return nil
	}
	name := rubyClassName(node, source)
	if name == "" {
		return nil
	}

	decl := TypeDecl{Name: name, Kind: kind}
	if super := rubySuperclass(node, source); super != "" {
		decl.Bases = append(decl.Bases, LastSegment(super))
	}

	stmts := rubyStatements(node)
	decl.Body = stmts
	for _, stmt := range stmts {
		method, args := rubyCall(stmt, source)
		if _, ok := rubyMixins[method]; !ok {
			continue
		}
		for _, arg := range args {
			if arg.Type() == "constant" || arg.Type() == "scope_resolution" {
				decl.Bases = append(decl.Bases, LastSegment(NodeText(arg, source)))
			}
		}
		if method == "extend" {
			decl.Semantics.Modifiers = appendUnique(decl.Semantics.Modifiers, "extended")
		}
	}
	if kind == model.KindInterface {
		decl.Semantics.Modifiers = append(decl.Semantics.Modifiers, "module")
	}
	decl.Semantics.Interfaces = decl.Bases
	return []TypeDecl{decl}
}

func rubyImports(node *sitter.Node, source []byte) []string {
	method, args := rubyCall(node, source)
	if method != "require" && method != "require_relative" && method != "load" {
		return nil
	}
	if len(args) == 0 || args[0].Type() != "string" {
		return nil
	}
	return []string{rubyStringValue(args[0], source)}
}

func rubyStringValue(node *sitter.Node, source []byte) string {
	for _, child := range NamedChildren(node) {
		if child.Type() == "string_content" {
			return NodeText(child, source)
		}
	}
	return strings.Trim(NodeText(node, source), `"'`)
}

func rubyTypeRef(node *sitter.Node, source []byte) string {
	if node.Type() == "constant" {
		return NodeText(node, source)
	}
	return ""
}

func rubyIsBranch(node *sitter.Node, source []byte) bool {
	switch node.Type() {
	case "if", "elsif", "unless", "while", "until", "for", "when",
		"conditional", "rescue", "if_modifier", "unless_modifier",
		"while_modifier", "until_modifier", "rescue_modifier":
		return true
	case "binary":
		switch FieldText(node, "operator", source) {
		case "&&", "||", "and", "or":
			return true
		}
	}
	return false
}

func rubyPublicAPI(root *sitter.Node, source []byte) []string {
	var out []string
	for _, stmt := range NamedChildren(root) {
		switch stmt.Type() {
		case "class", "module":
			out = append(out, rubyTypeAPI(stmt, source, "")...)
		case "method":
			out = append(out, "- def "+rubyExtractMethodSignature(stmt, source))
		}
	}
	return out
}

// rubyTypeAPI outlines a class or module and its public methods. Methods
// following a bare `private` or `protected` are skipped until `public`.
func rubyTypeAPI(node *sitter.Node, source []byte, indent string) []string {
	keyword := "class"
	if node.Type() == "module" {
		keyword = "module"
	}
	out := []string{indent + "- " + keyword + " " + rubyExtractClassSignature(node, source)}

	public := true
	for _, stmt := range rubyStatements(node) {
		switch stmt.Type() {
		case "identifier":
			switch NodeText(stmt, source) {
			case "private", "protected":
				public = false
			case "public":
				public = true
			}
		case "method":
			if public {
				out = append(out, indent+"  - def "+rubyExtractMethodSignature(stmt, source))
			}
		case "singleton_method":
			out = append(out, indent+"  - def self."+rubyExtractMethodSignature(stmt, source))
		case "class", "module":
			out = append(out, rubyTypeAPI(stmt, source, indent+"  ")...)
		}
	}
	return out
}

func rubyExtractClassSignature(node *sitter.Node, source []byte) string {
	name := rubyClassName(node, source)
	if super := rubySuperclass(node, source); super != "" {
		return name + " < " + super
	}
	return name
}

func rubyExtractMethodSignature(node *sitter.Node, source []byte) string {
	name := FieldText(node, "name", source)
	if params := node.ChildByFieldName("parameters"); params != nil {
		return name + CollapseWhitespace(NodeText(params, source))
	}
	return name
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
