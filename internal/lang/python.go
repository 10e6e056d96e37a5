package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/phobologic/contextweaver/internal/model"
)

func init() {
	Languages["python"] = &Language{
		Name:         "python",
		Extensions:   []string{".py"},
		lang:         python.GetLanguage(),
		DeclareTypes: pythonDeclareTypes,
		Imports:      pythonImports,
		TypeRef:      pythonTypeRef,
		PublicAPI:    pythonPublicAPI,
		IsBranch:     pythonIsBranch,
		Nesting: set(
			"if_statement", "for_statement", "while_statement",
			"try_statement", "with_statement", "match_statement", "lambda",
		),
		BaseRoots: set("object"),
	}
}

var (
	pythonEnumBases      = set("Enum", "IntEnum", "StrEnum", "Flag", "IntFlag")
	pythonInterfaceBases = set("ABC", "Protocol")
)

func pythonDeclareTypes(node *sitter.Node, source []byte) []TypeDecl {
	if node.Type() != "class_definition" {
		return nil
	}
	name := FieldText(node, "name", source)
	if name == "" {
		return nil
	}

	decl := TypeDecl{Name: name, Kind: model.KindClass}
	if body := node.ChildByFieldName("body"); body != nil {
		decl.Body = []*sitter.Node{body}
	}

	abstract := false
	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		for _, arg := range NamedChildren(supers) {
			switch arg.Type() {
			case "identifier", "attribute":
				decl.Bases = append(decl.Bases, LastSegment(NodeText(arg, source)))
			case "keyword_argument":
				if FieldText(arg, "name", source) == "metaclass" &&
					LastSegment(FieldText(arg, "value", source)) == "ABCMeta" {
					abstract = true
				}
			}
		}
	}
	for _, base := range decl.Bases {
		if _, ok := pythonEnumBases[base]; ok {
			decl.Kind = model.KindEnum
		} else if _, ok := pythonInterfaceBases[base]; ok {
			decl.Kind = model.KindInterface
			abstract = abstract || base == "ABC"
		}
	}

	decorators := pythonDecorators(node, source)
	for _, d := range decorators {
		if d == "dataclass" && decl.Kind == model.KindClass {
			decl.Kind = model.KindRecord
		}
	}

	if abstract {
		decl.Semantics.Modifiers = append(decl.Semantics.Modifiers, "abstract")
	}
	if strings.HasPrefix(name, "_") {
		decl.Semantics.Modifiers = append(decl.Semantics.Modifiers, "private")
	}
	decl.Semantics.Interfaces = decl.Bases
	decl.Semantics.Attributes = decorators
	return []TypeDecl{decl}
}

// pythonDecorators returns the bare decorator names of a decorated
// definition, e.g. "dataclass" for "@dataclasses.dataclass(frozen=True)".
func pythonDecorators(def *sitter.Node, source []byte) []string {
	parent := def.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return nil
	}
	var out []string
	for _, child := range NamedChildren(parent) {
		if child.Type() != "decorator" {
			continue
		}
		text := strings.TrimPrefix(NodeText(child, source), "@")
		if i := strings.Index(text, "("); i >= 0 {
			text = text[:i]
		}
		out = append(out, LastSegment(strings.TrimSpace(text)))
	}
	return out
}

func pythonImports(node *sitter.Node, source []byte) []string {
	switch node.Type() {
	case "import_statement":
		var out []string
		for _, child := range NamedChildren(node) {
			switch child.Type() {
			case "dotted_name":
				out = append(out, NodeText(child, source))
			case "aliased_import":
				if name := FieldText(child, "name", source); name != "" {
					out = append(out, name)
				}
			}
		}
		return out
	case "import_from_statement":
		if mod := FieldText(node, "module_name", source); mod != "" {
			return []string{mod}
		}
	}
	return nil
}

func pythonTypeRef(node *sitter.Node, source []byte) string {
	if node.Type() == "identifier" {
		return NodeText(node, source)
	}
	return ""
}

func pythonIsBranch(node *sitter.Node, _ []byte) bool {
	switch node.Type() {
	case "if_statement", "elif_clause", "for_statement", "while_statement",
		"conditional_expression", "boolean_operator", "except_clause",
		"case_clause", "if_clause":
		return true
	}
	return false
}

func pythonPublicName(name string) bool {
	return name == "__init__" || !strings.HasPrefix(name, "_")
}

// pythonDefinition unwraps a decorated_definition.
func pythonDefinition(node *sitter.Node) *sitter.Node {
	if node.Type() == "decorated_definition" {
		return node.ChildByFieldName("definition")
	}
	return node
}

func pythonPublicAPI(root *sitter.Node, source []byte) []string {
	var out []string
	for _, stmt := range NamedChildren(root) {
		def := pythonDefinition(stmt)
		if def == nil {
			continue
		}
		switch def.Type() {
		case "class_definition":
			name := FieldText(def, "name", source)
			if strings.HasPrefix(name, "_") {
				continue
			}
			out = append(out, "- class "+pythonExtractClassSignature(def, source))
			body := def.ChildByFieldName("body")
			if body == nil {
				continue
			}
			for _, member := range NamedChildren(body) {
				fn := pythonDefinition(member)
				if fn == nil || fn.Type() != "function_definition" {
					continue
				}
				if pythonPublicName(FieldText(fn, "name", source)) {
					out = append(out, "  - def "+pythonExtractFunctionSignature(fn, source))
				}
			}
		case "function_definition":
			if !strings.HasPrefix(FieldText(def, "name", source), "_") {
				out = append(out, "- def "+pythonExtractFunctionSignature(def, source))
			}
		}
	}
	return out
}

func pythonExtractClassSignature(node *sitter.Node, source []byte) string {
	name := FieldText(node, "name", source)
	if args := node.ChildByFieldName("superclasses"); args != nil {
		return name + CollapseWhitespace(NodeText(args, source))
	}
	return name
}

func pythonExtractFunctionSignature(node *sitter.Node, source []byte) string {
	var name, params, returnType string
	name = FieldText(node, "name", source)
	if p := node.ChildByFieldName("parameters"); p != nil {
		params = CollapseWhitespace(NodeText(p, source))
	}
	returnType = FieldText(node, "return_type", source)
	sig := name + params
	if returnType != "" {
		sig += " -> " + returnType
	}
	return sig
}
