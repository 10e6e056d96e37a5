package lang

import (
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/phobologic/contextweaver/internal/model"
)

func init() {
	Languages["go"] = &Language{
		Name:         "go",
		Extensions:   []string{".go"},
		lang:         golang.GetLanguage(),
		DeclareTypes: goDeclareTypes,
		Imports:      goImports,
		TypeRef:      goTypeRef,
		MethodOwner:  goFindReceiverType,
		PublicAPI:    goPublicAPI,
		IsBranch:     goIsBranch,
		Nesting: set(
			"if_statement", "for_statement",
			"expression_switch_statement", "type_switch_statement",
			"select_statement", "func_literal",
		),
	}
}

func goExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

func goDeclareTypes(node *sitter.Node, source []byte) []TypeDecl {
	if node.Type() != "type_declaration" {
		return nil
	}
	var decls []TypeDecl
	for _, spec := range NamedChildren(node) {
		if spec.Type() != "type_spec" && spec.Type() != "type_alias" {
			continue
		}
		name := FieldText(spec, "name", source)
		typ := spec.ChildByFieldName("type")
		if name == "" || typ == nil {
			continue
		}

		decl := TypeDecl{Name: name, Kind: model.KindClass, Body: []*sitter.Node{typ}}
		switch typ.Type() {
		case "struct_type":
			decl.Kind = model.KindStruct
			decl.Bases = goEmbeddedFields(typ, source)
		case "interface_type":
			decl.Kind = model.KindInterface
			decl.Bases = goEmbeddedInterfaces(typ, source)
		}

		if goExported(name) {
			decl.Semantics.Modifiers = append(decl.Semantics.Modifiers, "exported")
		}
		if spec.ChildByFieldName("type_parameters") != nil {
			decl.Semantics.Modifiers = append(decl.Semantics.Modifiers, "generic")
		}
		if spec.Type() == "type_alias" {
			decl.Semantics.Modifiers = append(decl.Semantics.Modifiers, "alias")
		}
		decl.Semantics.Interfaces = decl.Bases
		decls = append(decls, decl)
	}
	return decls
}

// goTypeName resolves the bare type name of a type expression, unwrapping
// pointers, package qualifiers and type arguments.
func goTypeName(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "type_identifier":
		return NodeText(node, source)
	case "pointer_type":
		if node.NamedChildCount() > 0 {
			return goTypeName(node.NamedChild(0), source)
		}
	case "qualified_type":
		return FieldText(node, "name", source)
	case "generic_type":
		return goTypeName(node.ChildByFieldName("type"), source)
	}
	return ""
}

// goEmbeddedFields returns the types embedded in a struct_type.
func goEmbeddedFields(structType *sitter.Node, source []byte) []string {
	var out []string
	for _, list := range NamedChildren(structType) {
		if list.Type() != "field_declaration_list" {
			continue
		}
		for _, field := range NamedChildren(list) {
			if field.Type() != "field_declaration" || field.ChildByFieldName("name") != nil {
				continue
			}
			if name := goTypeName(field.ChildByFieldName("type"), source); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

// goEmbeddedInterfaces returns the interfaces embedded in an interface_type.
// Grammar versions differ in how embedded elements are wrapped.
func goEmbeddedInterfaces(ifaceType *sitter.Node, source []byte) []string {
	var out []string
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		for _, child := range NamedChildren(n) {
			switch child.Type() {
			case "method_spec", "method_elem":
			case "method_spec_list", "type_elem", "constraint_elem", "interface_type_name":
				visit(child)
			default:
				if name := goTypeName(child, source); name != "" {
					out = append(out, name)
				}
			}
		}
	}
	visit(ifaceType)
	return out
}

func goImports(node *sitter.Node, source []byte) []string {
	if node.Type() != "import_spec" {
		return nil
	}
	path := strings.Trim(FieldText(node, "path", source), "\"`")
	if path == "" {
		return nil
	}
	return []string{path}
}

func goTypeRef(node *sitter.Node, source []byte) string {
	if node.Type() == "type_identifier" {
		return NodeText(node, source)
	}
	return ""
}

// goFindReceiverType extracts the receiver type name from a method_declaration node.
// Navigates: method_declaration → parameter_list (receiver) → parameter_declaration → type.
func goFindReceiverType(node *sitter.Node, source []byte) string {
	if node.Type() != "method_declaration" {
		return ""
	}
	receiver := node.ChildByFieldName("receiver")
	if receiver == nil {
		return ""
	}
	for _, param := range NamedChildren(receiver) {
		if param.Type() == "parameter_declaration" {
			return goTypeName(param.ChildByFieldName("type"), source)
		}
	}
	return ""
}

func goIsBranch(node *sitter.Node, source []byte) bool {
	switch node.Type() {
	case "if_statement", "for_statement", "expression_case", "type_case", "communication_case":
		return true
	case "binary_expression":
		op := FieldText(node, "operator", source)
		return op == "&&" || op == "||"
	}
	return false
}

// goSignature builds "Name[T](params) result" for a function, method or
// interface method node.
func goSignature(node *sitter.Node, source []byte) string {
	sig := FieldText(node, "name", source)
	if tp := node.ChildByFieldName("type_parameters"); tp != nil {
		sig += CollapseWhitespace(NodeText(tp, source))
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		sig += CollapseWhitespace(NodeText(params, source))
	}
	if result := node.ChildByFieldName("result"); result != nil {
		sig += " " + CollapseWhitespace(NodeText(result, source))
	}
	return sig
}

func goPublicAPI(root *sitter.Node, source []byte) []string {
	type goType struct {
		line    string
		members []string
	}
	var (
		order   []string
		types   = map[string]*goType{}
		funcs   []string
		orphans []string
	)

	for _, node := range NamedChildren(root) {
		switch node.Type() {
		case "type_declaration":
			for _, spec := range NamedChildren(node) {
				name := FieldText(spec, "name", source)
				typ := spec.ChildByFieldName("type")
				if !goExported(name) || typ == nil {
					continue
				}
				t := &goType{}
				switch typ.Type() {
				case "struct_type":
					t.line = "type " + name + " struct"
				case "interface_type":
					t.line = "type " + name + " interface"
					for _, m := range goInterfaceMethods(typ) {
						if goExported(FieldText(m, "name", source)) {
							t.members = append(t.members, goSignature(m, source))
						}
					}
				default:
					sep := " "
					if spec.Type() == "type_alias" {
						sep = " = "
					}
					t.line = "type " + name + sep + CollapseWhitespace(NodeText(typ, source))
				}
				order = append(order, name)
				types[name] = t
			}
		case "function_declaration":
			if goExported(FieldText(node, "name", source)) {
				funcs = append(funcs, "func "+goSignature(node, source))
			}
		}
	}

	// Methods may precede their type in the file, so attach them afterwards.
	for _, node := range NamedChildren(root) {
		if node.Type() != "method_declaration" || !goExported(FieldText(node, "name", source)) {
			continue
		}
		recv := goFindReceiverType(node, source)
		if t, ok := types[recv]; ok {
			t.members = append(t.members, "func "+goSignature(node, source))
		} else if goExported(recv) {
			orphans = append(orphans, "func ("+recv+") "+goSignature(node, source))
		}
	}

	var out []string
	for _, name := range order {
		t := types[name]
		out = append(out, "- "+t.line)
		for _, m := range t.members {
			out = append(out, "  - "+m)
		}
	}
	for _, f := range funcs {
		out = append(out, "- "+f)
	}
	for _, m := range orphans {
		out = append(out, "- "+m)
	}
	return out
}

func goInterfaceMethods(ifaceType *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, child := range NamedChildren(ifaceType) {
		switch child.Type() {
		case "method_spec", "method_elem":
			out = append(out, child)
		case "method_spec_list":
			out = append(out, goInterfaceMethods(child)...)
		}
	}
	return out
}
