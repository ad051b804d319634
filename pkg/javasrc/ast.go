package javasrc

import (
	"bytes"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Java AST node types.
const (
	NodeProgram                 = "program"
	NodePackageDeclaration      = "package_declaration"
	NodeImportDeclaration       = "import_declaration"
	NodeClassDeclaration        = "class_declaration"
	NodeInterfaceDeclaration    = "interface_declaration"
	NodeEnumDeclaration         = "enum_declaration"
	NodeRecordDeclaration       = "record_declaration"
	NodeEnumBodyDeclarations    = "enum_body_declarations"
	NodeMethodDeclaration       = "method_declaration"
	NodeConstructorDeclaration  = "constructor_declaration"
	NodeConstructorBody         = "constructor_body"
	NodeExplicitConstructorCall = "explicit_constructor_invocation"
	NodeAnnotation              = "annotation"
	NodeMarkerAnnotation        = "marker_annotation"
	NodeModifiers               = "modifiers"
	NodeIdentifier              = "identifier"
	NodeScopedIdentifier        = "scoped_identifier"
	NodeFormalParameter         = "formal_parameter"
	NodeSpreadParameter         = "spread_parameter"
	NodeAnnotationArgumentList  = "annotation_argument_list"
	NodeBlock                   = "block"
	NodeLineComment             = "line_comment"
	NodeBlockComment            = "block_comment"
	NodeSwitchBlock             = "switch_block"
	NodeSwitchGroup             = "switch_block_statement_group"
	NodeSwitchRule              = "switch_rule"
	NodeSwitchLabel             = "switch_label"
	NodeCatchClause             = "catch_clause"
	NodeFinallyClause           = "finally_clause"
)

// Statement node types with special insertion rules.
const (
	NodeIfStatement           = "if_statement"
	NodeForStatement          = "for_statement"
	NodeEnhancedForStatement  = "enhanced_for_statement"
	NodeWhileStatement        = "while_statement"
	NodeDoStatement           = "do_statement"
	NodeTryStatement          = "try_statement"
	NodeTryWithResources      = "try_with_resources_statement"
	NodeSynchronizedStatement = "synchronized_statement"
	NodeLabeledStatement      = "labeled_statement"
	NodeSwitchExpression      = "switch_expression"
	NodeReturnStatement       = "return_statement"
	NodeThrowStatement        = "throw_statement"
	NodeBreakStatement        = "break_statement"
	NodeContinueStatement     = "continue_statement"
	NodeYieldStatement        = "yield_statement"
)

// sourceOnlyAnnotations are not retained in compiled classes.
var sourceOnlyAnnotations = map[string]bool{
	"Override":                      true,
	"SuppressWarnings":              true,
	"SafeVarargs":                   true,
	"FunctionalInterface":           true,
	"java.lang.Override":            true,
	"java.lang.SuppressWarnings":    true,
	"java.lang.SafeVarargs":         true,
	"java.lang.FunctionalInterface": true,
}

// GetNodeText returns the source text for the given AST node.
// Returns empty string if the node's byte range exceeds the source length.
func GetNodeText(node *sitter.Node, source []byte) (result string) {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	sourceLen := uint32(len(source))

	if start > sourceLen || end > sourceLen {
		return ""
	}

	defer func() {
		if r := recover(); r != nil {
			result = ""
		}
	}()

	return node.Content(source)
}

// StartLine returns the 1-based line where node begins.
func StartLine(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

// EndLine returns the 1-based line where node ends.
func EndLine(node *sitter.Node) int {
	return int(node.EndPoint().Row) + 1
}

// FindChildByType returns the first direct child with the given node type.
func FindChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == nodeType {
			return child
		}
	}
	return nil
}

// FindChildrenByType returns all direct children with the given node type.
func FindChildrenByType(node *sitter.Node, nodeType string) []*sitter.Node {
	var children []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == nodeType {
			children = append(children, child)
		}
	}
	return children
}

// GetModifiers returns the modifiers node from a method or class declaration.
func GetModifiers(node *sitter.Node) *sitter.Node {
	return FindChildByType(node, NodeModifiers)
}

// GetAnnotations extracts all annotation nodes from a modifiers node.
func GetAnnotations(modifiers *sitter.Node) []*sitter.Node {
	if modifiers == nil {
		return nil
	}

	var annotations []*sitter.Node
	for i := 0; i < int(modifiers.ChildCount()); i++ {
		child := modifiers.Child(i)
		if child.Type() == NodeAnnotation || child.Type() == NodeMarkerAnnotation {
			annotations = append(annotations, child)
		}
	}
	return annotations
}

// GetAnnotationName extracts the annotation name as written
// (e.g., "Test" from @Test, "org.junit.jupiter.api.Test" from @org.junit.jupiter.api.Test).
func GetAnnotationName(annotation *sitter.Node, source []byte) string {
	if annotation == nil {
		return ""
	}
	if name := annotation.ChildByFieldName("name"); name != nil {
		return GetNodeText(name, source)
	}
	for i := 0; i < int(annotation.ChildCount()); i++ {
		child := annotation.Child(i)
		if child.Type() == NodeIdentifier || child.Type() == NodeScopedIdentifier {
			return GetNodeText(child, source)
		}
	}
	return ""
}

// GetName extracts the name field of a declaration node.
func GetName(node *sitter.Node, source []byte) string {
	nameNode := node.ChildByFieldName("name")
	if nameNode != nil {
		return GetNodeText(nameNode, source)
	}
	return ""
}

// GetParameterTypes returns the declared parameter types of a method or constructor.
func GetParameterTypes(node *sitter.Node, source []byte) []string {
	params := node.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}

	var types []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case NodeFormalParameter:
			types = append(types, GetNodeText(p.ChildByFieldName("type"), source))
		case NodeSpreadParameter:
			if p.NamedChildCount() > 0 {
				typ := p.NamedChild(0)
				if typ.Type() == NodeModifiers && p.NamedChildCount() > 1 {
					typ = p.NamedChild(1)
				}
				types = append(types, GetNodeText(typ, source)+"...")
			}
		}
	}
	return types
}

// IsTypeDeclaration reports whether node declares a class-like type.
func IsTypeDeclaration(node *sitter.Node) bool {
	switch node.Type() {
	case NodeClassDeclaration, NodeInterfaceDeclaration, NodeEnumDeclaration, NodeRecordDeclaration:
		return true
	}
	return false
}

// IsComment reports whether node is a comment.
func IsComment(node *sitter.Node) bool {
	return node.Type() == NodeLineComment || node.Type() == NodeBlockComment
}

// SanitizeSource removes NULL bytes from source code that would cause tree-sitter parsing failures.
func SanitizeSource(source []byte) []byte {
	if !bytes.Contains(source, []byte{0}) {
		return source
	}
	return bytes.ReplaceAll(source, []byte{0}, []byte{' '})
}

func isSourceOnlyAnnotation(name string) bool {
	return sourceOnlyAnnotations[strings.TrimPrefix(name, "@")]
}
