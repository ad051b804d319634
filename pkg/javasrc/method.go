package javasrc

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/serval-uni-lu/flakime/pkg/bytecode"
	"github.com/serval-uni-lu/flakime/pkg/javasrc/tspool"
)

// Method is a method or constructor declared in a Java source file.
type Method struct {
	doc         *document
	node        *sitter.Node
	body        *sitter.Node
	name        string
	longName    string
	constructor bool
	annotations []string
	statements  []statement
}

var _ bytecode.Method = (*Method)(nil)

func newMethod(doc *document, className string, node *sitter.Node) *Method {
	m := &Method{
		doc:         doc,
		node:        node,
		body:        node.ChildByFieldName("body"),
		name:        GetName(node, doc.source),
		constructor: node.Type() == NodeConstructorDeclaration,
	}
	m.longName = fmt.Sprintf("%s.%s(%s)", className, m.name,
		strings.Join(GetParameterTypes(node, doc.source), ","))

	for _, ann := range GetAnnotations(GetModifiers(node)) {
		name := GetAnnotationName(ann, doc.source)
		if name == "" || isSourceOnlyAnnotation(name) {
			continue
		}
		raw := "@" + doc.qualify(name)
		if args := FindChildByType(ann, NodeAnnotationArgumentList); args != nil {
			raw += GetNodeText(args, doc.source)
		}
		m.annotations = append(m.annotations, raw)
	}

	m.statements = collectStatements(m.body)
	return m
}

func (m *Method) Name() string          { return m.name }
func (m *Method) LongName() string      { return m.longName }
func (m *Method) IsConstructor() bool   { return m.constructor }
func (m *Method) HasBody() bool         { return m.body != nil }
func (m *Method) SourceFile() string    { return m.doc.path }
func (m *Method) Annotations() []string { return m.annotations }

// Blocks returns one block per statement. Compound statements end on the
// line holding the opening brace of their body.
func (m *Method) Blocks() []bytecode.Block {
	blocks := make([]bytecode.Block, 0, len(m.statements))
	for _, s := range m.statements {
		blocks = append(blocks, bytecode.Block{StartLine: s.start, EndLine: s.end})
	}
	return blocks
}

// InsertAtEntry inserts snippet at the top of the body, after any explicit
// constructor invocation.
func (m *Method) InsertAtEntry(snippet string) error {
	if m.body == nil {
		return fmt.Errorf("%s: %w", m.longName, bytecode.ErrNoBody)
	}
	if err := validateSnippet(snippet); err != nil {
		return err
	}

	offset := m.body.StartByte() + 1
	for i := 0; i < int(m.body.NamedChildCount()); i++ {
		child := m.body.NamedChild(i)
		if IsComment(child) {
			continue
		}
		if child.Type() == NodeExplicitConstructorCall {
			offset = child.EndByte()
		}
		break
	}

	m.doc.insert(offset, snippet)
	return nil
}

// InsertAfter inserts snippet after the first statement starting on line.
func (m *Method) InsertAfter(line int, snippet string) error {
	if m.body == nil {
		return fmt.Errorf("%s: %w", m.longName, bytecode.ErrNoBody)
	}
	for _, s := range m.statements {
		if s.start != line {
			continue
		}
		if err := validateSnippet(snippet); err != nil {
			return err
		}
		m.doc.insert(s.insertAt, snippet)
		return nil
	}
	return fmt.Errorf("%s line %d: %w", m.longName, line, bytecode.ErrNoStatementAtLine)
}

// validateSnippet checks that snippet is a single line of valid statements.
func validateSnippet(snippet string) error {
	if strings.TrimSpace(snippet) == "" {
		return fmt.Errorf("%w: empty", bytecode.ErrInvalidSnippet)
	}
	if strings.ContainsAny(snippet, "\r\n") {
		return fmt.Errorf("%w: must fit on one line", bytecode.ErrInvalidSnippet)
	}

	wrapped := []byte("class S { void m() { " + snippet + " } }")
	tree, err := tspool.Parse(context.Background(), wrapped)
	if err != nil {
		return fmt.Errorf("%w: %v", bytecode.ErrInvalidSnippet, err)
	}
	defer tree.Close()

	if tree.RootNode().HasError() {
		return fmt.Errorf("%w: %s", bytecode.ErrInvalidSnippet, snippet)
	}
	return nil
}
