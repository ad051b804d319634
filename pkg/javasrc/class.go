package javasrc

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sergi/go-diff/diffmatchpatch"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/serval-uni-lu/flakime/pkg/bytecode"
)

// Class is a type declared in a Java source file.
type Class struct {
	doc     *document
	node    *sitter.Node
	name    string
	methods []bytecode.Method
}

var _ bytecode.Class = (*Class)(nil)

func newClass(doc *document, name string, node *sitter.Node) *Class {
	c := &Class{doc: doc, node: node, name: name}
	body := typeBody(node)
	if body == nil {
		return c
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case NodeMethodDeclaration, NodeConstructorDeclaration:
			c.methods = append(c.methods, newMethod(doc, name, member))
		}
	}
	return c
}

// Name returns the binary class name.
func (c *Class) Name() string { return c.name }

// Methods returns the declared methods and constructors.
func (c *Class) Methods() []bytecode.Method { return c.methods }

// SourceFile returns the path of the declaring source file.
func (c *Class) SourceFile() string { return c.doc.path }

// Write stores the instrumented source file under dir, keeping its package path.
func (c *Class) Write(dir string) error {
	out := filepath.Join(dir, c.doc.rel)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", c.name, err)
	}
	if err := os.WriteFile(out, c.doc.render(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c.name, err)
	}
	return nil
}

// Patch returns the pending insertions as a patch against the original file.
// It returns an empty string when nothing was inserted.
func (c *Class) Patch() (string, error) {
	if !c.doc.modified() {
		return "", nil
	}
	dmp := diffmatchpatch.New()
	patches := dmp.PatchMake(string(c.doc.source), string(c.doc.render()))
	header := fmt.Sprintf("--- a/%s\n+++ b/%s\n", filepath.ToSlash(c.doc.rel), filepath.ToSlash(c.doc.rel))
	return header + dmp.PatchToText(patches), nil
}
