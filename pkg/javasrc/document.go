package javasrc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/serval-uni-lu/flakime/pkg/javasrc/tspool"
)

// edit is a pending text insertion at a byte offset of the original source.
type edit struct {
	offset uint32
	seq    int
	text   string
}

// document is a parsed source file shared by every class it declares.
type document struct {
	path    string
	rel     string
	source  []byte
	tree    *sitter.Tree
	pkg     string
	imports map[string]string
	edits   []edit
}

func loadDocument(ctx context.Context, root, rel string) (*document, error) {
	path := filepath.Join(root, rel)
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	source := SanitizeSource(content)

	tree, err := tspool.Parse(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	doc := &document{
		path:    path,
		rel:     rel,
		source:  source,
		tree:    tree,
		imports: make(map[string]string),
	}
	doc.readHeader()
	return doc, nil
}

func (d *document) root() *sitter.Node {
	return d.tree.RootNode()
}

func (d *document) readHeader() {
	root := d.root()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case NodePackageDeclaration:
			for j := 0; j < int(child.NamedChildCount()); j++ {
				n := child.NamedChild(j)
				if n.Type() == NodeScopedIdentifier || n.Type() == NodeIdentifier {
					d.pkg = GetNodeText(n, d.source)
				}
			}
		case NodeImportDeclaration:
			text := strings.TrimSpace(GetNodeText(child, d.source))
			text = strings.TrimSuffix(strings.TrimPrefix(text, "import"), ";")
			text = strings.TrimSpace(text)
			if strings.HasPrefix(text, "static ") || strings.HasSuffix(text, "*") {
				continue
			}
			if idx := strings.LastIndex(text, "."); idx >= 0 {
				d.imports[text[idx+1:]] = text
			}
		}
	}
}

// qualify resolves an annotation or type name against the single-type imports.
func (d *document) qualify(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	if fqn, ok := d.imports[name]; ok {
		return fqn
	}
	return name
}

// findType locates a (possibly nested) type declaration by its binary name
// segments, e.g. ["Outer", "Inner"].
func (d *document) findType(segments []string) *sitter.Node {
	container := d.root()
	var found *sitter.Node
	for _, seg := range segments {
		found = nil
		for i := 0; i < int(container.NamedChildCount()); i++ {
			child := container.NamedChild(i)
			if IsTypeDeclaration(child) && GetName(child, d.source) == seg {
				found = child
				break
			}
		}
		if found == nil {
			return nil
		}
		container = typeBody(found)
		if container == nil {
			return found
		}
	}
	return found
}

// typeBody returns the member container of a type declaration.
// Enum members live in the enum_body_declarations child.
func typeBody(decl *sitter.Node) *sitter.Node {
	body := decl.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	if decl.Type() == NodeEnumDeclaration {
		if members := FindChildByType(body, NodeEnumBodyDeclarations); members != nil {
			return members
		}
	}
	return body
}

func (d *document) insert(offset uint32, text string) {
	d.edits = append(d.edits, edit{offset: offset, seq: len(d.edits), text: text})
}

func (d *document) modified() bool {
	return len(d.edits) > 0
}

// render applies the pending edits to the original source.
func (d *document) render() []byte {
	if len(d.edits) == 0 {
		return d.source
	}

	edits := make([]edit, len(d.edits))
	copy(edits, d.edits)
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].offset != edits[j].offset {
			return edits[i].offset < edits[j].offset
		}
		return edits[i].seq < edits[j].seq
	})

	var b strings.Builder
	b.Grow(len(d.source) + len(edits)*128)
	var last uint32
	for _, e := range edits {
		b.Write(d.source[last:e.offset])
		b.WriteString(e.text)
		last = e.offset
	}
	b.Write(d.source[last:])
	return []byte(b.String())
}

func (d *document) close() {
	if d.tree != nil {
		d.tree.Close()
		d.tree = nil
	}
}
