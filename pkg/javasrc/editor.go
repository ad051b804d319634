// Package javasrc implements the class editor on top of Java sources parsed
// with tree-sitter. Guards are inserted inline so that every original
// statement keeps its line number once the edited sources are recompiled.
package javasrc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/serval-uni-lu/flakime/pkg/bytecode"
)

// Editor resolves binary class names to source declarations.
type Editor struct {
	mu    sync.Mutex
	roots []string
	docs  map[string]*document
}

var _ bytecode.Editor = (*Editor)(nil)

// Option configures an Editor.
type Option func(*Editor) error

// WithClasspath adds classpath entries. Directories are searched for sources
// after the source root; archives are accepted but not searched.
// Every entry must exist.
func WithClasspath(entries ...string) Option {
	return func(e *Editor) error {
		for _, entry := range entries {
			if strings.TrimSpace(entry) == "" {
				continue
			}
			info, err := os.Stat(entry)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", bytecode.ErrClasspathEntry, entry, err)
			}
			if info.IsDir() {
				e.roots = append(e.roots, entry)
			}
		}
		return nil
	}
}

// NewEditor creates an editor reading sources under sourceDir.
func NewEditor(sourceDir string, opts ...Option) (*Editor, error) {
	e := &Editor{
		roots: []string{sourceDir},
		docs:  make(map[string]*document),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Resolve returns the class declared for a binary name such as
// "com.example.Outer$Inner".
func (e *Editor) Resolve(ctx context.Context, className string) (bytecode.Class, error) {
	rel, segments := sourcePath(className)
	if rel == "" {
		return nil, fmt.Errorf("%w: %q", bytecode.ErrClassNotFound, className)
	}

	doc, err := e.document(ctx, rel)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", bytecode.ErrClassNotFound, className, err)
	}

	node := doc.findType(segments)
	if node == nil {
		return nil, fmt.Errorf("%w: %s not declared in %s", bytecode.ErrClassNotFound, className, doc.path)
	}
	return newClass(doc, className, node), nil
}

// Close releases the parsed syntax trees.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, doc := range e.docs {
		doc.close()
	}
	e.docs = make(map[string]*document)
}

func (e *Editor) document(ctx context.Context, rel string) (*document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if doc, ok := e.docs[rel]; ok {
		return doc, nil
	}

	for _, root := range e.roots {
		doc, err := loadDocument(ctx, root, rel)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		e.docs[rel] = doc
		return doc, nil
	}
	return nil, fs.ErrNotExist
}

// sourcePath maps a binary class name to the relative path of its source
// file and the chain of simple type names leading to the declaration.
func sourcePath(className string) (string, []string) {
	parts := strings.Split(className, "$")
	outer := parts[0]
	if outer == "" {
		return "", nil
	}

	simple := outer
	if idx := strings.LastIndex(outer, "."); idx >= 0 {
		simple = outer[idx+1:]
	}
	rel := filepath.FromSlash(strings.ReplaceAll(outer, ".", "/") + ".java")

	segments := append([]string{simple}, parts[1:]...)
	return rel, segments
}
