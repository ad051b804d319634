// Package bytecode defines the boundary between the injection engine and the
// class editor that resolves classes, exposes statement blocks and applies
// guard insertions.
package bytecode

import (
	"context"
	"errors"
)

var (
	// ErrClassNotFound is returned when a class name cannot be resolved.
	ErrClassNotFound = errors.New("bytecode: class not found")
	// ErrClasspathEntry is returned when a configured classpath entry is unusable.
	ErrClasspathEntry = errors.New("bytecode: invalid classpath entry")
	// ErrNoBody is returned when editing a method without an executable body.
	ErrNoBody = errors.New("bytecode: method has no body")
	// ErrNoStatementAtLine is returned when no statement starts or ends on a line.
	ErrNoStatementAtLine = errors.New("bytecode: no statement at line")
	// ErrInvalidSnippet is returned when an inserted snippet does not compile.
	ErrInvalidSnippet = errors.New("bytecode: invalid snippet")
)

// Block is a contiguous run of source lines executed as one unit.
type Block struct {
	// StartLine is the 1-based line where the block begins.
	StartLine int `json:"startLine"`
	// EndLine is the 1-based line where the block ends (inclusive).
	EndLine int `json:"endLine"`
}

// Editor resolves class names against a classpath.
type Editor interface {
	// Resolve returns an editable handle for the fully-qualified class name.
	Resolve(ctx context.Context, className string) (Class, error)
}

// Class is an editable class handle.
type Class interface {
	// Name returns the fully-qualified class name.
	Name() string
	// Methods returns the declared methods and constructors in declaration order.
	Methods() []Method
	// Write persists the modified class under dir.
	Write(dir string) error
	// Patch returns a textual patch describing the pending modifications.
	Patch() (string, error)
}

// Method is an editable method handle.
type Method interface {
	// Name returns the simple method name.
	Name() string
	// LongName returns the class-qualified name including parameter types.
	LongName() string
	// IsConstructor reports whether the method is a constructor.
	IsConstructor() bool
	// Annotations returns the raw text of the runtime-visible annotations.
	Annotations() []string
	// HasBody reports whether the method has executable code.
	HasBody() bool
	// Blocks returns the method's statement blocks in source order.
	Blocks() []Block
	// SourceFile returns the path of the file the method was compiled from.
	SourceFile() string
	// InsertAtEntry inserts a snippet declaring locals at method entry.
	InsertAtEntry(snippet string) error
	// InsertAfter inserts a snippet so that it executes right after the
	// statement at line.
	InsertAfter(line int, snippet string) error
}
