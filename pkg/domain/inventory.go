// Package domain defines the test inventory the injection engine works on.
package domain

import (
	"sort"

	"github.com/serval-uni-lu/flakime/pkg/bytecode"
)

// TestMethod is a test method selected for instrumentation.
type TestMethod struct {
	// Method is the editable method handle.
	Method bytecode.Method `json:"-"`
	// ClassName is the fully-qualified name of the declaring class.
	ClassName string `json:"className"`
	// Name is the simple method name.
	Name string `json:"name"`
	// LongName identifies the method uniquely within the project.
	LongName string `json:"longName"`
	// SourceFile is the path of the source file declaring the method.
	SourceFile string `json:"sourceFile"`
	// Blocks are the statement blocks the boundaries were derived from.
	Blocks []bytecode.Block `json:"blocks,omitempty"`
	// Statements is the ordered set of statement boundary lines.
	Statements []int `json:"statements"`
}

// FirstLine returns the smallest statement line, or 0 when there is none.
func (m *TestMethod) FirstLine() int {
	if len(m.Statements) == 0 {
		return 0
	}
	return m.Statements[0]
}

// LastLine returns the largest statement line, or 0 when there is none.
func (m *TestMethod) LastLine() int {
	if len(m.Statements) == 0 {
		return 0
	}
	return m.Statements[len(m.Statements)-1]
}

// Rank returns the number of statement boundaries at or before line.
func (m *TestMethod) Rank(line int) int {
	return sort.SearchInts(m.Statements, line+1)
}

// TestClass is a resolved class holding at least one test method.
type TestClass struct {
	// Class is the editable class handle.
	Class bytecode.Class `json:"-"`
	// Name is the fully-qualified class name.
	Name string `json:"name"`
	// Methods contains the qualifying test methods in declaration order.
	Methods []*TestMethod `json:"methods"`
}

// NTestMethods returns the number of qualifying test methods.
func (c *TestClass) NTestMethods() int {
	return len(c.Methods)
}

// Project is the immutable test inventory of a compiled project.
type Project struct {
	// ClassDir is the compiled class root.
	ClassDir string `json:"classDir"`
	// SourceDir is the source root matching ClassDir.
	SourceDir string `json:"sourceDir"`
	// Classes contains the test classes sorted by name.
	Classes []*TestClass `json:"classes"`
}

// CountTests returns the total number of test methods across all classes.
func (p *Project) CountTests() int {
	count := 0
	for _, c := range p.Classes {
		count += c.NTestMethods()
	}
	return count
}

// TestMethods returns every test method in class order.
func (p *Project) TestMethods() []*TestMethod {
	methods := make([]*TestMethod, 0, p.CountTests())
	for _, c := range p.Classes {
		methods = append(methods, c.Methods...)
	}
	return methods
}
