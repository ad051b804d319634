package javasrc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serval-uni-lu/flakime/pkg/bytecode"
)

const (
	sampleClass = "com.example.Sample"
	guard       = "if (x) { throw new IllegalStateException(); }"
)

func newTestEditor(t *testing.T) *Editor {
	t.Helper()
	e, err := NewEditor(filepath.Join("testdata", "src"))
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func resolveMethod(t *testing.T, e *Editor, className, name string) bytecode.Method {
	t.Helper()
	class, err := e.Resolve(context.Background(), className)
	require.NoError(t, err)
	for _, m := range class.Methods() {
		if m.Name() == name {
			return m
		}
	}
	t.Fatalf("method %s not found in %s", name, className)
	return nil
}

func renderLines(t *testing.T, m bytecode.Method) []string {
	t.Helper()
	src := string(m.(*Method).doc.render())
	return strings.Split(src, "\n")
}

func TestEditor_Resolve(t *testing.T) {
	e := newTestEditor(t)

	t.Run("top level class", func(t *testing.T) {
		class, err := e.Resolve(context.Background(), sampleClass)
		require.NoError(t, err)
		assert.Equal(t, sampleClass, class.Name())

		var names []string
		for _, m := range class.Methods() {
			names = append(names, m.Name())
		}
		assert.Equal(t, []string{"Sample", "computes", "toString"}, names)
	})

	t.Run("nested class", func(t *testing.T) {
		class, err := e.Resolve(context.Background(), sampleClass+"$Inner")
		require.NoError(t, err)
		require.Len(t, class.Methods(), 1)
		assert.Equal(t, []string{"@org.junit.Test"}, class.Methods()[0].Annotations())
	})

	t.Run("anonymous class is not resolvable", func(t *testing.T) {
		_, err := e.Resolve(context.Background(), sampleClass+"$1")
		assert.ErrorIs(t, err, bytecode.ErrClassNotFound)
	})

	t.Run("missing source file", func(t *testing.T) {
		_, err := e.Resolve(context.Background(), "com.example.Missing")
		assert.ErrorIs(t, err, bytecode.ErrClassNotFound)
	})
}

func TestNewEditor_ClasspathEntry(t *testing.T) {
	_, err := NewEditor("testdata", WithClasspath(filepath.Join(t.TempDir(), "missing.jar")))
	assert.ErrorIs(t, err, bytecode.ErrClasspathEntry)

	jar := filepath.Join(t.TempDir(), "lib.jar")
	require.NoError(t, os.WriteFile(jar, nil, 0o644))
	e, err := NewEditor("testdata", WithClasspath(jar, t.TempDir()))
	require.NoError(t, err)
	assert.Len(t, e.roots, 2)
}

func TestMethod_Metadata(t *testing.T) {
	e := newTestEditor(t)

	computes := resolveMethod(t, e, sampleClass, "computes")
	assert.Equal(t, "com.example.Sample.computes()", computes.LongName())
	assert.Equal(t, []string{"@org.junit.jupiter.api.Test", "@org.junit.jupiter.api.Timeout(5)"}, computes.Annotations())
	assert.False(t, computes.IsConstructor())
	assert.True(t, computes.HasBody())
	assert.Equal(t, filepath.Join("testdata", "src", "com", "example", "Sample.java"), computes.SourceFile())

	toString := resolveMethod(t, e, sampleClass, "toString")
	assert.Empty(t, toString.Annotations(), "source-only annotations are dropped")

	ctor := resolveMethod(t, e, sampleClass, "Sample")
	assert.True(t, ctor.IsConstructor())

	run := resolveMethod(t, e, sampleClass+"$Base", "run")
	assert.False(t, run.HasBody())
	assert.Equal(t, "com.example.Sample$Base.run(int,String...)", run.LongName())
	assert.Empty(t, run.Blocks())
}

func TestMethod_Blocks(t *testing.T) {
	e := newTestEditor(t)

	tests := []struct {
		className string
		method    string
		starts    []int
	}{
		{sampleClass, "computes", []int{17, 18, 19, 20, 22, 23, 25, 28}},
		{sampleClass, "Sample", []int{10, 11}},
		{sampleClass + "$Inner", "innerTest", []int{43, 44, 46, 48}},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			m := resolveMethod(t, e, tt.className, tt.method)
			var starts []int
			for _, b := range m.Blocks() {
				starts = append(starts, b.StartLine)
			}
			assert.Equal(t, tt.starts, starts)
		})
	}

	t.Run("compound statements end at their header", func(t *testing.T) {
		m := resolveMethod(t, e, sampleClass, "computes")
		blocks := m.Blocks()
		assert.Equal(t, bytecode.Block{StartLine: 19, EndLine: 19}, blocks[2])
		assert.Equal(t, bytecode.Block{StartLine: 25, EndLine: 27}, blocks[6])
	})
}

func TestMethod_InsertAfter(t *testing.T) {
	t.Run("simple statement gets the guard after it", func(t *testing.T) {
		m := resolveMethod(t, newTestEditor(t), sampleClass, "computes")
		require.NoError(t, m.InsertAfter(17, guard))

		lines := renderLines(t, m)
		assert.Equal(t, "        int a = 1;"+guard, lines[16])
	})

	t.Run("compound statement gets the guard inside its body", func(t *testing.T) {
		m := resolveMethod(t, newTestEditor(t), sampleClass, "computes")
		require.NoError(t, m.InsertAfter(19, guard))

		lines := renderLines(t, m)
		assert.Equal(t, "        if (a < b) {"+guard, lines[18])
	})

	t.Run("jump statement gets the guard before it", func(t *testing.T) {
		m := resolveMethod(t, newTestEditor(t), sampleClass, "computes")
		require.NoError(t, m.InsertAfter(28, guard))

		lines := renderLines(t, m)
		assert.Equal(t, "        "+guard+"return;", lines[27])
	})

	t.Run("try statement", func(t *testing.T) {
		m := resolveMethod(t, newTestEditor(t), sampleClass+"$Inner", "innerTest")
		require.NoError(t, m.InsertAfter(43, guard))
		require.NoError(t, m.InsertAfter(46, guard))

		lines := renderLines(t, m)
		assert.Equal(t, "            try {"+guard, lines[42])
		assert.Equal(t, "                handle(e);"+guard, lines[45])
	})

	t.Run("line count is preserved", func(t *testing.T) {
		e := newTestEditor(t)
		m := resolveMethod(t, e, sampleClass, "computes")
		original := strings.Count(string(m.(*Method).doc.source), "\n")
		require.NoError(t, m.InsertAtEntry("double d = Math.random();"))
		for _, b := range m.Blocks() {
			require.NoError(t, m.InsertAfter(b.StartLine, guard))
		}
		assert.Equal(t, original, len(renderLines(t, m))-1)
	})

	t.Run("no statement at line", func(t *testing.T) {
		m := resolveMethod(t, newTestEditor(t), sampleClass, "computes")
		err := m.InsertAfter(21, guard)
		assert.ErrorIs(t, err, bytecode.ErrNoStatementAtLine)
	})

	t.Run("invalid snippets are rejected", func(t *testing.T) {
		m := resolveMethod(t, newTestEditor(t), sampleClass, "computes")
		assert.ErrorIs(t, m.InsertAfter(17, "if ("), bytecode.ErrInvalidSnippet)
		assert.ErrorIs(t, m.InsertAfter(17, "foo();\nbar();"), bytecode.ErrInvalidSnippet)
		assert.ErrorIs(t, m.InsertAfter(17, "  "), bytecode.ErrInvalidSnippet)
	})

	t.Run("bodiless method", func(t *testing.T) {
		m := resolveMethod(t, newTestEditor(t), sampleClass+"$Base", "run")
		assert.ErrorIs(t, m.InsertAfter(37, guard), bytecode.ErrNoBody)
		assert.ErrorIs(t, m.InsertAtEntry("int x = 0;"), bytecode.ErrNoBody)
	})
}

func TestMethod_InsertAtEntry(t *testing.T) {
	t.Run("method", func(t *testing.T) {
		m := resolveMethod(t, newTestEditor(t), sampleClass, "computes")
		require.NoError(t, m.InsertAtEntry("double d = Math.random();"))

		lines := renderLines(t, m)
		assert.Equal(t, "    void computes() {double d = Math.random();", lines[15])
	})

	t.Run("constructor keeps super call first", func(t *testing.T) {
		m := resolveMethod(t, newTestEditor(t), sampleClass, "Sample")
		require.NoError(t, m.InsertAtEntry("int x = 0;"))

		lines := renderLines(t, m)
		assert.Equal(t, "        super();int x = 0;", lines[9])
	})
}

func TestClass_WriteAndPatch(t *testing.T) {
	e := newTestEditor(t)
	class, err := e.Resolve(context.Background(), sampleClass)
	require.NoError(t, err)

	patch, err := class.Patch()
	require.NoError(t, err)
	assert.Empty(t, patch, "unmodified class has no patch")

	m := resolveMethod(t, e, sampleClass, "computes")
	require.NoError(t, m.InsertAfter(18, guard))

	patch, err = class.Patch()
	require.NoError(t, err)
	assert.Contains(t, patch, "+++ b/com/example/Sample.java")
	assert.Contains(t, patch, "@@")

	out := t.TempDir()
	require.NoError(t, class.Write(out))

	written, err := os.ReadFile(filepath.Join(out, "com", "example", "Sample.java"))
	require.NoError(t, err)
	assert.Contains(t, string(written), "int b = a + 1;"+guard)
}
