package domain

import "testing"

func TestTestMethod_Rank(t *testing.T) {
	m := &TestMethod{Statements: []int{10, 12, 15, 20}}

	tests := []struct {
		line int
		want int
	}{
		{9, 0},
		{10, 1},
		{11, 1},
		{15, 3},
		{20, 4},
		{99, 4},
	}
	for _, tt := range tests {
		if got := m.Rank(tt.line); got != tt.want {
			t.Errorf("Rank(%d) = %d, want %d", tt.line, got, tt.want)
		}
	}

	if m.FirstLine() != 10 || m.LastLine() != 20 {
		t.Errorf("unexpected bounds %d..%d", m.FirstLine(), m.LastLine())
	}
}

func TestProject_CountTests(t *testing.T) {
	p := &Project{Classes: []*TestClass{
		{Name: "a.A", Methods: []*TestMethod{{Name: "x"}, {Name: "y"}}},
		{Name: "b.B", Methods: []*TestMethod{{Name: "z"}}},
	}}

	if got := p.CountTests(); got != 3 {
		t.Errorf("expected 3 tests, got %d", got)
	}
	if got := len(p.TestMethods()); got != 3 {
		t.Errorf("expected 3 methods, got %d", got)
	}
	if (&TestMethod{}).LastLine() != 0 {
		t.Error("empty method should have no last line")
	}
}
