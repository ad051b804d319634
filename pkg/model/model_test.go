package model

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serval-uni-lu/flakime/pkg/domain"
)

func methodWithLines(lines ...int) *domain.TestMethod {
	return &domain.TestMethod{Name: "testSomething", LongName: "a.B.testSomething()", Statements: lines}
}

// linesFromGaps builds a strictly increasing statement set starting at 10.
func linesFromGaps(gaps []int) []int {
	lines := make([]int, 0, len(gaps)+1)
	line := 10
	lines = append(lines, line)
	for _, g := range gaps {
		line += g
		lines = append(lines, line)
	}
	return lines
}

func TestRegistry(t *testing.T) {
	t.Run("built-in models are registered", func(t *testing.T) {
		for _, name := range []string{UniformName, BernoulliName} {
			m, err := New(name, Params{})
			require.NoError(t, err)
			assert.Equal(t, name, m.Name())
		}
	})

	t.Run("unknown model", func(t *testing.T) {
		_, err := New("gaussian", Params{})
		assert.ErrorIs(t, err, ErrUnknownModel)
	})

	t.Run("isolated registry", func(t *testing.T) {
		r := NewRegistry()
		assert.False(t, r.Has(UniformName))
		r.Register("custom", func(Params) (Model, error) { return Uniform{}, nil })
		assert.Equal(t, []string{"custom"}, r.Names())
	})
}

func TestValidateFlakeRate(t *testing.T) {
	for _, rate := range []float64{0, 0.5, 1} {
		assert.NoError(t, ValidateFlakeRate(rate))
	}
	for _, rate := range []float64{-0.1, 1.01} {
		assert.ErrorIs(t, ValidateFlakeRate(rate), ErrInvalidFlakeRate)
	}
}

func TestUniform_StatementProbability(t *testing.T) {
	u := Uniform{}
	test := methodWithLines(10, 11, 12, 13)

	want := []float64{0.025, 0.05, 0.075, 0.1}
	for i, line := range test.Statements {
		assert.InDelta(t, want[i], u.StatementProbability(test, line, 0.1), 1e-12, "line %d", line)
	}
	assert.Equal(t, 0.1, u.TestProbability(test, 0.1))
	assert.Equal(t, 0.1, u.StatementProbability(test, 13, 0.1), "last statement is exactly the flake rate")

	assert.Zero(t, u.StatementProbability(methodWithLines(), 10, 0.1))
	assert.Zero(t, u.StatementProbability(test, 5, 0.1))
	require.NoError(t, u.PreProcess(context.Background(), &domain.Project{}, 0.1))
	require.NoError(t, u.PostProcess())
}

func TestUniform_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	u := Uniform{}

	properties.Property("contiguous statements get rank/n of the flake rate", prop.ForAll(
		func(n int, rate float64) bool {
			lines := make([]int, n)
			for i := range lines {
				lines[i] = 20 + i
			}
			test := methodWithLines(lines...)
			for k, line := range lines {
				want := float64(k+1) / float64(n) * rate
				got := u.StatementProbability(test, line, rate)
				if got-want > 1e-12 || want-got > 1e-12 {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 50),
		gen.Float64Range(0, 1),
	))

	properties.Property("thresholds are non-decreasing and end at the flake rate", prop.ForAll(
		func(gaps []int, rate float64) bool {
			test := methodWithLines(linesFromGaps(gaps)...)
			prev := 0.0
			for _, line := range test.Statements {
				p := u.StatementProbability(test, line, rate)
				if p < prev {
					return false
				}
				prev = p
			}
			return prev == rate
		},
		gen.SliceOf(gen.IntRange(1, 6)),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestBernoulli_StatementProbability(t *testing.T) {
	b := NewBernoulli(DefaultHazard)
	test := methodWithLines(3, 7, 9)

	p1 := b.StatementProbability(test, 3, 0.2)
	p2 := b.StatementProbability(test, 7, 0.2)
	p3 := b.StatementProbability(test, 9, 0.2)

	assert.InDelta(t, 0.2*0.005/(1-0.995*0.995*0.995), p1, 1e-12)
	assert.Less(t, p1, p2)
	assert.Equal(t, 0.2, p3)
	assert.Equal(t, p2, b.StatementProbability(test, 8, 0.2), "lines between statements keep the previous rank")
	assert.Zero(t, b.StatementProbability(test, 1, 0.2))
	assert.Equal(t, 0.2, b.TestProbability(test, 0.2))
	assert.InDelta(t, 1-0.995*0.995*0.995, b.RawTestProbability(test), 1e-12)

	assert.Equal(t, DefaultHazard, NewBernoulli(2).hazard)
}

func TestBernoulli_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("thresholds are non-decreasing and end at the flake rate", prop.ForAll(
		func(gaps []int, rate, hazard float64) bool {
			b := NewBernoulli(hazard)
			test := methodWithLines(linesFromGaps(gaps)...)
			prev := 0.0
			for _, line := range test.Statements {
				p := b.StatementProbability(test, line, rate)
				if p < prev || p > rate {
					return false
				}
				prev = p
			}
			return prev == rate
		},
		gen.SliceOf(gen.IntRange(1, 6)),
		gen.Float64Range(0, 1),
		gen.Float64Range(0.0001, 0.5),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
