package instrument

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guardsFrom(thresholds []float64) GuardSet {
	sorted := append([]float64(nil), thresholds...)
	sort.Float64s(sorted)
	g := make(GuardSet, len(sorted))
	for i, p := range sorted {
		g[i] = Guard{Line: 10 + i, Threshold: p}
	}
	return g
}

func TestGuardSet_Fire(t *testing.T) {
	g := GuardSet{{Line: 3, Threshold: 0.1}, {Line: 5, Threshold: 0.2}, {Line: 8, Threshold: 0.3}}

	tests := []struct {
		name     string
		draw     float64
		disabled bool
		wantLine int
		wantFire bool
	}{
		{"draw under first threshold", 0.05, false, 3, true},
		{"draw equal to threshold does not fire there", 0.1, false, 5, true},
		{"draw between thresholds", 0.25, false, 8, true},
		{"draw at last threshold", 0.3, false, 0, false},
		{"draw above every threshold", 0.9, false, 0, false},
		{"disabled", 0.0, true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard, fired := g.Fire(tt.draw, tt.disabled)
			assert.Equal(t, tt.wantFire, fired)
			assert.Equal(t, tt.wantLine, guard.Line)
		})
	}

	assert.Equal(t, []int{3, 5, 8}, g.Lines())
}

func TestGuardSet_FireProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	thresholds := gen.SliceOfN(6, gen.Float64Range(0, 1))

	properties.Property("fires at the first threshold above the draw", prop.ForAll(
		func(ps []float64, draw float64) bool {
			g := guardsFrom(ps)
			guard, fired := g.Fire(draw, false)
			for i, candidate := range g {
				if draw < candidate.Threshold {
					return fired && guard == g[i]
				}
			}
			return !fired
		},
		thresholds, gen.Float64Range(0, 1),
	))

	properties.Property("never fires when the draw reaches the last threshold", prop.ForAll(
		func(ps []float64, extra float64) bool {
			g := guardsFrom(ps)
			last := g[len(g)-1].Threshold
			_, fired := g.Fire(last+extra*(1-last), false)
			return !fired
		},
		thresholds, gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

func TestGuardSet_Simulate(t *testing.T) {
	g := GuardSet{{Line: 3, Threshold: 0.1}, {Line: 5, Threshold: 0.2}, {Line: 8, Threshold: 0.3}}

	s := g.Simulate(rand.New(rand.NewPCG(7, 11)), 50000)
	assert.Equal(t, 50000, s.Runs)
	assert.InDelta(t, 0.3, s.FailureRate(), 0.01, "failure rate equals the last threshold")
	assert.InDelta(t, 0.1, float64(s.ByLine[3])/float64(s.Runs), 0.01)
	assert.InDelta(t, 0.1, float64(s.ByLine[5])/float64(s.Runs), 0.01)
	assert.InDelta(t, 0.1, float64(s.ByLine[8])/float64(s.Runs), 0.01)

	again := g.Simulate(rand.New(rand.NewPCG(7, 11)), 50000)
	assert.Equal(t, s, again, "seeded simulations are reproducible")

	assert.Zero(t, Simulation{}.FailureRate())
}

func TestGuardSet_FailureProbability(t *testing.T) {
	tests := []struct {
		name   string
		guards GuardSet
		want   float64
	}{
		{"empty", nil, 0},
		{"growing thresholds", GuardSet{{Line: 8, Threshold: 0.01}, {Line: 9, Threshold: 0.05}}, 0.05},
		{"largest threshold wins", GuardSet{{Line: 3, Threshold: 0.2}, {Line: 4, Threshold: 0.1}}, 0.2},
		{"capped at one", GuardSet{{Line: 3, Threshold: 1.5}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.guards.FailureProbability(), 1e-12)
		})
	}

	g := GuardSet{{Line: 8, Threshold: 0.01}, {Line: 9, Threshold: 0.05}}
	s := g.Simulate(rand.New(rand.NewPCG(3, 5)), 50000)
	assert.InDelta(t, g.FailureProbability(), s.FailureRate(), 0.005)
}

func TestSnippets(t *testing.T) {
	v := newVariables("42")

	entry := entrySnippet(v, "MY_FLAG")
	assert.Equal(t,
		`double __flakimeDraw42 = Math.random(); boolean __flakimeDisabled42 = Boolean.parseBoolean(System.getenv("MY_FLAG"));`,
		entry)

	t.Run("without report", func(t *testing.T) {
		got := guardSnippet(v, Guard{Line: 12, Threshold: 0.05}, nil)
		assert.Equal(t,
			`if (!__flakimeDisabled42 && __flakimeDraw42 < 0.05) { throw new IllegalStateException("flakime injected failure"); }`,
			got)
	})

	t.Run("with report", func(t *testing.T) {
		got := guardSnippet(v, Guard{Line: 12, Threshold: 0.05}, &reportTarget{dir: `C:\out "x"`, file: "_output_a_B_c.out"})
		assert.Contains(t, got, `new java.io.File("C:\\out \"x\"", "_output_a_B_c.out")`)
		assert.Contains(t, got, `System.currentTimeMillis() + ",12,0.05\n"`)
		assert.NotContains(t, got, "\n", "snippet stays on one line")
	})
}

func TestJavaDouble(t *testing.T) {
	tests := map[float64]string{
		0.1:     "0.1",
		1:       "1.0",
		0.00001: "1e-05",
		0.25:    "0.25",
	}
	for in, want := range tests {
		got := javaDouble(in)
		require.Equal(t, want, got)
	}
}
