package model

import (
	"context"

	"github.com/serval-uni-lu/flakime/pkg/domain"
)

// UniformName is the registry name of the uniform model.
const UniformName = "uniformDistribution"

func init() {
	Register(UniformName, func(Params) (Model, error) {
		return Uniform{}, nil
	})
}

// Uniform spreads the flake rate over the method body in proportion to the
// number of source lines executed so far.
type Uniform struct{}

func (Uniform) Name() string { return UniformName }

func (Uniform) PreProcess(context.Context, *domain.Project, float64) error { return nil }

// StatementProbability returns (1 + line - first) / (last - first + 1) * flakeRate,
// where first and last are the method's first and last statement lines.
func (Uniform) StatementProbability(test *domain.TestMethod, line int, flakeRate float64) float64 {
	if len(test.Statements) == 0 {
		return 0
	}
	first, last := test.FirstLine(), test.LastLine()
	total := last - first + 1
	executed := 1 + line - first

	switch {
	case executed <= 0:
		return 0
	case executed >= total:
		return flakeRate
	}
	return float64(executed) / float64(total) * flakeRate
}

func (Uniform) TestProbability(_ *domain.TestMethod, flakeRate float64) float64 {
	return flakeRate
}

func (Uniform) PostProcess() error { return nil }
