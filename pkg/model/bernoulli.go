package model

import (
	"context"
	"math"

	"github.com/serval-uni-lu/flakime/pkg/domain"
)

const (
	// BernoulliName is the registry name of the Bernoulli model.
	BernoulliName = "bernoulli"
	// DefaultHazard is the per-statement failure probability.
	DefaultHazard = 0.005
)

func init() {
	Register(BernoulliName, func(Params) (Model, error) {
		return NewBernoulli(DefaultHazard), nil
	})
}

// Bernoulli treats every statement as an independent trial failing with a
// fixed hazard p. The probability of having failed after k of n statements,
// 1-(1-p)^k, is rescaled so that the last statement reaches the flake rate.
type Bernoulli struct {
	hazard float64
}

// NewBernoulli creates a Bernoulli model with the given per-statement hazard.
// Hazards outside (0, 1) fall back to DefaultHazard.
func NewBernoulli(hazard float64) *Bernoulli {
	if hazard <= 0 || hazard >= 1 {
		hazard = DefaultHazard
	}
	return &Bernoulli{hazard: hazard}
}

func (b *Bernoulli) Name() string { return BernoulliName }

func (b *Bernoulli) PreProcess(context.Context, *domain.Project, float64) error { return nil }

// StatementProbability returns flakeRate * (1-(1-p)^k) / (1-(1-p)^n), with k
// the rank of line among the n statements.
func (b *Bernoulli) StatementProbability(test *domain.TestMethod, line int, flakeRate float64) float64 {
	n := len(test.Statements)
	k := test.Rank(line)
	if n == 0 || k == 0 {
		return 0
	}
	if k >= n {
		return flakeRate
	}
	return flakeRate * b.cumulative(k) / b.cumulative(n)
}

func (b *Bernoulli) TestProbability(_ *domain.TestMethod, flakeRate float64) float64 {
	return flakeRate
}

// RawTestProbability returns the unscaled probability 1-(1-p)^n that at
// least one of the test's n statements fails.
func (b *Bernoulli) RawTestProbability(test *domain.TestMethod) float64 {
	return b.cumulative(len(test.Statements))
}

func (b *Bernoulli) PostProcess() error { return nil }

func (b *Bernoulli) cumulative(k int) float64 {
	return 1 - math.Pow(1-b.hazard, float64(k))
}
