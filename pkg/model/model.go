// Package model provides the flakiness probability models.
// Each model is registered by name and instantiated through the registry.
package model

import (
	"context"
	"errors"
	"log/slog"

	"github.com/serval-uni-lu/flakime/pkg/domain"
)

var (
	// ErrUnknownModel is returned when no factory is registered under a name.
	ErrUnknownModel = errors.New("model: unknown model")
	// ErrInvalidFlakeRate is returned when a flake rate lies outside [0, 1].
	ErrInvalidFlakeRate = errors.New("model: flake rate must be within [0, 1]")
	// ErrMissingLogger is returned by factories of models that log when
	// Params.Logger is nil.
	ErrMissingLogger = errors.New("model: logger is required")
)

// Model computes the probability that a test fails at a given statement.
//
// PreProcess is called once over the whole project before any probability
// is requested. Probabilities are then read without further mutation, and
// PostProcess releases what PreProcess acquired.
type Model interface {
	// Name returns the registry name of the model.
	Name() string
	// PreProcess prepares the model for the discovered project.
	PreProcess(ctx context.Context, project *domain.Project, flakeRate float64) error
	// StatementProbability returns the failure threshold of the statement at line.
	StatementProbability(test *domain.TestMethod, line int, flakeRate float64) float64
	// TestProbability returns the probability that the test fails on a run.
	TestProbability(test *domain.TestMethod, flakeRate float64) float64
	// PostProcess releases resources acquired during PreProcess.
	PostProcess() error
}

// Params carries the hyperparameters every factory may read.
type Params struct {
	// Trees is the number of trees of a random forest classifier.
	Trees int
	// Threads is the number of workers used while training.
	Threads int
	// ForceTraining trains a new classifier instead of loading one.
	ForceTraining bool
	// ModelPath is where the trained classifier is stored.
	ModelPath string
	// Classifier is the classifier kind (e.g. "random-forest").
	Classifier string
	// DatasetPath overrides the bundled training dataset when set.
	DatasetPath string
	// MaxModelBytes bounds the size of a stored classifier.
	MaxModelBytes int64
	// Logger receives warnings raised while computing probabilities.
	// Models that log reject a nil Logger with ErrMissingLogger.
	Logger *slog.Logger
}

// ValidateFlakeRate returns ErrInvalidFlakeRate when rate lies outside [0, 1].
func ValidateFlakeRate(rate float64) error {
	if rate < 0 || rate > 1 || rate != rate {
		return ErrInvalidFlakeRate
	}
	return nil
}
