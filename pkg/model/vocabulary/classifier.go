package vocabulary

import (
	"context"
	"errors"
	"fmt"
	"runtime"
)

// Classifier kinds.
const (
	KindRandomForest = "random-forest"
	KindLogistic     = "logistic"
)

var (
	// ErrNotFitted is returned when predicting with an untrained classifier.
	ErrNotFitted = errors.New("vocabulary: classifier not fitted")
	// ErrUnknownClassifier is returned for an unsupported classifier kind.
	ErrUnknownClassifier = errors.New("vocabulary: unknown classifier")
	// ErrEmptyTrainingSet is returned when fitting without samples.
	ErrEmptyTrainingSet = errors.New("vocabulary: empty training set")
)

// Classifier predicts the probability that a text vector is flaky.
type Classifier interface {
	// Kind returns the classifier kind.
	Kind() string
	// Fit trains the classifier on feature rows X and labels y in {0, 1}.
	Fit(ctx context.Context, X [][]float64, y []float64) error
	// Predict returns the probability in [0, 1] that x is flaky.
	Predict(x []float64) (float64, error)
}

// NewClassifier creates an untrained classifier of the given kind.
// Empty kind selects a random forest.
func NewClassifier(kind string, trees, threads int) (Classifier, error) {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	switch kind {
	case "", KindRandomForest:
		return NewRandomForest(trees, threads), nil
	case KindLogistic:
		return NewLogistic(), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownClassifier, kind)
	}
}

func checkTrainingSet(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return ErrEmptyTrainingSet
	}
	if len(X) != len(y) {
		return fmt.Errorf("vocabulary: %d rows but %d labels", len(X), len(y))
	}
	return nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || v != v:
		return 0
	case v > 1:
		return 1
	}
	return v
}
