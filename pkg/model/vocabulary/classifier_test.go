package vocabulary

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separable returns rows where feature 1 marks the positive class.
func separable() ([][]float64, []float64) {
	var X [][]float64
	var y []float64
	for i := 0; i < 20; i++ {
		X = append(X, []float64{0, 1, float64(i % 3)})
		y = append(y, 1)
		X = append(X, []float64{0, 0, float64(i % 3)})
		y = append(y, 0)
	}
	return X, y
}

func TestNewClassifier(t *testing.T) {
	c, err := NewClassifier("", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, KindRandomForest, c.Kind())

	c, err = NewClassifier(KindLogistic, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, KindLogistic, c.Kind())

	_, err = NewClassifier("svm", 0, 0)
	assert.ErrorIs(t, err, ErrUnknownClassifier)
}

func TestClassifiers_Fit(t *testing.T) {
	X, y := separable()

	for _, kind := range []string{KindRandomForest, KindLogistic} {
		t.Run(kind, func(t *testing.T) {
			c, err := NewClassifier(kind, 15, 4)
			require.NoError(t, err)

			_, err = c.Predict([]float64{0, 1, 0})
			assert.ErrorIs(t, err, ErrNotFitted)

			require.NoError(t, c.Fit(context.Background(), X, y))

			pos, err := c.Predict([]float64{0, 1, 2})
			require.NoError(t, err)
			neg, err := c.Predict([]float64{0, 0, 2})
			require.NoError(t, err)

			assert.Greater(t, pos, 0.5)
			assert.Less(t, neg, 0.5)
			assert.GreaterOrEqual(t, neg, 0.0)
			assert.LessOrEqual(t, pos, 1.0)
		})
	}
}

func TestClassifiers_FitErrors(t *testing.T) {
	f := NewRandomForest(3, 1)
	assert.ErrorIs(t, f.Fit(context.Background(), nil, nil), ErrEmptyTrainingSet)
	assert.Error(t, f.Fit(context.Background(), [][]float64{{1}}, []float64{1, 0}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	X, y := separable()
	assert.Error(t, NewRandomForest(3, 1).Fit(ctx, X, y))
	assert.Error(t, NewLogistic().Fit(ctx, X, y))
}

func TestRandomForest_Deterministic(t *testing.T) {
	X, y := separable()

	a := NewRandomForest(8, 4)
	b := NewRandomForest(8, 1)
	b.Seed = a.Seed
	require.NoError(t, a.Fit(context.Background(), X, y))
	require.NoError(t, b.Fit(context.Background(), X, y))

	for _, row := range X {
		pa, _ := a.Predict(row)
		pb, _ := b.Predict(row)
		assert.Equal(t, pa, pb, "same seed gives the same forest whatever the thread count")
	}
}

func TestBestThreshold(t *testing.T) {
	values := []valueLabel{{3, 1}, {1, 0}, {2, 0}, {4, 1}}
	s, ok := bestThreshold(values)
	require.True(t, ok)
	assert.Equal(t, 2.5, s.threshold)
	assert.Zero(t, s.sse)

	_, ok = bestThreshold([]valueLabel{{1, 0}, {1, 1}})
	assert.False(t, ok, "constant feature has no split")
}
