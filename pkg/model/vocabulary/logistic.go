package vocabulary

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Logistic regression defaults.
const (
	DefaultEpochs       = 300
	DefaultLearningRate = 0.5
	DefaultL2           = 1e-3
)

// Logistic is an L2-regularized logistic regression fitted by batch
// gradient descent on log-scaled word counts.
type Logistic struct {
	Epochs       int
	LearningRate float64
	L2           float64
	Weights      []float64
	Bias         float64
}

// NewLogistic creates an untrained logistic regression.
func NewLogistic() *Logistic {
	return &Logistic{
		Epochs:       DefaultEpochs,
		LearningRate: DefaultLearningRate,
		L2:           DefaultL2,
	}
}

func (l *Logistic) Kind() string { return KindLogistic }

func (l *Logistic) Fit(ctx context.Context, X [][]float64, y []float64) error {
	if err := checkTrainingSet(X, y); err != nil {
		return err
	}

	dim := len(X[0])
	rows := make([][]float64, len(X))
	for i, row := range X {
		rows[i] = logScale(row, dim)
	}

	w := make([]float64, dim)
	grad := make([]float64, dim)
	bias := 0.0
	n := float64(len(rows))

	for epoch := 0; epoch < l.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range grad {
			grad[i] = 0
		}
		gradBias := 0.0
		for i, row := range rows {
			residual := sigmoid(floats.Dot(w, row)+bias) - y[i]
			floats.AddScaled(grad, residual, row)
			gradBias += residual
		}
		floats.Scale(1-l.LearningRate*l.L2, w)
		floats.AddScaled(w, -l.LearningRate/n, grad)
		bias -= l.LearningRate * gradBias / n
	}

	l.Weights = w
	l.Bias = bias
	return nil
}

func (l *Logistic) Predict(x []float64) (float64, error) {
	if l.Weights == nil {
		return 0, ErrNotFitted
	}
	return clamp01(sigmoid(floats.Dot(l.Weights, logScale(x, len(l.Weights))) + l.Bias)), nil
}

// logScale returns log(1+v) of row, truncated or zero-padded to dim.
func logScale(row []float64, dim int) []float64 {
	out := make([]float64, dim)
	for i := 0; i < dim && i < len(row); i++ {
		out[i] = math.Log1p(row[i])
	}
	return out
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
