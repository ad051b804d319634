// Package vocabulary implements the trained-classifier probability model.
//
// A classifier fitted on labeled test bodies scores how flaky a piece of
// test code looks. The test-level probability is the score of the whole
// body; the score of each growing prefix of the body apportions that
// probability over the statements.
package vocabulary

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/serval-uni-lu/flakime/pkg/domain"
	"github.com/serval-uni-lu/flakime/pkg/model"
)

const (
	// Name is the registry name of the vocabulary model.
	Name = "vocabulary"
	// DefaultModelPath is where the classifier is stored when no path is configured.
	DefaultModelPath = "flakime-vocabulary.model"
)

func init() {
	model.Register(Name, func(p model.Params) (model.Model, error) {
		return New(p)
	})
}

// testCurve is the cached probability curve of one test method.
type testCurve struct {
	probability float64
	lines       []int
	cumulative  []float64
}

// Model is the vocabulary probability model.
type Model struct {
	params   model.Params
	logger   *slog.Logger
	artifact *Artifact
	sources  *sourceCache
	curves   map[string]*testCurve
	maxProba float64
}

var _ model.Model = (*Model)(nil)

// New creates a vocabulary model. Unless training is forced, the stored
// classifier must already exist.
func New(p model.Params) (*Model, error) {
	if p.Logger == nil {
		return nil, model.ErrMissingLogger
	}
	if p.ModelPath == "" {
		p.ModelPath = DefaultModelPath
	}
	if p.MaxModelBytes <= 0 {
		p.MaxModelBytes = DefaultMaxModelBytes
	}
	if _, err := NewClassifier(p.Classifier, p.Trees, p.Threads); err != nil {
		return nil, err
	}
	if !p.ForceTraining {
		if _, err := os.Stat(p.ModelPath); err != nil {
			return nil, fmt.Errorf("%w at %s; run with --force-training first", ErrModelNotFound, p.ModelPath)
		}
	}

	return &Model{
		params:  p,
		logger:  p.Logger,
		sources: newSourceCache(),
		curves:  make(map[string]*testCurve),
	}, nil
}

func (m *Model) Name() string { return Name }

// MaxProba returns the largest test-level probability of the project.
func (m *Model) MaxProba() float64 { return m.maxProba }

// PreProcess trains or loads the classifier, then caches the probability
// curve of every test method of the project.
func (m *Model) PreProcess(ctx context.Context, project *domain.Project, _ float64) error {
	tests := project.TestMethods()

	if m.params.ForceTraining {
		var extra []string
		for _, test := range tests {
			s, err := m.sources.spans(test)
			if err != nil {
				continue
			}
			for _, sp := range s {
				extra = append(extra, sp.text)
			}
		}

		ds, err := LoadDataset(m.params.DatasetPath)
		if err != nil {
			return err
		}
		m.logger.Info("training classifier",
			"classifier", classifierKind(m.params.Classifier),
			"samples", ds.Len(),
			"extra_texts", len(extra))
		a, err := Train(ctx, ds, extra, m.params)
		if err != nil {
			return err
		}
		if err := a.Save(m.params.ModelPath); err != nil {
			return err
		}
		m.artifact = a
	} else {
		a, err := Load(m.params.ModelPath, m.params.MaxModelBytes)
		if err != nil {
			return err
		}
		m.artifact = a
	}

	return m.cacheCurves(ctx, tests)
}

// cacheCurves computes the curve of every test and the project-wide maxProba.
// Tests whose curve cannot be computed keep a probability of 0.
func (m *Model) cacheCurves(ctx context.Context, tests []*domain.TestMethod) error {
	m.maxProba = 0
	for _, test := range tests {
		if err := ctx.Err(); err != nil {
			return err
		}
		s, err := m.sources.spans(test)
		if err != nil {
			m.logger.Warn("flakiness probability unavailable", "test", test.LongName, "error", err)
			continue
		}
		c, err := m.curve(test, s)
		if err != nil {
			m.logger.Warn("flakiness probability unavailable", "test", test.LongName, "error", err)
			continue
		}
		m.curves[test.LongName] = c
		if c.probability > m.maxProba {
			m.maxProba = c.probability
		}
	}

	m.logger.Debug("vocabulary model ready", "tests", len(m.curves), "max_proba", m.maxProba)
	return nil
}

// curve classifies the body and each growing prefix of it. The prefix
// scores are normalized and accumulated so that the last statement holds 1.
func (m *Model) curve(test *domain.TestMethod, spans []span) (*testCurve, error) {
	probability, err := m.artifact.Predict(bodyText(spans))
	if err != nil {
		return nil, err
	}

	c := &testCurve{
		probability: probability,
		lines:       append([]int(nil), test.Statements...),
		cumulative:  make([]float64, len(test.Statements)),
	}

	raw := make([]float64, len(c.lines))
	total := 0.0
	for i, line := range c.lines {
		text := prefixText(spans, line)
		if text == "" {
			continue
		}
		p, err := m.artifact.Predict(text)
		if err != nil {
			return nil, err
		}
		raw[i] = p
		total += p
	}

	if total <= 0 {
		return c, nil
	}

	sum := 0.0
	for i := range raw {
		sum += raw[i] / total
		c.cumulative[i] = min(sum, 1)
	}
	c.cumulative[len(c.cumulative)-1] = 1
	return c, nil
}

// StatementProbability returns the cached cumulative share at line, scaled by
// the test's probability relative to maxProba and by flakeRate.
func (m *Model) StatementProbability(test *domain.TestMethod, line int, flakeRate float64) float64 {
	c, ok := m.curves[test.LongName]
	if !ok || m.maxProba == 0 {
		return 0
	}
	idx := sort.SearchInts(c.lines, line+1) - 1
	if idx < 0 {
		return 0
	}
	return c.cumulative[idx] * (c.probability / m.maxProba) * flakeRate
}

// TestProbability returns the classifier score of the whole body times flakeRate.
func (m *Model) TestProbability(test *domain.TestMethod, flakeRate float64) float64 {
	if c, ok := m.curves[test.LongName]; ok {
		return c.probability * flakeRate
	}
	if m.artifact == nil {
		return 0
	}
	s, err := m.sources.spans(test)
	if err != nil {
		m.logger.Warn("flakiness probability unavailable", "test", test.LongName, "error", err)
		return 0
	}
	p, err := m.artifact.Predict(bodyText(s))
	if err != nil {
		m.logger.Warn("flakiness probability unavailable", "test", test.LongName, "error", err)
		return 0
	}
	return p * flakeRate
}

func (m *Model) PostProcess() error {
	m.sources = newSourceCache()
	return nil
}

// Train fits a tokenizer on the dataset bodies and extra texts, then fits the
// configured classifier on the dataset.
func Train(ctx context.Context, ds *Dataset, extra []string, p model.Params) (*Artifact, error) {
	if ds.Len() == 0 {
		return nil, ErrEmptyTrainingSet
	}
	clf, err := NewClassifier(p.Classifier, p.Trees, p.Threads)
	if err != nil {
		return nil, err
	}

	tok := NewTokenizer()
	tok.Fit(append(ds.Bodies(), extra...))

	if err := clf.Fit(ctx, tok.Matrix(ds.Bodies()), ds.Labels()); err != nil {
		return nil, err
	}
	return &Artifact{Tokenizer: tok, Classifier: clf}, nil
}

// Evaluation summarizes predictions against labels at a 0.5 threshold.
type Evaluation struct {
	Samples   int     `json:"samples"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// Evaluate scores the artifact on ds.
func Evaluate(a *Artifact, ds *Dataset) (Evaluation, error) {
	var tp, fp, tn, fn int
	for _, e := range ds.Entries {
		p, err := a.Predict(e.Body)
		if err != nil {
			return Evaluation{}, err
		}
		predicted := p >= 0.5
		switch {
		case predicted && e.Label == 1:
			tp++
		case predicted && e.Label == 0:
			fp++
		case !predicted && e.Label == 0:
			tn++
		default:
			fn++
		}
	}

	ev := Evaluation{Samples: ds.Len()}
	if ev.Samples > 0 {
		ev.Accuracy = float64(tp+tn) / float64(ev.Samples)
	}
	if tp+fp > 0 {
		ev.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		ev.Recall = float64(tp) / float64(tp+fn)
	}
	return ev, nil
}

func classifierKind(kind string) string {
	if kind == "" {
		return KindRandomForest
	}
	return kind
}
