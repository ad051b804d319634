// Package instrument decides which statements of each test method get a
// failure guard and inserts the guards through the class editor.
package instrument

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/serval-uni-lu/flakime/pkg/bytecode"
	"github.com/serval-uni-lu/flakime/pkg/domain"
	"github.com/serval-uni-lu/flakime/pkg/model"
	"github.com/serval-uni-lu/flakime/pkg/report"
)

var (
	// ErrRunCancelled is returned when a run is cancelled via context.
	ErrRunCancelled = errors.New("instrument: cancelled")
	// ErrNoGuardInserted is recorded when every guard of a method failed to insert.
	ErrNoGuardInserted = errors.New("instrument: no guard inserted")
)

// Plan is the instrumentation decision for one test method.
type Plan struct {
	// Probability is the test-level failure probability.
	Probability float64
	// Guards are the statements with a positive threshold.
	Guards GuardSet
}

// Skip reports whether the method gets no guard at all.
func (p Plan) Skip() bool {
	return p.Probability <= 0 || len(p.Guards) == 0
}

// Engine instruments test methods with the thresholds of a model.
type Engine struct {
	model  model.Model
	logger *slog.Logger
	opts   Options
	vars   variables

	reportDir   string
	reportReady bool
}

// New creates an engine for m reporting progress and per-method warnings to logger.
func New(m model.Model, logger *slog.Logger, opts ...Option) *Engine {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	applyDefaults(&options)

	suffix := options.VariableSuffix
	if suffix == "" {
		suffix = strconv.FormatInt(options.Clock().Unix(), 10)
	}

	return &Engine{
		model:  m,
		logger: logger,
		opts:   options,
		vars:   newVariables(suffix),
	}
}

// Plan asks the model for the threshold of every statement of test.
func (e *Engine) Plan(test *domain.TestMethod, flakeRate float64) Plan {
	plan := Plan{Probability: e.model.TestProbability(test, flakeRate)}
	for _, line := range test.Statements {
		if p := e.model.StatementProbability(test, line, flakeRate); p > 0 {
			plan.Guards = append(plan.Guards, Guard{Line: line, Threshold: p})
		}
	}
	return plan
}

// Instrument inserts the entry locals and the guards of test. It returns the
// outcome and the number of guards that could not be inserted.
func (e *Engine) Instrument(test *domain.TestMethod, flakeRate float64) (report.MethodOutcome, int) {
	logger := e.logger
	plan := e.Plan(test, flakeRate)
	outcome := report.MethodOutcome{Method: test.LongName, Probability: plan.Probability}

	if plan.Skip() {
		outcome.Status = domain.MethodStatusSkipped
		return outcome, 0
	}

	target, err := e.reportTarget(test)
	if err != nil {
		logger.Warn("report directory unavailable", "method", test.LongName, "error", err)
		outcome.Status = domain.MethodStatusFailed
		outcome.Error = err.Error()
		return outcome, 0
	}

	if err := test.Method.InsertAtEntry(entrySnippet(e.vars, e.opts.DisableFlag)); err != nil {
		logger.Warn("method entry not instrumented", "method", test.LongName, "error", err)
		outcome.Status = domain.MethodStatusFailed
		outcome.Error = err.Error()
		return outcome, 0
	}

	guardErrors := 0
	inserted := make(GuardSet, 0, len(plan.Guards))
	for _, guard := range plan.Guards {
		if err := test.Method.InsertAfter(guard.Line, guardSnippet(e.vars, guard, target)); err != nil {
			logger.Warn("guard not inserted", "method", test.LongName, "line", guard.Line, "error", err)
			guardErrors++
			continue
		}
		inserted = append(inserted, guard)
	}
	outcome.Guards = len(inserted)
	outcome.Effective = inserted.FailureProbability()

	if outcome.Guards == 0 {
		outcome.Status = domain.MethodStatusFailed
		outcome.Error = ErrNoGuardInserted.Error()
		return outcome, guardErrors
	}

	outcome.Status = domain.MethodStatusInstrumented
	logger.Debug("method instrumented",
		"method", test.LongName,
		"probability", plan.Probability,
		"effective", outcome.Effective,
		"guards", outcome.Guards)
	return outcome, guardErrors
}

// reportTarget returns where the guards of test append their records, creating
// the report directory on first use. It returns nil when reporting is off.
func (e *Engine) reportTarget(test *domain.TestMethod) (*reportTarget, error) {
	if e.opts.DisableReport {
		return nil, nil
	}
	if !e.reportReady {
		dir, err := filepath.Abs(e.opts.ReportDir)
		if err != nil {
			return nil, fmt.Errorf("report directory: %w", err)
		}
		if !e.opts.DryRun {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("report directory: %w", err)
			}
		}
		e.reportDir = dir
		e.reportReady = true
	}
	return &reportTarget{dir: e.reportDir, file: report.MethodFileName(test.LongName)}, nil
}

// Run preprocesses the project with the model, instruments every test method
// and persists the modified classes. Method failures are recorded in the
// summary; a class that cannot be persisted aborts the run.
func (e *Engine) Run(ctx context.Context, project *domain.Project, flakeRate float64) (*report.Summary, error) {
	logger := e.logger
	start := e.opts.Clock()

	if err := model.ValidateFlakeRate(flakeRate); err != nil {
		return nil, err
	}

	summary := &report.Summary{
		RunID:     uuid.NewString(),
		Model:     e.model.Name(),
		FlakeRate: flakeRate,
		DryRun:    e.opts.DryRun,
		StartedAt: start,
		Classes:   len(project.Classes),
	}

	logger.Info("preprocessing project", "model", e.model.Name(), "tests", project.CountTests())
	if err := e.model.PreProcess(ctx, project, flakeRate); err != nil {
		return nil, fmt.Errorf("preprocess %s: %w", e.model.Name(), err)
	}

	var pending []*domain.TestClass
	for _, class := range project.Classes {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrRunCancelled, ctx.Err())
		}

		modified := false
		for _, test := range class.Methods {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrRunCancelled, ctx.Err())
			}
			outcome, guardErrors := e.Instrument(test, flakeRate)
			summary.Record(outcome, guardErrors)
			e.opts.Metrics.observeMethod(outcome.Status, outcome.Effective, outcome.Guards, guardErrors)
			if outcome.Status == domain.MethodStatusInstrumented {
				modified = true
			}
		}
		if modified {
			pending = append(pending, class)
		}
	}

	if err := e.persist(pending); err != nil {
		return nil, err
	}

	if err := e.model.PostProcess(); err != nil {
		logger.Warn("model post-processing failed", "model", e.model.Name(), "error", err)
	}

	summary.Duration = e.opts.Clock().Sub(start)
	e.opts.Metrics.observeRun(summary.Duration.Seconds())

	logger.Info("injection finished",
		"run", summary.RunID,
		"instrumented", summary.Instrumented,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"guards", summary.Guards,
		"duration", summary.Duration)
	return summary, nil
}

// persist writes each modified source file once. Classes declared in the
// same file share their pending edits.
func (e *Engine) persist(classes []*domain.TestClass) error {
	seen := make(map[string]struct{}, len(classes))
	for _, class := range classes {
		key := sourceKey(class)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if e.opts.DryRun {
			if err := e.writePatch(class.Class); err != nil {
				return err
			}
			continue
		}
		if err := class.Class.Write(e.opts.OutputDir); err != nil {
			return fmt.Errorf("persist %s: %w", class.Name, err)
		}
		e.logger.Debug("class written", "class", class.Name, "dir", e.opts.OutputDir)
	}
	return nil
}

func (e *Engine) writePatch(class bytecode.Class) error {
	patch, err := class.Patch()
	if err != nil {
		return fmt.Errorf("patch %s: %w", class.Name(), err)
	}
	if patch == "" {
		return nil
	}

	path := filepath.Join(e.opts.OutputDir, outerClassName(class.Name())+".patch")
	if err := os.MkdirAll(e.opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("patch %s: %w", class.Name(), err)
	}
	if err := os.WriteFile(path, []byte(patch), 0o644); err != nil {
		return fmt.Errorf("patch %s: %w", class.Name(), err)
	}
	e.logger.Debug("patch written", "class", class.Name(), "path", path)
	return nil
}

func sourceKey(class *domain.TestClass) string {
	for _, m := range class.Methods {
		if m.SourceFile != "" {
			return m.SourceFile
		}
	}
	return outerClassName(class.Name)
}

func outerClassName(name string) string {
	outer, _, _ := strings.Cut(name, "$")
	return outer
}
