package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/serval-uni-lu/flakime/pkg/domain"
)

// Summary formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrUnsupportedFormat is returned for a summary format other than JSON or YAML.
var ErrUnsupportedFormat = errors.New("report: unsupported summary format")

// Summary describes one injection run.
type Summary struct {
	RunID     string        `json:"runId" yaml:"runId"`
	Model     string        `json:"model" yaml:"model"`
	FlakeRate float64       `json:"flakeRate" yaml:"flakeRate"`
	DryRun    bool          `json:"dryRun" yaml:"dryRun"`
	StartedAt time.Time     `json:"startedAt" yaml:"startedAt"`
	Duration  time.Duration `json:"duration" yaml:"duration"`

	Classes      int `json:"classes" yaml:"classes"`
	Methods      int `json:"methods" yaml:"methods"`
	Instrumented int `json:"instrumented" yaml:"instrumented"`
	Skipped      int `json:"skipped" yaml:"skipped"`
	Failed       int `json:"failed" yaml:"failed"`
	Guards       int `json:"guards" yaml:"guards"`
	GuardErrors  int `json:"guardErrors" yaml:"guardErrors"`

	Outcomes []MethodOutcome `json:"outcomes" yaml:"outcomes"`
}

// MethodOutcome is the instrumentation result of one test method.
type MethodOutcome struct {
	Method      string              `json:"method" yaml:"method"`
	Status      domain.MethodStatus `json:"status" yaml:"status"`
	Probability float64             `json:"probability" yaml:"probability"`
	Effective   float64             `json:"effective" yaml:"effective"`
	Guards      int                 `json:"guards" yaml:"guards"`
	Error       string              `json:"error,omitempty" yaml:"error,omitempty"`
}

// Record adds outcome to the summary and updates the counters.
func (s *Summary) Record(outcome MethodOutcome, guardErrors int) {
	s.Outcomes = append(s.Outcomes, outcome)
	s.Methods++
	s.Guards += outcome.Guards
	s.GuardErrors += guardErrors
	switch outcome.Status {
	case domain.MethodStatusInstrumented:
		s.Instrumented++
	case domain.MethodStatusSkipped:
		s.Skipped++
	case domain.MethodStatusFailed:
		s.Failed++
	}
}

// FormatFromPath picks the summary format from the file extension.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode serializes the summary in format.
func (s *Summary) Encode(format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("json encode: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("yaml encode: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// WriteSummary writes s to path in the format given by its extension.
func WriteSummary(path string, s *Summary) error {
	data, err := s.Encode(FormatFromPath(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// ReadSummary reads a summary written by WriteSummary.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}

	var s Summary
	switch FormatFromPath(path) {
	case FormatYAML:
		err = yaml.Unmarshal(data, &s)
	default:
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("read summary %s: %w", path, err)
	}
	return &s, nil
}

// RenderSummary renders the run counters and the instrumented methods.
func RenderSummary(s *Summary) string {
	head := table.NewWriter()
	head.SetStyle(table.StyleLight)
	head.AppendRows([]table.Row{
		{"Run", s.RunID},
		{"Model", s.Model},
		{"Flake rate", s.FlakeRate},
		{"Classes", s.Classes},
		{"Methods", s.Methods},
		{"Instrumented", s.Instrumented},
		{"Skipped", s.Skipped},
		{"Failed", s.Failed},
		{"Guards", s.Guards},
		{"Duration", s.Duration.Round(time.Millisecond)},
	})
	if s.DryRun {
		head.AppendRow(table.Row{"Dry run", "patches only"})
	}

	methods := table.NewWriter()
	methods.SetStyle(table.StyleLight)
	methods.AppendHeader(table.Row{"Method", "Status", "Probability", "Effective", "Guards"})
	for _, o := range s.Outcomes {
		if o.Status == domain.MethodStatusSkipped {
			continue
		}
		methods.AppendRow(table.Row{o.Method, o.Status, FormatProbability(o.Probability), FormatProbability(o.Effective), o.Guards})
	}

	return head.Render() + "\n" + methods.Render()
}
