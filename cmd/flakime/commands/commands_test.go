package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serval-uni-lu/flakime/pkg/model"
	"github.com/serval-uni-lu/flakime/pkg/report"
)

var (
	fixtureClasses = filepath.Join("..", "..", "..", "pkg", "instrument", "testdata", "classes")
	fixtureSources = filepath.Join("..", "..", "..", "pkg", "instrument", "testdata", "src")
)

// execute runs a fresh command tree with args and returns its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root := &cobra.Command{Use: "flakime", SilenceUsage: true, SilenceErrors: true}
	AddGlobalFlags(root)
	root.AddCommand(NewInjectCommand(), NewTrainCommand(), NewSimulateCommand(), NewReportCommand())

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args, "--log-level", "error", "--no-color"))

	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestInject_DryRunWritesPatchSummaryAndMetrics(t *testing.T) {
	out := t.TempDir()
	summaryPath := filepath.Join(out, "summary.json")
	metricsPath := filepath.Join(out, "flakime.prom")

	stdout, err := execute(t, "inject",
		"--class-dir", fixtureClasses,
		"--source-dir", fixtureSources,
		"-m", model.UniformName,
		"-r", "0.1",
		"-o", out,
		"--dry-run",
		"--summary", summaryPath,
		"--metrics-file", metricsPath,
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Instrumented")
	assert.Contains(t, stdout, "testLoop")

	assert.FileExists(t, filepath.Join(out, "com.example.CalcTest.patch"))
	assert.NoFileExists(t, filepath.Join(out, "com", "example", "CalcTest.java"))

	summary, err := report.ReadSummary(summaryPath)
	require.NoError(t, err)
	assert.Equal(t, model.UniformName, summary.Model)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 2, summary.Instrumented)
	assert.Equal(t, 7, summary.Guards)

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "flakime_guards_inserted_total 7")
}

func TestInject_InvalidFlakeRate(t *testing.T) {
	_, err := execute(t, "inject", "-r", "1.5", "--class-dir", fixtureClasses, "--source-dir", fixtureSources)
	assert.Error(t, err)
}

func TestInject_UnknownModel(t *testing.T) {
	_, err := execute(t, "inject", "-m", "gaussian", "--class-dir", fixtureClasses, "--source-dir", fixtureSources)
	assert.Error(t, err)
}

func TestSimulate_ReportsEveryGuardedMethod(t *testing.T) {
	stdout, err := execute(t, "simulate",
		"--class-dir", fixtureClasses,
		"--source-dir", fixtureSources,
		"-m", model.UniformName,
		"-r", "0.1",
		"--runs", "200",
		"--seed", "7",
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "200 runs per method")
	assert.Contains(t, stdout, "testAdd")
	assert.Contains(t, stdout, "testLoop")
	assert.Contains(t, stdout, "0.1000")
}

func TestSimulate_RejectsNonPositiveRuns(t *testing.T) {
	_, err := execute(t, "simulate", "--class-dir", fixtureClasses, "--source-dir", fixtureSources, "--runs", "0")
	assert.Error(t, err)
}

func TestReport_AggregatesRecords(t *testing.T) {
	dir := t.TempDir()
	name := report.MethodFileName("com.example.CalcTest.testAdd")
	body := report.FormatRecord(1700000000000, 10, 0.05) + "\n" + report.FormatRecord(1700000001000, 11, 0.05) + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))

	stdout, err := execute(t, "report", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "CalcTest")
	assert.Contains(t, stdout, "Failures")
}

func TestReport_RendersStoredSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.yaml")
	require.NoError(t, report.WriteSummary(path, &report.Summary{RunID: "run-42", Model: model.BernoulliName}))

	stdout, err := execute(t, "report", "--summary", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "run-42")
	assert.Contains(t, stdout, model.BernoulliName)
}

func TestTrain_SavesModelAndEvaluates(t *testing.T) {
	entries := []map[string]any{
		{"Body": "Thread.sleep(100); assertTrue(done);", "ClassName": "A", "MethodName": "a", "ProjectName": "p", "Label": 1},
		{"Body": "Thread.sleep(500); latch.await();", "ClassName": "A", "MethodName": "b", "ProjectName": "p", "Label": 1},
		{"Body": "assertEquals(2, add(1, 1));", "ClassName": "B", "MethodName": "c", "ProjectName": "q", "Label": 0},
		{"Body": "assertEquals(4, mul(2, 2));", "ClassName": "B", "MethodName": "d", "ProjectName": "q", "Label": 0},
	}
	data, err := json.Marshal(entries)
	require.NoError(t, err)

	dir := t.TempDir()
	dataset := filepath.Join(dir, "dataset.json")
	require.NoError(t, os.WriteFile(dataset, data, 0o644))
	modelPath := filepath.Join(dir, "vocabulary.model")

	stdout, err := execute(t, "train",
		"--dataset", dataset,
		"--model-path", modelPath,
		"--classifier", "logistic",
		"--test-ratio", "0",
	)
	require.NoError(t, err)
	assert.FileExists(t, modelPath)
	assert.Contains(t, stdout, "Model saved to")
	assert.Contains(t, stdout, "Evaluation (logistic)")
}

func TestTrain_RejectsBadTestRatio(t *testing.T) {
	_, err := execute(t, "train", "--test-ratio", "1")
	assert.Error(t, err)
}
