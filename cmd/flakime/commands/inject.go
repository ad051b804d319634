package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/serval-uni-lu/flakime/internal/config"
	"github.com/serval-uni-lu/flakime/pkg/instrument"
	"github.com/serval-uni-lu/flakime/pkg/report"
)

var outputBindings = []binding{
	{"output.dir", "output-dir"},
	{"output.report_dir", "report-dir"},
	{"output.disable_flag", "disable-flag"},
	{"output.disable_report", "disable-report"},
	{"output.dry_run", "dry-run"},
	{"output.summary", "summary"},
	{"output.metrics_file", "metrics-file"},
}

// NewInjectCommand creates the inject command.
func NewInjectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inject",
		Short: "Instrument test methods with failure guards",
		Long: `Discover the test methods of a compiled project, compute the failure
threshold of every statement with the selected model and write the
instrumented test sources (or patches with --dry-run).`,
		Args: cobra.NoArgs,
		RunE: runInject,
	}

	addProjectFlags(cmd)
	addModelFlags(cmd)

	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir, "Directory receiving instrumented sources or patches")
	cmd.Flags().String("report-dir", "", "Directory where fired guards append records (default: output dir)")
	cmd.Flags().String("disable-flag", config.DefaultDisableFlag, "Environment variable that disables every guard")
	cmd.Flags().Bool("disable-report", false, "Do not record fired guards")
	cmd.Flags().Bool("dry-run", false, "Write patches instead of sources")
	cmd.Flags().String("summary", "", "Write the run summary to this file (.json or .yaml)")
	cmd.Flags().String("metrics-file", "", "Write run metrics in Prometheus text format to this file")

	return cmd
}

func runInject(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd, projectBindings, modelBindings, outputBindings)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	m, err := newModel(cfg, logger)
	if err != nil {
		return err
	}

	result, closeEditor, err := discoverProject(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeEditor()

	metrics := instrument.NewMetrics()
	engine := instrument.New(m, logger,
		instrument.WithOutputDir(cfg.Output.Dir),
		instrument.WithReportDir(cfg.Output.ReportDir),
		instrument.WithDisableFlag(cfg.Output.DisableFlag),
		instrument.WithReport(!cfg.Output.DisableReport),
		instrument.WithDryRun(cfg.Output.DryRun),
		instrument.WithMetrics(metrics),
	)

	summary, err := engine.Run(ctx, result.Project, cfg.Model.FlakeRate)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.RenderSummary(summary))

	if cfg.Output.Summary != "" {
		if err := report.WriteSummary(cfg.Output.Summary, summary); err != nil {
			return err
		}
		logger.Info("summary written", "path", cfg.Output.Summary)
	}

	if cfg.Output.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			return err
		}
		logger.Info("metrics written", "path", cfg.Output.MetricsFile)
	}

	return nil
}
