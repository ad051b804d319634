package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/serval-uni-lu/flakime/pkg/report"
)

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [dir]",
		Short: "Summarize the failures recorded by instrumented tests",
		Long: `Read the records appended by fired guards and print the failures of
each test method. Without an argument the configured report directory is
read. With --summary a stored run summary is printed instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReport,
	}

	cmd.Flags().String("output-dir", "", "Output directory of the injection run")
	cmd.Flags().String("report-dir", "", "Report directory of the injection run")
	cmd.Flags().String("summary", "", "Print the run summary stored in this file")

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, []binding{
		{"output.dir", "output-dir"},
		{"output.report_dir", "report-dir"},
	})
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	summaryPath, err := cmd.Flags().GetString("summary")
	if err != nil {
		return err
	}
	if summaryPath != "" {
		summary, err := report.ReadSummary(summaryPath)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, report.RenderSummary(summary))
		return nil
	}

	dir := cfg.Output.ReportDir
	if dir == "" {
		dir = cfg.Output.Dir
	}
	if len(args) == 1 {
		dir = args[0]
	}

	flakes, err := report.Aggregate(dir)
	if err != nil {
		return err
	}
	if len(flakes) == 0 {
		logger.Info("no failure recorded", "dir", dir)
	}
	for _, m := range flakes {
		if m.Malformed > 0 {
			logger.Warn("skipped malformed records", "method", m.Method, "path", m.Path, "lines", m.Malformed)
		}
	}
	fmt.Fprintln(out, report.RenderFlakes(flakes))
	return nil
}
