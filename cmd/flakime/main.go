// Package main provides the entry point for the flakime CLI tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/serval-uni-lu/flakime/cmd/flakime/commands"
	"github.com/serval-uni-lu/flakime/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "flakime",
		Short: "flakime - Flakiness injection for Java test suites",
		Long: `flakime injects reproducible, probabilistic failures into an existing
Java test suite to produce flaky tests for research.

Commands:
  inject    Instrument test methods with failure guards
  train     Train the vocabulary classifier
  simulate  Estimate failure rates without editing sources
  report    Summarize the failures recorded by instrumented tests`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	commands.AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(commands.NewInjectCommand())
	rootCmd.AddCommand(commands.NewTrainCommand())
	rootCmd.AddCommand(commands.NewSimulateCommand())
	rootCmd.AddCommand(commands.NewReportCommand())
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
