package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/serval-uni-lu/flakime/pkg/model/vocabulary"
)

const defaultTestRatio = 0.2

// NewTrainCommand creates the train command.
func NewTrainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the vocabulary classifier",
		Long: `Fit the vocabulary classifier on the labeled dataset (the bundled one
unless --dataset is set), store it at --model-path and report its scores
on a held-out part of the dataset.`,
		Args: cobra.NoArgs,
		RunE: runTrain,
	}

	addVocabularyFlags(cmd)
	cmd.Flags().Float64("test-ratio", defaultTestRatio, "Share of the dataset held out for evaluation (0 = evaluate on the training set)")

	return cmd
}

func runTrain(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd, modelBindings)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	testRatio, err := cmd.Flags().GetFloat64("test-ratio")
	if err != nil {
		return err
	}
	if testRatio < 0 || testRatio >= 1 {
		return fmt.Errorf("--test-ratio must be in [0, 1), got %v", testRatio)
	}

	params, err := cfg.ModelParams(logger)
	if err != nil {
		return err
	}
	if params.ModelPath == "" {
		params.ModelPath = vocabulary.DefaultModelPath
	}

	ds, err := vocabulary.LoadDataset(params.DatasetPath)
	if err != nil {
		return err
	}

	train, test := ds, ds
	if testRatio > 0 {
		train, test = ds.Split(1 - testRatio)
	}
	logger.Info("training classifier",
		"classifier", params.Classifier,
		"samples", train.Len(),
		"held_out", test.Len(),
		"projects", len(ds.Projects()))

	start := time.Now()
	artifact, err := vocabulary.Train(ctx, train, nil, params)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	logger.Info("training finished", "duration", time.Since(start).Round(time.Millisecond))

	if err := artifact.Save(params.ModelPath); err != nil {
		return err
	}
	info, err := os.Stat(params.ModelPath)
	if err != nil {
		return err
	}

	ev, err := vocabulary.Evaluate(artifact, test)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Model saved to %s (%s)\n", params.ModelPath, humanize.IBytes(uint64(info.Size())))
	fmt.Fprintln(out, renderEvaluation(artifact.Classifier.Kind(), ev))
	return nil
}

func renderEvaluation(kind string, ev vocabulary.Evaluation) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle("Evaluation (" + kind + ")")
	tbl.AppendHeader(table.Row{"Samples", "Accuracy", "Precision", "Recall"})
	tbl.AppendRow(table.Row{
		ev.Samples,
		fmt.Sprintf("%.3f", ev.Accuracy),
		fmt.Sprintf("%.3f", ev.Precision),
		fmt.Sprintf("%.3f", ev.Recall),
	})
	return tbl.Render()
}
