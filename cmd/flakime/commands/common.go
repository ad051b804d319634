// Package commands implements the flakime subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/serval-uni-lu/flakime/internal/config"
	"github.com/serval-uni-lu/flakime/pkg/discovery"
	"github.com/serval-uni-lu/flakime/pkg/javasrc"
	"github.com/serval-uni-lu/flakime/pkg/logging"
	"github.com/serval-uni-lu/flakime/pkg/model"
)

const flagConfig = "config"

// binding maps a flag name onto a configuration key.
type binding struct {
	key  string
	flag string
}

var globalBindings = []binding{
	{"log.level", "log-level"},
	{"log.format", "log-format"},
	{"log.no_color", "no-color"},
}

var projectBindings = []binding{
	{"project.class_dir", "class-dir"},
	{"project.source_dir", "source-dir"},
	{"project.classpath", "classpath"},
	{"project.class_ext", "class-ext"},
	{"project.exclude", "exclude"},
	{"filters.classes", "classes"},
	{"filters.methods", "methods"},
	{"filters.annotations", "annotations"},
}

var modelBindings = []binding{
	{"model.name", "model"},
	{"model.flake_rate", "flake-rate"},
	{"model.vocabulary.trees", "trees"},
	{"model.vocabulary.threads", "threads"},
	{"model.vocabulary.force_training", "force-training"},
	{"model.vocabulary.model_path", "model-path"},
	{"model.vocabulary.classifier", "classifier"},
	{"model.vocabulary.dataset", "dataset"},
	{"model.vocabulary.max_model_size", "max-model-size"},
}

// AddGlobalFlags registers the flags shared by every subcommand.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().String(flagConfig, "", "Config file (default: .flakime.yaml in CWD or $HOME)")
	root.PersistentFlags().String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", config.DefaultLogFormat, "Log format: text, json")
	root.PersistentFlags().Bool("no-color", false, "Disable colored log output")
}

func addProjectFlags(cmd *cobra.Command) {
	cmd.Flags().String("class-dir", config.DefaultClassDir, "Compiled test class directory")
	cmd.Flags().String("source-dir", config.DefaultSourceDir, "Test source directory")
	cmd.Flags().StringSlice("classpath", nil, "Additional classpath entries")
	cmd.Flags().String("class-ext", config.DefaultClassExt, "Compiled class file extension")
	cmd.Flags().StringSlice("exclude", nil, "Class file globs to skip (example: **/generated/**)")
	cmd.Flags().StringSlice("classes", nil, "Class name patterns")
	cmd.Flags().StringSlice("methods", nil, "Method name patterns")
	cmd.Flags().StringSlice("annotations", config.DefaultAnnotations, "Annotation patterns")
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("model", "m", config.DefaultModel, "Probability model: uniformDistribution, bernoulli, vocabulary")
	cmd.Flags().Float64P("flake-rate", "r", config.DefaultFlakeRate, "Failure probability of the flakiest test, in [0, 1]")
	addVocabularyFlags(cmd)
}

func addVocabularyFlags(cmd *cobra.Command) {
	cmd.Flags().Int("trees", config.DefaultTrees, "Number of random forest trees")
	cmd.Flags().Int("threads", config.DefaultThreads, "Training workers (0 = use CPU count)")
	cmd.Flags().Bool("force-training", false, "Train a new classifier instead of loading one")
	cmd.Flags().String("model-path", config.DefaultModelPath, "Trained classifier location")
	cmd.Flags().String("classifier", config.DefaultClassifier, "Classifier: random-forest, logistic")
	cmd.Flags().String("dataset", "", "Training dataset JSON (default: bundled dataset)")
	cmd.Flags().String("max-model-size", config.DefaultMaxModelSize, "Largest classifier file accepted (e.g., '256MiB')")
}

// loadConfig loads the configuration with the changed flags of cmd on top.
func loadConfig(cmd *cobra.Command, groups ...[]binding) (*config.Config, error) {
	configPath, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, err
	}

	var bindings []*config.FlagBinding
	for _, group := range append([][]binding{globalBindings}, groups...) {
		for _, b := range group {
			bindings = append(bindings, config.Bind(cmd.Flags(), b.key, b.flag))
		}
	}
	return config.LoadConfig(configPath, bindings...)
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	return logging.New(cmd.ErrOrStderr(), cfg.Logging())
}

// discoverProject builds the test inventory described by cfg.
func discoverProject(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*discovery.Result, func(), error) {
	if err := cfg.ValidateProject(); err != nil {
		return nil, nil, err
	}
	classes, methods, annotations, err := cfg.NameFilters()
	if err != nil {
		return nil, nil, err
	}

	editor, err := javasrc.NewEditor(cfg.Project.SourceDir, javasrc.WithClasspath(cfg.Project.Classpath...))
	if err != nil {
		return nil, nil, fmt.Errorf("classpath: %w", err)
	}

	result, err := discovery.Discover(ctx, logger, editor, cfg.Project.ClassDir, cfg.Project.SourceDir,
		discovery.WithClassFilter(classes),
		discovery.WithMethodFilter(methods),
		discovery.WithAnnotationFilter(annotations),
		discovery.WithClassExtension(cfg.Project.ClassExt),
		discovery.WithExcludePatterns(cfg.Project.Exclude),
	)
	if err != nil {
		editor.Close()
		return nil, nil, err
	}
	return result, editor.Close, nil
}

func newModel(cfg *config.Config, logger *slog.Logger) (model.Model, error) {
	params, err := cfg.ModelParams(logger)
	if err != nil {
		return nil, err
	}
	m, err := model.New(cfg.Model.Name, params)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", cfg.Model.Name, err)
	}
	logger.Info("model loaded", "model", m.Name(), "flake_rate", cfg.Model.FlakeRate)
	return m, nil
}
