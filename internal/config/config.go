// Package config loads and validates the flakime configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/serval-uni-lu/flakime/pkg/filter"
	"github.com/serval-uni-lu/flakime/pkg/logging"
	"github.com/serval-uni-lu/flakime/pkg/model"
	_ "github.com/serval-uni-lu/flakime/pkg/model/all"
	"github.com/serval-uni-lu/flakime/pkg/model/vocabulary"
)

// Config is the top-level configuration struct for flakime.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Project ProjectConfig `mapstructure:"project"`
	Filters FiltersConfig `mapstructure:"filters"`
	Model   ModelConfig   `mapstructure:"model"`
	Output  OutputConfig  `mapstructure:"output"`
	Log     LogConfig     `mapstructure:"log"`
}

// ProjectConfig locates the compiled classes and their sources.
type ProjectConfig struct {
	ClassDir  string   `mapstructure:"class_dir"`
	SourceDir string   `mapstructure:"source_dir"`
	Classpath []string `mapstructure:"classpath"`
	ClassExt  string   `mapstructure:"class_ext"`
	Exclude   []string `mapstructure:"exclude"`
}

// FiltersConfig holds the class, method and annotation name patterns.
type FiltersConfig struct {
	Classes     []string `mapstructure:"classes"`
	Methods     []string `mapstructure:"methods"`
	Annotations []string `mapstructure:"annotations"`
}

// ModelConfig selects the probability model.
type ModelConfig struct {
	Name       string           `mapstructure:"name"`
	FlakeRate  float64          `mapstructure:"flake_rate"`
	Vocabulary VocabularyConfig `mapstructure:"vocabulary"`
}

// VocabularyConfig holds the trained-classifier settings.
type VocabularyConfig struct {
	Trees         int    `mapstructure:"trees"`
	Threads       int    `mapstructure:"threads"`
	ForceTraining bool   `mapstructure:"force_training"`
	ModelPath     string `mapstructure:"model_path"`
	Classifier    string `mapstructure:"classifier"`
	Dataset       string `mapstructure:"dataset"`
	MaxModelSize  string `mapstructure:"max_model_size"`
}

// OutputConfig controls where and what the injection run writes.
type OutputConfig struct {
	Dir           string `mapstructure:"dir"`
	ReportDir     string `mapstructure:"report_dir"`
	DisableFlag   string `mapstructure:"disable_flag"`
	DisableReport bool   `mapstructure:"disable_report"`
	DryRun        bool   `mapstructure:"dry_run"`
	Summary       string `mapstructure:"summary"`
	MetricsFile   string `mapstructure:"metrics_file"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// Sentinel errors for configuration validation.
var (
	// ErrUnknownModel indicates model.name is not a registered model.
	ErrUnknownModel = errors.New("model.name is not a known model")
	// ErrInvalidFlakeRate indicates model.flake_rate lies outside [0, 1].
	ErrInvalidFlakeRate = errors.New("model.flake_rate must be between 0 and 1")
	// ErrInvalidTrees indicates the tree count is negative.
	ErrInvalidTrees = errors.New("model.vocabulary.trees must be non-negative")
	// ErrInvalidThreads indicates the thread count is negative.
	ErrInvalidThreads = errors.New("model.vocabulary.threads must be non-negative")
	// ErrInvalidClassifier indicates an unsupported classifier kind.
	ErrInvalidClassifier = errors.New("model.vocabulary.classifier must be random-forest or logistic")
	// ErrInvalidMaxModelSize indicates the size cannot be parsed.
	ErrInvalidMaxModelSize = errors.New("model.vocabulary.max_model_size must be a size such as 256MiB")
	// ErrInvalidFilter indicates a filter pattern does not compile.
	ErrInvalidFilter = errors.New("filters contain an invalid pattern")
	// ErrEmptyDisableFlag indicates the disable flag name is blank.
	ErrEmptyDisableFlag = errors.New("output.disable_flag must not be empty")
	// ErrInvalidLog indicates an unknown log level or format.
	ErrInvalidLog = errors.New("log.level or log.format is invalid")
	// ErrMissingClassDir indicates project.class_dir is empty.
	ErrMissingClassDir = errors.New("project.class_dir is required")
	// ErrMissingSourceDir indicates project.source_dir is empty.
	ErrMissingSourceDir = errors.New("project.source_dir is required")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	modelErr := c.validateModel()
	if modelErr != nil {
		return modelErr
	}

	if _, _, _, err := c.NameFilters(); err != nil {
		return err
	}

	if strings.TrimSpace(c.Output.DisableFlag) == "" {
		return ErrEmptyDisableFlag
	}

	return c.validateLog()
}

// ValidateProject checks the settings needed to discover a project.
func (c *Config) ValidateProject() error {
	if c.Project.ClassDir == "" {
		return ErrMissingClassDir
	}
	if c.Project.SourceDir == "" {
		return ErrMissingSourceDir
	}
	return nil
}

func (c *Config) validateModel() error {
	if !model.DefaultRegistry().Has(c.Model.Name) {
		return fmt.Errorf("%w: %q (known: %s)", ErrUnknownModel, c.Model.Name, strings.Join(model.Names(), ", "))
	}

	if model.ValidateFlakeRate(c.Model.FlakeRate) != nil {
		return ErrInvalidFlakeRate
	}

	v := c.Model.Vocabulary
	if v.Trees < 0 {
		return ErrInvalidTrees
	}

	if v.Threads < 0 {
		return ErrInvalidThreads
	}

	switch v.Classifier {
	case "", vocabulary.KindRandomForest, vocabulary.KindLogistic:
	default:
		return ErrInvalidClassifier
	}

	if _, err := c.MaxModelBytes(); err != nil {
		return err
	}

	return nil
}

func (c *Config) validateLog() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLog, err)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", logging.FormatText, logging.FormatJSON:
		return nil
	default:
		return fmt.Errorf("%w: format %q", ErrInvalidLog, c.Log.Format)
	}
}

// MaxModelBytes parses model.vocabulary.max_model_size.
// Empty selects the vocabulary default.
func (c *Config) MaxModelBytes() (int64, error) {
	raw := strings.TrimSpace(c.Model.Vocabulary.MaxModelSize)
	if raw == "" {
		return vocabulary.DefaultMaxModelBytes, nil
	}
	n, err := humanize.ParseBytes(raw)
	if err != nil || n == 0 || n > 1<<62 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMaxModelSize, raw)
	}
	return int64(n), nil
}

// NameFilters compiles the class, method and annotation filters.
func (c *Config) NameFilters() (classes, methods, annotations *filter.NameFilter, err error) {
	classes, err = filter.New(c.Filters.Classes...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: classes: %w", ErrInvalidFilter, err)
	}
	methods, err = filter.New(c.Filters.Methods...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: methods: %w", ErrInvalidFilter, err)
	}
	annotations, err = filter.New(c.Filters.Annotations...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: annotations: %w", ErrInvalidFilter, err)
	}
	return classes, methods, annotations, nil
}

// ModelParams returns the hyperparameters handed to the model factory.
func (c *Config) ModelParams(logger *slog.Logger) (model.Params, error) {
	maxBytes, err := c.MaxModelBytes()
	if err != nil {
		return model.Params{}, err
	}
	v := c.Model.Vocabulary
	return model.Params{
		Trees:         v.Trees,
		Threads:       v.Threads,
		ForceTraining: v.ForceTraining,
		ModelPath:     v.ModelPath,
		Classifier:    v.Classifier,
		DatasetPath:   v.Dataset,
		MaxModelBytes: maxBytes,
		Logger:        logger,
	}, nil
}

// Logging returns the logger options.
func (c *Config) Logging() logging.Options {
	return logging.Options{Level: c.Log.Level, Format: c.Log.Format, NoColor: c.Log.NoColor}
}
