package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".flakime"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for flakime settings.
const envPrefix = "FLAKIME"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// FlagBinding maps a command-line flag onto a configuration key.
type FlagBinding struct {
	Key  string
	Flag *pflag.Flag
}

// Bind returns the binding of the named flag of flags, or nil when the flag
// is not defined.
func Bind(flags *pflag.FlagSet, key, name string) *FlagBinding {
	f := flags.Lookup(name)
	if f == nil {
		return nil
	}
	return &FlagBinding{Key: key, Flag: f}
}

// LoadConfig loads configuration from file, env vars, and defaults, with
// changed flags taking precedence over all of them.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string, bindings ...*FlagBinding) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	for _, b := range bindings {
		if b == nil {
			continue
		}
		if err := viperCfg.BindPFlag(b.Key, b.Flag); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", b.Flag.Name, err)
		}
	}

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("project.class_dir", DefaultClassDir)
	viperCfg.SetDefault("project.source_dir", DefaultSourceDir)
	viperCfg.SetDefault("project.classpath", []string{})
	viperCfg.SetDefault("project.class_ext", DefaultClassExt)
	viperCfg.SetDefault("project.exclude", []string{})

	viperCfg.SetDefault("filters.classes", []string{})
	viperCfg.SetDefault("filters.methods", []string{})
	viperCfg.SetDefault("filters.annotations", DefaultAnnotations)

	viperCfg.SetDefault("model.name", DefaultModel)
	viperCfg.SetDefault("model.flake_rate", DefaultFlakeRate)
	viperCfg.SetDefault("model.vocabulary.trees", DefaultTrees)
	viperCfg.SetDefault("model.vocabulary.threads", DefaultThreads)
	viperCfg.SetDefault("model.vocabulary.force_training", false)
	viperCfg.SetDefault("model.vocabulary.model_path", DefaultModelPath)
	viperCfg.SetDefault("model.vocabulary.classifier", DefaultClassifier)
	viperCfg.SetDefault("model.vocabulary.dataset", "")
	viperCfg.SetDefault("model.vocabulary.max_model_size", DefaultMaxModelSize)

	viperCfg.SetDefault("output.dir", DefaultOutputDir)
	viperCfg.SetDefault("output.report_dir", "")
	viperCfg.SetDefault("output.disable_flag", DefaultDisableFlag)
	viperCfg.SetDefault("output.disable_report", false)
	viperCfg.SetDefault("output.dry_run", false)
	viperCfg.SetDefault("output.summary", "")
	viperCfg.SetDefault("output.metrics_file", "")

	viperCfg.SetDefault("log.level", DefaultLogLevel)
	viperCfg.SetDefault("log.format", DefaultLogFormat)
	viperCfg.SetDefault("log.no_color", false)
}
