package config

import (
	"github.com/serval-uni-lu/flakime/pkg/instrument"
	"github.com/serval-uni-lu/flakime/pkg/model"
	"github.com/serval-uni-lu/flakime/pkg/model/vocabulary"
)

// Default configuration values.
const (
	DefaultClassDir  = "target/test-classes"
	DefaultSourceDir = "src/test/java"
	DefaultClassExt  = ".class"

	DefaultModel     = model.BernoulliName
	DefaultFlakeRate = 0.05

	DefaultTrees        = vocabulary.DefaultTrees
	DefaultThreads      = 0
	DefaultModelPath    = vocabulary.DefaultModelPath
	DefaultClassifier   = vocabulary.KindRandomForest
	DefaultMaxModelSize = "256MiB"

	DefaultOutputDir   = "target/flakime"
	DefaultDisableFlag = instrument.DefaultDisableFlag

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// DefaultAnnotations selects JUnit 4 and JUnit 5 test methods.
var DefaultAnnotations = []string{"Test"}
