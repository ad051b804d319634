// Package discovery builds the test inventory of a compiled project.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/serval-uni-lu/flakime/pkg/bytecode"
	"github.com/serval-uni-lu/flakime/pkg/domain"
	"github.com/serval-uni-lu/flakime/pkg/filter"
)

// ErrDiscoveryCancelled is returned when discovery is cancelled via context.
var ErrDiscoveryCancelled = errors.New("discovery: cancelled")

// Discovery phases reported in Error.
const (
	PhaseWalk    = "walk"
	PhaseResolve = "resolve"
)

// Result contains the outcome of project discovery.
type Result struct {
	// Project is the immutable test inventory.
	Project *domain.Project

	// Errors contains non-fatal errors, such as classes that failed to resolve.
	Errors []Error

	// Stats provides discovery statistics.
	Stats Stats
}

// Error represents a non-fatal error that occurred during a discovery phase.
type Error struct {
	// Err is the underlying error.
	Err error

	// Class is the class name or path the error relates to (may be empty).
	Class string

	// Phase indicates which phase the error occurred in.
	// Values: "walk", "resolve"
	Phase string
}

// Error implements the error interface.
func (e Error) Error() string {
	if e.Class == "" {
		return fmt.Sprintf("[%s] %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Phase, e.Class, e.Err)
}

// Unwrap returns the underlying error.
func (e Error) Unwrap() error {
	return e.Err
}

// Stats provides statistics about discovery.
type Stats struct {
	// ClassFiles is the number of class files matching the extension and filters.
	ClassFiles int

	// ClassesDropped is the number of classes that failed to resolve.
	ClassesDropped int

	// TestClasses is the number of classes with at least one test method.
	TestClasses int

	// TestMethods is the total number of test methods.
	TestMethods int

	// Duration is the total discovery duration.
	Duration time.Duration
}

// Discover walks classDir, resolves every selected class through editor and
// keeps the classes declaring at least one test method. Progress and dropped
// classes are reported to logger.
// A missing classDir yields an empty project.
func Discover(ctx context.Context, logger *slog.Logger, editor bytecode.Editor, classDir, sourceDir string, opts ...Option) (*Result, error) {
	startTime := time.Now()

	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	applyDefaults(options)

	result := &Result{
		Project: &domain.Project{
			ClassDir:  classDir,
			SourceDir: sourceDir,
			Classes:   []*domain.TestClass{},
		},
	}

	names, errs := discoverClassNames(ctx, logger, classDir, options)
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscoveryCancelled, ctx.Err())
	}
	result.Errors = append(result.Errors, errs...)
	result.Stats.ClassFiles = len(names)

	for _, name := range names {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrDiscoveryCancelled, ctx.Err())
		}

		class, err := editor.Resolve(ctx, name)
		if err != nil {
			logger.Debug("class dropped", "class", name, "error", err)
			result.Errors = append(result.Errors, Error{Err: err, Class: name, Phase: PhaseResolve})
			result.Stats.ClassesDropped++
			continue
		}

		tc := newTestClass(class, options.MethodFilter, options.AnnotationFilter)
		if tc.NTestMethods() == 0 {
			continue
		}
		result.Project.Classes = append(result.Project.Classes, tc)
	}

	sort.Slice(result.Project.Classes, func(i, j int) bool {
		return result.Project.Classes[i].Name < result.Project.Classes[j].Name
	})

	result.Stats.TestClasses = len(result.Project.Classes)
	result.Stats.TestMethods = result.Project.CountTests()
	result.Stats.Duration = time.Since(startTime)

	logger.Info("test discovery finished",
		"classes", result.Stats.TestClasses,
		"tests", result.Stats.TestMethods,
		"dropped", result.Stats.ClassesDropped,
		"duration", result.Stats.Duration)

	return result, nil
}

// discoverClassNames lists the fully-qualified names of the class files under
// classDir that pass the exclude globs and the class filter.
func discoverClassNames(ctx context.Context, logger *slog.Logger, classDir string, opts *Options) ([]string, []Error) {
	var (
		names []string
		errs  []Error
	)

	if _, err := os.Stat(classDir); err != nil {
		logger.Debug("class directory unavailable", "dir", classDir, "error", err)
		return nil, nil
	}

	_ = filepath.WalkDir(classDir, func(path string, d fs.DirEntry, walkErr error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if walkErr != nil {
			errs = append(errs, Error{
				Err:   fmt.Errorf("access error at %s: %w", path, walkErr),
				Phase: PhaseWalk,
			})
			return nil
		}

		if d.IsDir() || !strings.HasSuffix(d.Name(), opts.ClassExtension) {
			return nil
		}

		relPath, err := filepath.Rel(classDir, path)
		if err != nil {
			errs = append(errs, Error{
				Err:   fmt.Errorf("compute relative path for %s: %w", path, err),
				Phase: PhaseWalk,
			})
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if matchesAnyPattern(relPath, opts.ExcludePatterns) {
			return nil
		}

		name := ClassName(relPath, opts.ClassExtension)
		if !opts.ClassFilter.Matches(name) {
			return nil
		}

		names = append(names, name)
		return nil
	})

	sort.Strings(names)
	return names, errs
}

// ClassName derives the fully-qualified class name from a slash-separated
// path relative to the class root.
func ClassName(relPath, ext string) string {
	return strings.ReplaceAll(strings.TrimSuffix(relPath, ext), "/", ".")
}

func matchesAnyPattern(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, relPath)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

func newTestClass(class bytecode.Class, methodFilter, annotationFilter *filter.NameFilter) *domain.TestClass {
	tc := &domain.TestClass{
		Class:   class,
		Name:    class.Name(),
		Methods: []*domain.TestMethod{},
	}

	for _, m := range class.Methods() {
		if !IsTest(m, methodFilter, annotationFilter) || !m.HasBody() {
			continue
		}
		blocks := m.Blocks()
		tc.Methods = append(tc.Methods, &domain.TestMethod{
			Method:     m,
			ClassName:  class.Name(),
			Name:       m.Name(),
			LongName:   m.LongName(),
			SourceFile: m.SourceFile(),
			Blocks:     blocks,
			Statements: ExtractStatements(blocks),
		})
	}
	return tc
}
