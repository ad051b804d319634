package discovery

import (
	"github.com/serval-uni-lu/flakime/pkg/filter"
)

// DefaultClassExtension is the extension of compiled class files.
const DefaultClassExtension = ".class"

// Options configures project discovery.
type Options struct {
	// AnnotationFilter selects methods by raw annotation text.
	AnnotationFilter *filter.NameFilter

	// ClassExtension is the extension of compiled class files.
	// Empty means DefaultClassExtension.
	ClassExtension string

	// ClassFilter selects classes by fully-qualified name.
	ClassFilter *filter.NameFilter

	// ExcludePatterns are doublestar globs, relative to the class directory,
	// of class files to ignore.
	ExcludePatterns []string

	// MethodFilter selects methods by simple name.
	MethodFilter *filter.NameFilter
}

// Option is a functional option for configuring discovery.
type Option func(*Options)

// WithClassFilter sets the class name filter.
func WithClassFilter(f *filter.NameFilter) Option {
	return func(o *Options) {
		o.ClassFilter = f
	}
}

// WithMethodFilter sets the method name filter.
func WithMethodFilter(f *filter.NameFilter) Option {
	return func(o *Options) {
		o.MethodFilter = f
	}
}

// WithAnnotationFilter sets the annotation filter.
func WithAnnotationFilter(f *filter.NameFilter) Option {
	return func(o *Options) {
		o.AnnotationFilter = f
	}
}

// WithClassExtension sets the compiled class file extension.
// Empty values are ignored.
func WithClassExtension(ext string) Option {
	return func(o *Options) {
		if ext != "" {
			o.ClassExtension = ext
		}
	}
}

// WithExcludePatterns sets the class file globs to ignore.
func WithExcludePatterns(patterns []string) Option {
	return func(o *Options) {
		o.ExcludePatterns = patterns
	}
}

func applyDefaults(opts *Options) {
	if opts.ClassExtension == "" {
		opts.ClassExtension = DefaultClassExtension
	}
}
