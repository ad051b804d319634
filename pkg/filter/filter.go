// Package filter provides case-insensitive name filters used to select
// test classes, methods and annotations.
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrInvalidPattern is returned when a filter pattern does not compile.
var ErrInvalidPattern = errors.New("filter: invalid pattern")

// NameFilter is a set of compiled case-insensitive patterns.
// A filter without rules matches everything.
type NameFilter struct {
	rules map[string]*regexp.Regexp
}

// New compiles the given patterns into a NameFilter.
// Blank patterns are ignored.
func New(patterns ...string) (*NameFilter, error) {
	f := &NameFilter{rules: make(map[string]*regexp.Regexp, len(patterns))}
	for _, raw := range patterns {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + raw)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, raw, err)
		}
		f.rules[raw] = re
	}
	return f, nil
}

// MustNew is like New but panics on an invalid pattern.
func MustNew(patterns ...string) *NameFilter {
	f, err := New(patterns...)
	if err != nil {
		panic(err)
	}
	return f
}

// HasRules reports whether at least one pattern is configured.
func (f *NameFilter) HasRules() bool {
	return f != nil && len(f.rules) > 0
}

// Matches reports whether s contains a match for any pattern.
// It returns true when the filter has no rules.
func (f *NameFilter) Matches(s string) bool {
	if !f.HasRules() {
		return true
	}
	for _, re := range f.rules {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Patterns returns the raw patterns in sorted order.
func (f *NameFilter) Patterns() []string {
	if f == nil {
		return nil
	}
	out := make([]string, 0, len(f.rules))
	for raw := range f.rules {
		out = append(out, raw)
	}
	sort.Strings(out)
	return out
}

func (f *NameFilter) String() string {
	return "[" + strings.Join(f.Patterns(), ", ") + "]"
}
