package discovery

import (
	"sort"

	"github.com/serval-uni-lu/flakime/pkg/bytecode"
	"github.com/serval-uni-lu/flakime/pkg/filter"
)

// IsTest reports whether method is a test.
// Constructors never are. A configured name filter selects by method name;
// otherwise, or when the name does not match, the annotation filter is
// applied to each annotation. An empty name filter does not select anything
// on its own.
func IsTest(method bytecode.Method, nameFilter, annotationFilter *filter.NameFilter) bool {
	if method.IsConstructor() {
		return false
	}
	if nameFilter.HasRules() && nameFilter.Matches(method.Name()) {
		return true
	}
	for _, annotation := range method.Annotations() {
		if annotationFilter.Matches(annotation) {
			return true
		}
	}
	return false
}

// ExtractStatements returns the ordered, deduplicated start lines of blocks.
func ExtractStatements(blocks []bytecode.Block) []int {
	seen := make(map[int]struct{}, len(blocks))
	lines := make([]int, 0, len(blocks))
	for _, b := range blocks {
		if b.StartLine <= 0 {
			continue
		}
		if _, ok := seen[b.StartLine]; ok {
			continue
		}
		seen[b.StartLine] = struct{}{}
		lines = append(lines, b.StartLine)
	}
	sort.Ints(lines)
	return lines
}
