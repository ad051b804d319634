package vocabulary

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/serval-uni-lu/flakime/pkg/bytecode"
	"github.com/serval-uni-lu/flakime/pkg/domain"
)

// ErrEmptyBody is returned when a test method has no source text.
var ErrEmptyBody = errors.New("vocabulary: empty method body")

// sourceCache holds the lines of each source file read so far.
type sourceCache struct {
	files map[string][]string
}

func newSourceCache() *sourceCache {
	return &sourceCache{files: make(map[string][]string)}
}

func (c *sourceCache) lines(path string) ([]string, error) {
	if lines, ok := c.files[path]; ok {
		return lines, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	c.files[path] = lines
	return lines, nil
}

// span is the source text of one block.
type span struct {
	start int
	text  string
}

// spans returns the text of every block of test ordered by start line.
func (c *sourceCache) spans(test *domain.TestMethod) ([]span, error) {
	if test.SourceFile == "" {
		return nil, fmt.Errorf("%s: no source file", test.LongName)
	}
	lines, err := c.lines(test.SourceFile)
	if err != nil {
		return nil, err
	}

	blocks := make([]bytecode.Block, len(test.Blocks))
	copy(blocks, test.Blocks)
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].StartLine < blocks[j].StartLine })

	out := make([]span, 0, len(blocks))
	for _, b := range blocks {
		text := blockText(lines, b)
		if text == "" {
			continue
		}
		out = append(out, span{start: b.StartLine, text: text})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", test.LongName, ErrEmptyBody)
	}
	return out, nil
}

func blockText(lines []string, b bytecode.Block) string {
	start, end := b.StartLine, b.EndLine
	if end < start {
		end = start
	}
	if start < 1 || start > len(lines) {
		return ""
	}
	if end > len(lines) {
		end = len(lines)
	}
	parts := make([]string, 0, end-start+1)
	for _, l := range lines[start-1 : end] {
		if t := strings.TrimSpace(l); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// bodyText concatenates every span.
func bodyText(spans []span) string {
	texts := make([]string, len(spans))
	for i, s := range spans {
		texts[i] = s.text
	}
	return strings.Join(texts, " ")
}

// prefixText concatenates the spans starting at or before line.
func prefixText(spans []span, line int) string {
	var texts []string
	for _, s := range spans {
		if s.start > line {
			break
		}
		texts = append(texts, s.text)
	}
	return strings.Join(texts, " ")
}
