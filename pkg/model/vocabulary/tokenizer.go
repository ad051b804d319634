package vocabulary

import (
	"sort"
	"strings"
)

// DefaultFilters are the characters removed from texts before splitting.
const DefaultFilters = "!\"#$%&()*+,-./:;<=>?@[\\]^_`{|}~\t\n"

// Tokenizer maps words to 1-based indexes ordered by decreasing frequency
// and turns texts into word-count vectors.
type Tokenizer struct {
	// Filters lists the characters replaced by spaces before splitting.
	Filters string
	// WordIndex maps each known word to its feature index (starting at 1).
	WordIndex map[string]int
	// WordCounts is the number of occurrences of each word in fitted texts.
	WordCounts map[string]int
	// WordOrder lists the words by first appearance.
	WordOrder []string
	// DocumentCount is the number of fitted texts.
	DocumentCount int
}

// NewTokenizer creates an empty tokenizer using DefaultFilters.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{
		Filters:    DefaultFilters,
		WordIndex:  make(map[string]int),
		WordCounts: make(map[string]int),
	}
}

// Words lower-cases text, strips the filter characters and splits on whitespace.
func (t *Tokenizer) Words(text string) []string {
	text = strings.ToLower(text)
	text = strings.Map(func(r rune) rune {
		if strings.ContainsRune(t.Filters, r) {
			return ' '
		}
		return r
	}, text)
	return strings.Fields(text)
}

// Fit updates word counts with texts and rebuilds the word index.
// Ties in frequency are broken by first appearance.
func (t *Tokenizer) Fit(texts []string) {
	for _, text := range texts {
		t.DocumentCount++
		for _, w := range t.Words(text) {
			if _, ok := t.WordCounts[w]; !ok {
				t.WordOrder = append(t.WordOrder, w)
			}
			t.WordCounts[w]++
		}
	}

	words := make([]string, len(t.WordOrder))
	copy(words, t.WordOrder)
	sort.SliceStable(words, func(i, j int) bool {
		return t.WordCounts[words[i]] > t.WordCounts[words[j]]
	})

	t.WordIndex = make(map[string]int, len(words))
	for i, w := range words {
		t.WordIndex[w] = i + 1
	}
}

// Dimension returns the length of the vectors produced by Vectorize.
// Index 0 is reserved and always zero.
func (t *Tokenizer) Dimension() int {
	return len(t.WordIndex) + 1
}

// Vectorize returns the word counts of text. Unknown words are ignored.
func (t *Tokenizer) Vectorize(text string) []float64 {
	vec := make([]float64, t.Dimension())
	for _, w := range t.Words(text) {
		if idx, ok := t.WordIndex[w]; ok {
			vec[idx]++
		}
	}
	return vec
}

// Matrix vectorizes every text.
func (t *Tokenizer) Matrix(texts []string) [][]float64 {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = t.Vectorize(text)
	}
	return out
}
