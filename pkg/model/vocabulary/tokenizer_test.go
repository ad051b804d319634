package vocabulary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizer_Words(t *testing.T) {
	tok := NewTokenizer()
	got := tok.Words("Thread.sleep(100); assertTrue(server.isRunning());")
	assert.Equal(t, []string{"thread", "sleep", "100", "asserttrue", "server", "isrunning"}, got)
}

func TestTokenizer_Fit(t *testing.T) {
	tok := NewTokenizer()
	tok.Fit([]string{"b a", "a c", "a b"})

	assert.Equal(t, 1, tok.WordIndex["a"], "most frequent word comes first")
	assert.Equal(t, 2, tok.WordIndex["b"], "ties keep first appearance order")
	assert.Equal(t, 3, tok.WordIndex["c"])
	assert.Equal(t, 3, tok.DocumentCount)
	assert.Equal(t, 4, tok.Dimension())

	t.Run("refit updates counts", func(t *testing.T) {
		tok.Fit([]string{"c c c"})
		assert.Equal(t, 1, tok.WordIndex["c"])
		assert.Equal(t, 2, tok.WordIndex["a"])
	})
}

func TestTokenizer_Vectorize(t *testing.T) {
	tok := NewTokenizer()
	tok.Fit([]string{"sleep sleep network"})

	vec := tok.Vectorize("Sleep(1); sleep(2); network; unknown")
	assert.Len(t, vec, 3)
	assert.Zero(t, vec[0], "index 0 is reserved")
	assert.Equal(t, 2.0, vec[tok.WordIndex["sleep"]])
	assert.Equal(t, 1.0, vec[tok.WordIndex["network"]])

	m := tok.Matrix([]string{"sleep", ""})
	assert.Len(t, m, 2)
	assert.Equal(t, []float64{0, 0, 0}, m[1])
}
