package vocabulary

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundledDataset(t *testing.T) {
	ds, err := BundledDataset()
	require.NoError(t, err)
	assert.Equal(t, 128, ds.Len())

	positives := 0
	for _, e := range ds.Entries {
		assert.NotEmpty(t, e.Body)
		positives += e.Label
	}
	assert.Equal(t, 64, positives)
	assert.NotEmpty(t, ds.Projects())
	assert.Len(t, ds.Labels(), ds.Len())
	assert.Len(t, ds.Bodies(), ds.Len())
}

func TestParseDataset_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not an array", `{"Body": "x"}`},
		{"missing field", `[{"Body": "x", "ClassName": "A", "MethodName": "m", "Label": 1}]`},
		{"label out of range", `[{"Body": "x", "ClassName": "A", "MethodName": "m", "ProjectName": "p", "Label": 2}]`},
		{"malformed json", `[{"Body": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDataset([]byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalidDataset)
		})
	}
}

func TestLoadDataset_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ds.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`[{"Body": "Thread.sleep(1);", "ClassName": "A", "MethodName": "m", "ProjectName": "p", "Label": 1}]`), 0o644))

	ds, err := LoadDataset(path)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, "p", ds.Entries[0].ProjectName)

	_, err = LoadDataset(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestDataset_Split(t *testing.T) {
	ds, err := BundledDataset()
	require.NoError(t, err)

	train, test := ds.Split(0.75)
	assert.Equal(t, 96, train.Len())
	assert.Equal(t, 32, test.Len())

	seen := make(map[string]int)
	for _, e := range append(train.Entries, test.Entries...) {
		seen[e.MethodName]++
	}
	assert.Len(t, seen, ds.Len(), "partitions cover every entry exactly once")

	t.Run("seeded split is reproducible", func(t *testing.T) {
		a, _ := ds.SplitWith(rand.New(rand.NewPCG(1, 2)), 0.5)
		b, _ := ds.SplitWith(rand.New(rand.NewPCG(1, 2)), 0.5)
		assert.Equal(t, a.Entries, b.Entries)
	})

	t.Run("ratio is clamped", func(t *testing.T) {
		all, none := ds.Split(2)
		assert.Equal(t, ds.Len(), all.Len())
		assert.Zero(t, none.Len())
	})
}
