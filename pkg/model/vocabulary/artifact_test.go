package vocabulary

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serval-uni-lu/flakime/pkg/model"
)

func trainedArtifact(t *testing.T, kind string) *Artifact {
	t.Helper()
	ds, err := BundledDataset()
	require.NoError(t, err)
	a, err := Train(context.Background(), ds, nil, model.Params{Classifier: kind, Trees: 5, Threads: 2})
	require.NoError(t, err)
	return a
}

func TestArtifact_RoundTrip(t *testing.T) {
	for _, kind := range []string{KindRandomForest, KindLogistic} {
		t.Run(kind, func(t *testing.T) {
			a := trainedArtifact(t, kind)
			path := filepath.Join(t.TempDir(), "nested", "model.bin")
			require.NoError(t, a.Save(path))

			loaded, err := Load(path, DefaultMaxModelBytes)
			require.NoError(t, err)
			assert.Equal(t, kind, loaded.Classifier.Kind())
			assert.Equal(t, a.Tokenizer.WordIndex, loaded.Tokenizer.WordIndex)

			for _, text := range []string{
				"Thread.sleep(100); assertTrue(server.isRunning());",
				"assertEquals(\"cba\", StringUtils.reverse(\"abc\"));",
			} {
				want, err := a.Predict(text)
				require.NoError(t, err)
				got, err := loaded.Predict(text)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing artifact", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "none.model"), 0)
		assert.ErrorIs(t, err, ErrModelNotFound)
	})

	t.Run("too large", func(t *testing.T) {
		data, err := trainedArtifact(t, KindLogistic).Encode()
		require.NoError(t, err)

		_, err = Decode(data, 16)
		assert.ErrorIs(t, err, ErrModelTooLarge)
		assert.Contains(t, err.Error(), "max_model_size")
	})

	t.Run("corrupt header", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.model")
		require.NoError(t, os.WriteFile(path, []byte("definitely not a model"), 0o644))
		_, err := Load(path, 0)
		assert.ErrorIs(t, err, ErrCorruptModel)
	})

	t.Run("truncated payload", func(t *testing.T) {
		data, err := trainedArtifact(t, KindLogistic).Encode()
		require.NoError(t, err)
		_, err = Decode(data[:len(data)/2], 0)
		assert.ErrorIs(t, err, ErrCorruptModel)
	})
}

func TestArtifact_PredictUnfitted(t *testing.T) {
	var a *Artifact
	_, err := a.Predict("x")
	assert.ErrorIs(t, err, ErrNotFitted)
}
