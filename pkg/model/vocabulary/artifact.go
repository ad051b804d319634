package vocabulary

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pierrec/lz4/v4"
)

// DefaultMaxModelBytes bounds the decoded size of a stored classifier.
const DefaultMaxModelBytes = 256 << 20

const (
	artifactMagic   = "FLKM"
	artifactVersion = 1

	encodingRaw = 0
	encodingLZ4 = 1

	headerSize = len(artifactMagic) + 2 + 8
)

var (
	// ErrModelNotFound is returned when no stored classifier exists.
	ErrModelNotFound = errors.New("vocabulary: trained model not found")
	// ErrModelTooLarge is returned when a stored classifier exceeds the size bound.
	ErrModelTooLarge = errors.New("vocabulary: trained model too large")
	// ErrCorruptModel is returned when a stored classifier cannot be decoded.
	ErrCorruptModel = errors.New("vocabulary: corrupt trained model")
)

// Artifact is a trained classifier together with the tokenizer it was fitted with.
type Artifact struct {
	Tokenizer  *Tokenizer
	Classifier Classifier
}

type envelope struct {
	Kind      string
	Tokenizer *Tokenizer
	Forest    *RandomForest
	Logistic  *Logistic
}

// Predict vectorizes text and returns the flakiness probability.
func (a *Artifact) Predict(text string) (float64, error) {
	if a == nil || a.Tokenizer == nil || a.Classifier == nil {
		return 0, ErrNotFitted
	}
	return a.Classifier.Predict(a.Tokenizer.Vectorize(text))
}

// Encode serializes the artifact as a gob stream compressed with LZ4.
func (a *Artifact) Encode() ([]byte, error) {
	env := envelope{Kind: a.Classifier.Kind(), Tokenizer: a.Tokenizer}
	switch c := a.Classifier.(type) {
	case *RandomForest:
		env.Forest = c
	case *Logistic:
		env.Logistic = c
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownClassifier, a.Classifier.Kind())
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(&env); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}

	out := make([]byte, headerSize, headerSize+lz4.CompressBlockBound(raw.Len()))
	copy(out, artifactMagic)
	out[len(artifactMagic)] = artifactVersion
	binary.LittleEndian.PutUint64(out[len(artifactMagic)+2:], uint64(raw.Len()))

	compressed := make([]byte, lz4.CompressBlockBound(raw.Len()))
	written, err := lz4.CompressBlock(raw.Bytes(), compressed, nil)
	if err != nil || written == 0 {
		out[len(artifactMagic)+1] = encodingRaw
		return append(out, raw.Bytes()...), nil
	}
	out[len(artifactMagic)+1] = encodingLZ4
	return append(out, compressed[:written]...), nil
}

// Save writes the encoded artifact to path, creating parent directories.
func (a *Artifact) Save(path string) error {
	data, err := a.Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// Decode parses an encoded artifact whose decoded size must not exceed maxBytes.
func Decode(data []byte, maxBytes int64) (*Artifact, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxModelBytes
	}
	if len(data) < headerSize || string(data[:len(artifactMagic)]) != artifactMagic {
		return nil, fmt.Errorf("%w: bad header; retrain with --force-training", ErrCorruptModel)
	}
	if v := data[len(artifactMagic)]; v != artifactVersion {
		return nil, fmt.Errorf("%w: unsupported version %d; retrain with --force-training", ErrCorruptModel, v)
	}

	size := binary.LittleEndian.Uint64(data[len(artifactMagic)+2:])
	if size > uint64(maxBytes) {
		return nil, fmt.Errorf("%w: %s exceeds the %s limit; retrain with fewer trees or raise model.vocabulary.max_model_size",
			ErrModelTooLarge, humanize.IBytes(size), humanize.IBytes(uint64(maxBytes)))
	}

	payload := data[headerSize:]
	raw := payload
	if data[len(artifactMagic)+1] == encodingLZ4 {
		raw = make([]byte, size)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil || uint64(n) != size {
			return nil, fmt.Errorf("%w: decompress: %v; retrain with --force-training", ErrCorruptModel, err)
		}
	}

	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v; retrain with --force-training", ErrCorruptModel, err)
	}

	a := &Artifact{Tokenizer: env.Tokenizer}
	switch {
	case env.Kind == KindRandomForest && env.Forest != nil:
		a.Classifier = env.Forest
	case env.Kind == KindLogistic && env.Logistic != nil:
		a.Classifier = env.Logistic
	default:
		return nil, fmt.Errorf("%w: classifier %q missing", ErrCorruptModel, env.Kind)
	}
	if a.Tokenizer == nil {
		return nil, fmt.Errorf("%w: tokenizer missing", ErrCorruptModel)
	}
	return a, nil
}

// Load reads the artifact stored at path.
func Load(path string, maxBytes int64) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w at %s; run with --force-training first", ErrModelNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return Decode(data, maxBytes)
}
