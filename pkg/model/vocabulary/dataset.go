package vocabulary

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed data/vocabulary.json
var bundledDataset []byte

//go:embed data/dataset.schema.json
var datasetSchema []byte

// ErrInvalidDataset is returned when a dataset does not match its schema.
var ErrInvalidDataset = errors.New("vocabulary: invalid dataset")

// Entry is a labeled test method body.
type Entry struct {
	Body        string `json:"Body"`
	ClassName   string `json:"ClassName"`
	MethodName  string `json:"MethodName"`
	ProjectName string `json:"ProjectName"`
	Label       int    `json:"Label"`
}

// Dataset is a collection of labeled entries.
type Dataset struct {
	Entries []Entry
}

// BundledDataset returns the dataset shipped with the binary.
func BundledDataset() (*Dataset, error) {
	return ParseDataset(bundledDataset)
}

// LoadDataset reads the dataset at path, or the bundled one when path is empty.
func LoadDataset(path string) (*Dataset, error) {
	if path == "" {
		return BundledDataset()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return ParseDataset(data)
}

// ParseDataset validates data against the dataset schema and decodes it.
func ParseDataset(data []byte) (*Dataset, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(datasetSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidDataset, strings.Join(msgs, "; "))
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	return &Dataset{Entries: entries}, nil
}

// Len returns the number of entries.
func (d *Dataset) Len() int {
	return len(d.Entries)
}

// Bodies returns the entry bodies.
func (d *Dataset) Bodies() []string {
	out := make([]string, len(d.Entries))
	for i, e := range d.Entries {
		out[i] = e.Body
	}
	return out
}

// Labels returns the entry labels as floats.
func (d *Dataset) Labels() []float64 {
	out := make([]float64, len(d.Entries))
	for i, e := range d.Entries {
		out[i] = float64(e.Label)
	}
	return out
}

// Projects returns the distinct project names in order of appearance.
func (d *Dataset) Projects() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range d.Entries {
		if !seen[e.ProjectName] {
			seen[e.ProjectName] = true
			out = append(out, e.ProjectName)
		}
	}
	return out
}

// Split shuffles the entries and returns a train partition holding ratio
// of them and a test partition holding the rest. Labels are not stratified.
func (d *Dataset) Split(ratio float64) (train, test *Dataset) {
	return d.SplitWith(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), ratio)
}

// SplitWith is Split using rng for the shuffle.
func (d *Dataset) SplitWith(rng *rand.Rand, ratio float64) (train, test *Dataset) {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	shuffled := make([]Entry, len(d.Entries))
	copy(shuffled, d.Entries)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	cut := int(float64(len(shuffled)) * ratio)
	return &Dataset{Entries: shuffled[:cut]}, &Dataset{Entries: shuffled[cut:]}
}
