package vocabulary

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Random forest defaults.
const (
	DefaultTrees           = 100
	DefaultMaxDepth        = 24
	DefaultMinSamplesSplit = 2
)

// RandomForest is a bagged ensemble of regression trees fitted on 0/1
// labels. Its prediction is the mean leaf value over all trees.
type RandomForest struct {
	NTrees          int
	Threads         int
	MaxDepth        int
	MinSamplesSplit int
	Seed            uint64
	Trees           []Tree
}

// Tree is a regression tree stored as a flat node slice rooted at index 0.
type Tree struct {
	Nodes []TreeNode
}

// TreeNode is either a split on Feature <= Threshold or a leaf holding Value.
type TreeNode struct {
	Leaf      bool
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
}

// NewRandomForest creates an untrained forest.
func NewRandomForest(trees, threads int) *RandomForest {
	if trees <= 0 {
		trees = DefaultTrees
	}
	if threads <= 0 {
		threads = 1
	}
	return &RandomForest{
		NTrees:          trees,
		Threads:         threads,
		MaxDepth:        DefaultMaxDepth,
		MinSamplesSplit: DefaultMinSamplesSplit,
		Seed:            rand.Uint64(),
	}
}

func (f *RandomForest) Kind() string { return KindRandomForest }

// Fit grows NTrees trees on bootstrap samples, at most Threads at a time.
func (f *RandomForest) Fit(ctx context.Context, X [][]float64, y []float64) error {
	if err := checkTrainingSet(X, y); err != nil {
		return err
	}

	samples := sparseRows(X)
	trees := make([]Tree, f.NTrees)
	sem := semaphore.NewWeighted(int64(f.Threads))
	g, gctx := errgroup.WithContext(ctx)

	for i := range trees {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			rng := rand.New(rand.NewPCG(f.Seed, uint64(i)))
			b := &treeBuilder{
				samples:  samples,
				y:        y,
				rng:      rng,
				maxDepth: f.MaxDepth,
				minSplit: f.MinSamplesSplit,
			}
			trees[i] = b.build(bootstrap(rng, len(y)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("train random forest: %w", err)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("train random forest: %w", ctx.Err())
	}

	f.Trees = trees
	return nil
}

// Predict returns the mean prediction of the trees.
func (f *RandomForest) Predict(x []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, ErrNotFitted
	}
	sum := 0.0
	for i := range f.Trees {
		sum += f.Trees[i].predict(x)
	}
	return clamp01(sum / float64(len(f.Trees))), nil
}

func (t *Tree) predict(x []float64) float64 {
	idx := 0
	for {
		n := &t.Nodes[idx]
		if n.Leaf {
			return n.Value
		}
		v := 0.0
		if n.Feature < len(x) {
			v = x[n.Feature]
		}
		if v <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}

// feature is a non-zero feature of a sparse row.
type feature struct {
	index int
	value float64
}

func sparseRows(X [][]float64) [][]feature {
	rows := make([][]feature, len(X))
	for i, row := range X {
		for j, v := range row {
			if v != 0 {
				rows[i] = append(rows[i], feature{index: j, value: v})
			}
		}
	}
	return rows
}

func valueAt(row []feature, index int) float64 {
	k := sort.Search(len(row), func(i int) bool { return row[i].index >= index })
	if k < len(row) && row[k].index == index {
		return row[k].value
	}
	return 0
}

func bootstrap(rng *rand.Rand, n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.IntN(n)
	}
	return idx
}

type treeBuilder struct {
	samples  [][]feature
	y        []float64
	rng      *rand.Rand
	maxDepth int
	minSplit int
	nodes    []TreeNode
}

type split struct {
	feature   int
	threshold float64
	sse       float64
}

func (b *treeBuilder) build(indices []int) Tree {
	b.nodes = nil
	b.grow(indices, 0)
	return Tree{Nodes: b.nodes}
}

func (b *treeBuilder) grow(indices []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{})

	mean, sse := b.stats(indices)
	if depth >= b.maxDepth || len(indices) < b.minSplit || sse == 0 {
		b.nodes[id] = TreeNode{Leaf: true, Value: mean}
		return id
	}

	best, ok := b.bestSplit(indices, sse)
	if !ok {
		b.nodes[id] = TreeNode{Leaf: true, Value: mean}
		return id
	}

	var left, right []int
	for _, i := range indices {
		if valueAt(b.samples[i], best.feature) <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id] = TreeNode{Feature: best.feature, Threshold: best.threshold, Left: l, Right: r}
	return id
}

func (b *treeBuilder) stats(indices []int) (mean, sse float64) {
	sum, sumSq := 0.0, 0.0
	for _, i := range indices {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	n := float64(len(indices))
	mean = sum / n
	sse = sumSq - sum*sum/n
	if sse < 1e-12 {
		sse = 0
	}
	return mean, sse
}

// bestSplit evaluates sqrt(m) random candidates among the m features that
// are non-zero in the node, drawing more while none improves the error.
func (b *treeBuilder) bestSplit(indices []int, parentSSE float64) (split, bool) {
	seen := make(map[int]struct{})
	var candidates []int
	for _, i := range indices {
		for _, f := range b.samples[i] {
			if _, ok := seen[f.index]; !ok {
				seen[f.index] = struct{}{}
				candidates = append(candidates, f.index)
			}
		}
	}
	if len(candidates) == 0 {
		return split{}, false
	}
	sort.Ints(candidates)
	b.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	mtry := int(math.Max(1, math.Round(math.Sqrt(float64(len(candidates))))))

	best := split{sse: parentSSE}
	found := false
	values := make([]valueLabel, len(indices))
	for tried, feat := range candidates {
		if tried >= mtry && found {
			break
		}
		for k, i := range indices {
			values[k] = valueLabel{value: valueAt(b.samples[i], feat), label: b.y[i]}
		}
		if s, ok := bestThreshold(values); ok && s.sse < best.sse-1e-12 {
			s.feature = feat
			best = s
			found = true
		}
	}
	return best, found
}

type valueLabel struct {
	value float64
	label float64
}

// bestThreshold sweeps the sorted values and returns the midpoint threshold
// minimizing the summed squared error of both sides.
func bestThreshold(values []valueLabel) (split, bool) {
	sort.Slice(values, func(i, j int) bool { return values[i].value < values[j].value })

	totalSum, totalSq := 0.0, 0.0
	for _, v := range values {
		totalSum += v.label
		totalSq += v.label * v.label
	}

	n := len(values)
	best := split{sse: math.Inf(1)}
	found := false
	leftSum, leftSq := 0.0, 0.0
	for k := 0; k < n-1; k++ {
		leftSum += values[k].label
		leftSq += values[k].label * values[k].label
		if values[k].value == values[k+1].value {
			continue
		}
		nl, nr := float64(k+1), float64(n-k-1)
		rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
		sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
		if sse < best.sse {
			best = split{threshold: (values[k].value + values[k+1].value) / 2, sse: sse}
			found = true
		}
	}
	return best, found
}
