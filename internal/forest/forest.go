package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Config controls ensemble size and per-tree growth.
type Config struct {
	// Trees is the number of bagged estimators.
	Trees int
	// MaxDepth limits tree depth; 0 means unlimited.
	MaxDepth int
	// MinLeaf is the minimum number of samples per leaf.
	MinLeaf int
	// Seed makes training reproducible. Each tree derives its own source
	// from Seed, so the same labeled set always grows the same forest.
	Seed int64
}

// Forest is a bagged ensemble of binary decision trees. A fitted forest is
// immutable; Proba is safe for concurrent readers.
type Forest struct {
	trees     []*node
	nFeatures int
}

type node struct {
	leaf      bool
	prob      float64 // positive fraction at a leaf
	feature   int
	threshold float64
	left      *node
	right     *node
}

// Fit grows a forest over the full labeled set. Labels are 0/1. Fit fails
// on an empty set, mismatched dimensions, or a single-class label set.
func Fit(X [][]float64, y []int, cfg Config) (*Forest, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("forest: %d samples, %d labels", len(X), len(y))
	}
	d := len(X[0])
	for i, x := range X {
		if len(x) != d {
			return nil, fmt.Errorf("forest: sample %d has %d features, want %d", i, len(x), d)
		}
	}
	pos := 0
	for _, v := range y {
		if v != 0 {
			pos++
		}
	}
	if pos == 0 || pos == len(y) {
		return nil, errors.New("forest: single-class label set")
	}
	if cfg.Trees < 1 {
		cfg.Trees = 1
	}
	if cfg.MinLeaf < 1 {
		cfg.MinLeaf = 1
	}

	f := &Forest{trees: make([]*node, 0, cfg.Trees), nFeatures: d}
	for i := 0; i < cfg.Trees; i++ {
		rng := rand.New(rand.NewSource(cfg.Seed + int64(i)))
		idx := bootstrap(len(X), rng)
		f.trees = append(f.trees, grow(X, y, idx, 0, cfg, rng))
	}
	return f, nil
}

// NumFeatures returns the feature dimension the forest was fitted on.
func (f *Forest) NumFeatures() int { return f.nFeatures }

// Proba returns the ensemble's positive-class probability for x.
func (f *Forest) Proba(x []float64) (float64, error) {
	if len(x) != f.nFeatures {
		return 0, fmt.Errorf("forest: input has %d features, want %d", len(x), f.nFeatures)
	}
	probs := make([]float64, len(f.trees))
	for i, t := range f.trees {
		probs[i] = t.predict(x)
	}
	return stat.Mean(probs, nil), nil
}

func (n *node) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.prob
}

func bootstrap(n int, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.Intn(n)
	}
	return idx
}

func grow(X [][]float64, y []int, idx []int, depth int, cfg Config, rng *rand.Rand) *node {
	pos := 0
	for _, i := range idx {
		if y[i] != 0 {
			pos++
		}
	}
	prob := float64(pos) / float64(len(idx))
	if pos == 0 || pos == len(idx) ||
		(cfg.MaxDepth > 0 && depth >= cfg.MaxDepth) ||
		len(idx) < 2*cfg.MinLeaf {
		return &node{leaf: true, prob: prob}
	}

	feature, threshold, ok := bestSplit(X, y, idx, cfg.MinLeaf, rng)
	if !ok {
		return &node{leaf: true, prob: prob}
	}
	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &node{
		feature:   feature,
		threshold: threshold,
		left:      grow(X, y, left, depth+1, cfg, rng),
		right:     grow(X, y, right, depth+1, cfg, rng),
	}
}

// bestSplit scans sqrt(d) random features for the lowest weighted gini.
func bestSplit(X [][]float64, y []int, idx []int, minLeaf int, rng *rand.Rand) (int, float64, bool) {
	d := len(X[0])
	k := int(math.Ceil(math.Sqrt(float64(d))))
	n := len(idx)

	bestGini := math.Inf(1)
	bestFeature := -1
	bestThreshold := 0.0

	vals := make([]float64, n)
	inds := make([]int, n)
	for _, feature := range rng.Perm(d)[:k] {
		for i, s := range idx {
			vals[i] = X[s][feature]
		}
		floats.Argsort(vals, inds)

		// prefix positive counts over the sorted order
		leftPos := 0
		totalPos := 0
		for _, s := range idx {
			if y[s] != 0 {
				totalPos++
			}
		}
		for i := 0; i < n-1; i++ {
			if y[idx[inds[i]]] != 0 {
				leftPos++
			}
			if vals[i] == vals[i+1] {
				continue
			}
			nl, nr := i+1, n-i-1
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			g := weightedGini(leftPos, nl, totalPos-leftPos, nr)
			if g < bestGini {
				bestGini = g
				bestFeature = feature
				bestThreshold = (vals[i] + vals[i+1]) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func weightedGini(posL, nL, posR, nR int) float64 {
	n := float64(nL + nR)
	return float64(nL)/n*gini(posL, nL) + float64(nR)/n*gini(posR, nR)
}

func gini(pos, n int) float64 {
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}
