// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package learn

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// ForestConfig controls isolation forest training.
type ForestConfig struct {
	NumTrees      int
	SampleSize    int
	Contamination float64
	Seed          int64
}

// DefaultForestConfig returns the settings used by the anomaly detector.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		NumTrees:      100,
		SampleSize:    256,
		Contamination: 0.1,
		Seed:          42,
	}
}

// TreeNode is one node of an isolation tree stored in a flat slice.
// Leaves have Feature == -1.
type TreeNode struct {
	Feature int
	Split   float64
	Left    int
	Right   int
	Size    int
}

// IsolationTree is a single randomly partitioned tree.
type IsolationTree struct {
	Nodes []TreeNode
}

// IsolationForest scores points by how quickly random partitions isolate
// them. Scores lie in (0, 1]; values near 1 are anomalous.
type IsolationForest struct {
	Trees      []IsolationTree
	SampleSize int
	Threshold  float64
	Features   int
}

// FitIsolationForest trains a forest on X. Training is deterministic for a
// given config and input.
func FitIsolationForest(X [][]float64, cfg ForestConfig) (*IsolationForest, error) {
	d, err := columns(X)
	if err != nil {
		return nil, err
	}
	if cfg.NumTrees <= 0 {
		cfg.NumTrees = 100
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = 256
	}
	if cfg.Contamination <= 0 || cfg.Contamination >= 0.5 {
		return nil, fmt.Errorf("learn: contamination %v out of range (0, 0.5)", cfg.Contamination)
	}

	psi := cfg.SampleSize
	if psi > len(X) {
		psi = len(X)
	}
	limit := int(math.Ceil(math.Log2(math.Max(float64(psi), 2))))

	rng := rand.New(rand.NewSource(cfg.Seed))
	f := &IsolationForest{
		Trees:      make([]IsolationTree, cfg.NumTrees),
		SampleSize: psi,
		Features:   d,
	}

	indices := make([]int, len(X))
	for i := range indices {
		indices[i] = i
	}
	for t := range f.Trees {
		rng.Shuffle(len(indices), func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
		sample := make([][]float64, psi)
		for i := 0; i < psi; i++ {
			sample[i] = X[indices[i]]
		}
		tree := IsolationTree{}
		tree.grow(sample, 0, limit, rng)
		f.Trees[t] = tree
	}

	scores := make([]float64, len(X))
	for i, row := range X {
		scores[i] = f.score(row)
	}
	sort.Float64s(scores)
	f.Threshold = Percentile(scores, 1-cfg.Contamination)
	return f, nil
}

// grow appends the subtree for rows and returns its node index.
func (t *IsolationTree) grow(rows [][]float64, depth, limit int, rng *rand.Rand) int {
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, TreeNode{Feature: -1, Size: len(rows)})
	if depth >= limit || len(rows) <= 1 {
		return idx
	}

	// Only features that still vary can split.
	var candidates []int
	d := len(rows[0])
	lo := make([]float64, d)
	hi := make([]float64, d)
	for j := 0; j < d; j++ {
		lo[j], hi[j] = rows[0][j], rows[0][j]
		for _, r := range rows[1:] {
			lo[j] = math.Min(lo[j], r[j])
			hi[j] = math.Max(hi[j], r[j])
		}
		if hi[j] > lo[j] {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return idx
	}

	feature := candidates[rng.Intn(len(candidates))]
	split := lo[feature] + rng.Float64()*(hi[feature]-lo[feature])

	var left, right [][]float64
	for _, r := range rows {
		if r[feature] < split {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	l := t.grow(left, depth+1, limit, rng)
	r := t.grow(right, depth+1, limit, rng)
	t.Nodes[idx] = TreeNode{Feature: feature, Split: split, Left: l, Right: r, Size: len(rows)}
	return idx
}

func (t *IsolationTree) pathLength(x []float64) float64 {
	i, depth := 0, 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return float64(depth) + averagePathLength(n.Size)
		}
		if x[n.Feature] < n.Split {
			i = n.Left
		} else {
			i = n.Right
		}
		depth++
	}
}

// averagePathLength is the expected path length of an unsuccessful search in
// a binary search tree of n nodes.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+0.5772156649) - 2*(fn-1)/fn
}

func (f *IsolationForest) score(x []float64) float64 {
	var total float64
	for i := range f.Trees {
		total += f.Trees[i].pathLength(x)
	}
	mean := total / float64(len(f.Trees))
	c := averagePathLength(f.SampleSize)
	if c == 0 {
		return 0.5
	}
	return math.Pow(2, -mean/c)
}

// Score returns the anomaly score of x.
func (f *IsolationForest) Score(x []float64) (float64, error) {
	if f == nil || len(f.Trees) == 0 {
		return 0, ErrNotFitted
	}
	if len(x) != f.Features {
		return 0, fmt.Errorf("%w: got %d features, want %d", ErrDimensionMismatch, len(x), f.Features)
	}
	return f.score(x), nil
}

// IsAnomaly reports whether score falls above the contamination threshold
// learned during training.
func (f *IsolationForest) IsAnomaly(score float64) bool {
	return score > f.Threshold
}
