package model

import (
	"math/rand"
	"sort"
)

// treeNode is one node of a CART tree. Leaves carry the weighted positive
// fraction of their training samples; internal nodes route on
// x[Feature] <= Threshold.
type treeNode struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Prob      float64   `json:"p"`
	Left      *treeNode `json:"l,omitempty"`
	Right     *treeNode `json:"r,omitempty"`
}

func (n *treeNode) leaf() bool {
	return n.Left == nil
}

func (n *treeNode) predict(x []float64) float64 {
	for !n.leaf() {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Prob
}

type treeBuilder struct {
	X        [][]float64
	y        []int
	w        []float64 // per-sample weights (balanced class weights)
	mtry     int
	maxDepth int
	minLeaf  int
	rng      *rand.Rand
}

func (b *treeBuilder) build(indices []int, depth int) *treeNode {
	var wPos, wTotal float64
	for _, i := range indices {
		wTotal += b.w[i]
		if b.y[i] == 1 {
			wPos += b.w[i]
		}
	}

	node := &treeNode{Prob: 0}
	if wTotal > 0 {
		node.Prob = wPos / wTotal
	}

	if depth >= b.maxDepth || len(indices) < 2*b.minLeaf || wPos == 0 || wPos == wTotal {
		return node
	}

	feature, threshold, ok := b.bestSplit(indices, wPos, wTotal)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range indices {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < b.minLeaf || len(right) < b.minLeaf {
		return node
	}

	node.Feature = feature
	node.Threshold = threshold
	node.Left = b.build(left, depth+1)
	node.Right = b.build(right, depth+1)
	return node
}

// bestSplit searches mtry randomly chosen features for the split with the
// largest weighted Gini decrease.
func (b *treeBuilder) bestSplit(indices []int, wPos, wTotal float64) (int, float64, bool) {
	p := len(b.X[0])
	candidates := b.rng.Perm(p)[:b.mtry]
	sort.Ints(candidates) // deterministic evaluation order

	parentGini := gini(wPos, wTotal)
	bestGain := 1e-12
	bestFeature := -1
	bestThreshold := 0.0

	sorted := make([]int, len(indices))
	for _, f := range candidates {
		copy(sorted, indices)
		sort.Slice(sorted, func(a, c int) bool {
			return b.X[sorted[a]][f] < b.X[sorted[c]][f]
		})

		var leftPos, leftTotal float64
		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			leftTotal += b.w[i]
			if b.y[i] == 1 {
				leftPos += b.w[i]
			}

			v := b.X[i][f]
			next := b.X[sorted[k+1]][f]
			if v == next {
				continue
			}

			rightTotal := wTotal - leftTotal
			rightPos := wPos - leftPos
			if leftTotal == 0 || rightTotal == 0 {
				continue
			}

			weighted := (leftTotal*gini(leftPos, leftTotal) + rightTotal*gini(rightPos, rightTotal)) / wTotal
			gain := parentGini - weighted
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (v + next) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

// gini returns the binary Gini impurity for a node with wPos positive weight
// out of wTotal.
func gini(wPos, wTotal float64) float64 {
	if wTotal == 0 {
		return 0
	}
	p := wPos / wTotal
	return 2 * p * (1 - p)
}
