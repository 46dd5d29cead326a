package regression

import (
	"math/rand/v2"
	"sort"
)

// treeNode is a node of a binary regression tree. Leaves have no children;
// samples is only populated on leaves while the ensemble is being fit.
type treeNode struct {
	feature     int
	threshold   float64
	left, right *treeNode

	value   float64
	samples []int
}

func (n *treeNode) leaf() bool {
	return n.left == nil
}

func (n *treeNode) predict(x [2]float64) float64 {
	for !n.leaf() {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func (n *treeNode) visitLeaves(fn func(*treeNode)) {
	if n.leaf() {
		fn(n)
		return
	}
	n.left.visitLeaves(fn)
	n.right.visitLeaves(fn)
}

// treeBuilder grows depth-first CART trees, choosing splits by the
// Friedman mean squared error improvement.
type treeBuilder struct {
	x               [][2]float64
	y               []float64
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	rng             *rand.Rand
}

type split struct {
	feature     int
	threshold   float64
	improvement float64
	left, right []int
}

func (b *treeBuilder) build(samples []int, depth int) *treeNode {
	node := &treeNode{value: b.mean(samples)}

	if depth >= b.maxDepth ||
		len(samples) < b.minSamplesSplit ||
		len(samples) < 2*b.minSamplesLeaf ||
		b.constant(samples) {
		node.samples = samples
		return node
	}

	best, ok := b.bestSplit(samples)
	if !ok {
		node.samples = samples
		return node
	}

	node.feature = best.feature
	node.threshold = best.threshold
	node.left = b.build(best.left, depth+1)
	node.right = b.build(best.right, depth+1)
	return node
}

func (b *treeBuilder) mean(samples []int) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += b.y[s]
	}
	return sum / float64(len(samples))
}

func (b *treeBuilder) constant(samples []int) bool {
	for _, s := range samples[1:] {
		if b.y[s] != b.y[samples[0]] {
			return false
		}
	}
	return true
}

// bestSplit scans every threshold between distinct feature values. The
// feature visiting order is shuffled so ties between features are broken
// by the random source.
func (b *treeBuilder) bestSplit(samples []int) (split, bool) {
	var best split
	found := false

	n := len(samples)
	var total float64
	for _, s := range samples {
		total += b.y[s]
	}

	sorted := make([]int, n)
	for _, f := range b.rng.Perm(2) {
		copy(sorted, samples)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.x[sorted[i]][f] < b.x[sorted[j]][f]
		})

		var leftSum float64
		for p := 1; p < n; p++ {
			leftSum += b.y[sorted[p-1]]

			if p < b.minSamplesLeaf || n-p < b.minSamplesLeaf {
				continue
			}
			lo, hi := b.x[sorted[p-1]][f], b.x[sorted[p]][f]
			if lo == hi {
				continue
			}

			nl, nr := float64(p), float64(n-p)
			diff := leftSum/nl - (total-leftSum)/nr
			improvement := nl * nr * diff * diff / (nl + nr)

			if !found || improvement > best.improvement {
				threshold := lo + (hi-lo)/2
				if threshold >= hi {
					threshold = lo
				}
				best = split{feature: f, threshold: threshold, improvement: improvement}
				best.left = append([]int(nil), sorted[:p]...)
				best.right = append([]int(nil), sorted[p:]...)
				found = true
			}
		}
	}

	return best, found
}
