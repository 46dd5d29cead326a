package regression

import (
	"math/rand/v2"
	"sort"

	"github.com/chrissnell/weatherdash/pkg/config"
	"gonum.org/v1/gonum/stat"
)

// GBR is a gradient boosted ensemble of regression trees. Each stage fits
// a tree to the negative gradient of the loss on a random subsample of the
// training set.
//
// Randomness comes from row subsampling and from the order in which the two
// features are searched at every node (which decides ties). Without a
// configured random state the fit differs between calls.
type GBR struct {
	params config.GBRParams

	init   float64
	trees  []*treeNode
	fitted bool
}

// NewGBR creates an unfitted gradient boosting regressor
func NewGBR(params config.GBRParams) *GBR {
	return &GBR{params: params}
}

func (m *GBR) Deterministic() bool { return m.params.Seeded() }

func (m *GBR) newRand() *rand.Rand {
	if m.params.RandomState != nil {
		return rand.New(rand.NewPCG(uint64(*m.params.RandomState), 0x9e3779b97f4a7c15))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func (m *GBR) absoluteLoss() bool {
	return m.params.Loss == "absolute_error"
}

func (m *GBR) Fit(X [][2]float64, y []float64) error {
	if err := checkTrainingData(X, y); err != nil {
		return err
	}

	rng := m.newRand()
	n := len(X)

	if m.absoluteLoss() {
		m.init = median(y)
	} else {
		m.init = stat.Mean(y, nil)
	}

	raw := make([]float64, n)
	for i := range raw {
		raw[i] = m.init
	}

	nInBag := n
	if m.params.Subsample < 1 {
		nInBag = max(1, int(m.params.Subsample*float64(n)))
	}

	builder := &treeBuilder{
		x:               X,
		maxDepth:        m.params.MaxDepth,
		minSamplesSplit: m.params.MinSamplesSplit,
		minSamplesLeaf:  m.params.MinSamplesLeaf,
		rng:             rng,
	}

	residual := make([]float64, n)
	m.trees = make([]*treeNode, 0, m.params.NEstimators)

	for stage := 0; stage < m.params.NEstimators; stage++ {
		for i := range residual {
			residual[i] = m.negativeGradient(y[i], raw[i])
		}

		samples := make([]int, n)
		for i := range samples {
			samples[i] = i
		}
		if nInBag < n {
			samples = rng.Perm(n)[:nInBag]
			sort.Ints(samples)
		}

		builder.y = residual
		root := builder.build(samples, 0)

		if m.absoluteLoss() {
			root.visitLeaves(func(leaf *treeNode) {
				diffs := make([]float64, len(leaf.samples))
				for k, s := range leaf.samples {
					diffs[k] = y[s] - raw[s]
				}
				leaf.value = median(diffs)
			})
		}
		root.visitLeaves(func(leaf *treeNode) { leaf.samples = nil })

		for i := range raw {
			raw[i] += m.params.LearningRate * root.predict(X[i])
		}
		m.trees = append(m.trees, root)
	}

	m.fitted = true
	return nil
}

func (m *GBR) negativeGradient(y, raw float64) float64 {
	if m.absoluteLoss() {
		if y-raw > 0 {
			return 1
		}
		return -1
	}
	return y - raw
}

func (m *GBR) Predict(X [][2]float64) ([]float64, error) {
	if !m.fitted {
		return nil, failure("gbr regressor is not fitted")
	}

	out := make([]float64, len(X))
	for i, x := range X {
		v := m.init
		for _, t := range m.trees {
			v += m.params.LearningRate * t.predict(x)
		}
		out[i] = v
	}
	return out, nil
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
