package regression

import (
	"math"
	"sort"

	"github.com/chrissnell/weatherdash/pkg/config"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// KNN predicts the (optionally distance weighted) mean of the k nearest
// training samples.
type KNN struct {
	params config.KNNParams

	x    [][2]float64
	y    []float64
	tree *kdtree.Tree
}

// NewKNN creates an unfitted k-nearest-neighbors regressor
func NewKNN(params config.KNNParams) *KNN {
	return &KNN{params: params}
}

func (m *KNN) Deterministic() bool { return true }

// minkowskiP returns the distance exponent; +Inf selects the Chebyshev metric
func (m *KNN) minkowskiP() float64 {
	switch m.params.Metric {
	case "euclidean":
		return 2
	case "manhattan":
		return 1
	case "chebyshev":
		return math.Inf(1)
	default:
		return m.params.P
	}
}

// Fit stores the training samples; for the Euclidean metric they are also
// indexed in a k-d tree unless brute force search was requested.
func (m *KNN) Fit(X [][2]float64, y []float64) error {
	if err := checkTrainingData(X, y); err != nil {
		return err
	}
	if m.params.NNeighbors > len(X) {
		return failure("expected n_neighbors <= n_samples, got n_neighbors=%d, n_samples=%d", m.params.NNeighbors, len(X))
	}

	m.x = append([][2]float64(nil), X...)
	m.y = append([]float64(nil), y...)
	m.tree = nil

	if m.params.Algorithm != "brute" && m.minkowskiP() == 2 {
		points := make(stationPoints, len(X))
		for i, p := range X {
			points[i] = stationPoint{Point: kdtree.Point{p[0], p[1]}, idx: i}
		}
		m.tree = kdtree.New(points, false)
	}

	return nil
}

type neighbor struct {
	idx  int
	dist float64
}

func (m *KNN) Predict(X [][2]float64) ([]float64, error) {
	if m.x == nil {
		return nil, failure("knn regressor is not fitted")
	}

	out := make([]float64, len(X))
	for i, q := range X {
		out[i] = m.estimate(m.neighbors(q))
	}
	return out, nil
}

func (m *KNN) neighbors(q [2]float64) []neighbor {
	k := m.params.NNeighbors
	var found []neighbor

	if m.tree != nil {
		keeper := kdtree.NewNKeeper(k)
		m.tree.NearestSet(keeper, stationPoint{Point: kdtree.Point{q[0], q[1]}, idx: -1})
		for _, c := range keeper.Heap {
			if c.Comparable == nil {
				continue
			}
			found = append(found, neighbor{idx: c.Comparable.(stationPoint).idx, dist: math.Sqrt(c.Dist)})
		}
	} else {
		p := m.minkowskiP()
		found = make([]neighbor, len(m.x))
		for i, x := range m.x {
			found[i] = neighbor{idx: i, dist: minkowski(q, x, p)}
		}
	}

	sort.Slice(found, func(a, b int) bool {
		if found[a].dist != found[b].dist {
			return found[a].dist < found[b].dist
		}
		return found[a].idx < found[b].idx
	})
	if len(found) > k {
		found = found[:k]
	}
	return found
}

// estimate averages the neighbor targets. With distance weights, neighbors
// at zero distance take all of the weight.
func (m *KNN) estimate(nb []neighbor) float64 {
	if m.params.Weights != config.WeightsDistance {
		var sum float64
		for _, n := range nb {
			sum += m.y[n.idx]
		}
		return sum / float64(len(nb))
	}

	var exact, exactCount float64
	for _, n := range nb {
		if n.dist == 0 {
			exact += m.y[n.idx]
			exactCount++
		}
	}
	if exactCount > 0 {
		return exact / exactCount
	}

	var num, den float64
	for _, n := range nb {
		w := 1 / n.dist
		num += w * m.y[n.idx]
		den += w
	}
	return num / den
}

func minkowski(a, b [2]float64, p float64) float64 {
	dx, dy := math.Abs(a[0]-b[0]), math.Abs(a[1]-b[1])
	switch {
	case math.IsInf(p, 1):
		return math.Max(dx, dy)
	case p == 1:
		return dx + dy
	case p == 2:
		return math.Hypot(dx, dy)
	default:
		return math.Pow(math.Pow(dx, p)+math.Pow(dy, p), 1/p)
	}
}

// stationPoint is a training sample in the k-d tree, remembering its index
// so its target can be looked up.
type stationPoint struct {
	kdtree.Point
	idx int
}

func (p stationPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(stationPoint)
	return p.Point[d] - q.Point[d]
}

func (p stationPoint) Dims() int { return len(p.Point) }

// Distance is the squared Euclidean distance
func (p stationPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(stationPoint)
	return p.Point.Distance(q.Point)
}

type stationPoints []stationPoint

func (p stationPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p stationPoints) Len() int                      { return len(p) }
func (p stationPoints) Pivot(d kdtree.Dim) int {
	return stationPlane{stationPoints: p, Dim: d}.Pivot()
}
func (p stationPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

type stationPlane struct {
	kdtree.Dim
	stationPoints
}

func (p stationPlane) Less(i, j int) bool {
	return p.stationPoints[i].Point[p.Dim] < p.stationPoints[j].Point[p.Dim]
}
func (p stationPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p stationPlane) Slice(start, end int) kdtree.SortSlicer {
	p.stationPoints = p.stationPoints[start:end]
	return p
}
func (p stationPlane) Swap(i, j int) {
	p.stationPoints[i], p.stationPoints[j] = p.stationPoints[j], p.stationPoints[i]
}
