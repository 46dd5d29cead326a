package regression

import (
	"math"

	"github.com/chrissnell/weatherdash/pkg/config"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// tau replaces non-positive curvature in the working set update
const tau = 1e-12

// SVR is an epsilon support vector regressor. The dual problem is solved
// with sequential minimal optimization using second order working set
// selection.
type SVR struct {
	params config.SVRParams

	gamma  float64
	sv     [][2]float64
	coef   []float64
	rho    float64
	fitted bool
}

// NewSVR creates an unfitted support vector regressor
func NewSVR(params config.SVRParams) *SVR {
	return &SVR{params: params}
}

func (m *SVR) Deterministic() bool { return true }

func (m *SVR) kernel(a, b [2]float64) float64 {
	switch m.params.Kernel {
	case "linear":
		return a[0]*b[0] + a[1]*b[1]
	case "poly":
		return math.Pow(m.gamma*(a[0]*b[0]+a[1]*b[1])+m.params.Coef0, float64(m.params.Degree))
	case "sigmoid":
		return math.Tanh(m.gamma*(a[0]*b[0]+a[1]*b[1]) + m.params.Coef0)
	default:
		return math.Exp(-m.gamma * sqDist(a, b))
	}
}

func (m *SVR) resolveGamma(X [][2]float64) float64 {
	switch m.params.Gamma.Mode {
	case config.GammaValue:
		return m.params.Gamma.Value
	case config.GammaAuto:
		return 1.0 / 2
	default:
		values := make([]float64, 0, 2*len(X))
		for _, x := range X {
			values = append(values, x[0], x[1])
		}
		v := stat.PopVariance(values, nil)
		if v == 0 {
			return 1.0
		}
		return 1.0 / (2 * v)
	}
}

// Fit solves the dual problem over 2l variables: alpha[0:l] for samples
// above the tube and alpha[l:2l] for samples below it.
func (m *SVR) Fit(X [][2]float64, y []float64) error {
	if err := checkTrainingData(X, y); err != nil {
		return err
	}

	m.gamma = m.resolveGamma(X)
	l := len(X)

	K := mat.NewSymDense(l, nil)
	for i := 0; i < l; i++ {
		for j := i; j < l; j++ {
			K.SetSym(i, j, m.kernel(X[i], X[j]))
		}
	}

	s := &smo{
		l:     l,
		c:     m.params.C,
		eps:   m.params.Tol,
		k:     K,
		sign:  make([]float64, 2*l),
		alpha: make([]float64, 2*l),
		grad:  make([]float64, 2*l),
	}
	for i := 0; i < l; i++ {
		s.sign[i], s.sign[i+l] = 1, -1
		s.grad[i] = m.params.Epsilon - y[i]
		s.grad[i+l] = m.params.Epsilon + y[i]
	}

	maxIter := m.params.MaxIter
	if maxIter < 0 {
		maxIter = max(10000000, 100*l)
	}
	s.solve(maxIter)

	m.sv = append([][2]float64(nil), X...)
	m.coef = make([]float64, l)
	for i := 0; i < l; i++ {
		m.coef[i] = s.alpha[i] - s.alpha[i+l]
	}
	m.rho = s.rho()
	m.fitted = true

	return nil
}

func (m *SVR) Predict(X [][2]float64) ([]float64, error) {
	if !m.fitted {
		return nil, failure("svr regressor is not fitted")
	}

	out := make([]float64, len(X))
	for i, x := range X {
		var sum float64
		for j, sv := range m.sv {
			if m.coef[j] != 0 {
				sum += m.coef[j] * m.kernel(sv, x)
			}
		}
		out[i] = sum - m.rho
	}
	return out, nil
}

// smo holds the solver state for the dual problem
//
//	min 0.5 aᵀQa + pᵀa  subject to  signᵀa = 0, 0 <= a <= C
//
// where Q[i][j] = sign[i]*sign[j]*K(i mod l, j mod l). grad starts at p.
type smo struct {
	l     int
	c     float64
	eps   float64
	k     *mat.SymDense
	sign  []float64
	alpha []float64
	grad  []float64
}

func (s *smo) q(i, j int) float64 {
	return s.sign[i] * s.sign[j] * s.k.At(i%s.l, j%s.l)
}

func (s *smo) qd(i int) float64 {
	return s.k.At(i%s.l, i%s.l)
}

func (s *smo) solve(maxIter int) {
	for iter := 0; iter < maxIter; iter++ {
		i, j, ok := s.selectWorkingSet()
		if !ok {
			return
		}
		s.update(i, j)
	}
}

// selectWorkingSet picks the maximal violating index i and, among the
// candidates for j, the one with the largest second order decrease.
func (s *smo) selectWorkingSet() (int, int, bool) {
	n := len(s.alpha)

	gmax, gmaxIdx := math.Inf(-1), -1
	for t := 0; t < n; t++ {
		if s.sign[t] > 0 {
			if s.alpha[t] < s.c && -s.grad[t] >= gmax {
				gmax, gmaxIdx = -s.grad[t], t
			}
		} else if s.alpha[t] > 0 && s.grad[t] >= gmax {
			gmax, gmaxIdx = s.grad[t], t
		}
	}
	if gmaxIdx < 0 {
		return -1, -1, false
	}

	i := gmaxIdx
	gmax2, gminIdx, objMin := math.Inf(-1), -1, math.Inf(1)
	for t := 0; t < n; t++ {
		var gradDiff, quad float64
		if s.sign[t] > 0 {
			if s.alpha[t] <= 0 {
				continue
			}
			gmax2 = math.Max(gmax2, s.grad[t])
			gradDiff = gmax + s.grad[t]
			quad = s.qd(i) + s.qd(t) - 2*s.sign[i]*s.q(i, t)
		} else {
			if s.alpha[t] >= s.c {
				continue
			}
			gmax2 = math.Max(gmax2, -s.grad[t])
			gradDiff = gmax - s.grad[t]
			quad = s.qd(i) + s.qd(t) + 2*s.sign[i]*s.q(i, t)
		}

		if gradDiff > 0 {
			if quad <= 0 {
				quad = tau
			}
			if obj := -(gradDiff * gradDiff) / quad; obj <= objMin {
				gminIdx, objMin = t, obj
			}
		}
	}

	if gmax+gmax2 < s.eps || gminIdx < 0 {
		return -1, -1, false
	}
	return i, gminIdx, true
}

// update solves the two-variable subproblem analytically and clips the
// result to the box [0, C].
func (s *smo) update(i, j int) {
	c := s.c
	oldI, oldJ := s.alpha[i], s.alpha[j]
	qij := s.q(i, j)

	if s.sign[i] != s.sign[j] {
		quad := s.qd(i) + s.qd(j) + 2*qij
		if quad <= 0 {
			quad = tau
		}
		delta := (-s.grad[i] - s.grad[j]) / quad
		diff := s.alpha[i] - s.alpha[j]
		s.alpha[i] += delta
		s.alpha[j] += delta

		if diff > 0 {
			if s.alpha[j] < 0 {
				s.alpha[j], s.alpha[i] = 0, diff
			}
		} else if s.alpha[i] < 0 {
			s.alpha[i], s.alpha[j] = 0, -diff
		}
		if diff > 0 {
			if s.alpha[i] > c {
				s.alpha[i], s.alpha[j] = c, c-diff
			}
		} else if s.alpha[j] > c {
			s.alpha[j], s.alpha[i] = c, c+diff
		}
	} else {
		quad := s.qd(i) + s.qd(j) - 2*qij
		if quad <= 0 {
			quad = tau
		}
		delta := (s.grad[i] - s.grad[j]) / quad
		sum := s.alpha[i] + s.alpha[j]
		s.alpha[i] -= delta
		s.alpha[j] += delta

		if sum > c {
			if s.alpha[i] > c {
				s.alpha[i], s.alpha[j] = c, sum-c
			}
		} else if s.alpha[j] < 0 {
			s.alpha[j], s.alpha[i] = 0, sum
		}
		if sum > c {
			if s.alpha[j] > c {
				s.alpha[j], s.alpha[i] = c, sum-c
			}
		} else if s.alpha[i] < 0 {
			s.alpha[i], s.alpha[j] = 0, sum
		}
	}

	dI, dJ := s.alpha[i]-oldI, s.alpha[j]-oldJ
	for t := range s.grad {
		s.grad[t] += s.q(i, t)*dI + s.q(j, t)*dJ
	}
}

// rho is the offset of the decision function, averaged over free variables
func (s *smo) rho() float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	var nFree int
	var sumFree float64

	for t := range s.alpha {
		yG := s.sign[t] * s.grad[t]
		switch {
		case s.alpha[t] >= s.c:
			if s.sign[t] < 0 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		case s.alpha[t] <= 0:
			if s.sign[t] > 0 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		default:
			nFree++
			sumFree += yG
		}
	}

	if nFree > 0 {
		return sumFree / float64(nFree)
	}
	return (ub + lb) / 2
}
