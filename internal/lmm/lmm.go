// Package lmm fits linear models with a random intercept per group by
// restricted maximum likelihood.
package lmm

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/RyanBlaney/vowelspace/internal/dataset"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

var (
	// ErrSingular is returned when the fixed effects design is not of full rank.
	ErrSingular = errors.New("singular design matrix")
	// ErrNoData is returned when no complete rows remain.
	ErrNoData = errors.New("no complete observations")
)

// InterceptName labels the intercept coefficient.
const InterceptName = "Intercept"

// Bounds of the log variance ratio searched by the optimiser.
const (
	minLogRatio = -20.0
	maxLogRatio = 12.0
)

const maxCondition = 1e12

// Formula names a response, its fixed effect predictors and the grouping
// column of the random intercept.
type Formula struct {
	Response   string
	Predictors []string
	Group      string
}

func (f Formula) String() string {
	return fmt.Sprintf("%s ~ %s | %s", f.Response, strings.Join(f.Predictors, " + "), f.Group)
}

// Data is a model frame: the response, a design matrix with a leading
// intercept column and the group index of every observation.
type Data struct {
	Formula Formula
	Y       []float64
	X       *mat.Dense
	Groups  []string
	index   []int
}

// NewData builds the model frame from tbl, skipping rows with a missing
// response, predictor or group.
func NewData(tbl *dataset.Table, f Formula) (*Data, error) {
	cols := append([]string{f.Response, f.Group}, f.Predictors...)
	if err := tbl.Require(cols...); err != nil {
		return nil, err
	}

	p := len(f.Predictors) + 1
	var (
		y      []float64
		x      []float64
		labels []string
	)
	for i := range tbl.Rows {
		group := tbl.Value(i, f.Group)
		if dataset.IsMissing(group) {
			continue
		}
		resp := tbl.Float(i, f.Response)
		row := make([]float64, p)
		row[0] = 1
		complete := !math.IsNaN(resp)
		for j, name := range f.Predictors {
			row[j+1] = tbl.Float(i, name)
			complete = complete && !math.IsNaN(row[j+1])
		}
		if !complete {
			continue
		}
		y = append(y, resp)
		x = append(x, row...)
		labels = append(labels, group)
	}
	if len(y) == 0 {
		return nil, ErrNoData
	}

	d := &Data{
		Formula: f,
		Y:       y,
		X:       mat.NewDense(len(y), p, x),
	}
	d.Groups, d.index = groupIndex(labels)
	return d, nil
}

func groupIndex(labels []string) ([]string, []int) {
	seen := make(map[string]struct{})
	var groups []string
	for _, l := range labels {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			groups = append(groups, l)
		}
	}
	sort.Strings(groups)
	pos := make(map[string]int, len(groups))
	for i, g := range groups {
		pos[g] = i
	}
	index := make([]int, len(labels))
	for i, l := range labels {
		index[i] = pos[l]
	}
	return groups, index
}

// Names returns the coefficient names in design column order.
func (d *Data) Names() []string {
	return append([]string{InterceptName}, d.Formula.Predictors...)
}

// sufficient holds the per-group cross products the profiled likelihood
// needs. With V_j = I + γ·11ᵀ, V_j⁻¹ = I - c_j·11ᵀ where c_j = γ/(1+n_j·γ).
type sufficient struct {
	n, p  int
	sizes []float64
	xtx   *mat.SymDense
	xty   *mat.VecDense
	yty   float64
	sumX  []*mat.VecDense
	sumY  []float64
}

func newSufficient(d *Data) *sufficient {
	n, p := d.X.Dims()
	g := len(d.Groups)
	s := &sufficient{
		n:     n,
		p:     p,
		sizes: make([]float64, g),
		xtx:   mat.NewSymDense(p, nil),
		xty:   mat.NewVecDense(p, nil),
		sumX:  make([]*mat.VecDense, g),
		sumY:  make([]float64, g),
	}
	for j := range s.sumX {
		s.sumX[j] = mat.NewVecDense(p, nil)
	}
	s.xtx.SymOuterK(1, d.X.T())
	s.xty.MulVec(d.X.T(), mat.NewVecDense(n, d.Y))
	for i, yi := range d.Y {
		j := d.index[i]
		s.sizes[j]++
		s.sumY[j] += yi
		s.yty += yi * yi
		for k := 0; k < p; k++ {
			s.sumX[j].SetVec(k, s.sumX[j].AtVec(k)+d.X.At(i, k))
		}
	}
	return s
}

// profile is the REML fit at a fixed variance ratio γ.
type profile struct {
	gamma   float64
	beta    *mat.VecDense
	chol    mat.Cholesky
	scale   float64
	logLike float64
}

func (s *sufficient) profile(gamma float64) (*profile, error) {
	a := mat.NewSymDense(s.p, nil)
	a.CopySym(s.xtx)
	b := mat.VecDenseCopyOf(s.xty)
	q := s.yty
	logDetV := 0.0
	for j, nj := range s.sizes {
		c := gamma / (1 + nj*gamma)
		a.SymRankOne(a, -c, s.sumX[j])
		b.AddScaledVec(b, -c*s.sumY[j], s.sumX[j])
		q -= c * s.sumY[j] * s.sumY[j]
		logDetV += math.Log1p(nj * gamma)
	}

	pr := &profile{gamma: gamma, beta: mat.NewVecDense(s.p, nil)}
	if ok := pr.chol.Factorize(a); !ok || pr.chol.Cond() > maxCondition {
		return nil, ErrSingular
	}
	if err := pr.chol.SolveVecTo(pr.beta, b); err != nil {
		return nil, ErrSingular
	}

	df := float64(s.n - s.p)
	rss := q - mat.Dot(b, pr.beta)
	if rss <= 0 || df <= 0 {
		return nil, ErrSingular
	}
	pr.scale = rss / df
	pr.logLike = -0.5 * (df*(math.Log(2*math.Pi*pr.scale)+1) + logDetV + pr.chol.LogDet())
	return pr, nil
}

// Fit is a fitted random intercept model.
type Fit struct {
	Formula   Formula   `json:"formula"`
	Names     []string  `json:"names"`
	Params    []float64 `json:"params"`
	StdErr    []float64 `json:"std_err"`
	GroupVar  float64   `json:"group_var"`
	Scale     float64   `json:"scale"`
	LogLike   float64   `json:"log_likelihood"`
	NObs      int       `json:"n_obs"`
	NGroups   int       `json:"n_groups"`
	MinGroup  int       `json:"min_group_size"`
	MaxGroup  int       `json:"max_group_size"`
	MeanGroup float64   `json:"mean_group_size"`
	Converged bool      `json:"converged"`
}

// FitREML fits d by maximising the REML likelihood profiled over the ratio of
// the group variance to the residual variance.
func FitREML(d *Data) (*Fit, error) {
	s := newSufficient(d)
	if s.n <= s.p {
		return nil, fmt.Errorf("%d observations for %d coefficients: %w", s.n, s.p, ErrSingular)
	}

	objective := func(theta float64) float64 {
		theta = math.Max(minLogRatio, math.Min(maxLogRatio, theta))
		pr, err := s.profile(math.Exp(theta))
		if err != nil {
			return math.MaxFloat64
		}
		return -pr.logLike
	}

	// coarse grid for the starting point
	start, best := 0.0, math.Inf(1)
	for theta := minLogRatio; theta <= maxLogRatio; theta += 0.5 {
		if v := objective(theta); v < best {
			start, best = theta, v
		}
	}

	problem := optimize.Problem{Func: func(x []float64) float64 { return objective(x[0]) }}
	method := &optimize.NelderMead{SimplexSize: 0.5}
	converged := true
	theta := start
	res, err := optimize.Minimize(problem, []float64{start}, nil, method)
	if err != nil {
		converged = false
	}
	if res != nil && res.F <= best {
		theta = math.Max(minLogRatio, math.Min(maxLogRatio, res.X[0]))
	}

	pr, err := s.profile(math.Exp(theta))
	if err != nil {
		return nil, err
	}
	// the group variance may sit on its zero boundary
	if zero, err := s.profile(0); err == nil && zero.logLike > pr.logLike {
		pr = zero
	}

	cov := mat.NewSymDense(s.p, nil)
	if err := pr.chol.InverseTo(cov); err != nil {
		return nil, ErrSingular
	}

	fit := &Fit{
		Formula:   d.Formula,
		Names:     d.Names(),
		Params:    make([]float64, s.p),
		StdErr:    make([]float64, s.p),
		GroupVar:  pr.gamma * pr.scale,
		Scale:     pr.scale,
		LogLike:   pr.logLike,
		NObs:      s.n,
		NGroups:   len(s.sizes),
		Converged: converged,
	}
	for k := 0; k < s.p; k++ {
		fit.Params[k] = pr.beta.AtVec(k)
		fit.StdErr[k] = math.Sqrt(pr.scale * cov.At(k, k))
	}

	fit.MinGroup, fit.MaxGroup = math.MaxInt, 0
	for _, nj := range s.sizes {
		fit.MinGroup = min(fit.MinGroup, int(nj))
		fit.MaxGroup = max(fit.MaxGroup, int(nj))
	}
	fit.MeanGroup = float64(s.n) / float64(len(s.sizes))
	return fit, nil
}
