// Package stats holds the descriptive statistics and the simple regression
// shared by the inventory and model stages.
package stats

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrTooFewPoints is returned when a regression has fewer than three points.
var ErrTooFewPoints = errors.New("too few points")

// MeanSD returns the mean and sample standard deviation of values. The SD is
// NaN for fewer than two values.
func MeanSD(values []float64) (mean, sd float64) {
	switch len(values) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return values[0], math.NaN()
	}
	return stat.MeanStdDev(values, nil)
}

// Median returns the middle value, averaging the two central values of an
// even-sized sample. NaN for no values.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// DropNaN returns the values of x and y at positions where both are defined.
func DropNaN(x, y []float64) ([]float64, []float64) {
	var ox, oy []float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		ox = append(ox, x[i])
		oy = append(oy, y[i])
	}
	return ox, oy
}

// Regression is an ordinary least squares fit y = Intercept + Slope·x.
type Regression struct {
	N         int     `json:"n"`
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R         float64 `json:"r"`
	RSquared  float64 `json:"r_squared"`
	PValue    float64 `json:"p_value"`
	StdErr    float64 `json:"std_err"`
}

// LinRegress fits y on x. The p-value tests a zero slope with a two-sided
// t-test on N-2 degrees of freedom.
func LinRegress(x, y []float64) (*Regression, error) {
	if len(x) != len(y) {
		return nil, errors.New("x and y differ in length")
	}
	n := len(x)
	if n < 3 {
		return nil, ErrTooFewPoints
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	r := stat.Correlation(x, y, nil)
	df := float64(n - 2)

	reg := &Regression{
		N:         n,
		Slope:     beta,
		Intercept: alpha,
		R:         r,
		RSquared:  stat.RSquared(x, y, nil, alpha, beta),
	}

	switch {
	case math.IsNaN(r):
		reg.PValue = math.NaN()
		reg.StdErr = math.NaN()
	case math.Abs(r) >= 1:
		reg.PValue = 0
		reg.StdErr = 0
	default:
		t := r * math.Sqrt(df/((1-r)*(1+r)))
		dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
		reg.PValue = 2 * dist.Survival(math.Abs(t))
		_, sx := stat.MeanStdDev(x, nil)
		_, sy := stat.MeanStdDev(y, nil)
		reg.StdErr = math.Sqrt((1 - r*r) * sy * sy / (sx * sx) / df)
	}
	return reg, nil
}

// Round rounds v to the given number of decimals, ties to even.
func Round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.RoundToEven(v*p) / p
}
