package brief

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Fit is a straight line y = Intercept + Slope*x
type Fit struct {
	Slope     float64
	Intercept float64
}

// At evaluates the line at x
func (f Fit) At(x float64) float64 {
	return f.Intercept + f.Slope*x
}

// OLS fits ordinary least squares. ok is false with fewer than two points,
// no spread in x or a non-finite result.
func OLS(xs, ys []float64) (Fit, bool) {
	if len(xs) != len(ys) || len(xs) < 2 || !hasSpread(xs) {
		return Fit{}, false
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if !IsFinite(alpha) || !IsFinite(beta) {
		return Fit{}, false
	}
	return Fit{Slope: beta, Intercept: alpha}, true
}

// TheilSen takes the median of all pairwise slopes and the median of
// y - slope*x as intercept. Pairs with equal x are skipped.
func TheilSen(xs, ys []float64) (Fit, bool) {
	if len(xs) != len(ys) || len(xs) < 2 {
		return Fit{}, false
	}

	slopes := make([]float64, 0, len(xs)*(len(xs)-1)/2)
	for i := 0; i < len(xs); i++ {
		for j := i + 1; j < len(xs); j++ {
			dx := xs[j] - xs[i]
			if math.Abs(dx) < 1e-12 {
				continue
			}
			slopes = append(slopes, (ys[j]-ys[i])/dx)
		}
	}
	slope, ok := Median(slopes)
	if !ok {
		return Fit{}, false
	}

	intercepts := make([]float64, len(xs))
	for i := range xs {
		intercepts[i] = ys[i] - slope*xs[i]
	}
	intercept, ok := Median(intercepts)
	if !ok {
		return Fit{}, false
	}
	return Fit{Slope: slope, Intercept: intercept}, true
}

// Pearson returns the correlation of xs and ys; ok is false when either side
// has no variance
func Pearson(xs, ys []float64) (float64, bool) {
	if len(xs) != len(ys) || len(xs) < 2 || !hasSpread(xs) || !hasSpread(ys) {
		return 0, false
	}
	r := stat.Correlation(xs, ys, nil)
	if !IsFinite(r) {
		return 0, false
	}
	return Clip(r, -1, 1), true
}

// Residuals returns y - fit(x) for every point
func Residuals(fit Fit, xs, ys []float64) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		out[i] = ys[i] - fit.At(xs[i])
	}
	return out
}

// SlopeStdErr is the standard error of an OLS slope; it needs at least three
// points and spread in x
func SlopeStdErr(fit Fit, xs, ys []float64) (float64, bool) {
	n := len(xs)
	if n < 3 || n != len(ys) {
		return 0, false
	}
	meanX, _ := stats.Mean(xs)
	var sxx, sse float64
	for i := range xs {
		dx := xs[i] - meanX
		sxx += dx * dx
		r := ys[i] - fit.At(xs[i])
		sse += r * r
	}
	if sxx < 1e-12 {
		return 0, false
	}
	se := math.Sqrt(sse/float64(n-2)) / math.Sqrt(sxx)
	if !IsFinite(se) {
		return 0, false
	}
	return se, true
}

func hasSpread(values []float64) bool {
	if len(values) == 0 {
		return false
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if !IsFinite(v) {
			return false
		}
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	return IsFinite(values[0]) && max-min > 1e-12
}
