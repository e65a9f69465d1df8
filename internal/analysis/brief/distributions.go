package brief

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// TTestPValue computes the two-tailed p-value of a t statistic
func TTestPValue(tStatistic float64, degreesOfFreedom int) float64 {
	if degreesOfFreedom <= 0 || !IsFinite(tStatistic) {
		return 1.0
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(degreesOfFreedom)}
	p := 2 * (1 - tDist.CDF(math.Abs(tStatistic)))
	return Clip(p, 0, 1)
}

// CorrelationPValue tests r against zero with n-2 degrees of freedom.
// |r| of 1 gives 0.
func CorrelationPValue(correlation float64, sampleSize int) float64 {
	if sampleSize < 3 || !IsFinite(correlation) {
		return 1.0
	}
	denom := 1 - correlation*correlation
	if denom <= 1e-12 {
		return 0
	}

	df := float64(sampleSize - 2)
	tStatistic := correlation * math.Sqrt(df/denom)
	return TTestPValue(tStatistic, sampleSize-2)
}
