package brief

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// Summary holds descriptive statistics of one window of values
type Summary struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	CV     float64 `json:"cv"`
}

// Summarize computes the window summary. Non-finite values are skipped; an
// empty window returns the zero Summary.
func Summarize(data []float64) Summary {
	values := Finite(data)
	if len(values) == 0 {
		return Summary{}
	}

	mean, _ := stats.Mean(values)
	stdDev, _ := stats.StandardDeviationPopulation(values)
	median, _ := stats.Median(values)
	min, _ := stats.Min(values)
	max, _ := stats.Max(values)

	return Summary{
		N:      len(values),
		Mean:   mean,
		StdDev: stdDev,
		Median: median,
		Min:    min,
		Max:    max,
		CV:     CoefficientOfVariation(mean, stdDev),
	}
}

// CoefficientOfVariation returns stdDev/|mean|, or 0 when the mean is ~0
func CoefficientOfVariation(mean, stdDev float64) float64 {
	if math.Abs(mean) < 1e-9 {
		return 0
	}
	cv := stdDev / math.Abs(mean)
	if !IsFinite(cv) {
		return 0
	}
	return cv
}

// Median returns the median of the finite values, false when there are none
func Median(data []float64) (float64, bool) {
	values := Finite(data)
	if len(values) == 0 {
		return 0, false
	}
	m, err := stats.Median(values)
	if err != nil || !IsFinite(m) {
		return 0, false
	}
	return m, true
}

// MADOutliers flags values further than 3 robust sigmas (1.4826*MAD) from the
// median. ok is false when there are fewer than 4 values or the MAD is ~0,
// in which case nothing is flagged.
func MADOutliers(data []float64) (outliers []bool, ok bool) {
	outliers = make([]bool, len(data))
	if len(data) < 4 {
		return outliers, false
	}
	median, err := stats.Median(data)
	if err != nil {
		return outliers, false
	}
	mad, err := stats.MedianAbsoluteDeviationPopulation(data)
	if err != nil || !IsFinite(mad) || mad < 1e-9 {
		return outliers, false
	}

	cut := 3 * 1.4826 * mad
	for i, v := range data {
		outliers[i] = math.Abs(v-median) > cut
	}
	return outliers, true
}

// DistinctCount counts distinct values after rounding to 1e-6
func DistinctCount(data []float64) int {
	seen := make(map[float64]bool, len(data))
	for _, v := range data {
		seen[math.Round(v*1e6)/1e6] = true
	}
	return len(seen)
}

// Finite returns the finite values of data in their original order
func Finite(data []float64) []float64 {
	out := make([]float64, 0, len(data))
	for _, v := range data {
		if IsFinite(v) {
			out = append(out, v)
		}
	}
	return out
}

// IsFinite reports whether v is neither NaN nor infinite
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clip bounds v to [lo, hi]
func Clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Mode returns the most frequent label, breaking ties by the order of
// preference. Labels missing from preference rank last.
func Mode(labels []string, preference []string) string {
	if len(labels) == 0 {
		return ""
	}
	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}
	rank := func(l string) int {
		for i, p := range preference {
			if p == l {
				return i
			}
		}
		return len(preference)
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		if rank(keys[i]) != rank(keys[j]) {
			return rank(keys[i]) < rank(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys[0]
}
