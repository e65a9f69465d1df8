package doseresponse

import (
	"math"

	"labsignal/internal/analysis/brief"
)

// Slope is one estimate of a dose-response slope in value units per mg/week
type Slope struct {
	Value float64
	Sigma float64
}

// Weights decides how much of a blend comes from personal data
type Weights struct {
	Personal float64
}

// PersonalWeight grows with sample count and correlation strength:
// clip((n-2)/6) * clip(|r|/0.6)
func PersonalWeight(samples int, r float64) Weights {
	n := brief.Clip(float64(samples-2)/6, 0, 1)
	c := brief.Clip(math.Abs(r)/0.6, 0, 1)
	return Weights{Personal: n * c}
}

// BlendResult is the merged slope and the value-unit sigma of a projection
// doseDelta mg/week away from the anchor
type BlendResult struct {
	Weight float64
	Slope  float64
	Sigma  float64
}

// Blend merges a personal and a study slope. Slope sigmas are scaled by the
// dose distance to value units and combined with the residual sigma.
func Blend(personal, prior Slope, w Weights, residualSigma, doseDelta float64) BlendResult {
	wp := brief.Clip(w.Personal, 0, 1)
	d := math.Abs(doseDelta)
	sp := wp * personal.Sigma * d
	sq := (1 - wp) * prior.Sigma * d
	sigma := math.Sqrt(sp*sp + sq*sq + residualSigma*residualSigma)
	if !brief.IsFinite(sigma) {
		sigma = math.Abs(residualSigma)
	}
	return BlendResult{
		Weight: wp,
		Slope:  wp*personal.Value + (1-wp)*prior.Value,
		Sigma:  sigma,
	}
}
