package events

import (
	"math"
	"time"

	"labsignal/domain/core"
	"labsignal/domain/insight"
	"labsignal/domain/lab"
	"labsignal/internal/analysis/brief"
	"labsignal/internal/analysis/narrative"
)

const (
	effectCapPct        = 45.0
	timingPenalty       = 15
	supplementPenalty   = 10
	symptomPenalty      = 10
	lowSignalToNoise    = 0.5
	mediumSignalToNoise = 0.8
)

var timingPreference = []string{
	string(lab.TimingTrough),
	string(lab.TimingPeak),
	string(lab.TimingUnknown),
}

// windowSide is the sample set on one side of a change
type windowSide struct {
	points      []insight.MarkerSeriesPoint
	windowEmpty bool
	fallback    bool
}

func (w windowSide) values() []float64 {
	out := make([]float64, len(w.points))
	for i, p := range w.points {
		out[i] = p.Value
	}
	return out
}

func (w windowSide) timing() string {
	labels := make([]string, len(w.points))
	for i, p := range w.points {
		t := p.Context.SamplingTiming
		if t == "" {
			t = lab.TimingUnknown
		}
		labels[i] = string(t)
	}
	return brief.Mode(labels, timingPreference)
}

// splitAt separates the points drawn before the new-protocol report from
// those drawn with or after it, in series order. Same-day draws on different
// protocols land on their own sides.
func splitAt(points []insight.MarkerSeriesPoint, cur lab.LabReport) (before, after []insight.MarkerSeriesPoint) {
	for i, p := range points {
		if !orderedBefore(p, cur) {
			return points[:i], points[i:]
		}
	}
	return points, nil
}

func orderedBefore(p insight.MarkerSeriesPoint, r lab.LabReport) bool {
	if !p.Date.Equal(r.TestDate) {
		return p.Date.Before(r.TestDate)
	}
	if !p.CreatedAt.Equal(r.CreatedAt) {
		return p.CreatedAt.Before(r.CreatedAt)
	}
	return p.ReportID < r.ID
}

// preWindow collects [change-W, change-1d] from the points before the change;
// when empty it falls back to the latest of them
func preWindow(points []insight.MarkerSeriesPoint, changeDate time.Time, window int) windowSide {
	from, to := core.AddDays(changeDate, -window), core.AddDays(changeDate, -1)
	var side windowSide
	for _, p := range points {
		if core.WithinDays(p.Date, from, to) {
			side.points = append(side.points, p)
		}
	}
	if len(side.points) > 0 {
		return side
	}
	side.windowEmpty = true
	if len(points) > 0 {
		side.points = []insight.MarkerSeriesPoint{points[len(points)-1]}
		side.fallback = true
	}
	return side
}

// postWindow collects [change+lag, change+lag+W] from the points after the
// change; when empty it falls back to the earliest of them
func postWindow(points []insight.MarkerSeriesPoint, changeDate time.Time, lag, window int) windowSide {
	from, to := core.AddDays(changeDate, lag), core.AddDays(changeDate, lag+window)
	var side windowSide
	for _, p := range points {
		if core.WithinDays(p.Date, from, to) {
			side.points = append(side.points, p)
		}
	}
	if len(side.points) > 0 {
		return side
	}
	side.windowEmpty = true
	if len(points) > 0 {
		side.points = []insight.MarkerSeriesPoint{points[0]}
		side.fallback = true
	}
	return side
}

// inCandidateWindow reports whether any point falls in [change-W, change+lag+W]
func inCandidateWindow(points []insight.MarkerSeriesPoint, changeDate time.Time, lag, window int) bool {
	from, to := core.AddDays(changeDate, -window), core.AddDays(changeDate, lag+window)
	for _, p := range points {
		if core.WithinDays(p.Date, from, to) {
			return true
		}
	}
	return false
}

func (d *Detector) markerRow(c change, marker string, points []insight.MarkerSeriesPoint, window int, lang string) (insight.MarkerImpactRow, bool) {
	lag := d.catalog.LagDays(marker)
	if !inCandidateWindow(points, c.date, lag, window) {
		return insight.MarkerImpactRow{}, false
	}

	beforeChange, afterChange := splitAt(points, c.cur)
	pre := preWindow(beforeChange, c.date, window)
	post := postWindow(afterChange, c.date, lag, window)

	row := insight.MarkerImpactRow{
		Marker:           marker,
		Unit:             points[len(points)-1].Unit,
		LagDays:          lag,
		NBefore:          len(pre.points),
		NAfter:           len(post.points),
		PreWindowEmpty:   pre.windowEmpty,
		PostWindowEmpty:  post.windowEmpty,
		UsedPreFallback:  pre.fallback,
		UsedPostFallback: post.fallback,
		InsufficientData: len(pre.points) == 0 || len(post.points) == 0,
		ClinicalWeight:   d.catalog.ClinicalWeight(marker),
		Confounders:      []string{},
	}

	preStats := brief.Summarize(pre.values())
	postStats := brief.Summarize(post.values())
	if preStats.N > 0 {
		row.BeforeAvg = floatPtr(preStats.Mean)
		row.BeforeStdDev = floatPtr(preStats.StdDev)
	}
	if postStats.N > 0 {
		row.AfterAvg = floatPtr(postStats.Mean)
		row.AfterStdDev = floatPtr(postStats.StdDev)
	}

	var delta float64
	if !row.InsufficientData {
		delta = postStats.Mean - preStats.Mean
		row.DeltaAbs = floatPtr(delta)
		if math.Abs(preStats.Mean) > 1e-9 {
			row.DeltaPct = floatPtr(delta / preStats.Mean * 100)
		}
	}

	row.ConsistencyScore = consistency(row, post.values(), preStats.Mean, delta)
	row.SampleScore = sampleScore(row.NBefore, row.NAfter)
	effect := 0.0
	if row.DeltaPct != nil {
		effect = math.Min(math.Abs(*row.DeltaPct), effectCapPct) / effectCapPct * 100
	}
	row.EffectScore = round(effect)

	clarity := effect
	if !row.InsufficientData {
		noise := preStats.StdDev + postStats.StdDev
		if noise > 1e-9 {
			snr := math.Abs(delta) / noise
			row.SignalToNoise = floatPtr(snr)
			switch {
			case snr < lowSignalToNoise:
				clarity -= 20
			case snr < mediumSignalToNoise:
				clarity -= 10
			}
		}
	}
	row.EffectClarityScore = round(math.Max(clarity, 0))
	row.ImpactScore = round(0.55*effect + 0.45*float64(row.ClinicalWeight))

	if !row.InsufficientData && pre.timing() != post.timing() {
		row.ConfounderPenalty += timingPenalty
		row.Confounders = append(row.Confounders, "sampling_timing")
	}
	if c.supplementChanged {
		row.ConfounderPenalty += supplementPenalty
		row.Confounders = append(row.Confounders, "supplements")
	}
	if c.symptomChanged {
		row.ConfounderPenalty += symptomPenalty
		row.Confounders = append(row.Confounders, "symptoms")
	}

	confidence := 0.35*float64(row.SampleScore) +
		0.25*float64(row.ConsistencyScore) +
		0.20*float64(c.triggerStrength) +
		0.20*float64(row.EffectClarityScore) -
		float64(row.ConfounderPenalty)
	confidence = brief.Clip(confidence, 0, 100)
	if pre.windowEmpty || post.windowEmpty {
		confidence = math.Min(confidence, emptyWindowCap)
	}
	row.ConfidenceScore = round(confidence)
	row.ConfidenceLabel = insight.LabelForScore(row.ConfidenceScore)
	row.SignalStatus = signalStatus(row)

	row.Readiness = readiness(pre.windowEmpty, post.windowEmpty)
	if post.windowEmpty {
		retest := core.AddDays(c.date, lag+retestBufferDays)
		row.RecommendedRetest = &retest
	}

	row.Narrative = narrative.Row(lang, row)
	return row, true
}

// consistency is the share of post points on the same side of the pre
// average as the overall delta, 50 when that is ambiguous
func consistency(row insight.MarkerImpactRow, post []float64, preMean, delta float64) int {
	if row.InsufficientData || math.Abs(delta) < 1e-9 || len(post) == 0 {
		return 50
	}
	sign := math.Copysign(1, delta)
	matching := 0
	for _, v := range post {
		dev := v - preMean
		if math.Abs(dev) > 1e-9 && math.Copysign(1, dev) == sign {
			matching++
		}
	}
	return round(float64(matching) / float64(len(post)) * 100)
}

func sampleScore(nBefore, nAfter int) int {
	paired := math.Min(float64(minInt(nBefore, nAfter)), 3) / 3 * 100
	total := math.Min(float64(nBefore+nAfter), 8) / 8 * 100
	return round(0.7*paired + 0.3*total)
}

func signalStatus(row insight.MarkerImpactRow) insight.SignalStatus {
	switch {
	case row.InsufficientData, row.PreWindowEmpty, row.PostWindowEmpty:
		return insight.SignalEarly
	case row.ConfidenceScore >= 75 && row.NBefore >= 2 && row.NAfter >= 2 && row.ConfounderPenalty <= 10:
		return insight.SignalEstablished
	case row.ConfidenceScore >= 50 && row.NBefore >= 1 && row.NAfter >= 1:
		return insight.SignalBuilding
	default:
		return insight.SignalEarly
	}
}

func readiness(preEmpty, postEmpty bool) insight.Readiness {
	switch {
	case preEmpty && postEmpty:
		return insight.ReadinessWaitingBoth
	case preEmpty:
		return insight.ReadinessWaitingPre
	case postEmpty:
		return insight.ReadinessWaitingPost
	default:
		return insight.ReadinessReady
	}
}

func round(v float64) int {
	if !brief.IsFinite(v) {
		return 0
	}
	return int(math.Round(v))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func floatPtr(v float64) *float64 {
	return &v
}
