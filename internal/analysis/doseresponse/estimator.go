package doseresponse

import (
	"math"
	"sort"
	"strings"
	"time"

	"labsignal/domain/core"
	"labsignal/domain/insight"
	"labsignal/domain/lab"
	"labsignal/internal/analysis/brief"
	"labsignal/internal/analysis/narrative"
	"labsignal/internal/markers"
)

// DefaultSuggestedOffset is how far from the current weekly dose the
// suggested scenario sits when no policy is configured
const DefaultSuggestedOffset = -20.0

const (
	minSuggestedDose  = 40.0
	doseMargin        = 20.0
	minSamples        = 4
	minTroughSamples  = 3
	eligibleR         = 0.35
	weakR             = 0.2
	highR             = 0.6
	highSamples       = 6
	minRelativeEffect = 0.03
	sigmaFloorPct     = 0.02
	sigmaFloor        = 0.1
)

// Excluded point reasons
const (
	ExcludedUnit    = "unit_mismatch"
	ExcludedTiming  = "not_trough"
	ExcludedOutlier = "mad_outlier"
)

var scenarioDoses = []float64{80, 100, 120, 140, 160, 180}

// Options tune a prediction
type Options struct {
	System              lab.UnitSystem
	CurrentDose         *float64
	SuggestedDoseOffset *float64
	Priors              []lab.DosePrior
	Language            string
}

func (o Options) offset() float64 {
	if o.SuggestedDoseOffset == nil || !brief.IsFinite(*o.SuggestedDoseOffset) {
		return DefaultSuggestedOffset
	}
	return *o.SuggestedDoseOffset
}

// Estimator fits personal dose-response models
type Estimator struct {
	catalog *markers.Catalog
}

// NewEstimator creates an estimator over the given marker catalog
func NewEstimator(catalog *markers.Catalog) *Estimator {
	return &Estimator{catalog: catalog}
}

type sample struct {
	reportID core.ReportID
	date     time.Time
	dose     float64
	value    float64
	unit     string
	timing   lab.SamplingTiming
}

// fitState carries everything derived from the working sample set
type fitState struct {
	samples     []sample
	xs, ys      []float64
	levels      int
	troughOnly  bool
	fit         brief.Fit
	fitted      bool
	model       insight.ModelType
	substituted bool
	r           float64
	rOK         bool
	conflict    bool
}

// Predict models one marker from its series. ok is false when no point of
// the series carries a weekly dose.
func (e *Estimator) Predict(marker string, points []insight.MarkerSeriesPoint, opts Options) (insight.DosePrediction, bool) {
	all := gather(points)
	if len(all) == 0 {
		return insight.DosePrediction{}, false
	}
	lang := narrative.Normalize(opts.Language)

	unit := selectUnit(all)
	var same []sample
	pred := insight.DosePrediction{
		Marker:         marker,
		Unit:           unit,
		UnitSystem:     opts.System,
		ModelType:      insight.ModelLinear,
		Source:         insight.SourcePersonal,
		Confidence:     insight.ConfidenceLow,
		Scenarios:      []insight.DoseScenario{},
		Excluded:       []insight.ExcludedPoint{},
		Warnings:       []string{},
		ClinicalWeight: e.catalog.ClinicalWeight(marker),
	}
	for _, s := range all {
		if s.unit == unit {
			same = append(same, s)
		} else {
			pred.Excluded = append(pred.Excluded, excluded(s, ExcludedUnit))
		}
	}
	if n := len(all) - len(same); n > 0 {
		pred.Warnings = append(pred.Warnings, narrative.Reason(lang, narrative.WarningUnitMismatch, n))
	}

	latest := same[len(same)-1]
	current := latest.dose
	if opts.CurrentDose != nil && brief.IsFinite(*opts.CurrentDose) {
		current = *opts.CurrentDose
	}
	minDose, maxDose := doseRange(same)
	suggested := suggestDose(current, opts.offset(), minDose, maxDose)
	pred.CurrentDose = floatPtr(current)
	pred.SuggestedDose = floatPtr(suggested)

	prior, priorDose, hasPrior := e.prior(marker, unit, opts)
	if hasPrior {
		pred.Citations = append([]string{}, priorDose.Citations...)
		if priorDose.DoseRange.Max > priorDose.DoseRange.Min &&
			(suggested < priorDose.DoseRange.Min || suggested > priorDose.DoseRange.Max) {
			pred.Warnings = append(pred.Warnings, narrative.Reason(lang, narrative.WarningPriorRange))
		}
	} else if priorDose.Marker != "" {
		pred.Warnings = append(pred.Warnings, narrative.Reason(lang, narrative.WarningPriorUnit))
	}

	pred.SampleCount = len(same)
	pred.DoseLevels = brief.DistinctCount(doses(same))
	if len(same) < 2 || pred.DoseLevels < 2 {
		if hasPrior {
			e.priorOnly(&pred, prior, latest, current, suggested, minDose, maxDose, lang)
		} else {
			e.flat(&pred, latest, lang)
		}
		return pred, true
	}

	st := e.fitSamples(marker, same, &pred, lang)
	e.personal(&pred, st, prior, hasPrior, current, suggested, lang)
	return pred, true
}

// fitSamples chooses the working set, rejects outliers and fits both models
func (e *Estimator) fitSamples(marker string, same []sample, pred *insight.DosePrediction, lang string) fitState {
	st := fitState{samples: same}

	var troughs []sample
	for _, s := range same {
		if s.timing == lab.TimingTrough {
			troughs = append(troughs, s)
		}
	}
	if len(troughs) >= minTroughSamples && brief.DistinctCount(doses(troughs)) >= 2 {
		st.troughOnly = true
		st.samples = troughs
		for _, s := range same {
			if s.timing != lab.TimingTrough {
				pred.Excluded = append(pred.Excluded, excluded(s, ExcludedTiming))
			}
		}
	} else {
		pred.Warnings = append(pred.Warnings, narrative.Reason(lang, narrative.WarningSamplingMixed))
	}

	if flags, ok := brief.MADOutliers(values(st.samples)); ok {
		var kept, dropped []sample
		for i, s := range st.samples {
			if flags[i] {
				dropped = append(dropped, s)
			} else {
				kept = append(kept, s)
			}
		}
		if len(dropped) > 0 && len(kept) >= 3 && brief.DistinctCount(doses(kept)) >= 2 {
			st.samples = kept
			for _, s := range dropped {
				pred.Excluded = append(pred.Excluded, excluded(s, ExcludedOutlier))
			}
			pred.Warnings = append(pred.Warnings, narrative.Reason(lang, narrative.WarningOutliers, len(dropped)))
		}
	}

	st.xs, st.ys = doses(st.samples), values(st.samples)
	st.levels = brief.DistinctCount(st.xs)

	ols, olsOK := brief.OLS(st.xs, st.ys)
	ts, tsOK := brief.TheilSen(st.xs, st.ys)
	switch {
	case olsOK && tsOK && ols.Slope*ts.Slope < 0:
		st.fit, st.model, st.substituted = ts, insight.ModelTheilSen, true
	case olsOK:
		st.fit, st.model = ols, insight.ModelLinear
	case tsOK:
		st.fit, st.model = ts, insight.ModelTheilSen
	}
	st.fitted = olsOK || tsOK
	st.r, st.rOK = brief.Pearson(st.xs, st.ys)
	st.conflict = st.fitted && e.catalog.ExpectedPositive(marker) && st.fit.Slope < 0
	sort.SliceStable(pred.Excluded, func(i, j int) bool {
		return pred.Excluded[i].Date.Before(pred.Excluded[j].Date)
	})
	return st
}

// personal fills a prediction from a fitted working set, blending in the
// study slope when personal data alone is not convincing
func (e *Estimator) personal(pred *insight.DosePrediction, st fitState, prior Slope, hasPrior bool, current, suggested float64, lang string) {
	n := len(st.samples)
	pred.SampleCount = n
	pred.DoseLevels = st.levels
	pred.TroughOnly = st.troughOnly
	pred.ModelType = st.model

	status, reasons := classify(st, n)
	if st.substituted {
		reasons = append(reasons, narrative.ReasonTheilSen)
	}
	pred.Status = status
	pred.Confidence = confidenceFor(n, st.r, st.rOK)

	fit := st.fit
	if st.rOK {
		pred.Correlation = floatPtr(st.r)
		pred.PValue = floatPtr(brief.CorrelationPValue(st.r, n))
	}
	slopeSE, seOK := brief.SlopeStdErr(fit, st.xs, st.ys)
	if seOK {
		pred.SlopeStdErr = floatPtr(slopeSE)
	}

	residualSigma := residualSigmaFor(fit, st, current)
	sigma := residualSigma

	eligible := n >= minSamples && st.levels >= 2 && st.rOK && math.Abs(st.r) >= eligibleR && !st.conflict
	if !eligible && hasPrior && st.fitted {
		w := PersonalWeight(n, st.r)
		blend := Blend(Slope{Value: fit.Slope, Sigma: slopeSE}, prior, w, residualSigma, suggested-current)
		meanX := brief.Summarize(st.xs).Mean
		meanY := brief.Summarize(st.ys).Mean
		fit = brief.Fit{Slope: blend.Slope, Intercept: meanY - blend.Slope*meanX}
		sigma = blend.Sigma
		pred.ModelType = insight.ModelHybrid
		pred.Source = insight.SourceHybrid
		pred.PersonalWeight = floatPtr(blend.Weight)
		reasons = append(reasons, narrative.ReasonBlended)
	} else {
		pred.PersonalWeight = floatPtr(1)
	}
	pred.StatusReason = joinReasons(lang, reasons)

	if st.fitted {
		pred.Slope = floatPtr(fit.Slope)
		pred.Intercept = floatPtr(fit.Intercept)
	}
	pred.ResidualSigma = floatPtr(residualSigma)
	e.project(pred, fit, sigma, current, suggested, st.xs, lang)
	e.score(pred, n, st.levels, st.r, st.troughOnly)
}

// flat is the insufficient prediction carrying the latest value unchanged
func (e *Estimator) flat(pred *insight.DosePrediction, latest sample, lang string) {
	pred.Status = insight.StatusInsufficient
	reason := narrative.ReasonFewLevels
	if pred.SampleCount < 2 {
		reason = narrative.ReasonFewSamples
	}
	pred.StatusReason = joinReasons(lang, []string{reason})
	pred.CurrentEstimate = floatPtr(math.Max(latest.value, 0))
	pred.SuggestedEstimate = floatPtr(math.Max(latest.value, 0))
	e.score(pred, pred.SampleCount, pred.DoseLevels, 0, false)
	pred.Summary = summary(lang, pred)
}

// priorOnly anchors the study slope at the latest observed point
func (e *Estimator) priorOnly(pred *insight.DosePrediction, prior Slope, latest sample, current, suggested, minDose, maxDose float64, lang string) {
	pred.Status = insight.StatusUnclear
	pred.StatusReason = joinReasons(lang, []string{narrative.ReasonPriorOnly})
	pred.ModelType = insight.ModelPrior
	pred.Source = insight.SourceStudyPrior
	pred.Confidence = insight.ConfidenceLow
	pred.PersonalWeight = floatPtr(0)

	fit := brief.Fit{Slope: prior.Value, Intercept: latest.value - prior.Value*latest.dose}
	pred.Slope = floatPtr(fit.Slope)
	pred.Intercept = floatPtr(fit.Intercept)

	residualSigma := math.Max(sigmaFloorPct*math.Abs(latest.value), sigmaFloor)
	pred.ResidualSigma = floatPtr(residualSigma)
	sigma := Blend(Slope{}, prior, Weights{}, residualSigma, suggested-current).Sigma
	e.project(pred, fit, sigma, current, suggested, []float64{minDose, maxDose}, lang)
	e.score(pred, pred.SampleCount, pred.DoseLevels, 0, false)
}

// project computes estimates, bounds and the scenario table
func (e *Estimator) project(pred *insight.DosePrediction, fit brief.Fit, sigma, current, suggested float64, observedDoses []float64, lang string) {
	isClear := pred.Status == insight.StatusClear
	cur := estimate(fit, current)
	sug := estimate(fit, suggested)
	if !isClear {
		sug = cur
		if pred.Status == insight.StatusUnclear {
			pred.Warnings = append(pred.Warnings, narrative.Reason(lang, narrative.WarningSuggestedNotFit))
		}
	}
	pred.CurrentEstimate = floatPtr(cur)
	pred.SuggestedEstimate = floatPtr(sug)
	if isClear {
		pred.SuggestedLower = floatPtr(math.Max(sug-sigma, 0))
		pred.SuggestedUpper = floatPtr(sug + sigma)
	}

	if pred.Status != insight.StatusInsufficient {
		lo, hi := minMax(observedDoses)
		lo, hi = lo-doseMargin, hi+doseMargin
		suggestedListed := false
		for _, d := range scenarioDoses {
			if d < lo || d > hi {
				continue
			}
			sc := insight.DoseScenario{DoseMgPerWeek: d, Estimate: estimate(fit, d)}
			if math.Abs(d-suggested) < 1e-9 {
				sc.IsSuggested = true
				sc.Estimate = sug
				suggestedListed = true
			}
			pred.Scenarios = append(pred.Scenarios, withBounds(sc, sigma, isClear))
		}
		if !suggestedListed {
			sc := insight.DoseScenario{DoseMgPerWeek: suggested, Estimate: sug, IsSuggested: true}
			pred.Scenarios = append(pred.Scenarios, withBounds(sc, sigma, isClear))
		}
		sort.SliceStable(pred.Scenarios, func(i, j int) bool {
			return pred.Scenarios[i].DoseMgPerWeek < pred.Scenarios[j].DoseMgPerWeek
		})
	}
	pred.Summary = summary(lang, pred)
}

func withBounds(sc insight.DoseScenario, sigma float64, bounded bool) insight.DoseScenario {
	if bounded {
		sc.Lower = floatPtr(math.Max(sc.Estimate-sigma, 0))
		sc.Upper = floatPtr(sc.Estimate + sigma)
	}
	return sc
}

func classify(st fitState, n int) (insight.RelationshipStatus, []string) {
	switch {
	case n < minSamples:
		return insight.StatusInsufficient, []string{narrative.ReasonFewSamples}
	case st.levels < 2:
		return insight.StatusInsufficient, []string{narrative.ReasonFewLevels}
	case !st.rOK || !st.fitted:
		return insight.StatusInsufficient, []string{narrative.ReasonNoCorrelation}
	case st.conflict:
		return insight.StatusUnclear, []string{narrative.ReasonDirection}
	case math.Abs(st.r) < weakR:
		return insight.StatusUnclear, []string{narrative.ReasonWeakCorrelation}
	case relativeEffect(st) < minRelativeEffect:
		return insight.StatusUnclear, []string{narrative.ReasonSmallEffect}
	}
	return insight.StatusClear, []string{narrative.ReasonConsistent}
}

// relativeEffect is the modelled change across the observed dose span as a
// share of the mean value
func relativeEffect(st fitState) float64 {
	lo, hi := minMax(st.xs)
	mean := brief.Summarize(st.ys).Mean
	if math.Abs(mean) < 1e-9 {
		return 0
	}
	return math.Abs(st.fit.Slope*(hi-lo)) / math.Abs(mean)
}

func confidenceFor(n int, r float64, ok bool) insight.ConfidenceLabel {
	a := math.Abs(r)
	switch {
	case !ok:
		return insight.ConfidenceLow
	case n >= highSamples && a >= highR:
		return insight.ConfidenceHigh
	case n >= minSamples && a >= eligibleR:
		return insight.ConfidenceMedium
	}
	return insight.ConfidenceLow
}

func residualSigmaFor(fit brief.Fit, st fitState, current float64) float64 {
	sd := 0.0
	if st.fitted {
		sd = brief.Summarize(brief.Residuals(fit, st.xs, st.ys)).StdDev
	}
	return math.Max(math.Max(sd, sigmaFloorPct*math.Abs(estimate(fit, current))), sigmaFloor)
}

func suggestDose(current, offset, minDose, maxDose float64) float64 {
	lo := math.Max(minSuggestedDose, minDose-doseMargin)
	hi := maxDose + doseMargin
	s := current + offset
	if s > hi {
		s = hi
	}
	if s < lo {
		s = lo
	}
	return s
}

// prior finds the study slope for a marker and expresses it in the unit of
// the working samples. The returned DosePrior is set whenever one matched,
// even if it could not be converted.
func (e *Estimator) prior(marker, unit string, opts Options) (Slope, lab.DosePrior, bool) {
	var match lab.DosePrior
	found := false
	for _, p := range opts.Priors {
		name := e.catalog.Canonicalize(p.Marker)
		if name == "" {
			name = strings.TrimSpace(p.Marker)
		}
		if name != marker || !brief.IsFinite(p.SlopePerMg) || !brief.IsFinite(p.Sigma) {
			continue
		}
		if !found || p.UnitSystem == opts.System {
			match, found = p, true
		}
	}
	if !found {
		return Slope{}, lab.DosePrior{}, false
	}

	to, ok := e.catalog.SystemOf(marker, unit)
	if !ok {
		if e.catalog.UnitFor(marker, opts.System) != "" || match.UnitSystem != opts.System {
			return Slope{}, match, false
		}
		to = opts.System
	}
	f := e.catalog.SlopeFactor(marker, match.UnitSystem, to)
	return Slope{Value: match.SlopePerMg * f, Sigma: math.Abs(match.Sigma * f)}, match, true
}

// score sets data quality, effect potential and relevance
func (e *Estimator) score(pred *insight.DosePrediction, n, levels int, r float64, troughOnly bool) {
	timing := 0.5
	if troughOnly {
		timing = 1
	}
	quality := 35*brief.Clip(float64(n)/8, 0, 1) +
		25*brief.Clip(float64(levels)/4, 0, 1) +
		25*brief.Clip(math.Abs(r), 0, 1) +
		15*timing
	switch pred.Source {
	case insight.SourceStudyPrior:
		quality *= 0.42
	case insight.SourceHybrid:
		quality *= 0.72
	}

	potential := 0.0
	if pred.Slope != nil && pred.CurrentEstimate != nil && math.Abs(*pred.CurrentEstimate) > 1e-9 {
		step := math.Abs(-DefaultSuggestedOffset)
		if pred.CurrentDose != nil && pred.SuggestedDose != nil && math.Abs(*pred.SuggestedDose-*pred.CurrentDose) > 1e-9 {
			step = math.Abs(*pred.SuggestedDose - *pred.CurrentDose)
		}
		rel := math.Abs(*pred.Slope*step) / math.Abs(*pred.CurrentEstimate)
		potential = brief.Clip(rel/0.10, 0, 1) * 100
	}

	pred.DataQualityScore = roundScore(quality)
	pred.EffectPotentialScore = roundScore(potential)
	pred.RelevanceScore = roundScore(0.45*float64(pred.ClinicalWeight) +
		0.35*float64(pred.DataQualityScore) +
		0.20*float64(pred.EffectPotentialScore))
}

// SortPredictions orders predictions by relevance, then marker
func SortPredictions(preds []insight.DosePrediction) {
	sort.SliceStable(preds, func(i, j int) bool {
		if preds[i].RelevanceScore != preds[j].RelevanceScore {
			return preds[i].RelevanceScore > preds[j].RelevanceScore
		}
		return preds[i].Marker < preds[j].Marker
	})
}

func summary(lang string, pred *insight.DosePrediction) string {
	f := narrative.PredictionFacts{
		Marker: pred.Marker,
		Unit:   pred.Unit,
		Status: pred.Status,
		Source: pred.Source,
		Reason: pred.StatusReason,
	}
	if pred.SuggestedDose != nil {
		f.SuggestedDose = *pred.SuggestedDose
	}
	if pred.CurrentEstimate != nil {
		f.CurrentEstimate = *pred.CurrentEstimate
	}
	if pred.SuggestedEstimate != nil {
		f.SuggestedEstimate = *pred.SuggestedEstimate
	}
	return narrative.Prediction(lang, f)
}

func joinReasons(lang string, keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = narrative.Reason(lang, k)
	}
	return strings.Join(parts, "; ")
}

func gather(points []insight.MarkerSeriesPoint) []sample {
	var out []sample
	for _, p := range points {
		if p.Context.DoseMgPerWeek == nil || !brief.IsFinite(*p.Context.DoseMgPerWeek) || !brief.IsFinite(p.Value) {
			continue
		}
		timing := p.Context.SamplingTiming
		if timing == "" {
			timing = lab.TimingUnknown
		}
		out = append(out, sample{
			reportID: p.ReportID,
			date:     p.Date,
			dose:     *p.Context.DoseMgPerWeek,
			value:    p.Value,
			unit:     p.Unit,
			timing:   timing,
		})
	}
	return out
}

// selectUnit returns the most frequent unit, ties going to the unit of the
// most recent sample
func selectUnit(samples []sample) string {
	counts := make(map[string]int)
	for _, s := range samples {
		counts[s.unit]++
	}
	units := make([]string, 0, len(counts))
	for u := range counts {
		units = append(units, u)
	}
	sort.Strings(units)

	best := samples[len(samples)-1].unit
	for _, u := range units {
		if counts[u] > counts[best] {
			best = u
		}
	}
	return best
}

func excluded(s sample, reason string) insight.ExcludedPoint {
	return insight.ExcludedPoint{
		ReportID: s.reportID,
		Date:     s.date,
		Dose:     s.dose,
		Value:    s.value,
		Unit:     s.unit,
		Reason:   reason,
	}
}

func estimate(fit brief.Fit, dose float64) float64 {
	v := fit.At(dose)
	if !brief.IsFinite(v) {
		return 0
	}
	return math.Max(v, 0)
}

func doses(samples []sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.dose
	}
	return out
}

func values(samples []sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.value
	}
	return out
}

func doseRange(samples []sample) (float64, float64) {
	return minMax(doses(samples))
}

func minMax(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

func roundScore(v float64) int {
	if !brief.IsFinite(v) {
		return 0
	}
	return int(math.Round(brief.Clip(v, 0, 100)))
}

func floatPtr(v float64) *float64 {
	return &v
}
