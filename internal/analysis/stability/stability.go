package stability

import (
	"math"

	"labsignal/domain/core"
	"labsignal/domain/insight"
	"labsignal/domain/lab"
	"labsignal/internal/analysis/brief"
	"labsignal/internal/analysis/narrative"
	"labsignal/internal/analysis/series"
	"labsignal/internal/markers"
	"labsignal/internal/protocol"
)

// SteadyStateDays is how long a protocol must run before levels are read as
// settled
const SteadyStateDays = 42

const (
	notSteadyPenalty = 30
	volatilePenalty  = 15
	outOfZonePenalty = 10
	hctRisingPenalty = 10
	stableScore      = 75
	settlingScore    = 50
	doseTolerance    = 1.0
	freqTolerance    = 0.25
)

var keyMarkers = []string{markers.Testosterone, markers.Estradiol, markers.Hematocrit, markers.SHBG}

// Options tune a stability assessment
type Options struct {
	System   lab.UnitSystem
	Language string
}

// Assessor grades how settled the current protocol is
type Assessor struct {
	catalog  *markers.Catalog
	resolver *protocol.Resolver
	builder  *series.Builder
}

// NewAssessor creates a stability assessor
func NewAssessor(catalog *markers.Catalog, resolver *protocol.Resolver) *Assessor {
	return &Assessor{
		catalog:  catalog,
		resolver: resolver,
		builder:  series.NewBuilder(catalog, resolver),
	}
}

// Assess looks at the trailing run of reports taken under the same protocol
// as the latest report
func (a *Assessor) Assess(reports []lab.LabReport, opts Options) insight.TrtStabilityResult {
	res := insight.TrtStabilityResult{
		Label:   insight.StabilityInsufficient,
		Markers: []insight.StabilityMarker{},
		Reasons: []string{},
		Context: lab.ProtocolContext{Source: lab.ContextNone, Compounds: []string{}, Supplements: []string{}},
	}
	sorted := series.SortReports(reports)
	if len(sorted) == 0 {
		res.Reasons = narrative.Stability(opts.Language, []narrative.StabilityReason{narrative.NoProtocol()})
		return res
	}

	contexts := a.resolver.Contexts(sorted)
	current := contexts[len(contexts)-1]
	res.Context = current
	if !current.HasSignal() {
		res.Reasons = narrative.Stability(opts.Language, []narrative.StabilityReason{narrative.NoProtocol()})
		return res
	}

	start := len(sorted) - 1
	for start > 0 && sameProtocol(contexts[start-1], current) {
		start--
	}
	run := sorted[start:]
	latest := run[len(run)-1]

	began := core.DayStart(run[0].TestDate)
	if p, ok := a.resolver.Protocol(current.ProtocolID); ok && p.StartedAt != nil && p.StartedAt.Before(began) {
		began = core.DayStart(*p.StartedAt)
	}
	res.DaysOnProtocol = core.DaysBetween(began, latest.TestDate)
	res.ReportsOnProtocol = len(run)
	res.SteadyState = res.DaysOnProtocol >= SteadyStateDays

	var reasons []narrative.StabilityReason
	score := 100
	if res.SteadyState {
		reasons = append(reasons, narrative.Steady(res.DaysOnProtocol))
	} else {
		score -= notSteadyPenalty
		reasons = append(reasons, narrative.NotSteady(res.DaysOnProtocol))
	}

	for _, m := range a.markerList() {
		points := a.builder.Build(run, m, opts.System)
		if len(points) == 0 {
			continue
		}
		sm := a.markerState(m, points, opts.System)
		res.Markers = append(res.Markers, sm)

		if sm.Direction == insight.TrendVolatile {
			score -= volatilePenalty
			reasons = append(reasons, narrative.Volatile(m))
		}
		if sm.InZone != nil && !*sm.InZone {
			score -= outOfZonePenalty
			reasons = append(reasons, narrative.OutOfZone(m))
		}
		if m == markers.Hematocrit && sm.Direction == insight.TrendRising {
			score -= hctRisingPenalty
			reasons = append(reasons, narrative.HematocritRising())
		}
	}

	res.Score = int(brief.Clip(float64(score), 0, 100))
	switch {
	case res.ReportsOnProtocol < 2:
		res.Label = insight.StabilityInsufficient
		reasons = append(reasons, narrative.FewReports())
	case res.Score >= stableScore:
		res.Label = insight.StabilityStable
	case res.Score >= settlingScore:
		res.Label = insight.StabilitySettling
	default:
		res.Label = insight.StabilityUnstable
	}
	res.Reasons = narrative.Stability(opts.Language, reasons)
	return res
}

func (a *Assessor) markerState(m string, points []insight.MarkerSeriesPoint, system lab.UnitSystem) insight.StabilityMarker {
	last := points[len(points)-1]
	sm := insight.StabilityMarker{
		Marker:    m,
		Unit:      last.Unit,
		Latest:    last.Value,
		Direction: series.ClassifyTrend(m, points).Direction,
	}
	if zone, unit, ok := a.catalog.TargetZone(m, system); ok && unit == last.Unit {
		lo, hi := zone.Min, zone.Max
		in := last.Value >= lo && last.Value <= hi
		sm.ZoneMin, sm.ZoneMax, sm.InZone = &lo, &hi, &in
	}
	return sm
}

// markerList is the key markers followed by any other zoned marker
func (a *Assessor) markerList() []string {
	out := append([]string{}, keyMarkers...)
	seen := make(map[string]bool, len(out))
	for _, m := range out {
		seen[m] = true
	}
	for _, m := range a.catalog.ZoneMarkers() {
		if !seen[m] {
			out = append(out, m)
		}
	}
	return out
}

func sameProtocol(a, b lab.ProtocolContext) bool {
	return math.Abs(a.Dose()-b.Dose()) < doseTolerance &&
		math.Abs(a.Frequency()-b.Frequency()) < freqTolerance &&
		protocol.SameSet(a.Compounds, b.Compounds)
}
