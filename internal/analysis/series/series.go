package series

import (
	"math"
	"sort"

	"labsignal/domain/insight"
	"labsignal/domain/lab"
	"labsignal/internal/analysis/brief"
	"labsignal/internal/markers"
	"labsignal/internal/protocol"
)

const (
	trendWindow       = 6
	volatileCV        = 0.2
	relativeSlopeBand = 0.03
)

// Builder turns reports into per-marker series
type Builder struct {
	catalog  *markers.Catalog
	resolver *protocol.Resolver
}

// NewBuilder creates a series builder
func NewBuilder(catalog *markers.Catalog, resolver *protocol.Resolver) *Builder {
	return &Builder{catalog: catalog, resolver: resolver}
}

// SortReports returns the reports ordered by test date, then creation time,
// then id
func SortReports(reports []lab.LabReport) []lab.LabReport {
	out := append([]lab.LabReport(nil), reports...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.TestDate.Equal(b.TestDate) {
			return a.TestDate.Before(b.TestDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// Build returns one converted point per report holding the marker, sorted
// chronologically. Reports without the marker, values that do not convert
// to a finite number and, for catalog markers, values in a unit the catalog
// cannot convert are dropped. Each point carries the context
// the resolver assigns across the whole history, so unannotated draws
// inherit the protocol before them.
func (b *Builder) Build(reports []lab.LabReport, marker string, system lab.UnitSystem) []insight.MarkerSeriesPoint {
	points := make([]insight.MarkerSeriesPoint, 0, len(reports))
	sorted := SortReports(reports)
	contexts := b.resolver.Contexts(sorted)
	want := b.catalog.UnitFor(marker, system)
	for i, report := range sorted {
		mv, ok := b.catalog.BestValue(report, marker)
		if !ok {
			continue
		}
		value, unit := b.catalog.Convert(marker, mv.Value, mv.Unit, system)
		if !brief.IsFinite(value) || (want != "" && unit != want) {
			continue
		}
		points = append(points, insight.MarkerSeriesPoint{
			ReportID:     report.ID,
			Date:         report.TestDate,
			CreatedAt:    report.CreatedAt,
			Value:        value,
			Unit:         unit,
			ReferenceMin: b.catalog.ConvertBound(marker, mv.ReferenceMin, mv.Unit, system),
			ReferenceMax: b.catalog.ConvertBound(marker, mv.ReferenceMax, mv.Unit, system),
			Abnormal:     flagOf(mv),
			IsCalculated: mv.IsCalculated,
			Context:      contexts[i],
		})
	}
	return points
}

// Markers lists the canonical markers present in any report, sorted
func (b *Builder) Markers(reports []lab.LabReport) []string {
	seen := make(map[string]bool)
	for _, r := range reports {
		for _, m := range r.Markers {
			name := m.Name
			if name == "" {
				name = b.catalog.Canonicalize(m.RawName)
			}
			if name != "" {
				seen[name] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Prepare canonicalizes marker names and appends calculated markers
func (b *Builder) Prepare(reports []lab.LabReport) []lab.LabReport {
	out := make([]lab.LabReport, len(reports))
	for i, r := range reports {
		out[i] = b.catalog.Derive(b.catalog.Canonical(r))
	}
	return out
}

// ClassifyTrend classifies the last six points of a series
func ClassifyTrend(marker string, points []insight.MarkerSeriesPoint) insight.MarkerTrend {
	trend := insight.MarkerTrend{Marker: marker, Direction: insight.TrendStable}
	if len(points) > trendWindow {
		points = points[len(points)-trendWindow:]
	}
	trend.Points = len(points)
	if len(points) == 0 {
		return trend
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(i)
		ys[i] = p.Value
	}
	summary := brief.Summarize(ys)
	trend.Mean = summary.Mean
	trend.StdDev = summary.StdDev
	trend.CoefficientOfVariation = summary.CV
	if len(points) < 2 {
		return trend
	}

	if fit, ok := brief.OLS(xs, ys); ok {
		trend.Slope = fit.Slope
	}

	switch {
	case len(points) >= 4 && summary.CV > volatileCV:
		trend.Direction = insight.TrendVolatile
	case math.Abs(summary.Mean) < 1e-9:
		trend.Direction = insight.TrendStable
	case trend.Slope/math.Abs(summary.Mean) > relativeSlopeBand:
		trend.Direction = insight.TrendRising
	case trend.Slope/math.Abs(summary.Mean) < -relativeSlopeBand:
		trend.Direction = insight.TrendFalling
	}
	return trend
}

func flagOf(mv lab.MarkerValue) lab.AbnormalFlag {
	if mv.Abnormal == "" {
		return lab.FlagUnknown
	}
	return mv.Abnormal
}
