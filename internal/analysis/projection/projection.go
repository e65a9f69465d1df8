package projection

import (
	"math"
	"sort"

	"labsignal/domain/core"
	"labsignal/domain/insight"
	"labsignal/domain/lab"
	"labsignal/internal/analysis/brief"
	"labsignal/internal/markers"
)

// MaxHorizonDays bounds how far ahead a crossing may be projected
const MaxHorizonDays = 730

// Projector extrapolates marker trends toward clinical thresholds
type Projector struct {
	catalog *markers.Catalog
}

// NewProjector creates a projector using the catalog's threshold table
func NewProjector(catalog *markers.Catalog) *Projector {
	return &Projector{catalog: catalog}
}

// Markers lists the markers that have at least one threshold
func (p *Projector) Markers(system lab.UnitSystem) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range p.catalog.Thresholds(system) {
		if !seen[t.Marker] {
			seen[t.Marker] = true
			out = append(out, t.Marker)
		}
	}
	sort.Strings(out)
	return out
}

// Project returns the nearest projected threshold crossing for one marker's
// chronological series
func (p *Projector) Project(marker string, points []insight.MarkerSeriesPoint, system lab.UnitSystem) (insight.PredictiveAlert, bool) {
	var thresholds []markers.Threshold
	for _, t := range p.catalog.Thresholds(system) {
		if t.Marker == marker {
			thresholds = append(thresholds, t)
		}
	}
	if len(thresholds) == 0 {
		return insight.PredictiveAlert{}, false
	}

	unit := p.catalog.UnitFor(marker, system)
	var usable []insight.MarkerSeriesPoint
	for _, pt := range points {
		if unit == "" || pt.Unit == unit {
			usable = append(usable, pt)
		}
	}
	if len(usable) < 2 {
		return insight.PredictiveAlert{}, false
	}

	first := usable[0].Date
	xs := make([]float64, len(usable))
	ys := make([]float64, len(usable))
	for i, pt := range usable {
		xs[i] = float64(core.DaysBetween(first, pt.Date))
		ys[i] = pt.Value
	}
	fit, ok := brief.OLS(xs, ys)
	if !ok || math.Abs(fit.Slope) < 1e-12 {
		return insight.PredictiveAlert{}, false
	}

	last := usable[len(usable)-1]
	var best insight.PredictiveAlert
	found := false
	for _, t := range thresholds {
		days, ok := daysUntil(t, last.Value, fit.Slope)
		if !ok || (found && days >= best.DaysUntil) {
			continue
		}
		found = true
		best = insight.PredictiveAlert{
			Marker:        marker,
			Direction:     t.Direction,
			Label:         t.Label,
			Threshold:     t.Value,
			Unit:          last.Unit,
			CurrentValue:  last.Value,
			CurrentDate:   last.Date,
			SlopePerDay:   fit.Slope,
			DaysUntil:     days,
			ProjectedDate: core.AddDays(last.Date, days),
			Points:        len(usable),
			Confidence:    confidence(len(usable)),
		}
	}
	return best, found
}

// Alerts projects every thresholded marker and sorts by days until crossing,
// then marker
func (p *Projector) Alerts(seriesByMarker map[string][]insight.MarkerSeriesPoint, system lab.UnitSystem) []insight.PredictiveAlert {
	out := []insight.PredictiveAlert{}
	for _, m := range p.Markers(system) {
		if alert, ok := p.Project(m, seriesByMarker[m], system); ok {
			out = append(out, alert)
		}
	}
	SortAlerts(out)
	return out
}

// SortAlerts orders alerts by days until crossing, then marker
func SortAlerts(alerts []insight.PredictiveAlert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].DaysUntil != alerts[j].DaysUntil {
			return alerts[i].DaysUntil < alerts[j].DaysUntil
		}
		return alerts[i].Marker < alerts[j].Marker
	})
}

func daysUntil(t markers.Threshold, current, slope float64) (int, bool) {
	switch t.Direction {
	case insight.DirectionRising:
		if slope <= 0 || current >= t.Value {
			return 0, false
		}
	case insight.DirectionFalling:
		if slope >= 0 || current <= t.Value {
			return 0, false
		}
	default:
		return 0, false
	}

	d := math.Abs(t.Value-current) / math.Abs(slope)
	if !brief.IsFinite(d) {
		return 0, false
	}
	days := int(math.Round(d))
	if days <= 0 || days > MaxHorizonDays {
		return 0, false
	}
	return days, true
}

func confidence(points int) insight.AlertConfidence {
	switch {
	case points >= 4:
		return insight.AlertHigh
	case points == 3:
		return insight.AlertMedium
	}
	return insight.AlertLow
}
