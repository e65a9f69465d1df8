package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labsignal/domain/core"
	"labsignal/domain/insight"
	"labsignal/domain/lab"
	"labsignal/internal/markers"
)

var day0 = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

func points(unit string, stepDays int, values ...float64) []insight.MarkerSeriesPoint {
	out := make([]insight.MarkerSeriesPoint, len(values))
	for i, v := range values {
		out[i] = insight.MarkerSeriesPoint{
			ReportID: core.ReportID(string(rune('a' + i))),
			Date:     day0.AddDate(0, 0, i*stepDays),
			Value:    v,
			Unit:     unit,
		}
	}
	return out
}

func newProjector() *Projector {
	return NewProjector(markers.DefaultCatalog())
}

func TestProjectNearestThreshold(t *testing.T) {
	// +1 point per 30 days from 48 to 50
	pts := points("%", 30, 48, 49, 50)

	alert, ok := newProjector().Project(markers.Hematocrit, pts, lab.UnitSystemEU)
	require.True(t, ok)
	assert.Equal(t, 52.0, alert.Threshold)
	assert.Equal(t, insight.DirectionRising, alert.Direction)
	assert.Equal(t, 60, alert.DaysUntil)
	assert.Equal(t, day0.AddDate(0, 0, 120), alert.ProjectedDate)
	assert.Equal(t, insight.AlertMedium, alert.Confidence)
	assert.Equal(t, 3, alert.Points)
	assert.InDelta(t, 1.0/30, alert.SlopePerDay, 1e-12)
}

func TestProjectAlreadyCrossed(t *testing.T) {
	pts := points("%", 30, 53, 54.5, 55)
	_, ok := newProjector().Project(markers.Hematocrit, pts, lab.UnitSystemEU)
	assert.False(t, ok)

	assert.Empty(t, newProjector().Alerts(map[string][]insight.MarkerSeriesPoint{markers.Hematocrit: pts}, lab.UnitSystemEU))
}

func TestProjectDirectionMismatch(t *testing.T) {
	pts := points("%", 30, 50, 49, 48)
	assert.Empty(t, newProjector().Alerts(map[string][]insight.MarkerSeriesPoint{markers.Hematocrit: pts}, lab.UnitSystemEU))
}

func TestProjectFallingThreshold(t *testing.T) {
	pts := points("nmol/L", 28, 20, 19, 18, 17)

	alert, ok := newProjector().Project(markers.Testosterone, pts, lab.UnitSystemEU)
	require.True(t, ok)
	assert.Equal(t, insight.DirectionFalling, alert.Direction)
	assert.Equal(t, 84, alert.DaysUntil)
	assert.Equal(t, insight.AlertHigh, alert.Confidence)
}

func TestProjectHorizon(t *testing.T) {
	// 0.01 per 100 days reaches 52 far beyond two years
	pts := points("%", 100, 45, 45.01)
	_, ok := newProjector().Project(markers.Hematocrit, pts, lab.UnitSystemEU)
	assert.False(t, ok)
}

func TestProjectNeedsTwoPoints(t *testing.T) {
	_, ok := newProjector().Project(markers.Hematocrit, points("%", 30, 50), lab.UnitSystemEU)
	assert.False(t, ok)

	_, ok = newProjector().Project(markers.Cortisol, points("nmol/L", 30, 300, 400), lab.UnitSystemEU)
	assert.False(t, ok)
}

func TestAlertsSorted(t *testing.T) {
	byMarker := map[string][]insight.MarkerSeriesPoint{
		markers.Hematocrit:     points("%", 30, 50, 51),
		markers.LDLCholesterol: points("mmol/L", 30, 3.0, 3.5),
		markers.PSA:            points("ug/L", 30, 1.0, 1.1),
	}

	alerts := newProjector().Alerts(byMarker, lab.UnitSystemEU)
	require.Len(t, alerts, 2)
	assert.Equal(t, markers.Hematocrit, alerts[0].Marker)
	assert.Equal(t, 30, alerts[0].DaysUntil)
	assert.Equal(t, markers.LDLCholesterol, alerts[1].Marker)
	assert.Equal(t, 30, alerts[1].DaysUntil)
	assert.Equal(t, insight.AlertLow, alerts[0].Confidence)
}
