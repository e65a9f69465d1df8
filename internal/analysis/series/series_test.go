package series

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labsignal/domain/core"
	"labsignal/domain/insight"
	"labsignal/domain/lab"
	"labsignal/internal/markers"
	"labsignal/internal/protocol"
)

var day0 = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func report(id string, offsetDays int, markerValues ...lab.MarkerValue) lab.LabReport {
	return lab.LabReport{
		ID:        core.ReportID(id),
		TestDate:  day0.AddDate(0, 0, offsetDays),
		CreatedAt: day0.AddDate(0, 0, offsetDays),
		Markers:   markerValues,
	}
}

func testo(v float64, unit string) lab.MarkerValue {
	return lab.MarkerValue{Name: markers.Testosterone, RawName: "Testosterone", Value: v, Unit: unit, Confidence: 1}
}

func newBuilder(protocols ...lab.Protocol) *Builder {
	return NewBuilder(markers.DefaultCatalog(), protocol.NewResolver(protocols))
}

func TestBuildSortsAndConverts(t *testing.T) {
	b := newBuilder()
	reports := []lab.LabReport{
		report("c", 60, testo(600, "ng/dL")),
		report("a", 0, testo(18, "nmol/L")),
		report("b", 30, lab.MarkerValue{Name: markers.Estradiol, Value: 100, Unit: "pmol/L"}),
		report("d", 90, testo(math.NaN(), "nmol/L")),
	}

	points := b.Build(reports, markers.Testosterone, lab.UnitSystemEU)
	require.Len(t, points, 2)
	assert.Equal(t, core.ReportID("a"), points[0].ReportID)
	assert.Equal(t, core.ReportID("c"), points[1].ReportID)
	assert.Equal(t, "nmol/L", points[1].Unit)
	assert.InDelta(t, 600/28.842, points[1].Value, 1e-9)
	assert.Equal(t, lab.FlagUnknown, points[0].Abnormal)
}

// TestBuildDropsUnconvertibleUnits keeps a catalog marker on one unit scale
func TestBuildDropsUnconvertibleUnits(t *testing.T) {
	b := newBuilder()
	reports := []lab.LabReport{
		report("a", 0, testo(520, "ng/dL")),
		report("b", 30, testo(560, "ng/100mL")),
		report("c", 60, testo(19, "nmol/L")),
	}

	for _, system := range []lab.UnitSystem{lab.UnitSystemEU, lab.UnitSystemUS} {
		points := b.Build(reports, markers.Testosterone, system)
		require.Len(t, points, 2, system)
		assert.Equal(t, core.ReportID("a"), points[0].ReportID)
		assert.Equal(t, core.ReportID("c"), points[1].ReportID)
		for _, p := range points {
			assert.Equal(t, markers.DefaultCatalog().UnitFor(markers.Testosterone, system), p.Unit)
		}
	}
}

// TestBuildKeepsUnknownMarkers passes values of markers outside the catalog through
func TestBuildKeepsUnknownMarkers(t *testing.T) {
	b := newBuilder()
	mv := lab.MarkerValue{Name: "Omega-3 Index", Value: 6.5, Unit: "%", Confidence: 1}

	points := b.Build([]lab.LabReport{report("a", 0, mv)}, "Omega-3 Index", lab.UnitSystemUS)
	require.Len(t, points, 1)
	assert.Equal(t, 6.5, points[0].Value)
	assert.Equal(t, "%", points[0].Unit)
}

// TestBuildOnePointPerReport keeps only the best value when a report repeats a marker
func TestBuildOnePointPerReport(t *testing.T) {
	b := newBuilder()
	r := report("a", 0,
		testo(17, "nmol/L"),
		lab.MarkerValue{Name: markers.Testosterone, Value: 21, Unit: "nmol/L", Confidence: 0.5},
		lab.MarkerValue{Name: markers.Testosterone, Value: 30, Unit: "nmol/L", Confidence: 1, IsCalculated: true},
	)

	points := b.Build([]lab.LabReport{r}, markers.Testosterone, lab.UnitSystemEU)
	require.Len(t, points, 1)
	assert.Equal(t, 17.0, points[0].Value)
}

func TestBuildTieBreaksByCreation(t *testing.T) {
	b := newBuilder()
	late := report("x", 0, testo(20, "nmol/L"))
	late.CreatedAt = day0.Add(2 * time.Hour)
	early := report("y", 0, testo(19, "nmol/L"))
	early.CreatedAt = day0.Add(time.Hour)

	points := b.Build([]lab.LabReport{late, early}, markers.Testosterone, lab.UnitSystemEU)
	require.Len(t, points, 2)
	assert.Equal(t, core.ReportID("y"), points[0].ReportID)
}

func TestBuildAttachesContext(t *testing.T) {
	b := newBuilder(lab.Protocol{
		ID:        "p1",
		Compounds: []lab.Compound{{Name: "Testosterone Enanthate", DoseMg: 50, Frequency: "2x/week"}},
	})
	r := report("a", 0, testo(20, "nmol/L"))
	r.Annotation = lab.ProtocolAnnotation{ProtocolID: "p1", SamplingTiming: lab.TimingTrough}

	points := b.Build([]lab.LabReport{r}, markers.Testosterone, lab.UnitSystemUS)
	require.Len(t, points, 1)
	assert.Equal(t, "ng/dL", points[0].Unit)
	require.NotNil(t, points[0].Context.DoseMgPerWeek)
	assert.InDelta(t, 100, *points[0].Context.DoseMgPerWeek, 1e-9)
	assert.Equal(t, lab.TimingTrough, points[0].Context.SamplingTiming)
}

func TestReferenceBoundsConverted(t *testing.T) {
	b := newBuilder()
	lo, hi := 8.0, 29.0
	mv := testo(20, "nmol/L")
	mv.ReferenceMin, mv.ReferenceMax = &lo, &hi

	points := b.Build([]lab.LabReport{report("a", 0, mv)}, markers.Testosterone, lab.UnitSystemUS)
	require.Len(t, points, 1)
	require.NotNil(t, points[0].ReferenceMin)
	assert.InDelta(t, 8*28.842, *points[0].ReferenceMin, 1e-9)
	assert.InDelta(t, 29*28.842, *points[0].ReferenceMax, 1e-9)
}

func points(values ...float64) []insight.MarkerSeriesPoint {
	out := make([]insight.MarkerSeriesPoint, len(values))
	for i, v := range values {
		out[i] = insight.MarkerSeriesPoint{Value: v, Date: day0.AddDate(0, 0, 30*i)}
	}
	return out
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   insight.TrendDirection
	}{
		{"rising", []float64{10, 11, 12, 13, 14}, insight.TrendRising},
		{"falling", []float64{14, 13, 12, 11, 10}, insight.TrendFalling},
		{"flat", []float64{12, 12, 12, 12}, insight.TrendStable},
		{"volatile", []float64{5, 15, 4, 16, 5}, insight.TrendVolatile},
		{"single", []float64{12}, insight.TrendStable},
		{"only last six count", []float64{100, 1, 12, 12, 12, 12, 12, 12}, insight.TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trend := ClassifyTrend("X", points(tt.values...))
			assert.Equal(t, tt.want, trend.Direction)
		})
	}
}

func TestMarkersAndPrepare(t *testing.T) {
	b := newBuilder()
	reports := b.Prepare([]lab.LabReport{
		report("a", 0,
			lab.MarkerValue{RawName: "HDL-C", Value: 1.2, Unit: "mmol/L", Confidence: 1},
			lab.MarkerValue{RawName: "Triglyceriden", Value: 1.2, Unit: "mmol/L", Confidence: 1},
		),
	})

	assert.Equal(t, []string{markers.HDLCholesterol, markers.TGHDLRatio, markers.Triglycerides}, b.Markers(reports))
}
