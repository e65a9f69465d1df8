package stability

import (
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

var day0 = time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)

func report(id string, day int, dose string, values map[string]float64) lab.LabReport {
	units := map[string]string{
		markers.Testosterone: "nmol/L",
		markers.Hematocrit:   "%",
		markers.Estradiol:    "pmol/L",
	}
	r := lab.LabReport{
		ID:       core.ReportID(id),
		TestDate: day0.AddDate(0, 0, day),
		Annotation: lab.ProtocolAnnotation{
			Compound:  "Testosterone Enanthate",
			Dosage:    dose,
			Frequency: "2x/week",
		},
	}
	for name, v := range values {
		r.Markers = append(r.Markers, lab.MarkerValue{Name: name, RawName: name, Value: v, Unit: units[name], Confidence: 1})
	}
	return r
}

func newAssessor(protocols ...lab.Protocol) *Assessor {
	return NewAssessor(markers.DefaultCatalog(), protocol.NewResolver(protocols))
}

func TestAssessEmpty(t *testing.T) {
	res := newAssessor().Assess(nil, Options{System: lab.UnitSystemEU})
	assert.Equal(t, insight.StabilityInsufficient, res.Label)
	assert.Equal(t, []string{"No protocol information on the latest report."}, res.Reasons)
	assert.NotNil(t, res.Markers)
}

func TestAssessNoProtocol(t *testing.T) {
	r := lab.LabReport{ID: "r1", TestDate: day0, Markers: []lab.MarkerValue{{Name: markers.Testosterone, Value: 20, Unit: "nmol/L"}}}
	res := newAssessor().Assess([]lab.LabReport{r}, Options{System: lab.UnitSystemEU})
	assert.Equal(t, insight.StabilityInsufficient, res.Label)
	assert.Equal(t, lab.ContextNone, res.Context.Source)
	assert.Equal(t, 0, res.ReportsOnProtocol)
}

func TestAssessStable(t *testing.T) {
	reports := []lab.LabReport{
		report("r0", 0, "50mg", map[string]float64{markers.Testosterone: 15}),
		report("r1", 30, "60mg", map[string]float64{markers.Testosterone: 20, markers.Hematocrit: 45, markers.Estradiol: 100}),
		report("r2", 60, "60mg", map[string]float64{markers.Testosterone: 21, markers.Hematocrit: 45.2, markers.Estradiol: 105}),
		report("r3", 100, "60mg", map[string]float64{markers.Testosterone: 20.5, markers.Hematocrit: 45.1, markers.Estradiol: 102}),
	}

	res := newAssessor().Assess(reports, Options{System: lab.UnitSystemEU})
	assert.Equal(t, insight.StabilityStable, res.Label)
	assert.Equal(t, 100, res.Score)
	assert.True(t, res.SteadyState)
	assert.Equal(t, 70, res.DaysOnProtocol)
	assert.Equal(t, 3, res.ReportsOnProtocol)
	assert.Equal(t, []string{"On the current protocol for 70 days."}, res.Reasons)

	require.Len(t, res.Markers, 3)
	assert.Equal(t, markers.Testosterone, res.Markers[0].Marker)
	assert.Equal(t, markers.Estradiol, res.Markers[1].Marker)
	assert.Equal(t, markers.Hematocrit, res.Markers[2].Marker)
	require.NotNil(t, res.Markers[0].InZone)
	assert.True(t, *res.Markers[0].InZone)
	assert.Equal(t, 20.5, res.Markers[0].Latest)
}

func TestAssessSettlingWithRisingHematocrit(t *testing.T) {
	reports := []lab.LabReport{
		report("r1", 0, "60mg", map[string]float64{markers.Hematocrit: 51}),
		report("r2", 20, "60mg", map[string]float64{markers.Hematocrit: 53}),
	}

	res := newAssessor().Assess(reports, Options{System: lab.UnitSystemEU, Language: "en"})
	assert.False(t, res.SteadyState)
	assert.Equal(t, 50, res.Score)
	assert.Equal(t, insight.StabilitySettling, res.Label)
	assert.Equal(t, []string{
		"Only 20 days on the current protocol; levels may still be settling.",
		"Hematocrit is outside its target zone.",
		"Hematocrit is trending up.",
	}, res.Reasons)
}

func TestAssessSingleReport(t *testing.T) {
	reports := []lab.LabReport{
		report("r1", 0, "50mg", map[string]float64{markers.Testosterone: 18}),
		report("r2", 50, "60mg", map[string]float64{markers.Testosterone: 22}),
	}

	res := newAssessor().Assess(reports, Options{System: lab.UnitSystemEU, Language: "nl"})
	assert.Equal(t, insight.StabilityInsufficient, res.Label)
	assert.Equal(t, 1, res.ReportsOnProtocol)
	assert.Contains(t, res.Reasons, "Minder dan twee rapporten op het huidige protocol.")
}

func TestAssessUsesProtocolStart(t *testing.T) {
	started := day0.AddDate(0, 0, -30)
	p := lab.Protocol{
		ID:        "trt",
		StartedAt: &started,
		Compounds: []lab.Compound{{Name: "Testosterone Cypionate", DoseMg: 60, Frequency: "2x/week"}},
	}
	reports := []lab.LabReport{
		{ID: "r1", TestDate: day0, Annotation: lab.ProtocolAnnotation{ProtocolID: "trt"}},
		{ID: "r2", TestDate: day0.AddDate(0, 0, 20), Annotation: lab.ProtocolAnnotation{ProtocolID: "trt"}},
	}

	res := newAssessor(p).Assess(reports, Options{System: lab.UnitSystemEU})
	assert.Equal(t, 50, res.DaysOnProtocol)
	assert.True(t, res.SteadyState)
	assert.Equal(t, core.ProtocolID("trt"), res.Context.ProtocolID)
}

func TestAssessVolatileMarker(t *testing.T) {
	reports := []lab.LabReport{
		report("r1", 0, "60mg", map[string]float64{markers.Estradiol: 60}),
		report("r2", 20, "60mg", map[string]float64{markers.Estradiol: 150}),
		report("r3", 40, "60mg", map[string]float64{markers.Estradiol: 70}),
		report("r4", 60, "60mg", map[string]float64{markers.Estradiol: 160}),
	}

	res := newAssessor().Assess(reports, Options{System: lab.UnitSystemEU})
	require.Len(t, res.Markers, 1)
	assert.Equal(t, insight.TrendVolatile, res.Markers[0].Direction)
	assert.Equal(t, 85, res.Score)
	assert.Equal(t, insight.StabilityStable, res.Label)
}
