package events

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

var day0 = time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)

func annotated(id string, offsetDays int, dose string, values ...lab.MarkerValue) lab.LabReport {
	return lab.LabReport{
		ID:        core.ReportID(id),
		TestDate:  day0.AddDate(0, 0, offsetDays),
		CreatedAt: day0.AddDate(0, 0, offsetDays),
		Markers:   values,
		Annotation: lab.ProtocolAnnotation{
			Compound:       "Testosterone Cypionate",
			Dosage:         dose,
			Frequency:      "2x/week",
			SamplingTiming: lab.TimingTrough,
		},
	}
}

func marker(name string, v float64, unit string) lab.MarkerValue {
	return lab.MarkerValue{Name: name, RawName: name, Value: v, Unit: unit, Confidence: 1}
}

func newDetector(protocols ...lab.Protocol) *Detector {
	return NewDetector(markers.DefaultCatalog(), protocol.NewResolver(protocols))
}

func TestClampWindow(t *testing.T) {
	assert.Equal(t, 45, ClampWindow(0))
	assert.Equal(t, 21, ClampWindow(7))
	assert.Equal(t, 90, ClampWindow(365))
	assert.Equal(t, 60, ClampWindow(60))
}

// TestDoseChangeProducesOneEvent covers a 100 -> 130 mg/week change with testosterone 520 -> 560 ng/dL
func TestDoseChangeProducesOneEvent(t *testing.T) {
	d := newDetector()
	reports := []lab.LabReport{
		annotated("r1", 0, "50mg", marker(markers.Testosterone, 520, "ng/dL")),
		annotated("r2", 30, "65mg", marker(markers.Testosterone, 560, "ng/dL")),
	}

	events := d.Detect(reports, lab.UnitSystemUS, Options{})
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, insight.EventDose, ev.EventType)
	assert.Equal(t, insight.SubtypeAdjustment, ev.EventSubtype)
	assert.Greater(t, ev.TriggerStrength, 0)
	require.NotNil(t, ev.DoseBefore)
	require.NotNil(t, ev.DoseAfter)
	assert.InDelta(t, 100, *ev.DoseBefore, 1e-9)
	assert.InDelta(t, 130, *ev.DoseAfter, 1e-9)
	assert.Equal(t, core.NewEventID("r1", "r2"), ev.ID)
	assert.Equal(t, day0.AddDate(0, 0, 1), ev.ChangeDate)
	assert.Equal(t, insight.ChangeDateInferred, ev.ChangeDateSource)

	require.Len(t, ev.Rows, 1)
	row := ev.Rows[0]
	assert.Equal(t, markers.Testosterone, row.Marker)
	assert.Equal(t, 10, row.LagDays)
	assert.InDelta(t, 40, *row.DeltaAbs, 1e-9)
	assert.InDelta(t, 40.0/520*100, *row.DeltaPct, 1e-9)
	assert.Equal(t, insight.ReadinessReady, row.Readiness)
	assert.Len(t, ev.TopImpacts, 1)
	assert.NotEmpty(t, ev.Headline)
	assert.NotEmpty(t, row.Narrative.Observed)
}

// TestLipidLag checks an LDL draw 28 days after the change lands in the post window
func TestLipidLag(t *testing.T) {
	d := newDetector()
	reports := []lab.LabReport{
		annotated("r1", 0, "50mg", marker(markers.LDLCholesterol, 3.0, "mmol/L")),
		annotated("r2", 29, "75mg", marker(markers.LDLCholesterol, 3.4, "mmol/L")),
	}

	events := d.Detect(reports, lab.UnitSystemEU, Options{WindowDays: 45})
	require.Len(t, events, 1)
	require.Len(t, events[0].Rows, 1)

	row := events[0].Rows[0]
	assert.Equal(t, 28, row.LagDays)
	assert.Equal(t, 1, row.NAfter)
	require.NotNil(t, row.AfterAvg)
	assert.Equal(t, 3.4, *row.AfterAvg)
	assert.False(t, row.UsedPostFallback)
	assert.False(t, row.PostWindowEmpty)
}

// TestSameDayProtocolChange keeps each same-day draw on its own protocol's side
func TestSameDayProtocolChange(t *testing.T) {
	d := newDetector()
	reports := []lab.LabReport{
		annotated("r1", 0, "50mg", marker(markers.Testosterone, 18, "nmol/L")),
		annotated("r2", 0, "65mg", marker(markers.Testosterone, 25, "nmol/L")),
	}

	events := d.Detect(reports, lab.UnitSystemEU, Options{})
	require.Len(t, events, 1)
	assert.Equal(t, day0, events[0].ChangeDate)
	require.Len(t, events[0].Rows, 1)

	row := events[0].Rows[0]
	assert.False(t, row.InsufficientData)
	assert.Equal(t, 1, row.NBefore)
	assert.Equal(t, 1, row.NAfter)
	require.NotNil(t, row.BeforeAvg)
	require.NotNil(t, row.AfterAvg)
	assert.Equal(t, 18.0, *row.BeforeAvg)
	assert.Equal(t, 25.0, *row.AfterAvg)
	assert.True(t, row.UsedPreFallback)
	assert.True(t, row.UsedPostFallback)
}

// TestUnconvertibleUnitStaysOutOfRows ignores a draw reported in a unit the catalog cannot convert
func TestUnconvertibleUnitStaysOutOfRows(t *testing.T) {
	d := newDetector()
	reports := []lab.LabReport{
		annotated("r1", 0, "50mg", marker(markers.Testosterone, 520, "ng/dL")),
		annotated("r2", 30, "65mg", marker(markers.Testosterone, 560, "ng/100mL")),
	}

	events := d.Detect(reports, lab.UnitSystemEU, Options{})
	require.Len(t, events, 1)
	require.Len(t, events[0].Rows, 1)

	row := events[0].Rows[0]
	assert.Equal(t, "nmol/L", row.Unit)
	assert.Equal(t, 0, row.NAfter)
	assert.True(t, row.InsufficientData)
	assert.Nil(t, row.DeltaPct)
	assert.Empty(t, events[0].TopImpacts)
}

func TestNoEventsWhenProtocolUnchanged(t *testing.T) {
	d := newDetector()
	reports := []lab.LabReport{
		annotated("r1", 0, "60mg", marker(markers.Testosterone, 20, "nmol/L")),
		annotated("r2", 40, "60mg", marker(markers.Testosterone, 22, "nmol/L")),
		annotated("r3", 80, "60mg", marker(markers.Testosterone, 21, "nmol/L")),
	}

	events := d.Detect(reports, lab.UnitSystemEU, Options{})
	assert.Empty(t, events)
	assert.NotNil(t, events)
}

func TestStartSubtypeAndFrequency(t *testing.T) {
	d := newDetector()
	baseline := lab.LabReport{
		ID:         "r0",
		TestDate:   day0,
		IsBaseline: true,
		Markers:    []lab.MarkerValue{marker(markers.Testosterone, 9, "nmol/L")},
	}
	started := annotated("r1", 40, "60mg", marker(markers.Testosterone, 22, "nmol/L"))

	events := d.Detect([]lab.LabReport{started, baseline}, lab.UnitSystemEU, Options{})
	require.Len(t, events, 1)
	assert.Equal(t, insight.SubtypeStart, events[0].EventSubtype)
	assert.Equal(t, insight.EventMixed, events[0].EventType)
	assert.Equal(t, 100, events[0].TriggerStrength)
}

// TestUnannotatedReportInheritsContext checks a draw without protocol data does not create events
func TestUnannotatedReportInheritsContext(t *testing.T) {
	d := newDetector()
	plain := lab.LabReport{
		ID:       "r2",
		TestDate: day0.AddDate(0, 0, 30),
		Markers:  []lab.MarkerValue{marker(markers.Testosterone, 21, "nmol/L")},
	}
	reports := []lab.LabReport{
		annotated("r1", 0, "60mg", marker(markers.Testosterone, 20, "nmol/L")),
		plain,
		annotated("r3", 60, "60mg", marker(markers.Testosterone, 22, "nmol/L")),
	}

	assert.Empty(t, d.Detect(reports, lab.UnitSystemEU, Options{}))
}

func TestEventsSortedMostRecentFirst(t *testing.T) {
	d := newDetector()
	reports := []lab.LabReport{
		annotated("r1", 0, "50mg", marker(markers.Testosterone, 18, "nmol/L")),
		annotated("r2", 40, "60mg", marker(markers.Testosterone, 21, "nmol/L")),
		annotated("r3", 80, "70mg", marker(markers.Testosterone, 24, "nmol/L")),
	}

	events := d.Detect(reports, lab.UnitSystemEU, Options{})
	require.Len(t, events, 2)
	assert.True(t, events[0].ChangeDate.After(events[1].ChangeDate))
	assert.Equal(t, core.ReportID("r3"), events[0].AfterReportID)
}

func TestProtocolStartDateUsed(t *testing.T) {
	started := day0.AddDate(0, 0, 10)
	d := newDetector(
		lab.Protocol{ID: "a", Compounds: []lab.Compound{{Name: "Testosterone Cypionate", DoseMg: 50, Frequency: "2x/week"}}},
		lab.Protocol{ID: "b", StartedAt: &started, Compounds: []lab.Compound{{Name: "Testosterone Cypionate", DoseMg: 70, Frequency: "2x/week"}}},
	)
	r1 := lab.LabReport{ID: "r1", TestDate: day0, Annotation: lab.ProtocolAnnotation{ProtocolID: "a"},
		Markers: []lab.MarkerValue{marker(markers.Testosterone, 18, "nmol/L")}}
	r2 := lab.LabReport{ID: "r2", TestDate: day0.AddDate(0, 0, 40), Annotation: lab.ProtocolAnnotation{ProtocolID: "b"},
		Markers: []lab.MarkerValue{marker(markers.Testosterone, 24, "nmol/L")}}

	events := d.Detect([]lab.LabReport{r1, r2}, lab.UnitSystemEU, Options{})
	require.Len(t, events, 1)
	assert.Equal(t, started, events[0].ChangeDate)
	assert.Equal(t, insight.ChangeDateProtocolStart, events[0].ChangeDateSource)
}

// TestFallbackAndRetest covers a post draw inside the lag period
func TestFallbackAndRetest(t *testing.T) {
	d := newDetector()
	reports := []lab.LabReport{
		annotated("r1", 0, "50mg", marker(markers.Hematocrit, 46, "%")),
		annotated("r2", 8, "65mg", marker(markers.Hematocrit, 47, "%")),
	}

	events := d.Detect(reports, lab.UnitSystemEU, Options{})
	require.Len(t, events, 1)
	require.Len(t, events[0].Rows, 1)

	row := events[0].Rows[0]
	assert.True(t, row.PostWindowEmpty)
	assert.True(t, row.UsedPostFallback)
	assert.False(t, row.InsufficientData)
	assert.Equal(t, insight.ReadinessWaitingPost, row.Readiness)
	assert.LessOrEqual(t, row.ConfidenceScore, 40)
	assert.Equal(t, insight.SignalEarly, row.SignalStatus)
	require.NotNil(t, row.RecommendedRetest)
	assert.Equal(t, day0.AddDate(0, 0, 1+21+14), *row.RecommendedRetest)
}

func TestConfounders(t *testing.T) {
	d := newDetector()
	r1 := annotated("r1", 0, "50mg", marker(markers.Estradiol, 100, "pmol/L"))
	r2 := annotated("r2", 30, "65mg", marker(markers.Estradiol, 130, "pmol/L"))
	r2.Annotation.SamplingTiming = lab.TimingPeak
	r2.Annotation.Supplements = "DIM"
	r2.Annotation.Symptoms = "acne"

	events := d.Detect([]lab.LabReport{r1, r2}, lab.UnitSystemEU, Options{})
	require.Len(t, events, 1)
	row := events[0].Rows[0]
	assert.Equal(t, 35, row.ConfounderPenalty)
	assert.Equal(t, []string{"sampling_timing", "supplements", "symptoms"}, row.Confounders)
}

// TestScoresAreFinite walks every numeric output of a larger history
func TestScoresAreFinite(t *testing.T) {
	d := newDetector()
	var reports []lab.LabReport
	doses := []string{"50mg", "50mg", "60mg", "60mg", "75mg", "75mg"}
	for i, dose := range doses {
		reports = append(reports, annotated(string(rune('a'+i)), i*35, dose,
			marker(markers.Testosterone, 18+float64(i), "nmol/L"),
			marker(markers.Hematocrit, 45+float64(i)/2, "%"),
			marker(markers.HDLCholesterol, 0, "mmol/L"),
		))
	}

	for _, ev := range d.Detect(reports, lab.UnitSystemEU, Options{WindowDays: 30}) {
		for _, row := range ev.Rows {
			for _, p := range []*float64{row.BeforeAvg, row.AfterAvg, row.DeltaAbs, row.DeltaPct, row.SignalToNoise} {
				if p != nil {
					assert.False(t, math.IsNaN(*p) || math.IsInf(*p, 0), row.Marker)
				}
			}
			assert.GreaterOrEqual(t, row.ConfidenceScore, 0)
			assert.LessOrEqual(t, row.ConfidenceScore, 100)
		}
	}
}
