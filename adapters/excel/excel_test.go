package excel

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"labsignal/domain/core"
	"labsignal/domain/insight"
	"labsignal/domain/lab"
	"labsignal/internal/errors"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"4.5", 4.5, true},
		{"4,5", 4.5, true},
		{"< 0.5", 0.5, true},
		{">=90", 90, true},
		{"12.0*", 12, true},
		{"6.1 H", 6.1, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"NaN", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2025-03-14", "14-03-2025", "14/03/2025", "2025/03/14", "14.03.2025", "45730"} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s parsed as %s", in, got)
	}

	_, err := ParseDate("someday")
	assert.ErrorIs(t, err, core.ErrInvalidDate)
	_, err = ParseDate("")
	assert.True(t, core.IsValidationError(err))
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, ColTestDate, NormalizeHeader(" Datum "))
	assert.Equal(t, ColRefMin, NormalizeHeader("Reference Min"))
	assert.Equal(t, ColSamplingTiming, NormalizeHeader("sampling-timing"))
	assert.Equal(t, "lab_name", NormalizeHeader("Lab Name"))
}

func TestFileType(t *testing.T) {
	assert.Equal(t, "csv", FileType("labs.CSV"))
	assert.Equal(t, "xlsx", FileType("/tmp/labs.xlsx"))
	assert.Equal(t, "", FileType("labs.ods"))

	_, err := NewDataReader("labs.ods").ReadData()
	assert.Equal(t, errors.CodeUnsupportedFormat, errors.GetCode(err))
}

const semicolonCSV = `Datum;Marker;Waarde;Eenheid;Dose;Frequency;Compound;Sampling Timing
2025-01-06;Testosteron;18,5;nmol/L;100mg;2x/week;Testosterone Cypionate;trough
2025-01-06;Hematocriet;0.47;L/L;;;;
2025-02-17;Testosteron;24;nmol/L;125mg;2x/week;Testosterone Cypionate;trough
2025-02-17;Hematocriet;abc;L/L;;;;
;Testosteron;20;nmol/L;;;;
`

func TestToDatasetFromCSV(t *testing.T) {
	data, err := ReadFrom(strings.NewReader(semicolonCSV), "csv")
	require.NoError(t, err)
	assert.Contains(t, data.Headers, ColTestDate)
	assert.Contains(t, data.Headers, ColValue)

	ds, issues, err := ToDataset(data)
	require.NoError(t, err)
	require.Len(t, ds.Reports, 2)
	require.Len(t, issues, 2)
	assert.Equal(t, 5, issues[0].Row)
	assert.Contains(t, issues[0].Reason, "abc")
	assert.Equal(t, 6, issues[1].Row)

	first := ds.Reports[0]
	assert.Equal(t, core.ReportID(core.NewStableID("report", "2025-01-06")), first.ID)
	assert.Equal(t, "100mg", first.Annotation.Dosage)
	assert.Equal(t, "2x/week", first.Annotation.Frequency)
	assert.Equal(t, lab.TimingTrough, first.Annotation.SamplingTiming)
	require.Len(t, first.Markers, 2)
	assert.Equal(t, "Testosteron", first.Markers[0].RawName)
	assert.Equal(t, 18.5, first.Markers[0].Value)
	assert.Equal(t, 0.47, first.Markers[1].Value)
	assert.Equal(t, "L/L", first.Markers[1].Unit)

	assert.Len(t, ds.Reports[1].Markers, 1)
	assert.NotNil(t, ds.Protocols)
}

func TestToDatasetNeedsColumns(t *testing.T) {
	data, err := ReadFrom(strings.NewReader("marker,value\nTSH,2.1\n"), "csv")
	require.NoError(t, err)
	_, _, err = ToDataset(data)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestReadFromNeedsDataRow(t *testing.T) {
	_, err := ReadFrom(strings.NewReader("test_date,marker,value\n"), "csv")
	assert.Error(t, err)
}

func TestWorkbookRoundTrip(t *testing.T) {
	refMax := 52.0
	ds := lab.Dataset{Reports: []lab.LabReport{
		{
			ID:         "r1",
			TestDate:   time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
			IsBaseline: true,
			Markers: []lab.MarkerValue{
				{RawName: "Hematocrit", Value: 45.5, Unit: "%", ReferenceMax: &refMax, Abnormal: lab.FlagNormal},
				{RawName: "Total Testosterone", Value: 12.1, Unit: "nmol/L"},
			},
		},
		{
			ID:       "r2",
			TestDate: time.Date(2025, 2, 17, 0, 0, 0, 0, time.UTC),
			Annotation: lab.ProtocolAnnotation{
				ProtocolID:     "trt-1",
				Dosage:         "125mg",
				Frequency:      "E3.5D",
				SamplingTiming: lab.TimingTrough,
			},
			Markers: []lab.MarkerValue{{RawName: "Hematocrit", Value: 48, Unit: "%"}},
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteDataset(ds, &buf))

	data, err := ReadFrom(bytes.NewReader(buf.Bytes()), "xlsx")
	require.NoError(t, err)
	got, issues, err := ToDataset(data)
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, got.Reports, 2)

	r1 := got.Reports[0]
	assert.Equal(t, core.ReportID("r1"), r1.ID)
	assert.True(t, r1.IsBaseline)
	require.Len(t, r1.Markers, 2)
	assert.Equal(t, 45.5, r1.Markers[0].Value)
	require.NotNil(t, r1.Markers[0].ReferenceMax)
	assert.Equal(t, 52.0, *r1.Markers[0].ReferenceMax)
	assert.Nil(t, r1.Markers[0].ReferenceMin)
	assert.Equal(t, lab.FlagNormal, r1.Markers[0].Abnormal)

	r2 := got.Reports[1]
	assert.Equal(t, core.ProtocolID("trt-1"), r2.Annotation.ProtocolID)
	assert.Equal(t, "E3.5D", r2.Annotation.Frequency)
	assert.Equal(t, lab.TimingTrough, r2.Annotation.SamplingTiming)
	assert.False(t, r2.IsBaseline)
}

func TestWriteDashboardSheets(t *testing.T) {
	before, after := 100.0, 130.0
	d := insight.Dashboard{
		Fingerprint: "abc",
		UnitSystem:  lab.UnitSystemEU,
		WindowDays:  45,
		Language:    "en",
		Markers:     []string{"Hematocrit"},
		Series: []insight.MarkerSeries{{
			Marker: "Hematocrit",
			Points: []insight.MarkerSeriesPoint{{ReportID: "r1", Date: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), Value: 45, Unit: "%"}},
		}},
		Events: []insight.ProtocolImpactDoseEvent{{
			ID:         "e1",
			DoseBefore: &before,
			DoseAfter:  &after,
			Rows:       []insight.MarkerImpactRow{{Marker: "Hematocrit", Unit: "%"}},
		}},
		Predictions: []insight.DosePrediction{{Marker: "Hematocrit", Scenarios: []insight.DoseScenario{{DoseMgPerWeek: 120, Estimate: 47.25}}}},
		Stability:   insight.TrtStabilityResult{Label: insight.StabilityStable, Score: 90, Reasons: []string{"ok"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDashboard(d, &buf))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetSummary, SheetSeries, SheetEvents, SheetImpacts, SheetPredictions, SheetAlerts, SheetStability}, f.GetSheetList())

	v, err := f.GetCellValue(SheetSummary, "B1")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	v, err = f.GetCellValue(SheetPredictions, "R2")
	require.NoError(t, err)
	assert.Equal(t, "120mg→47.25", v)

	rows, err := f.GetRows(SheetImpacts)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
