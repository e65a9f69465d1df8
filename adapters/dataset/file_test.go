package dataset

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labsignal/domain/core"
	"labsignal/domain/lab"
	"labsignal/internal/errors"
)

const datasetYAML = `reports:
  - id: r1
    test_date: 2025-01-06
    is_baseline: true
    markers:
      - {raw_name: Testosteron, value: 12.5, unit: nmol/L}
  - id: r2
    test_date: 2025-02-20
    annotation:
      protocol_id: trt
      sampling_timing: trough
    markers:
      - {raw_name: Hematocriet, value: 0.47, unit: L/L}
protocols:
  - id: trt
    name: TRT
    compounds:
      - {name: Testosterone Cypionate, dose_mg: 125, frequency: 2x/week}
priors:
  - {marker: Hematocrit, unit_system: EU, slope_per_mg: 0.05, sigma: 0.01}
`

func TestDecodeYAML(t *testing.T) {
	ds, err := Decode(strings.NewReader(datasetYAML), FormatYAML)
	require.NoError(t, err)
	require.Len(t, ds.Reports, 2)
	assert.True(t, ds.Reports[0].TestDate.Equal(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)))
	assert.True(t, ds.Reports[0].IsBaseline)
	assert.Equal(t, 1.0, ds.Reports[0].Markers[0].Confidence)
	assert.Equal(t, core.ProtocolID("trt"), ds.Reports[1].Annotation.ProtocolID)
	assert.Equal(t, lab.TimingTrough, ds.Reports[1].Annotation.SamplingTiming)
	require.Len(t, ds.Protocols, 1)
	assert.Equal(t, 125.0, ds.Protocols[0].Compounds[0].DoseMg)
	require.Len(t, ds.Priors, 1)
	assert.Equal(t, lab.UnitSystemEU, ds.Priors[0].UnitSystem)
}

func TestEncodeDecodeJSONAndYAML(t *testing.T) {
	ds, err := Decode(strings.NewReader(datasetYAML), FormatYAML)
	require.NoError(t, err)

	for _, format := range []string{FormatJSON, FormatYAML} {
		data, err := Marshal(ds, format)
		require.NoError(t, err, format)
		back, err := Decode(bytes.NewReader(data), format)
		require.NoError(t, err, format)
		assert.Equal(t, len(ds.Reports), len(back.Reports), format)
		assert.True(t, ds.Reports[1].TestDate.Equal(back.Reports[1].TestDate), format)
		assert.Equal(t, ds.Protocols[0].Compounds, back.Protocols[0].Compounds, format)
	}
}

func TestDecodeEmptyYAML(t *testing.T) {
	ds, err := Decode(strings.NewReader(""), FormatYAML)
	require.NoError(t, err)
	assert.NotNil(t, ds.Reports)
	assert.NotNil(t, ds.Protocols)
}

func TestValidate(t *testing.T) {
	day := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	marker := []lab.MarkerValue{{RawName: "TSH", Value: 2}}
	tests := map[string]lab.Dataset{
		"empty id":       {Reports: []lab.LabReport{{TestDate: day, Markers: marker}}},
		"duplicate id":   {Reports: []lab.LabReport{{ID: "a", TestDate: day}, {ID: "a", TestDate: day}}},
		"missing date":   {Reports: []lab.LabReport{{ID: "a"}}},
		"unnamed marker": {Reports: []lab.LabReport{{ID: "a", TestDate: day, Markers: []lab.MarkerValue{{Value: 1}}}}},
		"protocol id":    {Protocols: []lab.Protocol{{Name: "x"}}},
		"negative dose":  {Protocols: []lab.Protocol{{ID: "p", Compounds: []lab.Compound{{Name: "T", DoseMg: -5}}}}},
		"bad prior":      {Priors: []lab.DosePrior{{Marker: "Hematocrit", UnitSystem: "metric"}}},
	}
	for name, ds := range tests {
		t.Run(name, func(t *testing.T) {
			err := Validate(ds)
			require.Error(t, err)
			assert.True(t, core.IsValidationError(err))
		})
	}

	assert.NoError(t, Validate(lab.Dataset{Reports: []lab.LabReport{{ID: "a", TestDate: day, Markers: marker}}}))
}

func TestFileSourceFormats(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "labs.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("test_date,marker,value,unit\n2025-01-06,TSH,2.1,mIU/L\n2025-01-06,Ferritin,n/a,ug/L\n"), 0o600))

	ds, err := NewFileSource(csvPath).LoadDataset(context.Background())
	require.NoError(t, err)
	require.Len(t, ds.Reports, 1)
	assert.Len(t, ds.Reports[0].Markers, 1)

	_, err = NewFileSource(filepath.Join(dir, "labs.ods")).LoadDataset(context.Background())
	assert.Equal(t, errors.CodeUnsupportedFormat, errors.GetCode(err))

	_, err = NewFileSource(filepath.Join(dir, "missing.json")).LoadDataset(context.Background())
	assert.Equal(t, errors.CodeIO, errors.GetCode(err))

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`{"reports":[{"id":""}]}`), 0o600))
	_, err = NewFileSource(badPath).LoadDataset(context.Background())
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatOf("a.JSON"))
	assert.Equal(t, FormatYAML, FormatOf("a.yml"))
	assert.Equal(t, FormatXLSX, FormatOf("a.xlsx"))
	assert.Equal(t, FormatCSV, FormatOf("a.csv"))
	assert.Equal(t, "", FormatOf("a.txt"))
}
