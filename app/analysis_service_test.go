package app

import (
	"context"
	stderrors "errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labsignal/adapters/priors"
	"labsignal/domain/core"
	"labsignal/domain/lab"
	"labsignal/internal/config"
	"labsignal/internal/errors"
	"labsignal/internal/markers"
	"labsignal/internal/testkit"
	"labsignal/ports"
)

type failingPriors struct{}

func (failingPriors) Priors(context.Context) ([]lab.DosePrior, error) {
	return nil, stderrors.New("priors unavailable")
}

func newTestService(source ports.PriorSource) *AnalysisService {
	return NewAnalysisService(markers.DefaultCatalog(), source, config.Default().Analysis, nil)
}

func demoRequest() AnalysisRequest {
	return AnalysisRequest{Dataset: testkit.NewTRTDataGenerator(testkit.DefaultTRTConfig()).Generate()}
}

func TestAnalyzeDemoDataset(t *testing.T) {
	svc := newTestService(nil)

	dash, err := svc.Analyze(context.Background(), demoRequest())
	require.NoError(t, err)

	assert.False(t, dash.Fingerprint.IsEmpty())
	assert.Equal(t, lab.UnitSystemEU, dash.UnitSystem)
	assert.Equal(t, 45, dash.WindowDays)
	assert.Equal(t, "en", dash.Language)
	assert.Contains(t, dash.Markers, markers.Testosterone)
	assert.NotEmpty(t, dash.Series)
	require.NotEmpty(t, dash.Events)

	for i := 1; i < len(dash.Events); i++ {
		assert.False(t, dash.Events[i].ChangeDate.After(dash.Events[i-1].ChangeDate), "events must be most recent first")
	}
	for _, s := range dash.Series {
		for i := 1; i < len(s.Points); i++ {
			assert.False(t, s.Points[i].Date.Before(s.Points[i-1].Date), s.Marker)
		}
	}
	assert.NoError(t, CheckFinite(dash))
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	svc := newTestService(nil)

	a, err := svc.Analyze(context.Background(), demoRequest())
	require.NoError(t, err)
	b, err := svc.Analyze(context.Background(), demoRequest())
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.Equal(t, a, b)

	req := demoRequest()
	req.UnitSystem = "us"
	c, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
	assert.Equal(t, lab.UnitSystemUS, c.UnitSystem)
}

func TestAnalyzeFingerprintCoversPriorSource(t *testing.T) {
	plain, err := newTestService(nil).Analyze(context.Background(), demoRequest())
	require.NoError(t, err)

	withPrior, err := newTestService(priors.Static{{
		Marker:     markers.Hematocrit,
		UnitSystem: lab.UnitSystemEU,
		SlopePerMg: 0.03,
		Sigma:      0.01,
	}}).Analyze(context.Background(), demoRequest())
	require.NoError(t, err)

	assert.NotEqual(t, plain.Fingerprint, withPrior.Fingerprint)
}

func TestAnalyzeErrors(t *testing.T) {
	svc := newTestService(nil)

	req := demoRequest()
	req.UnitSystem = "metric"
	_, err := svc.Analyze(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	assert.Equal(t, 400, errors.HTTPStatus(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Analyze(ctx, demoRequest())
	assert.ErrorIs(t, err, context.Canceled)

	_, err = newTestService(failingPriors{}).Analyze(context.Background(), demoRequest())
	assert.Error(t, err)
}

func TestMarkerFilterAcceptsAliases(t *testing.T) {
	svc := newTestService(nil)

	req := demoRequest()
	req.Markers = []string{"Testosteron", "not a marker"}
	out, err := svc.Series(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, markers.Testosterone, out[0].Marker)
	assert.Len(t, out[0].Points, len(req.Dataset.Reports))
}

func TestWindowIsClamped(t *testing.T) {
	svc := newTestService(nil)

	req := demoRequest()
	req.WindowDays = 500
	evs, err := svc.Events(context.Background(), req)
	require.NoError(t, err)
	for _, e := range evs {
		assert.Equal(t, 90, e.WindowDays)
	}
}

func TestCheckFinite(t *testing.T) {
	nan := math.NaN()
	type inner struct {
		Values []float64
		Ptr    *float64
	}
	type outer struct {
		Name  string
		Inner inner
		ByKey map[string]float64
	}

	assert.NoError(t, CheckFinite(outer{Inner: inner{Values: []float64{1, 2}}}))

	err := CheckFinite(outer{Inner: inner{Values: []float64{1, math.Inf(1)}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNonFiniteResult)
	assert.Contains(t, err.Error(), "$.Inner.Values[1]")

	err = CheckFinite(&outer{Inner: inner{Ptr: &nan}})
	assert.Contains(t, err.Error(), "$.Inner.Ptr")

	err = CheckFinite(outer{ByKey: map[string]float64{"x": nan}})
	assert.Contains(t, err.Error(), "$.ByKey[x]")
}
