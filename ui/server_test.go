package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labsignal/app"
	"labsignal/domain/insight"
	"labsignal/domain/lab"
	"labsignal/internal/config"
	"labsignal/internal/errors"
	"labsignal/internal/markers"
	"labsignal/internal/testkit"
	"labsignal/ports"
)

type staticDataset lab.Dataset

func (s staticDataset) LoadDataset(context.Context) (lab.Dataset, error) { return lab.Dataset(s), nil }

func demoDataset() lab.Dataset {
	return testkit.NewTRTDataGenerator(testkit.DefaultTRTConfig()).Generate()
}

func newTestServer(t *testing.T, source ports.DatasetSource) *Server {
	t.Helper()
	svc := app.NewAnalysisService(markers.DefaultCatalog(), nil, config.Default().Analysis, nil)
	s, err := NewServer(svc, source, gin.TestMode, nil)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Code
}

func TestHealthAndMarkers(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/markers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var known []markers.MarkerInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &known))
	assert.NotEmpty(t, known)
}

func TestAnalyzeWithBodyDataset(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(t, s, http.MethodPost, "/api/v1/analyze", gin.H{"dataset": demoDataset(), "unit_system": "US"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var dash insight.Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dash))
	assert.False(t, dash.Fingerprint.IsEmpty())
	assert.Equal(t, lab.UnitSystemUS, dash.UnitSystem)
	assert.NotEmpty(t, dash.Events)
}

func TestAnalysisEndpointsUseConfiguredDataset(t *testing.T) {
	s := newTestServer(t, staticDataset(demoDataset()))

	for _, path := range []string{"/api/v1/series", "/api/v1/events", "/api/v1/dose-predictions", "/api/v1/alerts", "/api/v1/stability"} {
		w := do(t, s, http.MethodPost, path, gin.H{})
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.True(t, json.Valid(w.Body.Bytes()), path)
	}

	w := do(t, s, http.MethodPost, "/api/v1/series", gin.H{"markers": []string{"Testosteron"}})
	require.Equal(t, http.StatusOK, w.Code)
	var series []insight.MarkerSeries
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &series))
	require.Len(t, series, 1)
	assert.Equal(t, markers.Testosterone, series[0].Marker)
}

func TestAnalyzeRejectsBadRequests(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body interface{}
	}{
		{"no dataset", gin.H{}},
		{"unit system", gin.H{"dataset": demoDataset(), "unit_system": "metric"}},
		{"negative dose", gin.H{"dataset": demoDataset(), "current_dose": -10}},
		{"report format", gin.H{"dataset": demoDataset(), "format": "pdf"}},
		{"invalid dataset", gin.H{"dataset": gin.H{"reports": []gin.H{{"id": ""}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/api/v1/analyze", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, errors.CodeInvalidInput, errorCode(t, w))
		})
	}
}

func TestReportAndChart(t *testing.T) {
	s := newTestServer(t, staticDataset(demoDataset()))

	w := do(t, s, http.MethodPost, "/api/v1/report", gin.H{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "# Lab signal report"))

	w = do(t, s, http.MethodPost, "/api/v1/report", gin.H{"format": "html", "language": "nl"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<title>Labsignaal rapport</title>")

	w = do(t, s, http.MethodPost, "/api/v1/chart", gin.H{"markers": []string{"Hematocrit"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "chart_hematocrit")

	w = do(t, s, http.MethodPost, "/api/v1/chart", gin.H{"markers": []string{"not a marker"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func upload(t *testing.T, s *Server, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestImport(t *testing.T) {
	s := newTestServer(t, nil)

	w := upload(t, s, "labs.csv", "test_date,marker,value,unit\n2025-01-06,TSH,2.1,mIU/L\n2025-03-06,TSH,1.8,mIU/L\n")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ds lab.Dataset
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ds))
	assert.Len(t, ds.Reports, 2)

	w = upload(t, s, "labs.ods", "whatever")
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Equal(t, errors.CodeUnsupportedFormat, errorCode(t, w))

	w = do(t, s, http.MethodPost, "/api/v1/import", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExport(t *testing.T) {
	s := newTestServer(t, staticDataset(demoDataset()))

	w := do(t, s, http.MethodPost, "/api/v1/export", gin.H{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestIndex(t *testing.T) {
	w := do(t, newTestServer(t, nil), http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No dataset configured")

	w = do(t, newTestServer(t, staticDataset(demoDataset())), http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Lab signal report")
	assert.Contains(t, w.Body.String(), "Fingerprint")
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(t, s, http.MethodGet, "/healthz", nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
