package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"labsignal/domain/core"
	"labsignal/domain/insight"
	"labsignal/domain/lab"
	"labsignal/internal"
	"labsignal/internal/analysis/doseresponse"
	"labsignal/internal/analysis/events"
	"labsignal/internal/analysis/narrative"
	"labsignal/internal/analysis/projection"
	"labsignal/internal/analysis/series"
	"labsignal/internal/analysis/stability"
	"labsignal/internal/config"
	"labsignal/internal/errors"
	"labsignal/internal/markers"
	"labsignal/internal/protocol"
	"labsignal/ports"
)

// AnalysisRequest is one dataset plus the options to analyze it with. Zero
// values fall back to the service defaults.
type AnalysisRequest struct {
	Dataset             lab.Dataset
	UnitSystem          string
	WindowDays          int
	Language            string
	CurrentDose         *float64
	SuggestedDoseOffset *float64
	Markers             []string // restricts series and predictions, empty for all
}

// AnalysisService runs the analysis core over a dataset
type AnalysisService struct {
	catalog  *markers.Catalog
	priors   ports.PriorSource
	defaults config.AnalysisConfig
	logger   *internal.Logger
}

// NewAnalysisService creates an analysis service. priors may be nil.
func NewAnalysisService(catalog *markers.Catalog, priors ports.PriorSource, defaults config.AnalysisConfig, logger *internal.Logger) *AnalysisService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if defaults.Workers < 1 {
		defaults.Workers = 1
	}
	return &AnalysisService{
		catalog:  catalog,
		priors:   priors,
		defaults: defaults,
		logger:   logger,
	}
}

// Catalog exposes the marker knowledge the service analyzes with
func (s *AnalysisService) Catalog() *markers.Catalog {
	return s.catalog
}

// analysisRun holds one request's resolved options and prepared reports
type analysisRun struct {
	req      AnalysisRequest
	system   lab.UnitSystem
	window   int
	lang     string
	reports  []lab.LabReport
	resolver *protocol.Resolver
	builder  *series.Builder
	markers  []string
	priors   []lab.DosePrior
}

func (s *AnalysisService) prepare(ctx context.Context, req AnalysisRequest) (*analysisRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	unitText := req.UnitSystem
	if unitText == "" {
		unitText = s.defaults.UnitSystem
	}
	system, err := lab.ParseUnitSystem(unitText)
	if err != nil {
		return nil, errors.Wrap(err, "invalid unit system")
	}
	window := req.WindowDays
	if window == 0 {
		window = s.defaults.WindowDays
	}
	lang := req.Language
	if lang == "" {
		lang = s.defaults.Language
	}
	if req.SuggestedDoseOffset == nil {
		offset := s.defaults.SuggestedDoseOffset
		req.SuggestedDoseOffset = &offset
	}

	resolver := protocol.NewResolver(req.Dataset.Protocols)
	builder := series.NewBuilder(s.catalog, resolver)
	reports := series.SortReports(builder.Prepare(req.Dataset.Reports))

	run := &analysisRun{
		req:      req,
		system:   system,
		window:   events.ClampWindow(window),
		lang:     narrative.Normalize(lang),
		reports:  reports,
		resolver: resolver,
		builder:  builder,
		markers:  s.selectMarkers(builder.Markers(reports), req.Markers),
	}

	run.priors = append(run.priors, req.Dataset.Priors...)
	if s.priors != nil {
		extra, err := s.priors.Priors(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load priors")
		}
		run.priors = append(run.priors, extra...)
	}
	return run, nil
}

// selectMarkers keeps the requested markers that occur in the data, in
// sorted order. Requested names may be aliases.
func (s *AnalysisService) selectMarkers(present, requested []string) []string {
	if len(requested) == 0 {
		return present
	}
	want := make(map[string]bool, len(requested))
	for _, name := range requested {
		if canonical := s.catalog.Canonicalize(name); canonical != "" {
			want[canonical] = true
		}
	}
	out := []string{}
	for _, m := range present {
		if want[m] {
			out = append(out, m)
		}
	}
	return out
}

// Series returns the converted series of every selected marker
func (s *AnalysisService) Series(ctx context.Context, req AnalysisRequest) ([]insight.MarkerSeries, error) {
	run, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.series(run), nil
}

func (s *AnalysisService) series(run *analysisRun) []insight.MarkerSeries {
	out := make([]insight.MarkerSeries, 0, len(run.markers))
	for _, m := range run.markers {
		points := run.builder.Build(run.reports, m, run.system)
		if len(points) == 0 {
			continue
		}
		out = append(out, insight.MarkerSeries{
			Marker: m,
			Unit:   points[len(points)-1].Unit,
			Trend:  series.ClassifyTrend(m, points),
			Points: points,
		})
	}
	return out
}

// Events returns the protocol-change events, most recent first
func (s *AnalysisService) Events(ctx context.Context, req AnalysisRequest) ([]insight.ProtocolImpactDoseEvent, error) {
	run, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.events(run), nil
}

func (s *AnalysisService) events(run *analysisRun) []insight.ProtocolImpactDoseEvent {
	detector := events.NewDetector(s.catalog, run.resolver)
	return detector.Detect(run.reports, run.system, events.Options{WindowDays: run.window, Language: run.lang})
}

// Predictions fits a dose-response model per marker, fanned out over the
// configured number of workers, ordered by relevance
func (s *AnalysisService) Predictions(ctx context.Context, req AnalysisRequest) ([]insight.DosePrediction, error) {
	run, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.predictions(ctx, run, s.series(run))
}

func (s *AnalysisService) predictions(ctx context.Context, run *analysisRun, all []insight.MarkerSeries) ([]insight.DosePrediction, error) {
	estimator := doseresponse.NewEstimator(s.catalog)
	opts := doseresponse.Options{
		System:              run.system,
		CurrentDose:         run.req.CurrentDose,
		SuggestedDoseOffset: run.req.SuggestedDoseOffset,
		Priors:              run.priors,
		Language:            run.lang,
	}

	results := make([]*insight.DosePrediction, len(all))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.defaults.Workers)
	for i, ms := range all {
		i, ms := i, ms
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pred, ok := estimator.Predict(ms.Marker, ms.Points, opts)
			if !ok {
				s.logger.With("marker", ms.Marker).Trace("[AnalysisService] no prediction")
				return nil
			}
			results[i] = &pred
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := []insight.DosePrediction{}
	for _, p := range results {
		if p != nil {
			out = append(out, *p)
		}
	}
	doseresponse.SortPredictions(out)
	return out, nil
}

// Alerts projects every thresholded marker toward its nearest threshold
func (s *AnalysisService) Alerts(ctx context.Context, req AnalysisRequest) ([]insight.PredictiveAlert, error) {
	run, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.alerts(ctx, run)
}

func (s *AnalysisService) alerts(ctx context.Context, run *analysisRun) ([]insight.PredictiveAlert, error) {
	projector := projection.NewProjector(s.catalog)
	names := projector.Markers(run.system)

	results := make([]*insight.PredictiveAlert, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.defaults.Workers)
	for i, m := range names {
		i, m := i, m
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			points := run.builder.Build(run.reports, m, run.system)
			if alert, ok := projector.Project(m, points, run.system); ok {
				results[i] = &alert
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := []insight.PredictiveAlert{}
	for _, a := range results {
		if a != nil {
			out = append(out, *a)
		}
	}
	projection.SortAlerts(out)
	return out, nil
}

// Stability grades how settled the current protocol is
func (s *AnalysisService) Stability(ctx context.Context, req AnalysisRequest) (insight.TrtStabilityResult, error) {
	run, err := s.prepare(ctx, req)
	if err != nil {
		return insight.TrtStabilityResult{}, err
	}
	return s.stability(run), nil
}

func (s *AnalysisService) stability(run *analysisRun) insight.TrtStabilityResult {
	assessor := stability.NewAssessor(s.catalog, run.resolver)
	return assessor.Assess(run.reports, stability.Options{System: run.system, Language: run.lang})
}

// fingerprintInput is what a dashboard's fingerprint is computed over
type fingerprintInput struct {
	Dataset             lab.Dataset     `json:"dataset"`
	UnitSystem          lab.UnitSystem  `json:"unit_system"`
	WindowDays          int             `json:"window_days"`
	Language            string          `json:"language"`
	CurrentDose         *float64        `json:"current_dose"`
	SuggestedDoseOffset *float64        `json:"suggested_dose_offset"`
	Markers             []string        `json:"markers"`
	Priors              []lab.DosePrior `json:"priors"`
}

// Analyze runs every analysis and bundles the results. The same request
// always yields the same dashboard, fingerprint included.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalysisRequest) (*insight.Dashboard, error) {
	start := time.Now()
	run, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	fingerprint, err := core.ComputeFingerprint(fingerprintInput{
		Dataset:             run.req.Dataset,
		UnitSystem:          run.system,
		WindowDays:          run.window,
		Language:            run.lang,
		CurrentDose:         run.req.CurrentDose,
		SuggestedDoseOffset: run.req.SuggestedDoseOffset,
		Markers:             run.markers,
		Priors:              run.priors,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to fingerprint request")
	}

	allSeries := s.series(run)
	preds, err := s.predictions(ctx, run, allSeries)
	if err != nil {
		return nil, errors.Wrap(err, "dose predictions")
	}
	alerts, err := s.alerts(ctx, run)
	if err != nil {
		return nil, errors.Wrap(err, "predictive alerts")
	}

	dashboard := &insight.Dashboard{
		Fingerprint: fingerprint,
		UnitSystem:  run.system,
		WindowDays:  run.window,
		Language:    run.lang,
		Markers:     run.markers,
		Series:      allSeries,
		Events:      s.events(run),
		Predictions: preds,
		Alerts:      alerts,
		Stability:   s.stability(run),
	}
	if err := CheckFinite(dashboard); err != nil {
		return nil, errors.Wrap(err, "analysis produced a non-finite number")
	}

	s.logger.Info("[AnalysisService] %s: %d reports, %d markers, %d events, %d predictions, %d alerts, stability %s in %dms",
		fingerprint.Short(), len(run.reports), len(run.markers), len(dashboard.Events), len(preds), len(alerts),
		dashboard.Stability.Label, time.Since(start).Milliseconds())
	return dashboard, nil
}
