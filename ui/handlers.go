package ui

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"labsignal/adapters/dataset"
	"labsignal/adapters/excel"
	"labsignal/adapters/render"
	"labsignal/app"
	"labsignal/domain/core"
	"labsignal/domain/lab"
	"labsignal/internal/errors"
)

// analysisBody is the JSON body every analysis endpoint accepts
type analysisBody struct {
	Dataset             *lab.Dataset `json:"dataset"`
	UnitSystem          string       `json:"unit_system" binding:"omitempty,oneof=eu us EU US"`
	WindowDays          int          `json:"window_days" binding:"gte=0,lte=365"`
	Language            string       `json:"language" binding:"omitempty,max=16"`
	CurrentDose         *float64     `json:"current_dose" binding:"omitempty,gte=0"`
	SuggestedDoseOffset *float64     `json:"suggested_dose_offset"`
	Markers             []string     `json:"markers" binding:"omitempty,max=100,dive,required"`
	Format              string       `json:"format" binding:"omitempty,oneof=markdown html"`
}

// respondError writes err as JSON with the status its code maps to
func (s *Server) respondError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	code := errors.ResolveCode(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("[API] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "code": code})
}

// bindRequest decodes the body into an analysis request. A request without
// a dataset falls back to the server's configured dataset.
func (s *Server) bindRequest(c *gin.Context) (app.AnalysisRequest, analysisBody, bool) {
	var body analysisBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return app.AnalysisRequest{}, body, false
	}

	var ds lab.Dataset
	switch {
	case body.Dataset != nil:
		cleaned, err := dataset.Clean(*body.Dataset)
		if err != nil {
			s.respondError(c, errors.Wrap(err, "invalid dataset"))
			return app.AnalysisRequest{}, body, false
		}
		ds = cleaned
	case s.dataset != nil:
		loaded, err := s.dataset.LoadDataset(c.Request.Context())
		if err != nil {
			s.respondError(c, errors.Wrap(err, "failed to load dataset"))
			return app.AnalysisRequest{}, body, false
		}
		ds = loaded
	default:
		s.respondError(c, errors.InvalidInput("dataset is required"))
		return app.AnalysisRequest{}, body, false
	}

	return app.AnalysisRequest{
		Dataset:             ds,
		UnitSystem:          strings.ToLower(body.UnitSystem),
		WindowDays:          body.WindowDays,
		Language:            body.Language,
		CurrentDose:         body.CurrentDose,
		SuggestedDoseOffset: body.SuggestedDoseOffset,
		Markers:             body.Markers,
	}, body, true
}

// analysisHandler adapts one service call into a JSON endpoint
func analysisHandler[T any](s *Server, run func(context.Context, app.AnalysisRequest) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, _, ok := s.bindRequest(c)
		if !ok {
			return
		}
		out, err := run(c.Request.Context(), req)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleMarkers(c *gin.Context) {
	c.JSON(http.StatusOK, s.analysis.Catalog().Known())
}

func (s *Server) handleAnalyze(c *gin.Context) {
	analysisHandler(s, s.analysis.Analyze)(c)
}

func (s *Server) handleSeries(c *gin.Context) {
	analysisHandler(s, s.analysis.Series)(c)
}

func (s *Server) handleEvents(c *gin.Context) {
	analysisHandler(s, s.analysis.Events)(c)
}

func (s *Server) handlePredictions(c *gin.Context) {
	analysisHandler(s, s.analysis.Predictions)(c)
}

func (s *Server) handleAlerts(c *gin.Context) {
	analysisHandler(s, s.analysis.Alerts)(c)
}

func (s *Server) handleStability(c *gin.Context) {
	analysisHandler(s, s.analysis.Stability)(c)
}

func (s *Server) handleReport(c *gin.Context) {
	req, body, ok := s.bindRequest(c)
	if !ok {
		return
	}
	dash, err := s.analysis.Analyze(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if body.Format == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", render.HTML(dash))
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", render.Markdown(dash))
}

// handleChart draws the selected markers, or every series when none are selected
func (s *Server) handleChart(c *gin.Context) {
	req, _, ok := s.bindRequest(c)
	if !ok {
		return
	}
	dash, err := s.analysis.Analyze(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if len(req.Markers) > 0 && len(dash.Series) == 0 {
		s.respondError(c, core.NewNotFoundError("series", strings.Join(req.Markers, ", ")))
		return
	}

	var buf bytes.Buffer
	if err := s.charts.Page(dash, &buf); err != nil {
		s.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// handleImport converts an uploaded workbook or data file into a dataset
func (s *Server) handleImport(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		s.respondError(c, errors.InvalidInput("multipart field \"file\" is required"))
		return
	}
	format := dataset.FormatOf(file.Filename)
	if format == "" {
		s.respondError(c, errors.UnsupportedFormat(file.Filename))
		return
	}
	f, err := file.Open()
	if err != nil {
		s.respondError(c, errors.IOError("open", file.Filename, err))
		return
	}
	defer f.Close()

	ds, err := dataset.Decode(f, format)
	if err != nil {
		s.respondError(c, errors.Wrap(err, "failed to import "+file.Filename))
		return
	}
	s.logger.Info("[API] imported %s: %d reports, %d protocols", file.Filename, len(ds.Reports), len(ds.Protocols))
	c.JSON(http.StatusOK, ds)
}

// handleExport returns the dashboard as an xlsx workbook
func (s *Server) handleExport(c *gin.Context) {
	req, _, ok := s.bindRequest(c)
	if !ok {
		return
	}
	dash, err := s.analysis.Analyze(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := excel.WriteDashboard(*dash, &buf); err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="labsignal-`+dash.Fingerprint.Short()+`.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
