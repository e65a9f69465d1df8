package ui

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"labsignal/adapters/render"
	"labsignal/app"
	"labsignal/internal"
	"labsignal/ports"
)

//go:embed templates/*.html
var templateFiles embed.FS

// MaxUploadBytes bounds request bodies and uploaded workbooks
const MaxUploadBytes = 16 << 20

// Server represents the web server for the lab signal dashboard
type Server struct {
	router    *gin.Engine
	analysis  *app.AnalysisService
	charts    *render.ChartRenderer
	dataset   ports.DatasetSource
	templates *template.Template
	logger    *internal.Logger
}

// NewServer creates a new web server instance. dataset is optional: when
// set, requests without a dataset of their own analyze it.
func NewServer(analysis *app.AnalysisService, dataset ports.DatasetSource, ginMode string, logger *internal.Logger) (*Server, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if ginMode != "" {
		gin.SetMode(ginMode)
	}

	tmpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:    gin.New(),
		analysis:  analysis,
		charts:    render.NewChartRenderer(analysis.Catalog()),
		dataset:   dataset,
		templates: tmpl,
		logger:    logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api/v1")
	api.GET("/markers", s.handleMarkers)
	api.POST("/analyze", s.handleAnalyze)
	api.POST("/series", s.handleSeries)
	api.POST("/events", s.handleEvents)
	api.POST("/dose-predictions", s.handlePredictions)
	api.POST("/alerts", s.handleAlerts)
	api.POST("/stability", s.handleStability)
	api.POST("/report", s.handleReport)
	api.POST("/chart", s.handleChart)
	api.POST("/import", s.handleImport)
	api.POST("/export", s.handleExport)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	s.logger.Info("[Server] listening on %s", addr)
	return s.router.Run(addr)
}
