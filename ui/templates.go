package ui

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"labsignal/adapters/render"
	"labsignal/app"
)

// indexData is what templates/index.html renders
type indexData struct {
	Title   string
	Empty   bool
	Error   string
	Report  template.HTML
	Markers []string
	Short   string
}

// renderTemplate executes a template with the given data
func (s *Server) renderTemplate(c *gin.Context, status int, templateName string, data interface{}) {
	// render to a buffer first so a failing template never sends a partial page
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		s.logger.Error("[UI] template error for %s: %v", templateName, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "template rendering failed"})
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// handleIndex renders the report of the configured dataset
func (s *Server) handleIndex(c *gin.Context) {
	data := indexData{Title: "Lab signal"}
	if s.dataset == nil {
		data.Empty = true
		s.renderTemplate(c, http.StatusOK, "index.html", data)
		return
	}

	ds, err := s.dataset.LoadDataset(c.Request.Context())
	if err == nil {
		dash, aerr := s.analysis.Analyze(c.Request.Context(), app.AnalysisRequest{Dataset: ds})
		if aerr == nil {
			data.Report = template.HTML(render.MarkdownToHTML(render.Markdown(dash), ""))
			data.Markers = dash.Markers
			data.Short = dash.Fingerprint.Short()
			s.renderTemplate(c, http.StatusOK, "index.html", data)
			return
		}
		err = aerr
	}

	s.logger.Warn("[UI] index: %v", err)
	data.Error = err.Error()
	s.renderTemplate(c, http.StatusInternalServerError, "index.html", data)
}
