package ui

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"labsignal/domain/core"
)

// RequestIDHeader carries the per-request identifier
const RequestIDHeader = "X-Request-ID"

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestID())
	s.router.Use(s.requestLogger())
	s.router.Use(limitBody(MaxUploadBytes))
}

// requestLogger logs one line per request through the app logger
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		msg := "[API] %s %s -> %d in %s (request %s)"
		args := []interface{}{c.Request.Method, c.Request.URL.Path, status, time.Since(start).Round(time.Microsecond), c.GetString("request_id")}
		switch {
		case status >= http.StatusInternalServerError:
			s.logger.Error(msg, args...)
		case status >= http.StatusBadRequest:
			s.logger.Warn(msg, args...)
		default:
			s.logger.Debug(msg, args...)
		}
	}
}

// requestID keeps a caller supplied X-Request-ID or assigns a new one
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = core.NewID().String()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
