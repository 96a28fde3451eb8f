package ui

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Page template names
const (
	pageLogin      = "login.html"
	pageDashboard  = "dashboard.html"
	pageInspection = "inspection.html"
	pageHistory    = "history.html"
)

func parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"upper": strings.ToUpper,
	}
	t, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return t, nil
}

// wantsJSON reports whether the caller asked for JSON instead of a page
func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// render writes data as JSON for API callers, otherwise as the named page
func (s *Server) render(c *gin.Context, status int, name string, data interface{}) {
	if wantsJSON(c) {
		c.JSON(status, data)
		return
	}
	s.renderTemplate(c, status, name, data)
}

// renderTemplate executes a template into a buffer first so failures never leave half a page
func (s *Server) renderTemplate(c *gin.Context, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("template error for %s: %v (data %T)", name, err, data)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "template rendering failed"})
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if _, err := buf.WriteTo(c.Writer); err != nil {
		s.logger.Warn("error writing %s: %v", name, err)
	}
}
