package ui

import (
	"fmt"
	"net/http"
	"time"

	"screenscan/adapters/excel"
	"screenscan/app"
	"screenscan/domain/inspection"
	"screenscan/internal/errors"

	"github.com/gin-gonic/gin"
)

type dashboardView struct {
	Profile
	Summary               inspection.DashboardSummary `json:"summary"`
	Recent                []app.RecordRow             `json:"recent"`
	AverageConfidenceText string                      `json:"average_confidence_text"`
	Error                 string                      `json:"error,omitempty"`
}

type historyView struct {
	Profile
	Filter string          `json:"filter"`
	Query  string          `json:"query"`
	Rows   []app.RecordRow `json:"rows"`
	Error  string          `json:"error,omitempty"`
}

func (s *Server) handleDashboard(c *gin.Context) {
	client := workspace(c)
	summary, err := client.Dashboard(c.Request.Context())
	if err != nil && !errors.HasCode(err, errors.CodeReadError) {
		c.JSON(statusOf(err), gin.H{"error": errorText(err)})
		return
	}

	s.render(c, http.StatusOK, pageDashboard, dashboardView{
		Profile:               profileOf(client),
		Summary:               summary,
		Recent:                app.ProjectRecords(summary.Recent),
		AverageConfidenceText: app.FormatConfidence(summary.AverageConfidence, ""),
		Error:                 errorText(err),
	})
}

// loadHistory parses the filter query parameters and loads the matching records
func loadHistory(c *gin.Context) (inspection.Category, string, []inspection.Record, error) {
	query := c.Query("q")
	category, err := inspection.ParseCategory(c.Query("filter"))
	if err != nil {
		return "", query, []inspection.Record{}, errors.Invalid(err)
	}
	records, err := workspace(c).History(c.Request.Context(), category, query)
	return category, query, records, err
}

func (s *Server) handleHistory(c *gin.Context) {
	category, query, records, err := loadHistory(c)
	if err != nil && !errors.HasCode(err, errors.CodeReadError) {
		c.JSON(statusOf(err), gin.H{"error": errorText(err)})
		return
	}

	s.render(c, http.StatusOK, pageHistory, historyView{
		Profile: profileOf(workspace(c)),
		Filter:  string(category),
		Query:   query,
		Rows:    app.ProjectRecords(records),
		Error:   errorText(err),
	})
}

// handleExport downloads the filtered history as an XLSX report
func (s *Server) handleExport(c *gin.Context) {
	_, _, records, err := loadHistory(c)
	if err != nil {
		status := statusOf(err)
		if errors.HasCode(err, errors.CodeReadError) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": errorText(err)})
		return
	}

	now := time.Now()
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="inspection-report-%s.xlsx"`, now.Format("20060102")))
	c.Status(http.StatusOK)
	if err := excel.WriteHistory(c.Writer, records, now); err != nil {
		s.logger.Error("history export failed: %v", err)
	}
}
