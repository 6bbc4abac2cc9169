// internal/web/handlers.go - REST API handlers
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ampel/internal/checks"
	"ampel/internal/monitoring"
	"ampel/internal/scheduler"
	"ampel/internal/store"
)

type checkSummary struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Enabled     bool         `json:"enabled"`
	Schedule    string       `json:"schedule"`
	Status      store.Status `json:"status"`
	LastRunAt   *time.Time   `json:"last_run_at,omitempty"`
	NextRunAt   *time.Time   `json:"next_run_at,omitempty"`
	Message     string       `json:"message,omitempty"`
}

func (s *Server) getStatus(c *gin.Context) {
	allChecks, err := checks.LoadDir(s.config.ChecksDir)
	if err != nil {
		logrus.WithError(err).Error("Failed to load checks")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load checks"})
		return
	}

	summaries := make([]checkSummary, 0, len(allChecks))
	for i := range allChecks {
		summary, err := s.summarize(c, &allChecks[i])
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load check state"})
			return
		}
		summaries = append(summaries, summary)
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  summaries,
		"count": len(summaries),
	})
}

func (s *Server) summarize(c *gin.Context, check *checks.Check) (checkSummary, error) {
	summary := checkSummary{
		Name:        check.Name,
		Description: check.Description,
		Enabled:     check.Enabled,
		Schedule:    check.Schedule,
	}

	latest, err := s.store.GetLatestRun(c.Request.Context(), check.Name)
	if err != nil {
		logrus.WithField("check", check.Name).WithError(err).Error("Failed to get latest run")
		return summary, err
	}
	if latest != nil {
		summary.Status = latest.Status
		summary.LastRunAt = &latest.RunAt
		summary.Message = latest.AlertMessage

		if next, err := scheduler.NextRun(check.Schedule, latest.RunAt); err == nil {
			summary.NextRunAt = &next
		}
	}
	return summary, nil
}

func (s *Server) getChecks(c *gin.Context) {
	allChecks, err := checks.LoadDir(s.config.ChecksDir)
	if err != nil {
		logrus.WithError(err).Error("Failed to load checks")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load checks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  allChecks,
		"count": len(allChecks),
	})
}

func (s *Server) getCheck(c *gin.Context) {
	check, ok := s.findCheck(c)
	if !ok {
		return
	}

	summary, err := s.summarize(c, check)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load check state"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    check,
		"summary": summary,
	})
}

func (s *Server) runCheck(c *gin.Context) {
	check, ok := s.findCheck(c)
	if !ok {
		return
	}

	run, err := s.engine.RunCheck(c.Request.Context(), check, monitoring.RunOptions{Force: true})
	if err != nil {
		logrus.WithField("check", check.Name).WithError(err).Error("Triggered run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Check run failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": run})
}

func (s *Server) findCheck(c *gin.Context) (*checks.Check, bool) {
	allChecks, err := checks.LoadDir(s.config.ChecksDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load checks"})
		return nil, false
	}

	name := c.Param("name")
	for i := range allChecks {
		if allChecks[i].Name == name {
			return &allChecks[i], true
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "Check not found"})
	return nil, false
}

func (s *Server) getHistory(c *gin.Context) {
	filters := store.RunFilters{
		CheckName: c.Query("check"),
		Limit:     100,
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status, err := store.ParseStatus(statusStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filters.Status = status
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		filters.Limit = limit
	}

	if sinceStr := c.Query("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return
		}
		filters.Since = since
	}

	runs, err := s.store.GetRuns(c.Request.Context(), filters)
	if err != nil {
		logrus.WithError(err).Error("Failed to get runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  runs,
		"count": len(runs),
	})
}

func (s *Server) getStats(c *gin.Context) {
	days := 7
	if daysStr := c.Query("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = parsed
	}

	allChecks, err := checks.LoadDir(s.config.ChecksDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load checks"})
		return
	}

	totals := map[store.Status]int{}
	perCheck := make(map[string]map[store.Status]int, len(allChecks))

	for i := range allChecks {
		name := allChecks[i].Name
		counts, err := s.store.GetStatusCounts(c.Request.Context(), name, days)
		if err != nil {
			logrus.WithField("check", name).WithError(err).Error("Failed to get status counts")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get status counts"})
			return
		}
		perCheck[name] = counts
		for status, count := range counts {
			totals[status] += count
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"days":   days,
			"totals": totals,
			"checks": perCheck,
		},
	})
}
