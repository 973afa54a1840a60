package handlers

import (
	"net/http"
	"time"

	"critical-duration/internal/analysis"
	"critical-duration/internal/api/models"
	"critical-duration/internal/batch"
	"critical-duration/internal/data"
	"critical-duration/internal/events"
	"critical-duration/internal/metrics"

	"github.com/gin-gonic/gin"
)

// AnalysisHandler serves event detection and the statistical critical duration.
type AnalysisHandler struct {
	source batch.SeriesSource
}

// NewAnalysisHandler creates a new analysis handler. A nil source fetches from NWIS.
func NewAnalysisHandler(source batch.SeriesSource) *AnalysisHandler {
	if source == nil {
		source = data.NewNWISClient("")
	}
	return &AnalysisHandler{source: source}
}

// DetectEvents handles POST /api/v1/events
func (h *AnalysisHandler) DetectEvents(c *gin.Context) {
	var req models.EventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	started := time.Now()
	s, err := buildSeries(c.Request.Context(), h.source, req.Series)
	if err != nil {
		respondError(c, err)
		return
	}
	evs, err := events.Detect(s, req.Threshold)
	metrics.Observe("events", started, err)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.EventsResponse{
		Site:     s.Site,
		Events:   evs,
		Screened: len(evs.Screen(req.Screening())),
		Monthly:  analysis.Monthly(evs),
		Summary:  analysis.Summarize(s),
	})
}

// CriticalDuration handles POST /api/v1/critical-duration
func (h *AnalysisHandler) CriticalDuration(c *gin.Context) {
	var req models.CriticalDurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	method, err := analysis.ParseMethod(req.Method)
	if err != nil {
		respondError(c, err)
		return
	}

	started := time.Now()
	s, err := buildSeries(c.Request.Context(), h.source, req.Series)
	if err != nil {
		respondError(c, err)
		return
	}
	evs, err := events.Detect(s, req.Threshold)
	if err != nil {
		respondError(c, err)
		return
	}
	st, err := analysis.Estimate(evs, req.Screening())
	metrics.Observe("critical_duration", started, err)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CriticalDurationResponse{
		Site:             s.Site,
		Method:           method,
		CriticalDuration: st.Value(method),
		Statistics:       st,
	})
}
