package handlers

import (
	"net/http"

	"critical-duration/internal/analysis"
	"critical-duration/internal/api/models"
	"critical-duration/internal/events"

	"github.com/gin-gonic/gin"
)

// RankEvents handles POST /api/v1/events/rank
func (h *AnalysisHandler) RankEvents(c *gin.Context) {
	var req models.RankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

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

	// Default limit
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	ranked := analysis.RankByPeak(evs.Screen(req.Screening()))
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	c.JSON(http.StatusOK, models.RankResponse{Site: s.Site, Rankings: ranked})
}
