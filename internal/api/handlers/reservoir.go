package handlers

import (
	"net/http"
	"time"

	"critical-duration/internal/api/models"
	"critical-duration/internal/batch"
	"critical-duration/internal/cvhs"
	"critical-duration/internal/data"
	"critical-duration/internal/events"
	"critical-duration/internal/metrics"
	"critical-duration/internal/model"
	"critical-duration/internal/routing"
	"critical-duration/internal/volwindow"

	"github.com/gin-gonic/gin"
)

// ReservoirHandler serves routing, the volume-window method and CVHS. Routing and
// volume-window results are kept in memory so they can be fetched again by id.
type ReservoirHandler struct {
	source  batch.SeriesSource
	routes  *data.ResultCache[*routing.Result]
	windows *data.ResultCache[*models.VolumeWindowResponse]
}

// NewReservoirHandler creates a new reservoir handler. A nil source fetches from NWIS.
func NewReservoirHandler(source batch.SeriesSource, ttl time.Duration) *ReservoirHandler {
	if source == nil {
		source = data.NewNWISClient("")
	}
	return &ReservoirHandler{
		source:  source,
		routes:  data.NewResultCache[*routing.Result](ttl),
		windows: data.NewResultCache[*models.VolumeWindowResponse](ttl),
	}
}

// Close stops the cache sweepers.
func (h *ReservoirHandler) Close() {
	h.routes.Close()
	h.windows.Close()
}

// Route handles POST /api/v1/route
func (h *ReservoirHandler) Route(c *gin.Context) {
	var req models.RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	first, err := optionalDate("start_date", req.StartDate)
	if err != nil {
		respondError(c, err)
		return
	}

	started := time.Now()
	rt, err := routing.NewRouter(req.Rating)
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := rt.Route(req.Inflow, req.StartElevation)
	metrics.Observe("route", started, err)
	if err != nil {
		respondError(c, err)
		return
	}
	if !first.IsZero() {
		for i := range res.Steps {
			res.Steps[i].Date = first.AddDate(0, 0, i)
		}
	}

	id := h.routes.Put(res)
	c.JSON(http.StatusOK, models.RouteResponse{ID: id, Result: res})
}

// GetRoute handles GET /api/v1/route/:id
func (h *ReservoirHandler) GetRoute(c *gin.Context) {
	id := c.Param("id")
	res, ok := h.routes.Get(id)
	if !ok {
		abortWith(c, http.StatusNotFound, "NOT_FOUND", "Routing result not found or expired")
		return
	}
	c.JSON(http.StatusOK, models.RouteResponse{ID: id, Result: res})
}

// VolumeWindow handles POST /api/v1/volume-window
func (h *ReservoirHandler) VolumeWindow(c *gin.Context) {
	var req models.VolumeWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	var (
		rt       *routing.Router
		observed []model.RoutedTimestep
		err      error
	)
	if len(req.Observed) > 0 {
		if observed, err = observedRecord(req.Observed); err != nil {
			respondError(c, err)
			return
		}
	} else if rt, err = routing.NewRouter(req.Rating); err != nil {
		respondError(c, err)
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
	screened := evs.Screen(req.Screening())
	if len(screened) == 0 {
		abortWith(c, http.StatusUnprocessableEntity, "EMPTY_POPULATION", "No event passed screening")
		return
	}

	resp := &models.VolumeWindowResponse{Site: s.Site}
	opts := volwindow.Options{MaxWidth: req.MaxWidth}
	for _, ev := range screened {
		o := batch.AnalyzeEvent(rt, s, ev, observed, req.StartElevation, opts)
		e := models.VolumeWindowEvent{Event: o.Event, Diagnostics: o.Diagnostics}
		if o.Err != nil {
			_, detail := errorDetail(o.Err)
			e.Error = &detail
		} else {
			e.CriticalWidth = o.CriticalWidth
			e.PeakStorageAF = o.PeakStorage
			e.PeakStorageDate = o.PeakStorageOn.Format(model.DateLayout)
		}
		resp.Events = append(resp.Events, e)
	}

	resp.ID = h.windows.Put(resp)
	c.JSON(http.StatusOK, resp)
}

// GetVolumeWindow handles GET /api/v1/volume-window/:id
func (h *ReservoirHandler) GetVolumeWindow(c *gin.Context) {
	resp, ok := h.windows.Get(c.Param("id"))
	if !ok {
		abortWith(c, http.StatusNotFound, "NOT_FOUND", "Volume-window result not found or expired")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CVHS handles POST /api/v1/cvhs
func (h *ReservoirHandler) CVHS(c *gin.Context) {
	var req models.CVHSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	started := time.Now()
	rt, err := routing.NewRouter(req.Rating)
	if err != nil {
		respondError(c, err)
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
	res, err := cvhs.Analyze(s, evs, rt, cvhs.Options{
		HydroDuration:  req.HydroDuration,
		Step:           req.Step,
		MinPeak:        req.MinPeak,
		StartElevation: req.StartElevation,
	})
	metrics.Observe("cvhs", started, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CVHSResponse{Site: s.Site, Result: res})
}
