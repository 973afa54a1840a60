package models

import "critical-duration/internal/model"

// SeriesInput is a daily series sent inline or fetched from NWIS.
// Values are consecutive days from Start; null marks a missing day.
type SeriesInput struct {
	Site     string     `json:"site,omitempty"`
	Variable string     `json:"variable,omitempty"` // "flow" (default), "stage", "precipitation"
	Start    string     `json:"start,omitempty"`    // YYYY-MM-DD
	Values   []*float64 `json:"values,omitempty"`

	// USGSSite fetches daily values from NWIS instead of using Values.
	USGSSite  string `json:"usgs_site,omitempty"`
	StartDate string `json:"start_date,omitempty"` // NWIS range, YYYY-MM-DD
	EndDate   string `json:"end_date,omitempty"`
}

// ScreeningInput holds event detection and screening parameters.
type ScreeningInput struct {
	Threshold   float64 `json:"threshold"`
	MinDuration int     `json:"min_duration,omitempty"`
	MinPeak     float64 `json:"min_peak,omitempty"`
}

func (s ScreeningInput) Screening() model.Screening {
	return model.Screening{MinDuration: s.MinDuration, MinPeak: s.MinPeak}
}

// EventsRequest represents the request body for POST /api/v1/events
type EventsRequest struct {
	Series SeriesInput `json:"series"`
	ScreeningInput
}

// CriticalDurationRequest represents the request body for POST /api/v1/critical-duration
type CriticalDurationRequest struct {
	Series SeriesInput `json:"series"`
	ScreeningInput
	Method string `json:"method,omitempty"` // "arithmetic", "geometric", "peak-weighted" (default)
}

// RouteRequest represents the request body for POST /api/v1/route
type RouteRequest struct {
	Rating         model.RatingCurve `json:"rating"`
	StartElevation float64           `json:"start_elevation"`
	Inflow         []float64         `json:"inflow" binding:"required"`
	StartDate      string            `json:"start_date,omitempty"` // dates the steps if set
}

// ObservedRow is one measured reservoir record day.
type ObservedRow struct {
	Date    string  `json:"date"`
	Storage float64 `json:"af"`
	Outflow float64 `json:"qd"`
	FB      float64 `json:"fb,omitempty"`
}

// VolumeWindowRequest represents the request body for POST /api/v1/volume-window.
// Every screened event is analyzed against Observed when given, otherwise against
// records routed through Rating from StartElevation.
type VolumeWindowRequest struct {
	Series SeriesInput `json:"series"`
	ScreeningInput
	Rating         model.RatingCurve `json:"rating"`
	StartElevation float64           `json:"start_elevation"`
	Observed       []ObservedRow     `json:"observed,omitempty"`
	MaxWidth       int               `json:"max_width,omitempty"`
}

// CVHSRequest represents the request body for POST /api/v1/cvhs
type CVHSRequest struct {
	Series         SeriesInput       `json:"series"`
	Threshold      float64           `json:"threshold"`
	Rating         model.RatingCurve `json:"rating"`
	StartElevation float64           `json:"start_elevation"`
	HydroDuration  int               `json:"hydro_duration" binding:"required"`
	Step           int               `json:"step,omitempty"`
	MinPeak        float64           `json:"min_peak,omitempty"`
}

// RankRequest represents a request to rank events by peak
type RankRequest struct {
	Series SeriesInput `json:"series"`
	ScreeningInput
	Limit int `json:"limit,omitempty"` // default: 10
}
