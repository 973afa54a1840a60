package models

import (
	"critical-duration/internal/analysis"
	"critical-duration/internal/cvhs"
	"critical-duration/internal/model"
	"critical-duration/internal/routing"
)

// EventsResponse represents the detected event population of a series
type EventsResponse struct {
	Site     string                   `json:"site"`
	Events   model.Population         `json:"events"`
	Screened int                      `json:"screened"`
	Monthly  []analysis.MonthStats    `json:"monthly"`
	Summary  []analysis.SeriesSummary `json:"summary"`
}

// CriticalDurationResponse carries the statistics record and the value of the requested method
type CriticalDurationResponse struct {
	Site             string              `json:"site"`
	Method           analysis.Method     `json:"method"`
	CriticalDuration float64             `json:"critical_duration"`
	Statistics       analysis.Statistics `json:"statistics"`
}

// RouteResponse represents a routed hydrograph
type RouteResponse struct {
	ID string `json:"id,omitempty"`
	*routing.Result
}

// VolumeWindowEvent is the outcome for one screened event
type VolumeWindowEvent struct {
	Event           model.Event          `json:"event"`
	CriticalWidth   int                  `json:"critical_width,omitempty"`
	PeakStorageDate string               `json:"peak_storage_date,omitempty"`
	PeakStorageAF   float64              `json:"peak_storage_af,omitempty"`
	Diagnostics     []model.VolumeWindow `json:"diagnostics,omitempty"`
	Error           *ErrorDetail         `json:"error,omitempty"`
}

// VolumeWindowResponse represents a volume-window run over every screened event
type VolumeWindowResponse struct {
	ID     string              `json:"id,omitempty"`
	Site   string              `json:"site"`
	Events []VolumeWindowEvent `json:"events"`
}

// CVHSResponse represents a stage-duration curve
type CVHSResponse struct {
	Site string `json:"site"`
	*cvhs.Result
}

// RankResponse represents events ranked by peak
type RankResponse struct {
	Site     string                 `json:"site"`
	Rankings []analysis.RankedEvent `json:"rankings"`
}

// VariableInfo describes a supported series kind
type VariableInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Unit          string `json:"unit"`
	NWISParameter string `json:"nwis_parameter,omitempty"`
}

// MethodInfo describes a critical-duration statistic
type MethodInfo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Default     bool   `json:"default,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
