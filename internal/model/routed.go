package model

import "time"

// CFSDayToAcreFeet converts one cfs sustained for a day to acre-feet
// (86400 s/day over 43560 ft²/acre).
const CFSDayToAcreFeet = 86400.0 / 43560.0

// RoutedTimestep is one row of a level-pool routing run. Date is zero when the
// hydrograph being routed is not tied to calendar dates.
type RoutedTimestep struct {
	Index     int       `json:"index"`
	Date      time.Time `json:"date,omitempty"`
	Inflow    float64   `json:"q"`
	Elevation float64   `json:"fb"`
	Storage   float64   `json:"af"`
	Outflow   float64   `json:"qd"`

	// FloorCorrected marks a step whose outflow was revised so that the next step
	// lands exactly on the starting storage.
	FloorCorrected bool `json:"floor_corrected,omitempty"`
}

// VolumeWindow is one diagnostics row of the volume-window sweep.
type VolumeWindow struct {
	Width          int       `json:"width"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	AvgFlow        float64   `json:"avg_flow"`
	VolumeAF       float64   `json:"volume_af"`
	VolumeToPeakAF float64   `json:"volume_to_peak_af"`
	VWRatio        float64   `json:"vw_ratio"`
	// Valid is false when the row cannot be a critical-duration candidate
	// (non-positive volume to peak or zero window volume).
	Valid bool `json:"valid"`
}
