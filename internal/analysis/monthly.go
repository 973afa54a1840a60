package analysis

import (
	"time"

	"critical-duration/internal/model"
)

// MonthStats summarizes events starting in one calendar month.
// MeanDuration and MeanPeak are only meaningful when Count > 0.
type MonthStats struct {
	Month        time.Month `json:"month"`
	Count        int        `json:"count"`
	Fraction     float64    `json:"fraction"`
	MeanDuration float64    `json:"mean_duration,omitempty"`
	MeanPeak     float64    `json:"mean_peak,omitempty"`
}

// Monthly groups evs by start month, January through December.
func Monthly(evs model.Population) []MonthStats {
	out := make([]MonthStats, 12)
	sumDur := make([]float64, 12)
	sumPeak := make([]float64, 12)
	for i := range out {
		out[i].Month = time.Month(i + 1)
	}
	for _, e := range evs {
		m := int(e.Month) - 1
		if m < 0 || m > 11 {
			continue
		}
		out[m].Count++
		sumDur[m] += float64(e.Duration)
		sumPeak[m] += e.Peak
	}
	for i := range out {
		if out[i].Count == 0 {
			continue
		}
		n := float64(out[i].Count)
		out[i].Fraction = n / float64(len(evs))
		out[i].MeanDuration = sumDur[i] / n
		out[i].MeanPeak = sumPeak[i] / n
	}
	return out
}
