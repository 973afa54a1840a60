package model

import "time"

// Event is one contiguous run of days above the detection threshold.
// Duration = EndDate - StartDate + 1 days; Peak is the maximum inside the run.
type Event struct {
	StartDate time.Time  `json:"start_date"`
	EndDate   time.Time  `json:"end_date"`
	Duration  int        `json:"duration"`
	Peak      float64    `json:"peak"`
	Month     time.Month `json:"month"`

	// Positions of StartDate and EndDate in the series the event was detected in.
	StartIndex int `json:"-"`
	EndIndex   int `json:"-"`
}

// Screening holds the exclusive lower bounds applied before computing statistics.
// Zero values mean no screening.
type Screening struct {
	MinDuration int     `json:"min_duration" yaml:"min_duration"`
	MinPeak     float64 `json:"min_peak" yaml:"min_peak"`
}

// Admits reports whether e passes both bounds (strictly greater).
func (s Screening) Admits(e Event) bool {
	return e.Duration > s.MinDuration && e.Peak > s.MinPeak
}

// Population is an event table in detection order.
type Population []Event

// Screen returns the admitted subset. The receiver is left untouched so callers keep the
// full population for diagnostics.
func (p Population) Screen(s Screening) Population {
	out := make(Population, 0, len(p))
	for _, e := range p {
		if s.Admits(e) {
			out = append(out, e)
		}
	}
	return out
}

func (p Population) Durations() []float64 {
	out := make([]float64, len(p))
	for i, e := range p {
		out[i] = float64(e.Duration)
	}
	return out
}

func (p Population) Peaks() []float64 {
	out := make([]float64, len(p))
	for i, e := range p {
		out[i] = e.Peak
	}
	return out
}
