// Package cvhs builds a stage-duration design curve: historical event hydrographs are
// rescaled so their worst w-day volume matches the largest w-day mean on record, routed
// through the reservoir, and the resulting peak elevations averaged per duration.
package cvhs

import (
	"errors"
	"fmt"
	"math"
	"time"

	"critical-duration/internal/log"
	"critical-duration/internal/model"
	"critical-duration/internal/routing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Options struct {
	// HydroDuration is the length in days of every extracted hydrograph and the
	// longest duration on the curve.
	HydroDuration  int     `json:"hydro_duration" yaml:"hydro_duration"`
	Step           int     `json:"step" yaml:"step"`
	MinPeak        float64 `json:"min_peak" yaml:"min_peak"`
	StartElevation float64 `json:"start_elevation" yaml:"start_elevation"`
}

// Durations lists 1, 1+Step, ... up to HydroDuration.
func (o Options) Durations() []int {
	step := o.Step
	if step <= 0 {
		step = 1
	}
	var out []int
	for d := 1; d <= o.HydroDuration; d += step {
		out = append(out, d)
	}
	return out
}

// Hydrograph is the raw inflow around one event, HydroDuration days long.
type Hydrograph struct {
	Event model.Event `json:"event"`
	Start time.Time   `json:"start"`
	End   time.Time   `json:"end"`
	Flow  []float64   `json:"flow"`
}

type EventPeak struct {
	EventStart time.Time `json:"event_start"`
	Scale      float64   `json:"scale"`
	Elevation  float64   `json:"peak_fb"`
}

// CurvePoint is one duration of the stage-duration curve. MeanPeakElevation is zero
// when N is zero.
type CurvePoint struct {
	Duration          int         `json:"duration"`
	ProxyFlow         float64     `json:"proxy_flow"`
	PlottingPosition  float64     `json:"pp"`
	Peaks             []EventPeak `json:"peaks"`
	N                 int         `json:"n"`
	MeanPeakElevation float64     `json:"mean_peak_fb"`
}

// Skip records work left out of the curve. Duration is zero when the whole event was
// skipped.
type Skip struct {
	EventStart time.Time `json:"event_start"`
	Duration   int       `json:"duration,omitempty"`
	Reason     string    `json:"reason"`
	Err        error     `json:"-"`
}

type Result struct {
	Proxy       []ProxyPoint `json:"proxy"`
	Hydrographs []Hydrograph `json:"hydrographs"`
	Curve       []CurvePoint `json:"curve"`
	Skipped     []Skip       `json:"skipped,omitempty"`
}

// Analyze runs the stage-duration analysis for the events of s with peak above
// opts.MinPeak, routing through rt from opts.StartElevation.
//
// The start elevation must lie inside the rating. An event whose hydrograph window
// leaves the series or contains a missing day is skipped and recorded with its
// *model.DataCoverageError. If every event is skipped the first skip's error is returned.
func Analyze(s *model.Series, evs model.Population, rt *routing.Router, opts Options) (*Result, error) {
	if err := validate(rt, opts); err != nil {
		return nil, err
	}
	if opts.MinPeak == 0 {
		log.Warnw("cvhs without a minimum peak screens in every event", "site", s.Site)
	}

	durations := opts.Durations()
	proxy, err := Proxy(s, durations)
	if err != nil {
		return nil, err
	}

	selected := evs.Screen(model.Screening{MinDuration: math.MinInt, MinPeak: opts.MinPeak})
	if len(selected) == 0 {
		return nil, fmt.Errorf("cvhs %s: %w", s.Site, model.ErrEmptyPopulation)
	}

	out := &Result{Proxy: proxy}
	for _, ev := range selected {
		h, err := Extract(s, ev, opts.HydroDuration)
		if err != nil {
			out.Skipped = append(out.Skipped, Skip{EventStart: ev.StartDate, Reason: err.Error(), Err: err})
			log.Warnw("cvhs event skipped", "site", s.Site, "event", ev.StartDate.Format(model.DateLayout), "error", err)
			continue
		}
		out.Hydrographs = append(out.Hydrographs, h)
	}
	if len(out.Hydrographs) == 0 {
		return out, fmt.Errorf("cvhs %s: no event hydrograph usable: %w", s.Site, out.Skipped[0].Err)
	}

	for _, p := range proxy {
		cp := CurvePoint{Duration: p.Duration, ProxyFlow: p.Flow, PlottingPosition: p.PlottingPosition}
		var elevations []float64
		for _, h := range out.Hydrographs {
			scaled, scale, err := Scale(h.Flow, p.Duration, p.Flow)
			if err != nil {
				out.Skipped = append(out.Skipped, Skip{EventStart: h.Event.StartDate, Duration: p.Duration, Reason: err.Error(), Err: err})
				continue
			}
			routed, err := rt.Route(scaled, opts.StartElevation)
			if err != nil {
				return nil, fmt.Errorf("cvhs %s %d-day: %w", h.Start.Format(model.DateLayout), p.Duration, err)
			}
			cp.Peaks = append(cp.Peaks, EventPeak{EventStart: h.Event.StartDate, Scale: scale, Elevation: routed.PeakElevation})
			elevations = append(elevations, routed.PeakElevation)
		}
		cp.N = len(elevations)
		if cp.N > 0 {
			cp.MeanPeakElevation = stat.Mean(elevations, nil)
		}
		out.Curve = append(out.Curve, cp)
	}
	return out, nil
}

func validate(rt *routing.Router, opts Options) error {
	if rt == nil {
		return &model.ConfigurationError{Op: "cvhs", Reason: "router is nil"}
	}
	if opts.HydroDuration < 1 {
		return &model.ConfigurationError{Op: "cvhs", Reason: fmt.Sprintf("hydro_duration must be >= 1, got %d", opts.HydroDuration)}
	}
	if opts.Step < 0 {
		return &model.ConfigurationError{Op: "cvhs", Reason: fmt.Sprintf("step must be >= 0, got %d", opts.Step)}
	}
	if !rt.Rating.Contains(opts.StartElevation) {
		return &model.ConfigurationError{
			Op: "cvhs",
			Reason: fmt.Sprintf("start elevation %g outside rating [%g, %g]",
				opts.StartElevation, rt.Rating.FB[0], rt.Rating.FB[len(rt.Rating.FB)-1]),
		}
	}
	return nil
}

// Extract cuts the hydroDuration-day window around ev: a third of the slack before the
// event start and the rest after its end. Events longer than hydroDuration are trimmed
// the same way.
func Extract(s *model.Series, ev model.Event, hydroDuration int) (Hydrograph, error) {
	shift := hydroDuration - ev.Duration
	before := floorDiv(shift, 3)
	after := shift - before

	from := model.Date(ev.StartDate).AddDate(0, 0, -before)
	to := model.Date(ev.EndDate).AddDate(0, 0, after)
	flow, err := s.Window(from, to)
	if err != nil {
		return Hydrograph{}, err
	}
	return Hydrograph{Event: ev, Start: from, End: to, Flow: flow}, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

var errZeroVolume = errors.New("hydrograph has no volume to scale")

// Scale returns a copy of flow whose first maximal w-day window is multiplied so its
// mean equals target, along with the factor applied.
func Scale(flow []float64, w int, target float64) ([]float64, float64, error) {
	if w < 1 || w > len(flow) {
		return nil, 0, &model.ConfigurationError{
			Op:     "cvhs scale",
			Reason: fmt.Sprintf("duration %d outside hydrograph of %d days", w, len(flow)),
		}
	}
	at := 0
	maxSum := math.Inf(-1)
	for i := 0; i+w <= len(flow); i++ {
		if s := floats.Sum(flow[i : i+w]); s > maxSum {
			maxSum = s
			at = i
		}
	}
	if maxSum <= 0 {
		return nil, 0, errZeroVolume
	}

	scale := target / (maxSum / float64(w))
	out := append([]float64(nil), flow...)
	floats.Scale(scale, out[at:at+w])
	return out, scale, nil
}
