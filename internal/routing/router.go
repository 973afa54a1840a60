// Package routing implements daily level-pool reservoir routing against a rating curve.
//
// A starting elevation outside the rating is not rejected. The storage and outflow
// lookups clamp to the nearest tabulated row, so the run starts from the boundary
// storage and outflow while FB[0] still reports the requested elevation. Every clamp is
// reported as a *model.DomainWarning.
package routing

import (
	"fmt"
	"iter"
	"math"
	"time"

	"critical-duration/internal/log"
	"critical-duration/internal/metrics"
	"critical-duration/internal/model"
)

type Router struct {
	Rating model.RatingCurve

	// OnWarning receives every clamped lookup. Nil logs the warning and counts it.
	OnWarning func(*model.DomainWarning)

	tables *ratingTables
}

// NewRouter validates rc and builds its lookup tables.
func NewRouter(rc model.RatingCurve) (*Router, error) {
	tables, err := newRatingTables(rc)
	if err != nil {
		return nil, err
	}
	return &Router{Rating: rc, tables: tables}, nil
}

// Result is an eagerly routed hydrograph.
type Result struct {
	Steps    []model.RoutedTimestep `json:"steps"`
	Warnings []model.DomainWarning  `json:"warnings,omitempty"`

	PeakIndex        int     `json:"peak_index"`
	PeakElevation    float64 `json:"peak_fb"`
	PeakStorage      float64 `json:"peak_af"`
	FloorCorrections int     `json:"floor_corrections"`
}

// Steps routes inflow lazily from startElevation. Each range over the returned
// sequence starts a fresh run. Day t-1 is yielded only once day t has been computed,
// since the floor correction on day t can revise day t-1's outflow; a yielded step is
// final. Inputs that Route would reject (see checkInputs) yield nothing.
func (rt *Router) Steps(inflow []float64, startElevation float64) iter.Seq[model.RoutedTimestep] {
	return rt.steps(inflow, startElevation, time.Time{}, rt.warnFunc(nil))
}

func (rt *Router) steps(inflow []float64, startElevation float64, first time.Time, warn func(*model.DomainWarning)) iter.Seq[model.RoutedTimestep] {
	return func(yield func(model.RoutedTimestep) bool) {
		if checkInputs(inflow, startElevation, first) != nil {
			return
		}
		res := newReservoir(rt.tables, startElevation, warn)
		pending := timestep(0, first, inflow[0], res.State)

		for t := 1; t < len(inflow); t++ {
			sr := res.Step(inflow[t])
			pending.Outflow = sr.PrevOutflow
			pending.FloorCorrected = sr.FloorCorrected
			if !yield(pending) {
				return
			}
			metrics.RoutedTimesteps.Inc()
			pending = timestep(t, first, inflow[t], sr.State)
		}
		if yield(pending) {
			metrics.RoutedTimesteps.Inc()
		}
	}
}

func timestep(idx int, first time.Time, q float64, st PoolState) model.RoutedTimestep {
	ts := model.RoutedTimestep{
		Index:     idx,
		Inflow:    q,
		Elevation: st.Elevation,
		Storage:   st.Storage,
		Outflow:   st.Outflow,
	}
	if !first.IsZero() {
		ts.Date = first.AddDate(0, 0, idx)
	}
	return ts
}

// Route routes inflow (cfs, one value per day) from startElevation and collects every
// timestep and warning.
func (rt *Router) Route(inflow []float64, startElevation float64) (*Result, error) {
	return rt.route(inflow, startElevation, time.Time{})
}

// RouteSeries routes the days from..to of s, stamping each timestep with its date.
// Any missing day in the span is a *model.DataCoverageError.
func (rt *Router) RouteSeries(s *model.Series, from, to time.Time, startElevation float64) (*Result, error) {
	vals, err := s.Window(from, to)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", s.Site, err)
	}
	return rt.route(vals, startElevation, model.Date(from))
}

func (rt *Router) route(inflow []float64, startElevation float64, first time.Time) (*Result, error) {
	if err := checkInputs(inflow, startElevation, first); err != nil {
		return nil, err
	}

	out := &Result{Steps: make([]model.RoutedTimestep, 0, len(inflow))}
	warn := rt.warnFunc(func(w *model.DomainWarning) {
		out.Warnings = append(out.Warnings, *w)
	})

	for ts := range rt.steps(inflow, startElevation, first, warn) {
		if len(out.Steps) == 0 || ts.Elevation > out.PeakElevation {
			out.PeakIndex = ts.Index
			out.PeakElevation = ts.Elevation
			out.PeakStorage = ts.Storage
		}
		if ts.FloorCorrected {
			out.FloorCorrections++
		}
		out.Steps = append(out.Steps, ts)
	}
	return out, nil
}

// checkInputs rejects what the mass balance cannot carry: an empty or non-finite inflow
// day, or a non-finite start elevation. A bad day of a dated run is a
// *model.DataCoverageError naming that day; otherwise errors are *model.ConfigurationError.
func checkInputs(inflow []float64, startElevation float64, first time.Time) error {
	if len(inflow) == 0 {
		return &model.ConfigurationError{Op: "route", Reason: "inflow is empty"}
	}
	if math.IsNaN(startElevation) || math.IsInf(startElevation, 0) {
		return &model.ConfigurationError{Op: "route", Reason: fmt.Sprintf("start elevation %g is not finite", startElevation)}
	}
	for i, q := range inflow {
		if !math.IsNaN(q) && !math.IsInf(q, 0) {
			continue
		}
		if first.IsZero() {
			return &model.ConfigurationError{Op: "route", Reason: fmt.Sprintf("inflow day %d is %g", i, q)}
		}
		return &model.DataCoverageError{
			What:    "inflow",
			Start:   first,
			End:     first.AddDate(0, 0, len(inflow)-1),
			Missing: first.AddDate(0, 0, i),
		}
	}
	return nil
}

// warnFunc chains collect (if any) with OnWarning or the default log-and-count handler.
func (rt *Router) warnFunc(collect func(*model.DomainWarning)) func(*model.DomainWarning) {
	handler := rt.OnWarning
	if handler == nil {
		handler = logWarning
	}
	return func(w *model.DomainWarning) {
		if collect != nil {
			collect(w)
		}
		handler(w)
	}
}

func logWarning(w *model.DomainWarning) {
	metrics.DomainWarnings.WithLabelValues(w.Table).Inc()
	log.Warnw("rating lookup clamped",
		"table", w.Table,
		"value", w.Value,
		"min", w.Min,
		"max", w.Max,
		"clamped", w.Clamped,
	)
}
