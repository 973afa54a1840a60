package routing

import (
	"critical-duration/internal/interp"
	"critical-duration/internal/model"
)

// PoolState captures the mutable reservoir state at the end of a day.
// Units:
// - Elevation: ft (forebay)
// - Storage: acre-feet
// - Outflow: cfs
type PoolState struct {
	Elevation float64
	Storage   float64
	Outflow   float64
}

// ratingTables are the three lookups level-pool routing needs, built once per rating.
type ratingTables struct {
	fbToAF *interp.Table
	fbToQD *interp.Table
	afToFB *interp.Table
}

func newRatingTables(rc model.RatingCurve) (*ratingTables, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	fbToAF, err := interp.NewTable("fb->af", rc.FB, rc.AF)
	if err != nil {
		return nil, err
	}
	fbToQD, err := interp.NewTable("fb->qd", rc.FB, rc.QD)
	if err != nil {
		return nil, err
	}
	afToFB, err := interp.NewTable("af->fb", rc.AF, rc.FB)
	if err != nil {
		return nil, err
	}
	return &ratingTables{fbToAF: fbToAF, fbToQD: fbToQD, afToFB: afToFB}, nil
}

// Reservoir is a level pool with a storage floor. The floor is the storage at the
// starting elevation; outflow is never allowed to draw the pool below it.
type Reservoir struct {
	StartElevation float64
	Floor          float64
	State          PoolState

	tables *ratingTables
	warn   func(*model.DomainWarning)
}

func newReservoir(tables *ratingTables, startElevation float64, warn func(*model.DomainWarning)) *Reservoir {
	r := &Reservoir{StartElevation: startElevation, tables: tables, warn: warn}
	r.Floor = r.lookup(tables.fbToAF, startElevation, 0)
	r.State = PoolState{
		Elevation: startElevation,
		Storage:   r.Floor,
		Outflow:   r.lookup(tables.fbToQD, startElevation, 0),
	}
	return r
}

func (r *Reservoir) lookup(t *interp.Table, x float64, decimals int) float64 {
	y, w := t.At(x, decimals)
	if w != nil && r.warn != nil {
		r.warn(w)
	}
	return y
}

// StepResult is what happened in one routed day.
type StepResult struct {
	// PrevOutflow is the previous day's outflow after any floor correction.
	PrevOutflow    float64
	FloorCorrected bool
	State          PoolState
}

// Step routes one day of inflow q (cfs) and advances the pool:
//   - storage changes by (inflow - previous outflow) over one day
//   - if that would drop storage below the floor, the previous outflow is revised
//     so storage lands exactly on the floor
//   - elevation and outflow are then read off the rating
func (r *Reservoir) Step(q float64) StepResult {
	prev := r.State
	res := StepResult{PrevOutflow: prev.Outflow}

	af := prev.Storage + (q-prev.Outflow)*model.CFSDayToAcreFeet
	if af < r.Floor {
		res.PrevOutflow = (prev.Storage-r.Floor)/model.CFSDayToAcreFeet + q
		res.FloorCorrected = true
		af = r.Floor
	}

	fb := r.lookup(r.tables.afToFB, af, 2)
	r.State = PoolState{
		Elevation: fb,
		Storage:   af,
		Outflow:   r.lookup(r.tables.fbToQD, fb, 0),
	}
	res.State = r.State
	return res
}
