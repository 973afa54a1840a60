// Package volwindow picks an event's critical duration by comparing, for each averaging
// width, the worst-case inflow volume of that width with the inflow volume that actually
// preceded the peak storage.
package volwindow

import (
	"fmt"
	"math"
	"time"

	"critical-duration/internal/model"

	"gonum.org/v1/gonum/floats"
)

// Options bounds the width sweep. MaxWidth <= 0 or above the event duration sweeps the
// whole event.
type Options struct {
	MaxWidth int `json:"max_width" yaml:"max_width"`
}

type Result struct {
	Event           model.Event          `json:"event"`
	CriticalWidth   int                  `json:"critical_width"`
	PeakStorageDate time.Time            `json:"peak_storage_date"`
	PeakStorage     float64              `json:"peak_storage_af"`
	Diagnostics     []model.VolumeWindow `json:"diagnostics"`
}

// CriticalDuration sweeps widths 1..MaxWidth over the event span of inflow.
//
// resdat must hold one record (storage and outflow, observed or routed) for every day of
// the event; a gap is a *model.DataCoverageError. Widths whose volume to peak is not
// positive, or whose window volume is zero, are reported but never selected. If no width
// qualifies the error wraps model.ErrNoValidWindow. Ties go to the smaller width.
func CriticalDuration(ev model.Event, inflow *model.Series, resdat []model.RoutedTimestep, opts Options) (*Result, error) {
	start, end := model.Date(ev.StartDate), model.Date(ev.EndDate)
	vals, err := inflow.Window(start, end)
	if err != nil {
		return nil, fmt.Errorf("volume window %s: inflow: %w", start.Format(model.DateLayout), err)
	}

	storage, err := eventStorage(resdat, start, len(vals))
	if err != nil {
		return nil, err
	}
	peak := floats.MaxIdx(storage)

	maxWidth := len(vals)
	if opts.MaxWidth > 0 && opts.MaxWidth < maxWidth {
		maxWidth = opts.MaxWidth
	}

	out := &Result{
		Event:           ev,
		PeakStorageDate: start.AddDate(0, 0, peak),
		PeakStorage:     storage[peak],
		Diagnostics:     make([]model.VolumeWindow, 0, maxWidth),
	}

	best := math.Inf(1)
	for w := 1; w <= maxWidth; w++ {
		row := sweepWidth(vals, w, peak, start)
		out.Diagnostics = append(out.Diagnostics, row)
		if !row.Valid {
			continue
		}
		if d := math.Abs(row.VWRatio - 1); d < best {
			best = d
			out.CriticalWidth = w
		}
	}

	if out.CriticalWidth == 0 {
		return out, fmt.Errorf("volume window %s: %w", start.Format(model.DateLayout), model.ErrNoValidWindow)
	}
	return out, nil
}

// sweepWidth finds the first placement of width w with the largest inflow sum and
// relates it to the volume from that placement to the storage peak.
func sweepWidth(vals []float64, w, peak int, start time.Time) model.VolumeWindow {
	at := 0
	maxSum := math.Inf(-1)
	for i := 0; i+w <= len(vals); i++ {
		if s := floats.Sum(vals[i : i+w]); s > maxSum {
			maxSum = s
			at = i
		}
	}

	var toPeak float64
	if peak >= at {
		toPeak = floats.Sum(vals[at : peak+1])
	} else {
		// Window starts after the peak: the span between them counts against it.
		toPeak = -floats.Sum(vals[peak+1 : at])
	}

	row := model.VolumeWindow{
		Width:          w,
		Start:          start.AddDate(0, 0, at),
		End:            start.AddDate(0, 0, at+w-1),
		AvgFlow:        maxSum / float64(w),
		VolumeAF:       maxSum * model.CFSDayToAcreFeet,
		VolumeToPeakAF: toPeak * model.CFSDayToAcreFeet,
	}
	if maxSum != 0 {
		row.VWRatio = toPeak / maxSum
	}
	row.Valid = toPeak > 0 && maxSum != 0
	return row
}

// eventStorage lines resdat up against the n event days starting at start.
func eventStorage(resdat []model.RoutedTimestep, start time.Time, n int) ([]float64, error) {
	end := start.AddDate(0, 0, n-1)
	byDate := make(map[time.Time]float64, len(resdat))
	for _, r := range resdat {
		byDate[model.Date(r.Date)] = r.Storage
	}

	storage := make([]float64, n)
	for i := range storage {
		d := start.AddDate(0, 0, i)
		af, ok := byDate[d]
		if !ok || math.IsNaN(af) {
			return nil, &model.DataCoverageError{What: "reservoir record", Start: start, End: end, Missing: d}
		}
		storage[i] = af
	}
	return storage, nil
}
