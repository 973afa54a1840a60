// Package batch runs the full analysis for configured sites and writes flat tables.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"critical-duration/internal/analysis"
	"critical-duration/internal/config"
	"critical-duration/internal/cvhs"
	"critical-duration/internal/data"
	"critical-duration/internal/events"
	"critical-duration/internal/log"
	"critical-duration/internal/metrics"
	"critical-duration/internal/model"
	"critical-duration/internal/routing"
	"critical-duration/internal/volwindow"
)

// SeriesSource fetches a daily series by gauge id.
type SeriesSource interface {
	FetchDaily(ctx context.Context, p data.DailyParams) (*model.Series, error)
}

// Pipeline analyzes one site at a time. Source is only used for sites without a data
// file; nil means NWIS.
type Pipeline struct {
	Source SeriesSource
	// WriteOutputs controls whether tables are written to each site's output dir.
	WriteOutputs bool
}

// EventOutcome is the volume-window result (or failure) for one screened event.
type EventOutcome struct {
	Event         model.Event `json:"event"`
	CriticalWidth int         `json:"critical_width,omitempty"`
	PeakFB        float64     `json:"peak_fb,omitempty"`
	PeakStorage   float64     `json:"peak_storage_af,omitempty"`
	PeakStorageOn time.Time   `json:"peak_storage_date,omitempty"`
	Error         string      `json:"error,omitempty"`
	ErrorKind     string      `json:"error_kind,omitempty"`
	Err           error       `json:"-"`

	Diagnostics []model.VolumeWindow   `json:"-"`
	Routed      []model.RoutedTimestep `json:"-"`
}

// SiteReport collects everything computed for one site. Stage failures are recorded in
// Errors and the remaining stages still run; Err is set only when the site could not be
// analyzed at all.
type SiteReport struct {
	Site     string                   `json:"site"`
	Events   model.Population         `json:"events"`
	Stats    *analysis.Statistics     `json:"stats,omitempty"`
	Method   analysis.Method          `json:"method"`
	Critical float64                  `json:"critical_duration,omitempty"`
	Monthly  []analysis.MonthStats    `json:"monthly"`
	Summary  []analysis.SeriesSummary `json:"summary"`
	Volume   []EventOutcome           `json:"volume_window,omitempty"`
	CVHS     *cvhs.Result             `json:"cvhs,omitempty"`
	Errors   []string                 `json:"errors,omitempty"`
	Err      error                    `json:"-"`
	Elapsed  time.Duration            `json:"elapsed"`
}

func (r *SiteReport) fail(stage string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", stage, err))
	log.Warnw("site stage failed", "site", r.Site, "stage", stage, "kind", metrics.ErrorKind(err), "error", err)
}

// LoadSeries reads the site's data file or fetches it from NWIS.
func (p *Pipeline) LoadSeries(ctx context.Context, sc config.SiteConfig) (*model.Series, error) {
	kind, err := model.ParseVariableKind(sc.Variable)
	if err != nil {
		return nil, err
	}
	if sc.DataFile != "" {
		return data.LoadSeriesCSV(sc.DataFile, sc.Site, kind)
	}
	src := p.Source
	if src == nil {
		src = data.NewNWISClient("")
	}
	s, err := src.FetchDaily(ctx, data.DailyParams{Site: sc.USGSSite, Kind: kind})
	if err != nil {
		return nil, err
	}
	s.Site = sc.Site
	return s, nil
}

// RunSite runs every configured stage for sc. The returned error is also stored in
// the report's Err.
func (p *Pipeline) RunSite(ctx context.Context, sc config.SiteConfig) (*SiteReport, error) {
	started := time.Now()
	rep := &SiteReport{Site: sc.Site}
	defer func() {
		rep.Elapsed = time.Since(started)
		metrics.Observe("site", started, rep.Err)
	}()

	method, err := analysis.ParseMethod(sc.Method)
	if err != nil {
		rep.Err = err
		return rep, err
	}
	rep.Method = method

	s, err := p.LoadSeries(ctx, sc)
	if err != nil {
		rep.Err = fmt.Errorf("load series: %w", err)
		return rep, rep.Err
	}
	evs, err := events.Detect(s, sc.Events.Threshold)
	if err != nil {
		rep.Err = fmt.Errorf("detect events: %w", err)
		return rep, rep.Err
	}
	rep.Events = evs
	rep.Monthly = analysis.Monthly(evs)
	rep.Summary = analysis.Summarize(s)
	log.Infow("events detected", "site", sc.Site, "threshold", sc.Events.Threshold, "events", len(evs), "days", s.Len())

	screen := sc.Events.Screening()
	if st, err := analysis.Estimate(evs, screen); err != nil {
		rep.fail("statistics", err)
	} else {
		rep.Stats = &st
		rep.Critical = st.Value(method)
	}

	if sc.Reservoir.RatingFile != "" {
		if err := p.reservoirStages(ctx, sc, s, evs.Screen(screen), rep); err != nil {
			rep.fail("reservoir", err)
		}
	}

	if p.WriteOutputs {
		if err := WriteSiteOutputs(sc.OutputDir, rep); err != nil {
			rep.Err = fmt.Errorf("write outputs: %w", err)
			return rep, rep.Err
		}
	}
	return rep, nil
}

func (p *Pipeline) reservoirStages(ctx context.Context, sc config.SiteConfig, s *model.Series, screened model.Population, rep *SiteReport) error {
	rating, err := data.LoadRating(sc.Reservoir.RatingFile)
	if err != nil {
		return err
	}
	rt, err := routing.NewRouter(rating)
	if err != nil {
		return err
	}

	var observed []model.RoutedTimestep
	if sc.Reservoir.ObservedFile != "" {
		if observed, err = data.LoadObservedCSV(sc.Reservoir.ObservedFile); err != nil {
			return err
		}
	}

	opts := volwindow.Options{MaxWidth: sc.Reservoir.MaxWidth}
	for _, ev := range screened {
		if err := ctx.Err(); err != nil {
			return err
		}
		rep.Volume = append(rep.Volume, AnalyzeEvent(rt, s, ev, observed, sc.Reservoir.StartElevation, opts))
	}

	if sc.CVHS.Enabled {
		res, err := cvhs.Analyze(s, rep.Events, rt, cvhs.Options{
			HydroDuration:  sc.CVHS.HydroDuration,
			Step:           sc.CVHS.Step,
			MinPeak:        sc.CVHS.MinPeak,
			StartElevation: sc.Reservoir.StartElevation,
		})
		if err != nil {
			rep.fail("cvhs", err)
		}
		rep.CVHS = res
	}
	return nil
}

// AnalyzeEvent runs the volume-window method for one event against observed, or against
// a record routed from startElevation when observed is nil. Failures are recorded on the
// outcome so the caller can move on to the next event.
func AnalyzeEvent(rt *routing.Router, s *model.Series, ev model.Event, observed []model.RoutedTimestep, startElevation float64, opts volwindow.Options) EventOutcome {
	started := time.Now()
	out := EventOutcome{Event: ev}
	fail := func(err error) EventOutcome {
		out.Err = err
		out.Error = err.Error()
		out.ErrorKind = metrics.ErrorKind(err)
		metrics.Observe("volume_window", started, err)
		log.Warnw("event skipped", "site", s.Site, "event", ev.StartDate.Format(model.DateLayout), "kind", out.ErrorKind, "error", err)
		return out
	}

	resdat := observed
	if resdat == nil {
		routed, err := rt.RouteSeries(s, ev.StartDate, ev.EndDate, startElevation)
		if err != nil {
			return fail(err)
		}
		out.Routed = routed.Steps
		out.PeakFB = routed.PeakElevation
		resdat = routed.Steps
	}

	res, err := volwindow.CriticalDuration(ev, s, resdat, opts)
	if res != nil {
		out.Diagnostics = res.Diagnostics
	}
	if err != nil {
		return fail(err)
	}
	out.CriticalWidth = res.CriticalWidth
	out.PeakStorage = res.PeakStorage
	out.PeakStorageOn = res.PeakStorageDate
	metrics.Observe("volume_window", started, nil)
	return out
}

type table struct {
	name  string
	write func(path string) error
}

// WriteSiteOutputs writes the report tables under dir.
func WriteSiteOutputs(dir string, rep *SiteReport) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tables := []table{
		{"events.csv", func(p string) error { return WriteEventsCSV(p, rep.Events) }},
		{"monthly.csv", func(p string) error { return WriteMonthlyCSV(p, rep.Monthly) }},
		{"summary.csv", func(p string) error { return WriteSummaryCSV(p, rep.Summary) }},
	}
	if rep.Stats != nil {
		tables = append(tables, table{"statistics.csv", func(p string) error { return WriteStatisticsCSV(p, *rep.Stats, rep.Method) }})
	}
	for _, t := range tables {
		if err := t.write(filepath.Join(dir, t.name)); err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
	}

	if len(rep.Volume) > 0 {
		if err := WriteVolumeCSV(filepath.Join(dir, "volume_window.csv"), rep.Volume); err != nil {
			return err
		}
		for _, o := range rep.Volume {
			tag := o.Event.StartDate.Format(model.DateLayout)
			if len(o.Diagnostics) > 0 {
				if err := volwindow.WriteDiagnosticsCSV(filepath.Join(dir, "vw_"+tag+".csv"), o.Diagnostics); err != nil {
					return err
				}
			}
			if len(o.Routed) > 0 {
				if err := routing.WriteRoutedCSV(filepath.Join(dir, "routed_"+tag+".csv"), o.Routed); err != nil {
					return err
				}
			}
		}
	}

	if rep.CVHS != nil && len(rep.CVHS.Curve) > 0 {
		if err := WriteCVHSCSV(filepath.Join(dir, "cvhs_curve.csv"), rep.CVHS); err != nil {
			return err
		}
	}
	return nil
}
