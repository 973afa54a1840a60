package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"critical-duration/internal/analysis"
	"critical-duration/internal/batch"
	"critical-duration/internal/config"
	"critical-duration/internal/cvhs"
	"critical-duration/internal/data"
	"critical-duration/internal/events"
	"critical-duration/internal/log"
	"critical-duration/internal/model"
	"critical-duration/internal/routing"
	"critical-duration/internal/volwindow"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	if err := log.Init(os.Getenv("LOG_DEBUG") == "true"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "events":
		err = cmdEvents(ctx, os.Args[2:])
	case "critical":
		err = cmdCritical(ctx, os.Args[2:])
	case "route":
		err = cmdRoute(os.Args[2:])
	case "volwindow":
		err = cmdVolumeWindow(ctx, os.Args[2:])
	case "cvhs":
		err = cmdCVHS(ctx, os.Args[2:])
	case "run":
		err = cmdRun(ctx, os.Args[2:])
	case "batch":
		err = cmdBatch(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Errorw("command failed", "command", os.Args[1], "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli events    --data flow.csv --threshold 5000 [--out events.csv]")
	fmt.Println("  cli critical  --config site.yaml [--method arithmetic|geometric|peak-weighted]")
	fmt.Println("  cli route     --rating rating.csv --inflow flow.csv --start-elevation 1250 --from 2011-04-20 --to 2011-05-20")
	fmt.Println("  cli volwindow --config site.yaml [--max-width 10] [--out results/]")
	fmt.Println("  cli cvhs      --config site.yaml [--out cvhs_curve.csv]")
	fmt.Println("  cli run       --config site.yaml")
	fmt.Println("  cli batch     --config batch.yaml [--concurrency 4]")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - any site flag overrides the value in --config")
	fmt.Println("  - without --data the series is fetched from NWIS for --usgs")
}

// siteFlags registers the flags shared by the per-site commands. The returned function
// loads --config (if given), then overlays any flag set on the command line.
func siteFlags(fs *flag.FlagSet) func() (*config.SiteConfig, error) {
	cfgPath := fs.String("config", "", "Path to site YAML config")
	site := fs.String("site", "", "Site name")
	dataFile := fs.String("data", "", "Daily series CSV (date,value)")
	usgs := fs.String("usgs", "", "USGS gauge id, fetched from NWIS when --data is not given")
	variable := fs.String("variable", "", "flow, stage, precipitation or swe")
	threshold := fs.Float64("threshold", 0, "Event threshold (strictly above)")
	minDuration := fs.Int("min-duration", 0, "Screen events with duration <= this")
	minPeak := fs.Float64("min-peak", 0, "Screen events with peak <= this")
	method := fs.String("method", "", "Statistic reported as the critical duration")
	rating := fs.String("rating", "", "Rating table (CSV or JSON with FB, AF, QD)")
	startElevation := fs.Float64("start-elevation", 0, "Starting pool elevation")

	return func() (*config.SiteConfig, error) {
		sc := &config.SiteConfig{}
		if *cfgPath != "" {
			loaded, err := config.LoadUnchecked(*cfgPath)
			if err != nil {
				return nil, err
			}
			sc = loaded
		}
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "site":
				sc.Site = *site
			case "data":
				sc.DataFile = *dataFile
			case "usgs":
				sc.USGSSite = *usgs
			case "variable":
				sc.Variable = *variable
			case "threshold":
				sc.Events.Threshold = *threshold
			case "min-duration":
				sc.Events.MinDuration = *minDuration
			case "min-peak":
				sc.Events.MinPeak = *minPeak
			case "method":
				sc.Method = *method
			case "rating":
				sc.Reservoir.RatingFile = *rating
			case "start-elevation":
				sc.Reservoir.StartElevation = *startElevation
			}
		})
		if sc.Site == "" {
			sc.Site = sc.USGSSite
		}
		if sc.Site == "" && sc.DataFile != "" {
			sc.Site = trimExt(filepath.Base(sc.DataFile))
		}
		sc.ApplyDefaults()
		if err := sc.Validate(); err != nil {
			return nil, err
		}
		return sc, nil
	}
}

func cmdEvents(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	load := siteFlags(fs)
	outPath := fs.String("out", "", "Optional events CSV path")
	_ = fs.Parse(args)

	sc, err := load()
	if err != nil {
		return err
	}
	s, err := (&batch.Pipeline{}).LoadSeries(ctx, *sc)
	if err != nil {
		return err
	}
	evs, err := events.Detect(s, sc.Events.Threshold)
	if err != nil {
		return err
	}

	fmt.Printf("%-4s %-10s %-10s %-8s %-12s\n", "#", "start", "end", "days", "peak")
	for i, e := range evs {
		fmt.Printf("%-4d %-10s %-10s %-8d %-12.1f\n", i+1, e.StartDate.Format(model.DateLayout), e.EndDate.Format(model.DateLayout), e.Duration, e.Peak)
	}
	fmt.Printf("%d events above %g in %d days\n", len(evs), sc.Events.Threshold, s.Len())

	if *outPath != "" {
		if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
			return err
		}
		if err := batch.WriteEventsCSV(*outPath, evs); err != nil {
			return err
		}
		fmt.Printf("Wrote %d rows to %s\n", len(evs), *outPath)
	}
	return nil
}

func cmdCritical(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("critical", flag.ExitOnError)
	load := siteFlags(fs)
	_ = fs.Parse(args)

	sc, err := load()
	if err != nil {
		return err
	}
	method, err := analysis.ParseMethod(sc.Method)
	if err != nil {
		return err
	}
	s, err := (&batch.Pipeline{}).LoadSeries(ctx, *sc)
	if err != nil {
		return err
	}
	evs, err := events.Detect(s, sc.Events.Threshold)
	if err != nil {
		return err
	}
	st, err := analysis.Estimate(evs, sc.Events.Screening())
	if err != nil {
		return err
	}

	fmt.Printf("site=%s events=%d screened=%d\n", sc.Site, st.Total, st.N)
	fmt.Printf("arithmetic=%.2f geometric=%.2f peak-weighted=%.2f duration-weighted-peak=%.1f\n",
		st.Arithmetic, st.Geometric, st.PeakWeighted, st.DurationWeightedPeak)
	fmt.Printf("critical duration (%s) = %.2f days\n", method, st.Value(method))
	return nil
}

func cmdRoute(args []string) error {
	fs := flag.NewFlagSet("route", flag.ExitOnError)
	ratingPath := fs.String("rating", "", "Rating table (CSV or JSON with FB, AF, QD)")
	inflowPath := fs.String("inflow", "", "Daily inflow CSV (date,value)")
	startElevation := fs.Float64("start-elevation", 0, "Starting pool elevation")
	from := fs.String("from", "", "First day to route (default: series start)")
	to := fs.String("to", "", "Last day to route (default: series end)")
	outPath := fs.String("out", "results/routed.csv", "Output CSV path")
	_ = fs.Parse(args)

	if *ratingPath == "" || *inflowPath == "" {
		return errors.New("--rating and --inflow are required")
	}
	rc, err := data.LoadRating(*ratingPath)
	if err != nil {
		return err
	}
	rt, err := routing.NewRouter(rc)
	if err != nil {
		return err
	}
	s, err := data.LoadSeriesCSV(*inflowPath, trimExt(filepath.Base(*inflowPath)), model.KindFlow)
	if err != nil {
		return err
	}
	if s.Len() == 0 {
		return &model.ConfigurationError{Op: "route", Reason: "inflow series is empty"}
	}

	first, last := s.Start(), s.Days[s.Len()-1].Date
	if *from != "" {
		if first, err = parseDay(*from); err != nil {
			return err
		}
	}
	if *to != "" {
		if last, err = parseDay(*to); err != nil {
			return err
		}
	}

	res, err := rt.RouteSeries(s, first, last, *startElevation)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		return err
	}
	if err := routing.WriteRoutedCSV(*outPath, res.Steps); err != nil {
		return err
	}

	peak := res.Steps[res.PeakIndex]
	fmt.Printf("Wrote %d rows to %s\n", len(res.Steps), *outPath)
	fmt.Printf("Peak FB=%.2f AF=%.0f on %s, floor corrections=%d, clamped lookups=%d\n",
		res.PeakElevation, res.PeakStorage, peak.Date.Format(model.DateLayout), res.FloorCorrections, len(res.Warnings))
	return nil
}

func cmdVolumeWindow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("volwindow", flag.ExitOnError)
	load := siteFlags(fs)
	observed := fs.String("observed", "", "Observed reservoir record CSV (date,AF,QD)")
	maxWidth := fs.Int("max-width", 0, "Longest window to sweep (0 = event duration)")
	outDir := fs.String("out", "", "Optional directory for per-event diagnostics CSVs")
	_ = fs.Parse(args)

	sc, err := load()
	if err != nil {
		return err
	}
	if *observed != "" {
		sc.Reservoir.ObservedFile = *observed
	}
	if sc.Reservoir.RatingFile == "" && sc.Reservoir.ObservedFile == "" {
		return &model.ConfigurationError{Op: "volwindow", Reason: "a rating or an observed record is required"}
	}

	s, err := (&batch.Pipeline{}).LoadSeries(ctx, *sc)
	if err != nil {
		return err
	}
	evs, err := events.Detect(s, sc.Events.Threshold)
	if err != nil {
		return err
	}
	screened := evs.Screen(sc.Events.Screening())
	if len(screened) == 0 {
		return fmt.Errorf("volwindow %s: %w", sc.Site, model.ErrEmptyPopulation)
	}

	var (
		rt  *routing.Router
		obs []model.RoutedTimestep
	)
	if sc.Reservoir.ObservedFile != "" {
		if obs, err = data.LoadObservedCSV(sc.Reservoir.ObservedFile); err != nil {
			return err
		}
	} else {
		rc, err := data.LoadRating(sc.Reservoir.RatingFile)
		if err != nil {
			return err
		}
		if rt, err = routing.NewRouter(rc); err != nil {
			return err
		}
	}

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			return err
		}
	}
	opts := volwindow.Options{MaxWidth: *maxWidth}
	fmt.Printf("%-10s %-10s %-6s %-8s %s\n", "start", "end", "days", "critical", "note")
	for _, ev := range screened {
		o := batch.AnalyzeEvent(rt, s, ev, obs, sc.Reservoir.StartElevation, opts)
		width, note := "-", o.Error
		if o.Err == nil {
			width = fmt.Sprint(o.CriticalWidth)
			note = "peak storage " + o.PeakStorageOn.Format(model.DateLayout)
		}
		fmt.Printf("%-10s %-10s %-6d %-8s %s\n", ev.StartDate.Format(model.DateLayout), ev.EndDate.Format(model.DateLayout), ev.Duration, width, note)

		if *outDir != "" && len(o.Diagnostics) > 0 {
			p := filepath.Join(*outDir, "vw_"+ev.StartDate.Format(model.DateLayout)+".csv")
			if err := volwindow.WriteDiagnosticsCSV(p, o.Diagnostics); err != nil {
				return err
			}
		}
	}
	return nil
}

func cmdCVHS(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cvhs", flag.ExitOnError)
	load := siteFlags(fs)
	hydroDuration := fs.Int("hydro-duration", 0, "Hydrograph length in days")
	step := fs.Int("step", 0, "Duration step")
	outPath := fs.String("out", "", "Optional curve CSV path")
	_ = fs.Parse(args)

	sc, err := load()
	if err != nil {
		return err
	}
	if *hydroDuration > 0 {
		sc.CVHS.HydroDuration = *hydroDuration
	}
	if *step > 0 {
		sc.CVHS.Step = *step
	}
	if sc.Reservoir.RatingFile == "" {
		return &model.ConfigurationError{Op: "cvhs", Reason: "a rating is required"}
	}

	s, err := (&batch.Pipeline{}).LoadSeries(ctx, *sc)
	if err != nil {
		return err
	}
	evs, err := events.Detect(s, sc.Events.Threshold)
	if err != nil {
		return err
	}
	rc, err := data.LoadRating(sc.Reservoir.RatingFile)
	if err != nil {
		return err
	}
	rt, err := routing.NewRouter(rc)
	if err != nil {
		return err
	}
	res, err := cvhs.Analyze(s, evs, rt, cvhs.Options{
		HydroDuration:  sc.CVHS.HydroDuration,
		Step:           sc.CVHS.Step,
		MinPeak:        sc.CVHS.MinPeak,
		StartElevation: sc.Reservoir.StartElevation,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%-6s %-10s %-8s %-4s %-10s\n", "days", "proxy", "pp", "n", "mean FB")
	for _, cp := range res.Curve {
		fmt.Printf("%-6d %-10.0f %-8.4f %-4d %-10.2f\n", cp.Duration, cp.ProxyFlow, cp.PlottingPosition, cp.N, cp.MeanPeakElevation)
	}
	if len(res.Skipped) > 0 {
		fmt.Printf("%d skipped (see log)\n", len(res.Skipped))
	}
	if *outPath != "" {
		if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
			return err
		}
		if err := batch.WriteCVHSCSV(*outPath, res); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", *outPath)
	}
	return nil
}

func cmdRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	load := siteFlags(fs)
	_ = fs.Parse(args)

	sc, err := load()
	if err != nil {
		return err
	}
	rep, err := (&batch.Pipeline{WriteOutputs: true}).RunSite(ctx, *sc)
	if err != nil {
		return err
	}
	printReport(rep)
	fmt.Printf("Wrote tables to %s\n", sc.OutputDir)
	return nil
}

func cmdBatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to batch YAML config")
	concurrency := fs.Int("concurrency", 0, "Sites analyzed at once (overrides config)")
	_ = fs.Parse(args)

	if *cfgPath == "" {
		return errors.New("--config is required")
	}
	bc, sites, err := config.LoadBatch(*cfgPath)
	if err != nil {
		return err
	}
	n := bc.Concurrency
	if *concurrency > 0 {
		n = *concurrency
	}

	reports, runErr := (&batch.Pipeline{WriteOutputs: true}).Run(ctx, sites, n)
	for _, rep := range reports {
		if rep != nil {
			printReport(rep)
		}
	}
	if err := os.MkdirAll(bc.OutputDir, 0o755); err != nil {
		return err
	}
	reportPath := filepath.Join(bc.OutputDir, "report.csv")
	if err := batch.WriteReportCSV(reportPath, reports); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", reportPath)
	return runErr
}

func printReport(rep *batch.SiteReport) {
	if rep.Err != nil {
		fmt.Printf("%-16s FAILED: %v\n", rep.Site, rep.Err)
		return
	}
	critical := "-"
	if rep.Stats != nil {
		critical = fmt.Sprintf("%.2f", rep.Critical)
	}
	fmt.Printf("%-16s events=%-4d critical(%s)=%s volume-window=%d cvhs=%t stage-errors=%d\n",
		rep.Site, len(rep.Events), rep.Method, critical, len(rep.Volume), rep.CVHS != nil, len(rep.Errors))
}

func parseDay(s string) (t time.Time, err error) {
	t, err = time.Parse(model.DateLayout, s)
	if err != nil {
		return t, &model.ConfigurationError{Op: "date", Reason: fmt.Sprintf("%q is not YYYY-MM-DD", s)}
	}
	return t, nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
