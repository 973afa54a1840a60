package batch

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"
	"time"

	"critical-duration/internal/analysis"
	"critical-duration/internal/cvhs"
	"critical-duration/internal/model"
)

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return w.Error()
}

func WriteEventsCSV(path string, evs model.Population) error {
	rows := make([][]string, 0, len(evs))
	for _, e := range evs {
		rows = append(rows, []string{
			fmtDate(e.StartDate),
			fmtDate(e.EndDate),
			strconv.Itoa(e.Duration),
			fmtFloat(e.Peak),
			strconv.Itoa(int(e.Month)),
		})
	}
	return writeCSV(path, []string{"start_date", "end_date", "duration", "peak", "month"}, rows)
}

func WriteStatisticsCSV(path string, st analysis.Statistics, method analysis.Method) error {
	rows := [][]string{{
		strconv.Itoa(st.N),
		strconv.Itoa(st.Total),
		fmtFloat(st.Arithmetic),
		fmtFloat(st.Geometric),
		fmtFloat(st.PeakWeighted),
		fmtFloat(st.DurationWeightedPeak),
		string(method),
		fmtFloat(st.Value(method)),
	}}
	return writeCSV(path, []string{"n", "total", "arithmetic", "geometric", "peak_weighted", "duration_weighted_peak", "method", "critical_duration"}, rows)
}

func WriteMonthlyCSV(path string, months []analysis.MonthStats) error {
	rows := make([][]string, 0, len(months))
	for _, m := range months {
		row := []string{strconv.Itoa(int(m.Month)), strconv.Itoa(m.Count), fmtFloat(m.Fraction), "", ""}
		if m.Count > 0 {
			row[3] = fmtFloat(m.MeanDuration)
			row[4] = fmtFloat(m.MeanPeak)
		}
		rows = append(rows, row)
	}
	return writeCSV(path, []string{"month", "count", "fraction", "mean_duration", "mean_peak"}, rows)
}

func WriteSummaryCSV(path string, sums []analysis.SeriesSummary) error {
	rows := make([][]string, 0, len(sums))
	for _, s := range sums {
		rows = append(rows, []string{
			s.Label,
			fmtDate(s.Start),
			fmtDate(s.End),
			strconv.Itoa(s.Count),
			fmtFloat(s.Min),
			fmtFloat(s.Max),
			fmtFloat(s.Mean),
			fmtFloat(s.Median),
			fmtFloat(s.StdDev),
		})
	}
	return writeCSV(path, []string{"label", "start", "end", "count", "min", "max", "mean", "median", "sd"}, rows)
}

func WriteVolumeCSV(path string, outcomes []EventOutcome) error {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		row := []string{fmtDate(o.Event.StartDate), fmtDate(o.Event.EndDate), strconv.Itoa(o.Event.Duration), "", "", o.ErrorKind, o.Error}
		if o.Error == "" {
			row[3] = strconv.Itoa(o.CriticalWidth)
		}
		if o.PeakFB != 0 {
			row[4] = fmtFloat(o.PeakFB)
		}
		rows = append(rows, row)
	}
	return writeCSV(path, []string{"start_date", "end_date", "duration", "critical_width", "peak_fb", "error_kind", "error"}, rows)
}

// WriteCVHSCSV writes one row per duration with a peak-elevation column per event.
func WriteCVHSCSV(path string, res *cvhs.Result) error {
	header := []string{"duration", "proxy_flow", "pp", "n", "mean_peak_fb"}
	col := map[time.Time]int{}
	for _, h := range res.Hydrographs {
		col[h.Event.StartDate] = len(header)
		header = append(header, fmtDate(h.Event.StartDate))
	}

	rows := make([][]string, 0, len(res.Curve))
	for _, cp := range res.Curve {
		row := make([]string, len(header))
		row[0] = strconv.Itoa(cp.Duration)
		row[1] = fmtFloat(cp.ProxyFlow)
		row[2] = fmtFloat(cp.PlottingPosition)
		row[3] = strconv.Itoa(cp.N)
		if cp.N > 0 {
			row[4] = fmtFloat(cp.MeanPeakElevation)
		}
		for _, p := range cp.Peaks {
			if i, ok := col[p.EventStart]; ok {
				row[i] = fmtFloat(p.Elevation)
			}
		}
		rows = append(rows, row)
	}
	return writeCSV(path, header, rows)
}

// WriteReportCSV writes one line per site of a batch run.
func WriteReportCSV(path string, reports []*SiteReport) error {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		if r == nil {
			continue
		}
		row := []string{r.Site, strconv.Itoa(len(r.Events)), "", string(r.Method), "", strings.Join(r.Errors, "; ")}
		if r.Stats != nil {
			row[2] = fmtFloat(r.Critical)
		}
		if r.Err != nil {
			row[4] = r.Err.Error()
		}
		rows = append(rows, row)
	}
	return writeCSV(path, []string{"site", "events", "critical_duration", "method", "error", "stage_errors"}, rows)
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
