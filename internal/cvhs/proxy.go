package cvhs

import (
	"fmt"
	"time"

	"critical-duration/internal/interp"
	"critical-duration/internal/model"

	"gonum.org/v1/gonum/floats"
)

// ProxyPoint is the largest historical w-day mean flow and where it came from.
type ProxyPoint struct {
	Duration  int       `json:"duration"`
	Flow      float64   `json:"flow"`
	WaterYear int       `json:"water_year"`
	End       time.Time `json:"end"`
	// PlottingPosition is the Weibull position rank/(n+1) of Flow among the n annual maxima.
	PlottingPosition float64 `json:"pp"`
	Years            int     `json:"years"`
}

// annualMax is one water year's largest complete w-day mean.
type annualMax struct {
	waterYear int
	end       int
	mean      float64
}

// annualMaxima returns, per water year, the largest w-day rolling mean whose window holds
// no missing day and does not cross into another water year. Years without such a
// window are left out. Means are rounded to whole units.
func annualMaxima(s *model.Series, w int) []annualMax {
	var out []annualMax
	start := 0
	for i := 1; i <= len(s.Days); i++ {
		if i < len(s.Days) && s.Days[i].WaterYear == s.Days[start].WaterYear {
			continue
		}
		if m, ok := maxRollingMean(s.Days[start:i], w); ok {
			m.end += start
			out = append(out, m)
		}
		start = i
	}
	return out
}

func maxRollingMean(days []model.Day, w int) (annualMax, bool) {
	if len(days) < w {
		return annualMax{}, false
	}
	vals := make([]float64, len(days))
	gaps := make([]float64, len(days))
	for i, d := range days {
		if d.Valid {
			vals[i] = d.Value
		} else {
			gaps[i] = 1
		}
	}
	cum := floats.CumSum(make([]float64, len(vals)), vals)
	cumGaps := floats.CumSum(make([]float64, len(gaps)), gaps)

	best := annualMax{waterYear: days[0].WaterYear, end: -1}
	for end := w - 1; end < len(days); end++ {
		sum, missing := cum[end], cumGaps[end]
		if end >= w {
			sum -= cum[end-w]
			missing -= cumGaps[end-w]
		}
		if missing > 0 {
			continue
		}
		mean := sum / float64(w)
		if best.end < 0 || mean > best.mean {
			best.mean = mean
			best.end = end
		}
	}
	if best.end < 0 {
		return annualMax{}, false
	}
	best.mean = interp.Round(best.mean, 0)
	return best, true
}

// Proxy builds the proxy point for each duration. A duration with no complete window in
// any water year is a *model.DataCoverageError.
func Proxy(s *model.Series, durations []int) ([]ProxyPoint, error) {
	if s == nil || len(s.Days) == 0 {
		return nil, &model.ConfigurationError{Op: "cvhs proxy", Reason: "series is empty"}
	}
	out := make([]ProxyPoint, 0, len(durations))
	for _, w := range durations {
		maxima := annualMaxima(s, w)
		if len(maxima) == 0 {
			return nil, fmt.Errorf("cvhs proxy %d-day: %w", w, &model.DataCoverageError{
				What:  s.Site,
				Start: s.Start(),
				End:   s.Days[len(s.Days)-1].Date,
			})
		}
		top := maxima[0]
		for _, m := range maxima[1:] {
			if m.mean > top.mean {
				top = m
			}
		}
		n := len(maxima)
		out = append(out, ProxyPoint{
			Duration:         w,
			Flow:             top.mean,
			WaterYear:        top.waterYear,
			End:              s.Days[top.end].Date,
			PlottingPosition: 1 / float64(n+1),
			Years:            n,
		})
	}
	return out, nil
}
