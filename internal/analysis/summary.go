package analysis

import (
	"math"
	"sort"
	"strconv"
	"time"

	"critical-duration/internal/model"

	"gonum.org/v1/gonum/stat"
)

// SeriesSummary is a record-level description of a daily series. Missing days are
// excluded from every statistic.
type SeriesSummary struct {
	Label string    `json:"label"` // "all" or the water year
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"sd"`
}

// Summarize returns the whole-record summary followed by one row per water year.
func Summarize(s *model.Series) []SeriesSummary {
	if s == nil || len(s.Days) == 0 {
		return nil
	}
	out := []SeriesSummary{summarizeDays("all", s.Days)}

	start := 0
	for i := 1; i <= len(s.Days); i++ {
		if i == len(s.Days) || s.Days[i].WaterYear != s.Days[start].WaterYear {
			wy := s.Days[start].WaterYear
			out = append(out, summarizeDays(strconv.Itoa(wy), s.Days[start:i]))
			start = i
		}
	}
	return out
}

func summarizeDays(label string, days []model.Day) SeriesSummary {
	sum := SeriesSummary{
		Label: label,
		Start: days[0].Date,
		End:   days[len(days)-1].Date,
	}

	vals := make([]float64, 0, len(days))
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	for _, d := range days {
		if !d.Valid {
			continue
		}
		vals = append(vals, d.Value)
		if d.Value < minv {
			minv = d.Value
		}
		if d.Value > maxv {
			maxv = d.Value
		}
	}
	sum.Count = len(vals)
	if len(vals) == 0 {
		return sum
	}
	sort.Float64s(vals)
	sum.Min = minv
	sum.Max = maxv
	sum.Mean = stat.Mean(vals, nil)
	sum.Median = percentileSorted(vals, 0.5)
	if len(vals) > 1 {
		sum.StdDev = stat.StdDev(vals, nil)
	}
	return sum
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
