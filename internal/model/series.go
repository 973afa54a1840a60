package model

import (
	"fmt"
	"math"
	"time"
)

// VariableKind tags what a series measures. It is resolved once when the series is
// built and never re-inferred downstream.
type VariableKind string

const (
	KindFlow          VariableKind = "flow"
	KindStage         VariableKind = "stage"
	KindSWE           VariableKind = "swe"
	KindPrecipitation VariableKind = "precipitation"
)

func ParseVariableKind(s string) (VariableKind, error) {
	switch k := VariableKind(s); k {
	case KindFlow, KindStage, KindSWE, KindPrecipitation:
		return k, nil
	case "":
		return KindFlow, nil
	default:
		return "", &ConfigurationError{Op: "variable kind", Reason: fmt.Sprintf("unknown kind %q", s)}
	}
}

// Day is one daily observation. Valid=false marks an explicitly missing day; Value is
// meaningless in that case.
type Day struct {
	Date      time.Time
	Value     float64
	Valid     bool
	Month     time.Month
	WaterYear int
}

// Series is a contiguous daily record for one site. Once handed to the analysis
// packages it is treated as read-only.
type Series struct {
	Site string
	Kind VariableKind
	Days []Day
}

// Date normalizes t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WaterYear returns the water year (Oct 1 - Sep 30) that d falls in.
func WaterYear(d time.Time) int {
	if d.Month() >= time.October {
		return d.Year() + 1
	}
	return d.Year()
}

// NewDay builds a Day with its calendar attributes. NaN values become missing days.
func NewDay(date time.Time, value float64) Day {
	date = Date(date)
	day := Day{
		Date:      date,
		Month:     date.Month(),
		WaterYear: WaterYear(date),
	}
	if !math.IsNaN(value) {
		day.Value = value
		day.Valid = true
	}
	return day
}

// NewSeries builds a contiguous series starting at start with one value per day.
// NaN marks a missing day.
func NewSeries(site string, kind VariableKind, start time.Time, values []float64) *Series {
	s := &Series{Site: site, Kind: kind, Days: make([]Day, len(values))}
	d := Date(start)
	for i, v := range values {
		s.Days[i] = NewDay(d, v)
		d = d.AddDate(0, 0, 1)
	}
	return s
}

// Validate checks the daily contiguity invariant.
func (s *Series) Validate() error {
	if s == nil {
		return &ConfigurationError{Op: "series", Reason: "series is nil"}
	}
	for i := 1; i < len(s.Days); i++ {
		want := s.Days[i-1].Date.AddDate(0, 0, 1)
		if !s.Days[i].Date.Equal(want) {
			return &ConfigurationError{
				Op: "series",
				Reason: fmt.Sprintf("dates must advance by one day: %s follows %s",
					s.Days[i].Date.Format(DateLayout), s.Days[i-1].Date.Format(DateLayout)),
			}
		}
	}
	return nil
}

func (s *Series) Len() int { return len(s.Days) }

// Start returns the first date, or the zero time for an empty series.
func (s *Series) Start() time.Time {
	if len(s.Days) == 0 {
		return time.Time{}
	}
	return s.Days[0].Date
}

// IndexOf returns the position of date in the series, or -1 if it is outside.
func (s *Series) IndexOf(date time.Time) int {
	if len(s.Days) == 0 {
		return -1
	}
	idx := DaysBetween(s.Days[0].Date, date)
	if idx < 0 || idx >= len(s.Days) {
		return -1
	}
	return idx
}

// Window returns the values for [start, end] inclusive. Any day outside the series or
// missing yields a DataCoverageError naming the first gap.
func (s *Series) Window(start, end time.Time) ([]float64, error) {
	i, j := s.IndexOf(start), s.IndexOf(end)
	if i < 0 || j < 0 || j < i {
		return nil, &DataCoverageError{What: s.Site, Start: Date(start), End: Date(end)}
	}
	out := make([]float64, 0, j-i+1)
	for k := i; k <= j; k++ {
		if !s.Days[k].Valid {
			return nil, &DataCoverageError{What: s.Site, Start: Date(start), End: Date(end), Missing: s.Days[k].Date}
		}
		out = append(out, s.Days[k].Value)
	}
	return out, nil
}

// DaysBetween returns the whole number of days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(Date(b).Sub(Date(a)).Hours() / 24))
}

const DateLayout = "2006-01-02"
