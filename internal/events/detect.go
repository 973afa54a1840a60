package events

import (
	"critical-duration/internal/model"
)

type state int

const (
	outside state = iota
	inEvent
)

// Detect scans s once and returns every run of consecutive days strictly above
// threshold. A missing day closes an open run the same way a sub-threshold day does.
// A run still open when the series ends has no closing day and is dropped.
func Detect(s *model.Series, threshold float64) (model.Population, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	evs := model.Population{}
	st := outside
	var cur model.Event

	for i, d := range s.Days {
		above := d.Valid && d.Value > threshold
		switch {
		case st == outside && above:
			st = inEvent
			cur = model.Event{
				StartDate:  d.Date,
				StartIndex: i,
				Duration:   1,
				Peak:       d.Value,
				Month:      d.Month,
			}
		case st == inEvent && above:
			cur.Duration++
			if d.Value > cur.Peak {
				cur.Peak = d.Value
			}
		case st == inEvent && !above:
			st = outside
			cur.EndIndex = i - 1
			cur.EndDate = s.Days[i-1].Date
			evs = append(evs, cur)
		}
	}
	return evs, nil
}
