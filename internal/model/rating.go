package model

import "fmt"

// RatingCurve relates pool elevation (FB, ft), storage (AF, acre-feet) and outflow
// (QD, cfs). Rows are sorted ascending by elevation.
type RatingCurve struct {
	FB []float64 `json:"fb"`
	AF []float64 `json:"af"`
	QD []float64 `json:"qd"`
}

// Validate checks lengths and monotonicity: FB strictly increasing, AF and QD
// non-decreasing with FB.
func (r RatingCurve) Validate() error {
	n := len(r.FB)
	if n < 2 {
		return &ConfigurationError{Op: "rating curve", Reason: fmt.Sprintf("need at least 2 rows, got %d", n)}
	}
	if len(r.AF) != n || len(r.QD) != n {
		return &ConfigurationError{
			Op:     "rating curve",
			Reason: fmt.Sprintf("column lengths differ: FB=%d AF=%d QD=%d", n, len(r.AF), len(r.QD)),
		}
	}
	for i := 1; i < n; i++ {
		if r.FB[i] <= r.FB[i-1] {
			return &ConfigurationError{Op: "rating curve", Reason: fmt.Sprintf("FB not strictly increasing at row %d", i)}
		}
		if r.AF[i] < r.AF[i-1] {
			return &ConfigurationError{Op: "rating curve", Reason: fmt.Sprintf("AF decreases at row %d", i)}
		}
		if r.QD[i] < r.QD[i-1] {
			return &ConfigurationError{Op: "rating curve", Reason: fmt.Sprintf("QD decreases at row %d", i)}
		}
	}
	return nil
}

// Contains reports whether elevation lies inside the tabulated FB range.
func (r RatingCurve) Contains(elevation float64) bool {
	return len(r.FB) > 0 && elevation >= r.FB[0] && elevation <= r.FB[len(r.FB)-1]
}
