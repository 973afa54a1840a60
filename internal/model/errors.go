package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyPopulation is returned when screening leaves no events to summarize.
var ErrEmptyPopulation = errors.New("empty event population")

// ErrNoValidWindow is returned when a volume-window sweep has no admissible width.
var ErrNoValidWindow = errors.New("no valid volume window")

// ConfigurationError reports malformed inputs: bad interpolation tables, invalid
// rating curves, out-of-range parameters.
type ConfigurationError struct {
	Op     string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// DataCoverageError reports that a record does not span the requested dates.
type DataCoverageError struct {
	What    string
	Start   time.Time
	End     time.Time
	Missing time.Time // first uncovered day, zero if the range itself is outside
}

func (e *DataCoverageError) Error() string {
	msg := fmt.Sprintf("%s does not cover %s..%s", e.What, e.Start.Format(DateLayout), e.End.Format(DateLayout))
	if !e.Missing.IsZero() {
		msg += fmt.Sprintf(" (missing %s)", e.Missing.Format(DateLayout))
	}
	return msg
}

// DomainWarning is non-fatal: a lookup fell outside the table and was clamped to the
// boundary value.
type DomainWarning struct {
	Table   string  `json:"table"`
	Value   float64 `json:"value"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Clamped float64 `json:"clamped"`
}

func (w *DomainWarning) Error() string {
	return fmt.Sprintf("%s: %g outside [%g, %g], clamped to %g", w.Table, w.Value, w.Min, w.Max, w.Clamped)
}

// IsConfiguration reports whether err wraps a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsCoverage reports whether err wraps a DataCoverageError.
func IsCoverage(err error) bool {
	var de *DataCoverageError
	return errors.As(err, &de)
}
