package analysis

import (
	"fmt"
	"math"

	"critical-duration/internal/model"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Method names one of the critical-duration averages.
type Method string

const (
	MethodArithmetic   Method = "arithmetic"
	MethodGeometric    Method = "geometric"
	MethodPeakWeighted Method = "peak-weighted"
)

func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodArithmetic, MethodGeometric, MethodPeakWeighted:
		return m, nil
	case "":
		return MethodPeakWeighted, nil
	default:
		return "", &model.ConfigurationError{Op: "method", Reason: fmt.Sprintf("unknown method %q", s)}
	}
}

// Statistics summarizes the durations of a screened event population.
type Statistics struct {
	Arithmetic   float64 `json:"arithmetic"`
	Geometric    float64 `json:"geometric"`
	PeakWeighted float64 `json:"peak_weighted"`
	// DurationWeightedPeak is Σ(d·p)/Σd, the peak plotted against the weighted duration.
	DurationWeightedPeak float64 `json:"duration_weighted_peak"`
	N                    int     `json:"n"`
	// Total is the size of the population before screening.
	Total int `json:"total"`
}

// Value returns the statistic selected by m.
func (s Statistics) Value(m Method) float64 {
	switch m {
	case MethodArithmetic:
		return s.Arithmetic
	case MethodGeometric:
		return s.Geometric
	default:
		return s.PeakWeighted
	}
}

// Estimate screens evs and computes the arithmetic, geometric and peak-weighted mean
// durations of what remains.
func Estimate(evs model.Population, screen model.Screening) (Statistics, error) {
	screened := evs.Screen(screen)
	if len(screened) == 0 {
		return Statistics{}, fmt.Errorf("screening d>%d, peak>%g left 0 of %d events: %w",
			screen.MinDuration, screen.MinPeak, len(evs), model.ErrEmptyPopulation)
	}

	durations := screened.Durations()
	peaks := screened.Peaks()
	if floats.Sum(peaks) == 0 {
		return Statistics{}, &model.ConfigurationError{Op: "critical duration", Reason: "event peaks sum to zero"}
	}

	arith := stat.Mean(durations, nil)
	return Statistics{
		Arithmetic:           arith,
		Geometric:            geometricMean(durations, arith),
		PeakWeighted:         stat.Mean(durations, peaks),
		DurationWeightedPeak: stat.Mean(peaks, durations),
		N:                    len(screened),
		Total:                len(evs),
	}, nil
}

// geometricMean is exp(mean(log d)) held to AM-GM. The log round trip can land an ulp
// above the arithmetic mean, and equal durations must give exactly that duration.
func geometricMean(durations []float64, arith float64) float64 {
	if floats.Min(durations) == floats.Max(durations) {
		return durations[0]
	}
	return math.Min(stat.GeometricMean(durations, nil), arith)
}
