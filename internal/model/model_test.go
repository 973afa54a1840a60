package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewSeriesCalendarAttributes(t *testing.T) {
	s := NewSeries("ARD", KindFlow, day(2020, 9, 30), []float64{1, math.NaN(), 3})
	require.NoError(t, s.Validate())
	require.Equal(t, 3, s.Len())

	assert.Equal(t, 2020, s.Days[0].WaterYear)
	assert.Equal(t, time.September, s.Days[0].Month)
	assert.Equal(t, 2021, s.Days[1].WaterYear)
	assert.Equal(t, time.October, s.Days[1].Month)
	assert.False(t, s.Days[1].Valid)
	assert.True(t, s.Days[2].Valid)
}

func TestSeriesValidateRejectsGaps(t *testing.T) {
	s := NewSeries("x", KindFlow, day(2021, 1, 1), []float64{1, 2})
	s.Days = append(s.Days, NewDay(day(2021, 1, 5), 3))

	err := s.Validate()
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
}

func TestSeriesWindow(t *testing.T) {
	s := NewSeries("x", KindFlow, day(2021, 1, 1), []float64{1, 2, math.NaN(), 4})

	vals, err := s.Window(day(2021, 1, 1), day(2021, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, vals)

	_, err = s.Window(day(2021, 1, 2), day(2021, 1, 4))
	require.Error(t, err)
	var cov *DataCoverageError
	require.ErrorAs(t, err, &cov)
	assert.Equal(t, day(2021, 1, 3), cov.Missing)

	_, err = s.Window(day(2020, 12, 30), day(2021, 1, 2))
	assert.True(t, IsCoverage(err))
}

func TestScreeningIsExclusive(t *testing.T) {
	p := Population{
		{Duration: 2, Peak: 100},
		{Duration: 3, Peak: 100},
		{Duration: 3, Peak: 101},
	}
	got := p.Screen(Screening{MinDuration: 2, MinPeak: 100})
	require.Len(t, got, 1)
	assert.Equal(t, 101.0, got[0].Peak)
	assert.Len(t, p, 3)
}

func TestRatingCurveValidate(t *testing.T) {
	tests := []struct {
		name    string
		rating  RatingCurve
		wantErr bool
	}{
		{"valid", RatingCurve{FB: []float64{100, 101}, AF: []float64{0, 10}, QD: []float64{0, 5}}, false},
		{"flat storage allowed", RatingCurve{FB: []float64{100, 101}, AF: []float64{10, 10}, QD: []float64{0, 5}}, false},
		{"single row", RatingCurve{FB: []float64{100}, AF: []float64{0}, QD: []float64{0}}, true},
		{"length mismatch", RatingCurve{FB: []float64{100, 101}, AF: []float64{0}, QD: []float64{0, 5}}, true},
		{"elevation not increasing", RatingCurve{FB: []float64{101, 100}, AF: []float64{0, 10}, QD: []float64{0, 5}}, true},
		{"outflow decreasing", RatingCurve{FB: []float64{100, 101}, AF: []float64{0, 10}, QD: []float64{5, 0}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rating.Validate()
			if tt.wantErr {
				assert.True(t, IsConfiguration(err), "expected ConfigurationError, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseVariableKind(t *testing.T) {
	k, err := ParseVariableKind("")
	require.NoError(t, err)
	assert.Equal(t, KindFlow, k)

	k, err = ParseVariableKind("swe")
	require.NoError(t, err)
	assert.Equal(t, KindSWE, k)

	_, err = ParseVariableKind("discharge_cfs")
	assert.True(t, IsConfiguration(err))
}
