package analysis

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"critical-duration/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pop(pairs ...[2]float64) model.Population {
	out := make(model.Population, len(pairs))
	for i, p := range pairs {
		out[i] = model.Event{Duration: int(p[0]), Peak: p[1], Month: time.January}
	}
	return out
}

func TestEstimatePeakWeightedExample(t *testing.T) {
	st, err := Estimate(pop([2]float64{1, 10}, [2]float64{2, 20}, [2]float64{3, 30}), model.Screening{})
	require.NoError(t, err)

	assert.InDelta(t, 140.0/60.0, st.PeakWeighted, 1e-12)
	assert.InDelta(t, 2.0, st.Arithmetic, 1e-12)
	assert.InDelta(t, math.Cbrt(6), st.Geometric, 1e-12)
	assert.InDelta(t, 140.0/6.0, st.DurationWeightedPeak, 1e-12)
	assert.Equal(t, 3, st.N)
	assert.Equal(t, 3, st.Total)
}

func TestEstimateScreening(t *testing.T) {
	evs := pop([2]float64{1, 500}, [2]float64{4, 50}, [2]float64{5, 600}, [2]float64{6, 700})

	st, err := Estimate(evs, model.Screening{MinDuration: 1, MinPeak: 100})
	require.NoError(t, err)
	assert.Equal(t, 2, st.N)
	assert.Equal(t, 4, st.Total)
	assert.InDelta(t, 5.5, st.Arithmetic, 1e-12)
}

func TestEstimateEmptyPopulation(t *testing.T) {
	_, err := Estimate(pop([2]float64{2, 10}), model.Screening{MinDuration: 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrEmptyPopulation))

	_, err = Estimate(nil, model.Screening{})
	assert.True(t, errors.Is(err, model.ErrEmptyPopulation))
}

func TestEstimateZeroDurationGivesZeroGeometric(t *testing.T) {
	st, err := Estimate(pop([2]float64{0, 10}, [2]float64{4, 20}), model.Screening{MinDuration: -1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, st.Geometric)
	assert.InDelta(t, 2.0, st.Arithmetic, 1e-12)
}

func TestGeometricNeverExceedsArithmetic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(30)
		pairs := make([][2]float64, n)
		for i := range pairs {
			pairs[i] = [2]float64{float64(1 + rng.Intn(120)), 1 + rng.Float64()*1e4}
		}
		st, err := Estimate(pop(pairs...), model.Screening{})
		require.NoError(t, err)
		assert.LessOrEqual(t, st.Geometric, st.Arithmetic, "trial %d", trial)
	}

	st, err := Estimate(pop([2]float64{7, 1}, [2]float64{7, 2}, [2]float64{7, 3}), model.Screening{})
	require.NoError(t, err)
	assert.Equal(t, st.Arithmetic, st.Geometric)
}

func TestGeometricEqualsArithmeticForEqualDurations(t *testing.T) {
	for d := 1; d <= 200; d++ {
		for n := 1; n <= 10; n++ {
			pairs := make([][2]float64, n)
			for i := range pairs {
				pairs[i] = [2]float64{float64(d), float64(100 + i)}
			}
			st, err := Estimate(pop(pairs...), model.Screening{})
			require.NoError(t, err)
			require.Equal(t, float64(d), st.Arithmetic, "d=%d n=%d", d, n)
			require.Equal(t, float64(d), st.Geometric, "d=%d n=%d", d, n)
		}
	}
}

func TestStatisticsValue(t *testing.T) {
	st := Statistics{Arithmetic: 1, Geometric: 2, PeakWeighted: 3}
	assert.Equal(t, 1.0, st.Value(MethodArithmetic))
	assert.Equal(t, 2.0, st.Value(MethodGeometric))
	assert.Equal(t, 3.0, st.Value(MethodPeakWeighted))

	m, err := ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodPeakWeighted, m)
	_, err = ParseMethod("median")
	assert.True(t, model.IsConfiguration(err))
}

func TestMonthly(t *testing.T) {
	evs := model.Population{
		{Duration: 2, Peak: 100, Month: time.March},
		{Duration: 4, Peak: 300, Month: time.March},
		{Duration: 9, Peak: 50, Month: time.December},
		{Duration: 1, Peak: 10, Month: time.June},
	}
	stats := Monthly(evs)
	require.Len(t, stats, 12)

	mar := stats[2]
	assert.Equal(t, time.March, mar.Month)
	assert.Equal(t, 2, mar.Count)
	assert.InDelta(t, 0.5, mar.Fraction, 1e-12)
	assert.InDelta(t, 3.0, mar.MeanDuration, 1e-12)
	assert.InDelta(t, 200.0, mar.MeanPeak, 1e-12)

	assert.Equal(t, 0, stats[0].Count)
	assert.Equal(t, 0.0, stats[0].MeanDuration)
	assert.Equal(t, 1, stats[11].Count)
}

func TestSummarize(t *testing.T) {
	start := time.Date(2020, 9, 28, 0, 0, 0, 0, time.UTC)
	s := model.NewSeries("x", model.KindFlow, start, []float64{1, 2, math.NaN(), 4, 6, 8})

	rows := Summarize(s)
	require.Len(t, rows, 3)

	all := rows[0]
	assert.Equal(t, "all", all.Label)
	assert.Equal(t, 5, all.Count)
	assert.Equal(t, 1.0, all.Min)
	assert.Equal(t, 8.0, all.Max)
	assert.InDelta(t, 4.2, all.Mean, 1e-12)
	assert.Equal(t, 4.0, all.Median)

	wy2020 := rows[1]
	assert.Equal(t, "2020", wy2020.Label)
	assert.Equal(t, 2, wy2020.Count)
	assert.Equal(t, "2021", rows[2].Label)
}

func TestRankByPeak(t *testing.T) {
	evs := pop([2]float64{1, 10}, [2]float64{2, 30}, [2]float64{3, 30}, [2]float64{4, 20})
	ranked := RankByPeak(evs)
	require.Len(t, ranked, 4)
	assert.Equal(t, []int{1, 2, 3, 0}, []int{ranked[0].Index, ranked[1].Index, ranked[2].Index, ranked[3].Index})
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 4, ranked[3].Rank)
}
