package cvhs

import (
	"errors"
	"math"
	"testing"
	"time"

	"critical-duration/internal/events"
	"critical-duration/internal/model"
	"critical-duration/internal/routing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wy2020Start = time.Date(2019, 10, 1, 0, 0, 0, 0, time.UTC)

// twoYears is WY2020 (366 days) plus 30 days of WY2021 at a base flow of 10, with a
// 50/80/50 event 100 days into WY2020 and a 100/100 event 5 days into WY2021.
func twoYears() []float64 {
	vals := make([]float64, 366+30)
	for i := range vals {
		vals[i] = 10
	}
	vals[100], vals[101], vals[102] = 50, 80, 50
	vals[366+5], vals[366+6] = 100, 100
	return vals
}

func testRouter(t *testing.T) *routing.Router {
	t.Helper()
	rt, err := routing.NewRouter(model.RatingCurve{
		FB: []float64{100, 101, 102, 103},
		AF: []float64{0, 1000, 3000, 6000},
		QD: []float64{0, 50, 200, 600},
	})
	require.NoError(t, err)
	rt.OnWarning = func(*model.DomainWarning) {}
	return rt
}

func TestDurations(t *testing.T) {
	assert.Equal(t, []int{1, 3, 5}, Options{HydroDuration: 5, Step: 2}.Durations())
	assert.Equal(t, []int{1, 2, 3}, Options{HydroDuration: 3}.Durations())
	assert.Empty(t, Options{}.Durations())
}

func TestProxy(t *testing.T) {
	s := model.NewSeries("x", model.KindFlow, wy2020Start, twoYears())
	pts, err := Proxy(s, []int{1, 2, 3, 5})
	require.NoError(t, err)
	require.Len(t, pts, 4)

	assert.Equal(t, 100.0, pts[0].Flow)
	assert.Equal(t, 2021, pts[0].WaterYear)
	assert.Equal(t, 2, pts[0].Years)
	assert.InDelta(t, 1.0/3.0, pts[0].PlottingPosition, 1e-12)
	assert.Equal(t, wy2020Start.AddDate(0, 0, 366+5), pts[0].End)

	assert.Equal(t, 100.0, pts[1].Flow)
	assert.Equal(t, 70.0, pts[2].Flow)
	assert.Equal(t, 46.0, pts[3].Flow)
}

func TestProxySkipsGapsAndWaterYearBoundary(t *testing.T) {
	vals := twoYears()
	// Two high days straddling Sep 30 / Oct 1 must not form a 2-day window.
	vals[365], vals[366] = 90, 90
	// A missing day next to the WY2021 event breaks its 3-day windows.
	vals[366+7] = math.NaN()
	s := model.NewSeries("x", model.KindFlow, wy2020Start, vals)

	pts, err := Proxy(s, []int{2, 3})
	require.NoError(t, err)
	assert.Equal(t, 100.0, pts[0].Flow)
	// WY2021 3-day windows: 10,100,100 (70); WY2020: 50,80,50 (60).
	assert.Equal(t, 70.0, pts[1].Flow)
	assert.Equal(t, 2021, pts[1].WaterYear)
}

func TestProxyNoCompleteWindow(t *testing.T) {
	s := model.NewSeries("x", model.KindFlow, wy2020Start, []float64{1, 2, 3})
	_, err := Proxy(s, []int{5})
	assert.True(t, model.IsCoverage(err))
}

func TestExtract(t *testing.T) {
	s := model.NewSeries("x", model.KindFlow, wy2020Start, twoYears())
	ev := model.Event{StartDate: wy2020Start.AddDate(0, 0, 100), EndDate: wy2020Start.AddDate(0, 0, 102), Duration: 3}

	h, err := Extract(s, ev, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 80, 50, 10, 10}, h.Flow)
	assert.Equal(t, ev.StartDate, h.Start)

	h, err = Extract(s, ev, 9)
	require.NoError(t, err)
	assert.Len(t, h.Flow, 9)
	assert.Equal(t, ev.StartDate.AddDate(0, 0, -2), h.Start)
	assert.Equal(t, ev.EndDate.AddDate(0, 0, 4), h.End)

	long := model.Event{StartDate: wy2020Start.AddDate(0, 0, 10), EndDate: wy2020Start.AddDate(0, 0, 16), Duration: 7}
	h, err = Extract(s, long, 5)
	require.NoError(t, err)
	assert.Len(t, h.Flow, 5)
	assert.Equal(t, long.StartDate.AddDate(0, 0, 1), h.Start)

	early := model.Event{StartDate: wy2020Start, EndDate: wy2020Start, Duration: 1}
	_, err = Extract(s, early, 10)
	assert.True(t, model.IsCoverage(err))
}

func TestScale(t *testing.T) {
	flow := []float64{10, 40, 40, 20, 10}
	out, scale, err := Scale(flow, 2, 60)
	require.NoError(t, err)
	assert.Equal(t, 1.5, scale)
	assert.Equal(t, []float64{10, 60, 60, 20, 10}, out)
	assert.Equal(t, 40.0, flow[1])

	_, _, err = Scale([]float64{0, 0, 0}, 2, 10)
	assert.ErrorIs(t, err, errZeroVolume)

	_, _, err = Scale(flow, 6, 10)
	assert.True(t, model.IsConfiguration(err))
}

func TestAnalyze(t *testing.T) {
	s := model.NewSeries("x", model.KindFlow, wy2020Start, twoYears())
	evs, err := events.Detect(s, 20)
	require.NoError(t, err)
	require.Len(t, evs, 2)

	res, err := Analyze(s, evs, testRouter(t), Options{HydroDuration: 5, Step: 2, MinPeak: 30, StartElevation: 100})
	require.NoError(t, err)
	require.Len(t, res.Hydrographs, 2)
	require.Len(t, res.Curve, 3)
	assert.Empty(t, res.Skipped)

	one := res.Curve[0]
	assert.Equal(t, 1, one.Duration)
	assert.Equal(t, 100.0, one.ProxyFlow)
	require.Equal(t, 2, one.N)
	assert.Equal(t, 1.25, one.Peaks[0].Scale)
	assert.Equal(t, 1.0, one.Peaks[1].Scale)

	for _, cp := range res.Curve {
		require.Len(t, cp.Peaks, 2)
		sum := 0.0
		for _, p := range cp.Peaks {
			assert.Greater(t, p.Elevation, 100.0)
			sum += p.Elevation
		}
		assert.InDelta(t, sum/2, cp.MeanPeakElevation, 1e-12)
	}
}

func TestAnalyzeSkipsUncoveredEvent(t *testing.T) {
	vals := twoYears()
	vals[104] = math.NaN()
	s := model.NewSeries("x", model.KindFlow, wy2020Start, vals)
	evs, err := events.Detect(s, 20)
	require.NoError(t, err)

	res, err := Analyze(s, evs, testRouter(t), Options{HydroDuration: 5, MinPeak: 30, StartElevation: 100})
	require.NoError(t, err)
	require.Len(t, res.Skipped, 1)
	assert.True(t, model.IsCoverage(res.Skipped[0].Err))
	assert.Len(t, res.Hydrographs, 1)
	assert.Equal(t, 1, res.Curve[0].N)
}

func TestAnalyzeErrors(t *testing.T) {
	s := model.NewSeries("x", model.KindFlow, wy2020Start, twoYears())
	evs, err := events.Detect(s, 20)
	require.NoError(t, err)
	rt := testRouter(t)

	_, err = Analyze(s, evs, rt, Options{HydroDuration: 5, StartElevation: 99})
	assert.True(t, model.IsConfiguration(err))

	_, err = Analyze(s, evs, rt, Options{HydroDuration: 0, StartElevation: 100})
	assert.True(t, model.IsConfiguration(err))

	_, err = Analyze(s, evs, rt, Options{HydroDuration: 5, MinPeak: 500, StartElevation: 100})
	assert.True(t, errors.Is(err, model.ErrEmptyPopulation))
}
