package routing

import (
	"bytes"
	"encoding/csv"
	"math"
	"testing"
	"time"

	"critical-duration/internal/metrics"
	"critical-duration/internal/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRating() model.RatingCurve {
	return model.RatingCurve{
		FB: []float64{100, 101, 102},
		AF: []float64{0, 1000, 3000},
		QD: []float64{0, 50, 200},
	}
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	rt, err := NewRouter(testRating())
	require.NoError(t, err)
	rt.OnWarning = func(*model.DomainWarning) {}
	return rt
}

func TestRouteMassBalance(t *testing.T) {
	rt := newTestRouter(t)
	res, err := rt.Route([]float64{0, 100, 0}, 100)
	require.NoError(t, err)
	require.Len(t, res.Steps, 3)

	s := res.Steps
	assert.Equal(t, 0.0, s[0].Storage)
	assert.Equal(t, 100.0, s[0].Elevation)
	assert.Equal(t, 0.0, s[0].Outflow)

	assert.InDelta(t, 100*model.CFSDayToAcreFeet, s[1].Storage, 1e-9)
	assert.InDelta(t, 198.347, s[1].Storage, 1e-3)
	assert.Equal(t, 100.2, s[1].Elevation)
	assert.Equal(t, 10.0, s[1].Outflow)

	assert.InDelta(t, 178.512, s[2].Storage, 1e-3)
	assert.Equal(t, 100.18, s[2].Elevation)
	assert.Equal(t, 9.0, s[2].Outflow)

	for i := 1; i < len(s); i++ {
		require.False(t, s[i-1].FloorCorrected)
		assert.InDelta(t, (s[i].Inflow-s[i-1].Outflow)*model.CFSDayToAcreFeet, s[i].Storage-s[i-1].Storage, 1e-9, "step %d", i)
	}

	assert.Equal(t, 1, res.PeakIndex)
	assert.Equal(t, 100.2, res.PeakElevation)
	assert.Zero(t, res.FloorCorrections)
	assert.Empty(t, res.Warnings)
}

func TestRouteFloorCorrection(t *testing.T) {
	rt := newTestRouter(t)
	res, err := rt.Route([]float64{0, 30, 0}, 101)
	require.NoError(t, err)
	s := res.Steps
	require.Len(t, s, 3)

	floor := 1000.0
	assert.Equal(t, floor, s[0].Storage)

	// Day 1 would drain below the floor with the tabulated 50 cfs release.
	assert.True(t, s[0].FloorCorrected)
	assert.InDelta(t, 30.0, s[0].Outflow, 1e-9)
	assert.Equal(t, floor, s[1].Storage)
	assert.InDelta(t, floor, s[0].Storage+(s[1].Inflow-s[0].Outflow)*model.CFSDayToAcreFeet, 1e-9)

	assert.True(t, s[1].FloorCorrected)
	assert.InDelta(t, 0.0, s[1].Outflow, 1e-9)
	assert.Equal(t, floor, s[2].Storage)

	// Elevation and outflow are still read off the rating on the floor.
	assert.Equal(t, 101.0, s[2].Elevation)
	assert.Equal(t, 50.0, s[2].Outflow)
	assert.False(t, s[2].FloorCorrected)
	assert.Equal(t, 2, res.FloorCorrections)
}

func TestRouteStorageNeverBelowStart(t *testing.T) {
	rt := newTestRouter(t)
	inflow := []float64{0, 500, 20, 0, 0, 0, 0, 0, 0, 0, 5, 0}
	res, err := rt.Route(inflow, 100.5)
	require.NoError(t, err)
	for _, ts := range res.Steps {
		assert.GreaterOrEqual(t, ts.Storage, res.Steps[0].Storage)
	}
}

func TestRouteClampsStartOutsideRating(t *testing.T) {
	rt, err := NewRouter(testRating())
	require.NoError(t, err)
	var seen []string
	rt.OnWarning = func(w *model.DomainWarning) { seen = append(seen, w.Table) }

	res, err := rt.Route([]float64{0, 0}, 99)
	require.NoError(t, err)

	assert.Equal(t, 99.0, res.Steps[0].Elevation)
	assert.Equal(t, 0.0, res.Steps[0].Storage)
	assert.Equal(t, 100.0, res.Steps[1].Elevation)

	require.Len(t, res.Warnings, 2)
	assert.Equal(t, []string{"fb->af", "fb->qd"}, seen)
	assert.Equal(t, 99.0, res.Warnings[0].Value)
	assert.Equal(t, 100.0, res.Warnings[0].Min)
}

func TestDefaultWarningHandlerCounts(t *testing.T) {
	rt, err := NewRouter(testRating())
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.DomainWarnings.WithLabelValues("af->fb"))
	// 5000 cfs for a day overfills the rating.
	res, err := rt.Route([]float64{0, 5000}, 101)
	require.NoError(t, err)
	assert.Equal(t, 102.0, res.Steps[1].Elevation)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.DomainWarnings.WithLabelValues("af->fb")))
}

func TestStepsMatchesRoute(t *testing.T) {
	rt := newTestRouter(t)
	inflow := []float64{10, 400, 900, 300, 0, 0, 0}

	res, err := rt.Route(inflow, 100.4)
	require.NoError(t, err)

	var lazy []model.RoutedTimestep
	for ts := range rt.Steps(inflow, 100.4) {
		lazy = append(lazy, ts)
	}
	assert.Equal(t, res.Steps, lazy)

	n := 0
	for range rt.Steps(inflow, 100.4) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestRouteEmptyInflow(t *testing.T) {
	rt := newTestRouter(t)
	_, err := rt.Route(nil, 100)
	assert.True(t, model.IsConfiguration(err))

	for range rt.Steps(nil, 100) {
		t.Fatal("no steps expected")
	}
}

func TestRouteRejectsNonFiniteInputs(t *testing.T) {
	rt := newTestRouter(t)
	for _, inflow := range [][]float64{
		{0, math.NaN(), 0},
		{0, 0, math.Inf(1)},
		{math.Inf(-1)},
	} {
		_, err := rt.Route(inflow, 100)
		assert.True(t, model.IsConfiguration(err), "%v", inflow)

		for range rt.Steps(inflow, 100) {
			t.Fatalf("no steps expected for %v", inflow)
		}
	}

	_, err := rt.Route([]float64{0, 0}, math.NaN())
	assert.True(t, model.IsConfiguration(err))
}

func TestRouteDatedNaNIsCoverage(t *testing.T) {
	rt := newTestRouter(t)
	first := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := rt.route([]float64{0, 10, math.NaN(), 0}, 100, first)
	var de *model.DataCoverageError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, first.AddDate(0, 0, 2), de.Missing)
	assert.Equal(t, first.AddDate(0, 0, 3), de.End)
}

func TestNewRouterRejectsBadRating(t *testing.T) {
	_, err := NewRouter(model.RatingCurve{FB: []float64{1}, AF: []float64{1}, QD: []float64{1}})
	assert.True(t, model.IsConfiguration(err))
}

func TestRouteSeries(t *testing.T) {
	rt := newTestRouter(t)
	start := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	s := model.NewSeries("x", model.KindFlow, start, []float64{5, 0, 100, 0, 7})

	res, err := rt.RouteSeries(s, start.AddDate(0, 0, 1), start.AddDate(0, 0, 3), 100)
	require.NoError(t, err)
	require.Len(t, res.Steps, 3)
	assert.Equal(t, start.AddDate(0, 0, 1), res.Steps[0].Date)
	assert.Equal(t, start.AddDate(0, 0, 3), res.Steps[2].Date)
	assert.Equal(t, 100.0, res.Steps[1].Inflow)

	_, err = rt.RouteSeries(s, start, start.AddDate(0, 0, 10), 100)
	assert.True(t, model.IsCoverage(err))
}

func TestEncodeRoutedCSV(t *testing.T) {
	rt := newTestRouter(t)
	res, err := rt.Route([]float64{0, 100, 0}, 100)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeRoutedCSV(&buf, res.Steps))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"index", "date", "q", "fb", "af", "qd", "floor_corrected"}, rows[0])
	assert.Equal(t, "100.200000", rows[2][3])
	assert.Equal(t, "", rows[2][1])
}
