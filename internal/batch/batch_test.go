package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"critical-duration/internal/config"
	"critical-duration/internal/data"
	"critical-duration/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)

// flows is 60 days at 10 cfs with a 3-day and a 5-day event.
func flows() []float64 {
	v := make([]float64, 60)
	for i := range v {
		v[i] = 10
	}
	copy(v[10:], []float64{50, 200, 80})
	copy(v[30:], []float64{40, 120, 300, 150, 60})
	return v
}

func writeSeries(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("date,value\n")
	for i, v := range flows() {
		fmt.Fprintf(&b, "%s,%g\n", start.AddDate(0, 0, i).Format(model.DateLayout), v)
	}
	p := filepath.Join(dir, "inflow.csv")
	require.NoError(t, os.WriteFile(p, []byte(b.String()), 0o644))
	return p
}

func writeRating(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "rating.csv")
	require.NoError(t, os.WriteFile(p, []byte("FB,AF,QD\n100,0,0\n101,1000,50\n102,3000,200\n103,6000,600\n"), 0o644))
	return p
}

func siteConfig(t *testing.T, dir string) config.SiteConfig {
	sc := config.SiteConfig{
		Site:      "test",
		DataFile:  writeSeries(t, dir),
		OutputDir: filepath.Join(dir, "out"),
		Events:    config.EventsConfig{Threshold: 20},
		Reservoir: config.ReservoirConfig{RatingFile: writeRating(t, dir), StartElevation: 100.5},
		CVHS:      config.CVHSConfig{Enabled: true, HydroDuration: 7, Step: 2, MinPeak: 100},
	}
	sc.ApplyDefaults()
	require.NoError(t, sc.Validate())
	return sc
}

func TestRunSite(t *testing.T) {
	dir := t.TempDir()
	sc := siteConfig(t, dir)

	p := &Pipeline{WriteOutputs: true}
	rep, err := p.RunSite(context.Background(), sc)
	require.NoError(t, err)
	assert.Empty(t, rep.Errors)

	require.Len(t, rep.Events, 2)
	assert.Equal(t, 3, rep.Events[0].Duration)
	assert.Equal(t, 5, rep.Events[1].Duration)

	require.NotNil(t, rep.Stats)
	assert.InDelta(t, (3*200.0+5*300.0)/500.0, rep.Critical, 1e-12)
	assert.Len(t, rep.Monthly, 12)
	assert.Equal(t, 2, rep.Monthly[2].Count)

	require.Len(t, rep.Volume, 2)
	for _, o := range rep.Volume {
		assert.Empty(t, o.Error)
		assert.GreaterOrEqual(t, o.CriticalWidth, 1)
		assert.LessOrEqual(t, o.CriticalWidth, o.Event.Duration)
		assert.Greater(t, o.PeakFB, 100.5)
	}

	require.NotNil(t, rep.CVHS)
	assert.Len(t, rep.CVHS.Curve, 4)

	for _, name := range []string{"events.csv", "statistics.csv", "monthly.csv", "summary.csv", "volume_window.csv", "cvhs_curve.csv", "vw_2020-03-11.csv", "routed_2020-03-31.csv"} {
		assert.FileExists(t, filepath.Join(sc.OutputDir, name))
	}
	raw, err := os.ReadFile(filepath.Join(sc.OutputDir, "events.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "2020-03-11,2020-03-13,3,200.000000,3")
}

func TestRunSiteRecordsStageFailures(t *testing.T) {
	dir := t.TempDir()
	sc := siteConfig(t, dir)
	sc.Events.MinPeak = 1000
	sc.CVHS.Enabled = false

	rep, err := (&Pipeline{}).RunSite(context.Background(), sc)
	require.NoError(t, err)
	assert.Nil(t, rep.Stats)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0], "statistics")
	assert.Empty(t, rep.Volume)
}

func TestRunSiteObservedRecordCoverage(t *testing.T) {
	dir := t.TempDir()
	sc := siteConfig(t, dir)
	sc.CVHS.Enabled = false
	obs := filepath.Join(dir, "obs.csv")
	// Covers the first event only.
	require.NoError(t, os.WriteFile(obs, []byte("date,AF,QD\n2020-03-11,500,25\n2020-03-12,700,30\n2020-03-13,800,35\n"), 0o644))
	sc.Reservoir.ObservedFile = obs

	rep, err := (&Pipeline{}).RunSite(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, rep.Volume, 2)
	assert.Empty(t, rep.Volume[0].Error)
	assert.Equal(t, 2, rep.Volume[0].CriticalWidth)
	assert.Equal(t, "data_coverage", rep.Volume[1].ErrorKind)
}

type fakeSource struct {
	series *model.Series
	got    data.DailyParams
}

func (f *fakeSource) FetchDaily(_ context.Context, p data.DailyParams) (*model.Series, error) {
	f.got = p
	return f.series, nil
}

func TestLoadSeriesFromSource(t *testing.T) {
	src := &fakeSource{series: model.NewSeries("08073700", model.KindFlow, start, flows())}
	p := &Pipeline{Source: src}
	s, err := p.LoadSeries(context.Background(), config.SiteConfig{Site: "gauge", USGSSite: "08073700", Variable: "flow"})
	require.NoError(t, err)
	assert.Equal(t, "gauge", s.Site)
	assert.Equal(t, "08073700", src.got.Site)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	good := siteConfig(t, dir)
	good.CVHS.Enabled = false
	bad := good
	bad.Site = "missing"
	bad.DataFile = filepath.Join(dir, "nope.csv")

	reports, err := (&Pipeline{}).Run(context.Background(), []config.SiteConfig{bad, good, good}, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSitesFailed))
	require.Len(t, reports, 3)

	assert.Equal(t, "missing", reports[0].Site)
	assert.Error(t, reports[0].Err)
	assert.NoError(t, reports[1].Err)
	assert.Len(t, reports[2].Events, 2)

	out := filepath.Join(dir, "report.csv")
	require.NoError(t, WriteReportCSV(out, reports))
	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(raw), "\n"))
}
