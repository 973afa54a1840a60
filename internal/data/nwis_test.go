package data

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"critical-duration/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rdbBody = "# US Geological Survey\n" +
	"# retrieved: 2024-01-01\n" +
	"agency_cd\tsite_no\tdatetime\t149470_00060_00003\t149470_00060_00003_cd\n" +
	"5s\t15s\t20d\t14n\t10s\n" +
	"USGS\t08073700\t2020-09-29\t12.5\tA\n" +
	"USGS\t08073700\t2020-09-30\tIce\tA\n" +
	"USGS\t08073700\t2020-10-02\t-999999\tA\n" +
	"USGS\t08073700\t2020-10-03\t40\tP\n"

func TestFetchDaily(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(rdbBody))
	}))
	defer srv.Close()

	c := NewNWISClient(srv.URL)
	s, err := c.FetchDaily(context.Background(), DailyParams{
		Site:  "08073700",
		Start: time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2020, 10, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/nwis/dv/", got.URL.Path)
	assert.Equal(t, "00060", got.URL.Query().Get("parameterCd"))
	assert.Equal(t, "2020-09-01", got.URL.Query().Get("startDT"))
	assert.Equal(t, "rdb", got.URL.Query().Get("format"))

	require.NoError(t, s.Validate())
	require.Len(t, s.Days, 5)
	assert.Equal(t, model.KindFlow, s.Kind)
	assert.Equal(t, 12.5, s.Days[0].Value)
	assert.False(t, s.Days[1].Valid, "qualifier instead of value")
	assert.False(t, s.Days[2].Valid, "gap")
	assert.False(t, s.Days[3].Valid, "no-data sentinel")
	assert.Equal(t, 40.0, s.Days[4].Value)
	assert.Equal(t, 2021, s.Days[4].WaterYear)
}

func TestFetchDailyStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewNWISClient(srv.URL).FetchDaily(context.Background(), DailyParams{Site: "1"})
	var ne *NWISError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, "NO_DATA", ne.Code)
}

func TestFetchDailyRejectsBadParams(t *testing.T) {
	c := NewNWISClient("http://127.0.0.1:0")
	_, err := c.FetchDaily(context.Background(), DailyParams{})
	assert.True(t, model.IsConfiguration(err))

	_, err = c.FetchDaily(context.Background(), DailyParams{Site: "1", Kind: model.KindSWE})
	assert.True(t, model.IsConfiguration(err))
}
