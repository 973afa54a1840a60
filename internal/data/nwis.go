package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"critical-duration/internal/log"
	"critical-duration/internal/model"
)

// NWISClient fetches daily values from the USGS NWIS water services.
type NWISClient struct {
	BaseURL string
	Client  *http.Client
}

// NewNWISClient creates a new NWIS client.
// If baseURL is empty, defaults to "https://waterservices.usgs.gov".
func NewNWISClient(baseURL string) *NWISClient {
	if baseURL == "" {
		baseURL = "https://waterservices.usgs.gov"
	}
	return &NWISClient{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// DailyParams defines a daily-values query. Zero Start or End leaves that side open.
type DailyParams struct {
	Site  string             // e.g., "08073700"
	Kind  model.VariableKind // selects the NWIS parameter code
	Start time.Time
	End   time.Time
}

// NWISError represents an error response from the NWIS service
type NWISError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *NWISError) Error() string {
	return e.Message
}

// noDataValue is the NWIS sentinel for a missing daily value.
const noDataValue = -999999

var parameterCodes = map[model.VariableKind]string{
	model.KindFlow:          "00060",
	model.KindStage:         "00065",
	model.KindPrecipitation: "00045",
}

// ParameterCode returns the NWIS parameter code for kind.
func ParameterCode(kind model.VariableKind) (string, error) {
	code, ok := parameterCodes[kind]
	if !ok {
		return "", &model.ConfigurationError{Op: "nwis", Reason: fmt.Sprintf("no NWIS parameter for %q", kind)}
	}
	return code, nil
}

// FetchDaily downloads daily means for p.Site and returns them as a contiguous series.
// Days without a value, or carrying a qualifier instead of a number (Ice, Eqp), are
// missing.
func (c *NWISClient) FetchDaily(ctx context.Context, p DailyParams) (*model.Series, error) {
	if p.Site == "" {
		return nil, &model.ConfigurationError{Op: "nwis", Reason: "site is required"}
	}
	if p.Kind == "" {
		p.Kind = model.KindFlow
	}
	code, err := ParameterCode(p.Kind)
	if err != nil {
		return nil, err
	}
	if !p.Start.IsZero() && !p.End.IsZero() && p.Start.After(p.End) {
		return nil, &model.ConfigurationError{Op: "nwis", Reason: "start must be before end"}
	}

	u, err := url.Parse(c.BaseURL + "/nwis/dv/")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("format", "rdb")
	q.Set("sites", p.Site)
	q.Set("parameterCd", code)
	q.Set("statCd", "00003")
	if !p.Start.IsZero() {
		q.Set("startDT", p.Start.Format(model.DateLayout))
	} else {
		q.Set("startDT", "1800-01-01")
	}
	if !p.End.IsZero() {
		q.Set("endDT", p.End.Format(model.DateLayout))
	}
	u.RawQuery = q.Encode()

	log.Infow("nwis request", "path", u.Path, "site", p.Site, "parameter", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	startTime := time.Now()
	resp, err := c.Client.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		log.Warnw("nwis request failed", "site", p.Site, "error", err, "duration", duration)
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	log.Infow("nwis response", "status", resp.StatusCode, "site", p.Site, "duration", duration)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		// NWIS answers 404 when the site has no data for the parameter.
		return nil, &NWISError{
			StatusCode: resp.StatusCode,
			Code:       "NO_DATA",
			Message:    fmt.Sprintf("no %s data for site %s", p.Kind, p.Site),
		}
	case http.StatusBadRequest:
		return nil, &NWISError{
			StatusCode: resp.StatusCode,
			Code:       "BAD_REQUEST",
			Message:    fmt.Sprintf("NWIS rejected the query for site %s", p.Site),
		}
	default:
		return nil, &NWISError{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("NWIS returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}

	s, err := ReadRDB(resp.Body, p.Site, p.Kind, code)
	if err != nil {
		return nil, fmt.Errorf("nwis site %s: %w", p.Site, err)
	}
	log.Infow("nwis series", "site", p.Site, "days", s.Len(), "start", s.Start().Format(model.DateLayout))
	return s, nil
}

// ReadRDB parses an NWIS tab-delimited daily-values response. The value column is the
// first column whose name ends in _<code>_00003.
func ReadRDB(r io.Reader, site string, kind model.VariableKind, code string) (*model.Series, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	dateCol, valCol := -1, -1
	suffix := "_" + code + "_00003"
	for i, h := range header {
		switch {
		case h == "datetime":
			dateCol = i
		case valCol < 0 && strings.HasSuffix(h, suffix):
			valCol = i
		}
	}
	if dateCol < 0 || valCol < 0 {
		return nil, &model.ConfigurationError{Op: "read rdb", Reason: "missing datetime or value column"}
	}
	// The second line holds column formats (5s 15s 20d ...).
	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("read format line: %w", err)
	}

	s := &model.Series{Site: site, Kind: kind}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if dateCol >= len(row) {
			continue
		}
		date, err := time.Parse(model.DateLayout, row[dateCol])
		if err != nil {
			return nil, fmt.Errorf("bad date %q: %w", row[dateCol], err)
		}
		v := math.NaN()
		if valCol < len(row) {
			if f, err := strconv.ParseFloat(strings.TrimSpace(row[valCol]), 64); err == nil && f != noDataValue {
				v = f
			}
		}

		if n := len(s.Days); n > 0 {
			last := s.Days[n-1].Date
			gap := model.DaysBetween(last, date)
			if gap < 1 {
				return nil, &model.ConfigurationError{Op: "read rdb", Reason: fmt.Sprintf("date %s out of order", row[dateCol])}
			}
			for k := 1; k < gap; k++ {
				s.Days = append(s.Days, model.NewDay(last.AddDate(0, 0, k), math.NaN()))
			}
		}
		s.Days = append(s.Days, model.NewDay(date, v))
	}
	if len(s.Days) == 0 {
		return nil, &NWISError{Code: "NO_DATA", Message: fmt.Sprintf("no daily values for site %s", site)}
	}
	return s, nil
}
