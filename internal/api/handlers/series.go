package handlers

import (
	"context"
	"fmt"
	"math"
	"time"

	"critical-duration/internal/api/models"
	"critical-duration/internal/batch"
	"critical-duration/internal/data"
	"critical-duration/internal/model"
)

// buildSeries turns an inline series, or an NWIS site reference, into a model.Series.
func buildSeries(ctx context.Context, src batch.SeriesSource, in models.SeriesInput) (*model.Series, error) {
	kind, err := model.ParseVariableKind(in.Variable)
	if err != nil {
		return nil, err
	}

	if in.USGSSite != "" {
		p := data.DailyParams{Site: in.USGSSite, Kind: kind}
		if p.Start, err = optionalDate("start_date", in.StartDate); err != nil {
			return nil, err
		}
		if p.End, err = optionalDate("end_date", in.EndDate); err != nil {
			return nil, err
		}
		s, err := src.FetchDaily(ctx, p)
		if err != nil {
			return nil, err
		}
		if in.Site != "" {
			s.Site = in.Site
		}
		return s, nil
	}

	if len(in.Values) == 0 {
		return nil, &model.ConfigurationError{Op: "series", Reason: "values or usgs_site is required"}
	}
	start, err := time.Parse(model.DateLayout, in.Start)
	if err != nil {
		return nil, &model.ConfigurationError{Op: "series", Reason: "start must be in YYYY-MM-DD format"}
	}
	values := make([]float64, len(in.Values))
	for i, v := range in.Values {
		if v == nil {
			values[i] = math.NaN()
			continue
		}
		values[i] = *v
	}
	site := in.Site
	if site == "" {
		site = "inline"
	}
	return model.NewSeries(site, kind, start, values), nil
}

func optionalDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, &model.ConfigurationError{Op: "series", Reason: fmt.Sprintf("%s must be in YYYY-MM-DD format", field)}
	}
	return t, nil
}

func observedRecord(rows []models.ObservedRow) ([]model.RoutedTimestep, error) {
	out := make([]model.RoutedTimestep, len(rows))
	for i, r := range rows {
		d, err := time.Parse(model.DateLayout, r.Date)
		if err != nil {
			return nil, &model.ConfigurationError{Op: "observed", Reason: fmt.Sprintf("row %d: date must be in YYYY-MM-DD format", i)}
		}
		out[i] = model.RoutedTimestep{Index: i, Date: d, Storage: r.Storage, Outflow: r.Outflow, Elevation: r.FB}
	}
	return out, nil
}
