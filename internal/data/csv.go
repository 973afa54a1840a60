package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"critical-duration/internal/model"
)

// LoadSeriesCSV reads a daily series (date,value). Blank, NaN and NA values are missing
// days; dates skipped in the file are filled in as missing.
func LoadSeriesCSV(path, site string, kind model.VariableKind) (*model.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := ReadSeriesCSV(f, site, kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func ReadSeriesCSV(r io.Reader, site string, kind model.VariableKind) (*model.Series, error) {
	rows, err := readRows(r, "date")
	if err != nil {
		return nil, err
	}
	s := &model.Series{Site: site, Kind: kind}
	for i, row := range rows {
		if len(row) < 2 {
			return nil, badRow(i, "want date,value")
		}
		date, err := parseDate(row[0])
		if err != nil {
			return nil, badRow(i, err.Error())
		}
		v, err := parseValue(row[1])
		if err != nil {
			return nil, badRow(i, err.Error())
		}

		if n := len(s.Days); n > 0 {
			last := s.Days[n-1].Date
			gap := model.DaysBetween(last, date)
			if gap < 1 {
				return nil, badRow(i, fmt.Sprintf("date %s not after %s", date.Format(model.DateLayout), last.Format(model.DateLayout)))
			}
			for k := 1; k < gap; k++ {
				s.Days = append(s.Days, model.NewDay(last.AddDate(0, 0, k), math.NaN()))
			}
		}
		s.Days = append(s.Days, model.NewDay(date, v))
	}
	if len(s.Days) == 0 {
		return nil, &model.ConfigurationError{Op: "read series", Reason: "no rows"}
	}
	return s, nil
}

// LoadRatingCSV reads a rating table with FB, AF and QD columns in any order.
func LoadRatingCSV(path string) (model.RatingCurve, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.RatingCurve{}, err
	}
	defer f.Close()
	rc, err := ReadRatingCSV(f)
	if err != nil {
		return model.RatingCurve{}, fmt.Errorf("%s: %w", path, err)
	}
	return rc, nil
}

func ReadRatingCSV(r io.Reader) (model.RatingCurve, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	all, err := cr.ReadAll()
	if err != nil {
		return model.RatingCurve{}, err
	}
	if len(all) == 0 {
		return model.RatingCurve{}, &model.ConfigurationError{Op: "read rating", Reason: "empty file"}
	}
	cols, err := columns(all[0], "FB", "AF", "QD")
	if err != nil {
		return model.RatingCurve{}, err
	}

	var rc model.RatingCurve
	for i, row := range all[1:] {
		vals := make([]float64, 3)
		for k, c := range cols {
			if c >= len(row) {
				return model.RatingCurve{}, badRow(i, "short row")
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[c]), 64)
			if err != nil {
				return model.RatingCurve{}, badRow(i, err.Error())
			}
			vals[k] = v
		}
		rc.FB = append(rc.FB, vals[0])
		rc.AF = append(rc.AF, vals[1])
		rc.QD = append(rc.QD, vals[2])
	}
	if err := rc.Validate(); err != nil {
		return model.RatingCurve{}, err
	}
	return rc, nil
}

// LoadObservedCSV reads measured reservoir records (date,AF,QD, optional FB).
func LoadObservedCSV(path string) ([]model.RoutedTimestep, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	out, err := ReadObservedCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

func ReadObservedCSV(r io.Reader) ([]model.RoutedTimestep, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	all, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, &model.ConfigurationError{Op: "read observed", Reason: "empty file"}
	}
	cols, err := columns(all[0], "date", "AF", "QD")
	if err != nil {
		return nil, err
	}
	fbCol, _ := columns(all[0], "FB")

	out := make([]model.RoutedTimestep, 0, len(all)-1)
	for i, row := range all[1:] {
		get := func(c int) string {
			if c < len(row) {
				return strings.TrimSpace(row[c])
			}
			return ""
		}
		date, err := parseDate(get(cols[0]))
		if err != nil {
			return nil, badRow(i, err.Error())
		}
		af, err := parseValue(get(cols[1]))
		if err != nil {
			return nil, badRow(i, err.Error())
		}
		qd, err := parseValue(get(cols[2]))
		if err != nil {
			return nil, badRow(i, err.Error())
		}
		ts := model.RoutedTimestep{Index: i, Date: date, Storage: af, Outflow: qd}
		if fbCol != nil {
			if fb, err := parseValue(get(fbCol[0])); err == nil {
				ts.Elevation = fb
			}
		}
		out = append(out, ts)
	}
	return out, nil
}

// readRows returns the data rows, skipping a header row if its first field is named
// first.
func readRows(r io.Reader, first string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	all, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) > 0 && len(all[0]) > 0 && strings.EqualFold(strings.TrimSpace(all[0][0]), first) {
		all = all[1:]
	}
	return all, nil
}

// columns finds each wanted column in header, case-insensitively.
func columns(header []string, want ...string) ([]int, error) {
	out := make([]int, len(want))
	for i, w := range want {
		out[i] = -1
		for j, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), w) {
				out[i] = j
				break
			}
		}
		if out[i] < 0 {
			return nil, &model.ConfigurationError{Op: "read csv", Reason: fmt.Sprintf("missing column %q", w)}
		}
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{model.DateLayout, "1/2/2006", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return model.Date(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseValue maps blank, NaN and NA to NaN, which model.NewDay stores as missing.
func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "na", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func badRow(i int, reason string) error {
	return &model.ConfigurationError{Op: fmt.Sprintf("row %d", i+1), Reason: reason}
}
