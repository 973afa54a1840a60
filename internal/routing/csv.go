package routing

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"critical-duration/internal/model"
)

func WriteRoutedCSV(path string, steps []model.RoutedTimestep) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return EncodeRoutedCSV(f, steps)
}

// EncodeRoutedCSV writes the routed table with a header row.
func EncodeRoutedCSV(out io.Writer, steps []model.RoutedTimestep) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	header := []string{
		"index",
		"date",
		"q",
		"fb",
		"af",
		"qd",
		"floor_corrected",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range steps {
		row := []string{
			strconv.Itoa(r.Index),
			fmtDate(r.Date),
			fmtFloat(r.Inflow),
			fmtFloat(r.Elevation),
			fmtFloat(r.Storage),
			fmtFloat(r.Outflow),
			strconv.FormatBool(r.FloorCorrected),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
