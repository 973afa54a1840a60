package volwindow

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"critical-duration/internal/model"
)

func WriteDiagnosticsCSV(path string, rows []model.VolumeWindow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return EncodeDiagnosticsCSV(f, rows)
}

// EncodeDiagnosticsCSV writes one row per swept width.
func EncodeDiagnosticsCSV(out io.Writer, rows []model.VolumeWindow) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	header := []string{"width", "start", "end", "avg_flow", "volume_af", "volume_to_peak_af", "vw", "valid"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		row := []string{
			strconv.Itoa(r.Width),
			r.Start.Format(model.DateLayout),
			r.End.Format(model.DateLayout),
			strconv.FormatFloat(r.AvgFlow, 'f', 6, 64),
			strconv.FormatFloat(r.VolumeAF, 'f', 6, 64),
			strconv.FormatFloat(r.VolumeToPeakAF, 'f', 6, 64),
			strconv.FormatFloat(r.VWRatio, 'f', 6, 64),
			strconv.FormatBool(r.Valid),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
