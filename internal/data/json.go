package data

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"critical-duration/internal/model"
)

// LoadRatingJSON reads a rating curve stored as {"fb":[...],"af":[...],"qd":[...]}.
func LoadRatingJSON(path string) (model.RatingCurve, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.RatingCurve{}, err
	}
	var rc model.RatingCurve
	if err := json.Unmarshal(raw, &rc); err != nil {
		return model.RatingCurve{}, err
	}
	if err := rc.Validate(); err != nil {
		return model.RatingCurve{}, err
	}
	return rc, nil
}

// LoadRating picks the JSON or CSV reader by file extension.
func LoadRating(path string) (model.RatingCurve, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadRatingJSON(path)
	}
	return LoadRatingCSV(path)
}
