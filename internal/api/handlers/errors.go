package handlers

import (
	"errors"
	"net/http"

	"critical-duration/internal/api/models"
	"critical-duration/internal/data"
	"critical-duration/internal/log"
	"critical-duration/internal/metrics"
	"critical-duration/internal/model"

	"github.com/gin-gonic/gin"
)

func abortWith(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// errorDetail classifies err for the response envelope and returns the status it maps to.
func errorDetail(err error) (int, models.ErrorDetail) {
	var nwisErr *data.NWISError
	if errors.As(err, &nwisErr) {
		statusCode := http.StatusBadGateway
		if nwisErr.StatusCode == http.StatusNotFound {
			statusCode = http.StatusNotFound
		}
		return statusCode, models.ErrorDetail{
			Code:    nwisErr.Code,
			Message: nwisErr.Message,
			Details: map[string]interface{}{
				"status_code": nwisErr.StatusCode,
			},
		}
	}

	detail := models.ErrorDetail{Message: err.Error()}
	switch metrics.ErrorKind(err) {
	case "configuration":
		detail.Code = "INVALID_CONFIG"
		return http.StatusBadRequest, detail
	case "data_coverage":
		detail.Code = "DATA_COVERAGE"
		var cov *model.DataCoverageError
		if errors.As(err, &cov) {
			detail.Details = map[string]interface{}{
				"start": cov.Start.Format(model.DateLayout),
				"end":   cov.End.Format(model.DateLayout),
			}
			if !cov.Missing.IsZero() {
				detail.Details["missing"] = cov.Missing.Format(model.DateLayout)
			}
		}
		return http.StatusUnprocessableEntity, detail
	case "empty_population":
		detail.Code = "EMPTY_POPULATION"
		return http.StatusUnprocessableEntity, detail
	case "no_valid_window":
		detail.Code = "NO_VALID_WINDOW"
		return http.StatusUnprocessableEntity, detail
	default:
		detail.Code = "INTERNAL_ERROR"
		return http.StatusInternalServerError, detail
	}
}

func respondError(c *gin.Context, err error) {
	status, detail := errorDetail(err)
	if status >= http.StatusInternalServerError {
		log.Errorw("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, models.ErrorResponse{Error: detail})
}
