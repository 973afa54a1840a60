package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"critical-duration/internal/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&model.ConfigurationError{Op: "x", Reason: "y"}, "configuration"},
		{fmt.Errorf("wrapped: %w", &model.DataCoverageError{What: "s"}), "data_coverage"},
		{fmt.Errorf("screen: %w", model.ErrEmptyPopulation), "empty_population"},
		{fmt.Errorf("sweep: %w", model.ErrNoValidWindow), "no_valid_window"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), "%v", tt.err)
	}
}

func TestObserve(t *testing.T) {
	total := AnalysesTotal.WithLabelValues("test_op")
	failed := AnalysisFailures.WithLabelValues("test_op", "no_valid_window")
	beforeTotal, beforeFailed := testutil.ToFloat64(total), testutil.ToFloat64(failed)

	Observe("test_op", time.Now(), nil)
	Observe("test_op", time.Now(), model.ErrNoValidWindow)

	assert.Equal(t, beforeTotal+2, testutil.ToFloat64(total))
	assert.Equal(t, beforeFailed+1, testutil.ToFloat64(failed))
}
