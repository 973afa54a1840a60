package handlers

import (
	"net/http"

	"critical-duration/internal/analysis"
	"critical-duration/internal/api/models"
	"critical-duration/internal/data"
	"critical-duration/internal/model"

	"github.com/gin-gonic/gin"
)

var variableNames = []struct {
	kind model.VariableKind
	name string
	unit string
}{
	{model.KindFlow, "Daily mean discharge", "cfs"},
	{model.KindStage, "Daily mean gage height", "ft"},
	{model.KindPrecipitation, "Daily precipitation", "in"},
	{model.KindSWE, "Snow water equivalent", "in"},
}

// ListVariables handles GET /api/v1/variables
func ListVariables(c *gin.Context) {
	variables := make([]models.VariableInfo, 0, len(variableNames))
	for _, v := range variableNames {
		info := models.VariableInfo{ID: string(v.kind), Name: v.name, Unit: v.unit}
		// SWE has no NWIS daily-values parameter; it must come from a file.
		if code, err := data.ParameterCode(v.kind); err == nil {
			info.NWISParameter = code
		}
		variables = append(variables, info)
	}
	c.JSON(http.StatusOK, gin.H{"variables": variables})
}

// ListMethods handles GET /api/v1/methods
func ListMethods(c *gin.Context) {
	methods := []models.MethodInfo{
		{ID: string(analysis.MethodArithmetic), Description: "Arithmetic mean of screened event durations"},
		{ID: string(analysis.MethodGeometric), Description: "Geometric mean of screened event durations"},
		{ID: string(analysis.MethodPeakWeighted), Description: "Peak-weighted mean duration (default)", Default: true},
	}
	c.JSON(http.StatusOK, gin.H{"methods": methods})
}
