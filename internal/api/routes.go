// Package api assembles the HTTP surface over the analysis packages.
package api

import (
	"net/http"

	"critical-duration/internal/api/handlers"
	"critical-duration/internal/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires middleware and routes onto a fresh gin engine.
func NewRouter(analysisHandler *handlers.AnalysisHandler, reservoirHandler *handlers.ReservoirHandler) *gin.Engine {
	router := gin.New()

	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/events", analysisHandler.DetectEvents)
		api.POST("/events/rank", analysisHandler.RankEvents)
		api.POST("/critical-duration", analysisHandler.CriticalDuration)

		api.POST("/route", reservoirHandler.Route)
		api.GET("/route/:id", reservoirHandler.GetRoute)
		api.POST("/volume-window", reservoirHandler.VolumeWindow)
		api.GET("/volume-window/:id", reservoirHandler.GetVolumeWindow)
		api.POST("/cvhs", reservoirHandler.CVHS)

		api.GET("/variables", handlers.ListVariables)
		api.GET("/methods", handlers.ListMethods)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router
}
