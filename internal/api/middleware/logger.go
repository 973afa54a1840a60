package middleware

import (
	"strconv"
	"time"

	"critical-duration/internal/log"
	"critical-duration/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Logger logs one line per request and counts it.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()

		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "errors", c.Errors.String())
		}
		if status >= 500 {
			log.Errorw("request", kv...)
			return
		}
		log.Infow("request", kv...)
	}
}
