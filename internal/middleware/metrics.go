package middleware

import (
	"time"

	"vendor-service/prometheus"

	"github.com/labstack/echo/v4"
)

// MetricsMiddleware records request counts and latencies per route
func MetricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Start timer for request duration
		start := time.Now()

		err := next(c)
		if err != nil {
			// let echo write the error response so the status is final
			c.Error(err)
		}

		// route template, so ids do not explode label cardinality
		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		// Record metrics
		prometheus.RecordHTTPRequest(c.Request().Method, path, c.Response().Status, time.Since(start))

		return nil
	}
}
