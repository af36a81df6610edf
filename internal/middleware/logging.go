package middleware

import (
	"time"

	"vendor-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestLoggerMiddleware logs one line per request
func RequestLoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		// Process request
		err := next(c)

		status := c.Response().Status
		fields := []zap.Field{
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("ip", c.RealIP()),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}

		// Log request details
		log := logger.FromContext(c)
		if status >= 500 {
			log.Error("HTTP Request", fields...)
		} else {
			log.Info("HTTP Request", fields...)
		}
		return err
	}
}
