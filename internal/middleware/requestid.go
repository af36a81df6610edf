package middleware

import (
	"vendor-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HeaderRequestID carries the request id in both directions
const HeaderRequestID = "X-Request-ID"

// RequestIDMiddleware tags each request with an id, reusing the caller's
// X-Request-ID when present, and attaches a logger carrying it to both the
// echo context and the request context.
func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Reuse the caller's request ID or generate a new one
		requestID := c.Request().Header.Get(HeaderRequestID)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.New().String()
		}

		// Add the request ID to the context and response headers
		c.Set("request_id", requestID)
		c.Response().Header().Set(HeaderRequestID, requestID)

		// Add request ID to the logger
		log := logger.FromContext(c).With(zap.String("request_id", requestID))
		setLogger(c, log)

		return next(c)
	}
}

// setLogger stores log where both handlers and the store can find it
func setLogger(c echo.Context, log *zap.Logger) {
	c.Set("logger", log)
	req := c.Request()
	c.SetRequest(req.WithContext(logger.WithLogger(req.Context(), log)))
}
