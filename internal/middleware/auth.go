package middleware

import (
	"net/http"
	"strings"

	"vendor-service/pkg/jwtutil"
	"vendor-service/pkg/logger"
	"vendor-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware verifies the bearer token and stores the caller in the context
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Extract the token from the Authorization header
		tokenString := c.Request().Header.Get("Authorization")
		if tokenString == "" {
			log.Warn("Missing authorization token")
			prometheus.RecordAuthAttempt(false)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}

		// Remove "Bearer " prefix if present
		if len(tokenString) > 7 && strings.ToUpper(tokenString[0:7]) == "BEARER " {
			tokenString = tokenString[7:]
		}

		// Validate the token
		claims, err := jwtutil.ValidateToken(tokenString)
		if err != nil {
			log.Warn("Invalid token", zap.Error(err))
			prometheus.RecordAuthAttempt(false)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}
		prometheus.RecordAuthAttempt(true)

		// Store user information in the context
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)

		// Update logger with user information
		setLogger(c, log.With(
			zap.Uint("user_id", claims.UserID),
			zap.String("email", claims.Email),
		))

		// Call the next handler
		return next(c)
	}
}
