package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"vendor-service/pkg/config"
	"vendor-service/pkg/jwtutil"
	"vendor-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newServer() *echo.Echo {
	e := echo.New()
	e.Use(RequestIDMiddleware, RequestLoggerMiddleware, MetricsMiddleware)

	api := e.Group("/api")
	api.Use(AuthMiddleware)
	api.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"user_id":    c.Get("user_id"),
			"email":      c.Get("email"),
			"request_id": c.Get("request_id"),
			// the store reads the logger from the request context
			"same":       logger.FromCtx(c.Request().Context()) == logger.FromContext(c),
		})
	})
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})
	return e
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	e := newServer()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Header().Get(HeaderRequestID), 36)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "mw-key", ExpirationHours: 1})
	e := newServer()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())
}

func TestAuthAcceptsBearerToken(t *testing.T) {
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "mw-key", ExpirationHours: 1})
	zap.ReplaceGlobals(zap.NewNop())
	e := newServer()

	token, err := jwtutil.GenerateToken("buyer@example.com", 42)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(HeaderRequestID, "req-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":42,"email":"buyer@example.com","request_id":"req-1","same":true}`, rec.Body.String())
}
