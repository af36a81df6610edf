package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestFromCtxFallsBackToGlobal(t *testing.T) {
	assert.NotNil(t, FromCtx(context.Background()))
}

func TestFromCtxReturnsStoredLogger(t *testing.T) {
	l := zap.NewNop()
	ctx := WithLogger(context.Background(), l)
	assert.Same(t, l, FromCtx(ctx))
}

func TestFromContextPrefersEchoValue(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	reqLogger := zap.NewNop()
	req = req.WithContext(WithLogger(req.Context(), reqLogger))
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Same(t, reqLogger, FromContext(c))

	echoLogger := zap.NewNop()
	c.Set("logger", echoLogger)
	assert.Same(t, echoLogger, FromContext(c))
}
