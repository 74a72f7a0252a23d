package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	creditsdomain "github.com/inkwavehq/inkwave/internal/credits/domain"
	paymentdomain "github.com/inkwavehq/inkwave/internal/payment/domain"
	subscriptiondomain "github.com/inkwavehq/inkwave/internal/subscription/domain"
	"github.com/stretchr/testify/require"
)

func serveWithError(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	engine.POST("/probe", func(c *gin.Context) {
		AbortWithError(c, err)
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/probe", nil))
	return rec
}

func TestErrorMapping_InvalidSignature(t *testing.T) {
	rec := serveWithError(paymentdomain.ErrInvalidSignature)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), `"type":"unauthorized"`)
	require.Contains(t, rec.Body.String(), "invalid signature")
}

func TestErrorMapping_InsufficientCredits(t *testing.T) {
	rec := serveWithError(creditsdomain.ErrInsufficientCredits)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.Contains(t, rec.Body.String(), "INSUFFICIENT_CREDITS")
}

func TestErrorMapping_InvalidPayload(t *testing.T) {
	rec := serveWithError(paymentdomain.ErrInvalidPayload)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"type":"validation_error"`)
}

func TestErrorMapping_NotFound(t *testing.T) {
	rec := serveWithError(subscriptiondomain.ErrNotFound)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorMapping_Unauthorized(t *testing.T) {
	rec := serveWithError(ErrUnauthorized)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestErrorMapping_UnknownErrorInternal(t *testing.T) {
	rec := serveWithError(ErrInternal)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), `"type":"internal_error"`)
}
