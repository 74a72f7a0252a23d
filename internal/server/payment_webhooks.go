package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/inkwavehq/inkwave/internal/payment/domain"
)

// HandlePaymentWebhook ingests a provider callback. Replays and event types
// the service does not act on are acknowledged with 200 so the provider
// stops retrying.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.paymentSvc.IngestWebhook(c.Request.Context(), provider, payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) ||
			errors.Is(err, paymentdomain.ErrEventIgnored) {
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
