package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkwavehq/inkwave/internal/credits/gate"
	subscriptiondomain "github.com/inkwavehq/inkwave/internal/subscription/domain"
)

func (s *Server) GetSubscription(c *gin.Context) {
	sub, err := s.subscriptionSvc.Get(c.Request.Context(), c.GetString(gate.UserIDKey))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

type beginCheckoutRequest struct {
	Plan     string `json:"plan" binding:"required"`
	Provider string `json:"provider" binding:"required"`
}

func (s *Server) BeginCheckout(c *gin.Context) {
	var req beginCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	session, err := s.checkoutSvc.Begin(c.Request.Context(),
		c.GetString(gate.UserIDKey), subscriptiondomain.Plan(req.Plan), req.Provider)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}
