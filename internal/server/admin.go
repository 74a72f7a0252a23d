package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) AdminGetCredits(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))

	balance, err := s.creditsSvc.Get(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBalanceResponse(balance))
}

type adminCreditsRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	TotalCredits int64  `json:"total_credits" binding:"required"`
}

// AdminAdjustCredits raises or lowers a user's credit ceiling without
// touching their usage counter.
func (s *Server) AdminAdjustCredits(c *gin.Context) {
	var req adminCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.creditsSvc.AdjustTotal(c.Request.Context(), req.UserID, req.TotalCredits); err != nil {
		AbortWithError(c, err)
		return
	}

	balance, err := s.creditsSvc.Get(c.Request.Context(), req.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBalanceResponse(balance))
}

// AdminResetCredits starts a fresh credit period with the given allotment.
func (s *Server) AdminResetCredits(c *gin.Context) {
	var req adminCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.creditsSvc.Reset(c.Request.Context(), req.UserID, req.TotalCredits); err != nil {
		AbortWithError(c, err)
		return
	}

	balance, err := s.creditsSvc.Get(c.Request.Context(), req.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBalanceResponse(balance))
}

func (s *Server) AdminGetSubscription(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))

	sub, err := s.subscriptionSvc.Get(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
