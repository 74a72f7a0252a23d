package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	creditsdomain "github.com/inkwavehq/inkwave/internal/credits/domain"
	"github.com/inkwavehq/inkwave/internal/credits/gate"
)

type balanceResponse struct {
	UserID           string  `json:"user_id"`
	TotalCredits     int64   `json:"total_credits"`
	UsedCredits      int64   `json:"used_credits"`
	RemainingCredits int64   `json:"remaining_credits"`
	ResetDate        *string `json:"reset_date,omitempty"`
}

func toBalanceResponse(balance *creditsdomain.CreditBalance) balanceResponse {
	out := balanceResponse{
		UserID:           balance.UserID,
		TotalCredits:     balance.TotalCredits,
		UsedCredits:      balance.UsedCredits,
		RemainingCredits: balance.Remaining(),
	}
	if balance.ResetDate != nil {
		formatted := balance.ResetDate.Format("2006-01-02")
		out.ResetDate = &formatted
	}
	return out
}

func (s *Server) GetCreditBalance(c *gin.Context) {
	userID := c.GetString(gate.UserIDKey)

	balance, err := s.creditsSvc.Get(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toBalanceResponse(balance))
}

func (s *Server) GetCreditHistory(c *gin.Context) {
	userID := c.GetString(gate.UserIDKey)

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	entries, err := s.creditsSvc.History(c.Request.Context(), userID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
