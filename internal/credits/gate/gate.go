// Package gate rejects metered requests before handler logic runs when the
// caller's credit balance cannot cover the mapped action.
package gate

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	creditsdomain "github.com/inkwavehq/inkwave/internal/credits/domain"
	"github.com/inkwavehq/inkwave/internal/observability/metrics"
	"go.uber.org/zap"
)

// UserIDKey is the gin context key the auth middleware populates.
const UserIDKey = "user_id"

type meteredRoute struct {
	prefix string
	action creditsdomain.ActionType
}

var meteredRoutes = []meteredRoute{
	{"/v1/generate/text", creditsdomain.ActionTextGeneration},
	{"/v1/generate/image", creditsdomain.ActionImageGeneration},
	{"/v1/generate/translate", creditsdomain.ActionTranslation},
	{"/v1/generate/grammar", creditsdomain.ActionGrammarCheck},
	{"/v1/generate/improve", creditsdomain.ActionContentImprovement},
}

// ActionForPath maps a request path to its metered action type.
func ActionForPath(path string) (creditsdomain.ActionType, bool) {
	for _, route := range meteredRoutes {
		if strings.HasPrefix(path, route.prefix) {
			return route.action, true
		}
	}
	return "", false
}

// Middleware checks balance sufficiency for metered paths. The actual debit
// happens in the handler via Consume; the debit itself is conditional at the
// store layer, so a race past this check cannot overspend.
func Middleware(svc creditsdomain.Service, m *metrics.Metrics, log *zap.Logger) gin.HandlerFunc {
	log = log.Named("credits.gate")

	return func(c *gin.Context) {
		action, metered := ActionForPath(c.Request.URL.Path)
		if !metered {
			c.Next()
			return
		}

		userID := strings.TrimSpace(c.GetString(UserIDKey))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		enough, err := svc.HasEnough(c.Request.Context(), userID, action)
		if err != nil {
			log.Error("credit check failed",
				zap.String("user_id", userID),
				zap.String("action_type", string(action)),
				zap.Error(err),
			)
			_ = c.Error(err)
			c.Abort()
			return
		}
		if !enough {
			m.RecordGateRejection(string(action))
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error":   "insufficient_credits",
				"message": "not enough credits to perform this action",
				"code":    "INSUFFICIENT_CREDITS",
			})
			return
		}

		c.Next()
	}
}
