package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/inkwavehq/inkwave/internal/credits/gate"
	"go.uber.org/zap"
)

const (
	roleKey      = "role"
	requestIDKey = "request_id"
)

// RequestID assigns a correlation id to every request, honoring one supplied
// by the caller, and echoes it back in the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader("X-Request-Id"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-Id", requestID)
		c.Next()
	}
}

// RequestLogger emits one structured line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDKey)),
		}
		if userID := c.GetString(gate.UserIDKey); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
			log.Error("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

// AuthRequired validates the bearer token and stashes the caller's identity
// in the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(header, "Bearer ") {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(s.cfg.AuthJWTSecret), nil
		})
		if err != nil || !token.Valid {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		userID, _ := claims["sub"].(string)
		if userID == "" {
			userID, _ = claims["user_id"].(string)
		}
		if strings.TrimSpace(userID) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(gate.UserIDKey, strings.TrimSpace(userID))
		if role, ok := claims[roleKey].(string); ok {
			c.Set(roleKey, role)
		}
		c.Next()
	}
}

func (s *Server) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(roleKey) != "admin" {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

// GenerationRateLimit throttles the generation endpoints per user.
func (s *Server) GenerationRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		userID := c.GetString(gate.UserIDKey)
		if userID == "" {
			userID = c.ClientIP()
		}

		result, err := s.limiter.Allow(c.Request.Context(),
			"ratelimit:generate:"+userID, s.cfg.RateLimitRate, s.cfg.RateLimitBurst)
		if err != nil {
			// A broken limiter should not take the API down.
			s.log.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		if !result.Allowed {
			s.metrics.RecordRateLimitDenied(c.Request.URL.Path)
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "too many requests, slow down",
			})
			return
		}

		c.Next()
	}
}
