package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/inkwavehq/inkwave/internal/checkout/domain"
	creditsdomain "github.com/inkwavehq/inkwave/internal/credits/domain"
	generationdomain "github.com/inkwavehq/inkwave/internal/generation/domain"
	"github.com/inkwavehq/inkwave/internal/generation/openai"
	paymentdomain "github.com/inkwavehq/inkwave/internal/payment/domain"
	subscriptiondomain "github.com/inkwavehq/inkwave/internal/subscription/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		if errors.Is(lastErr.Err, creditsdomain.ErrInsufficientCredits) {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error":   "insufficient_credits",
				"message": "not enough credits to perform this action",
				"code":    "INSUFFICIENT_CREDITS",
			})
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "invalid signature",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, openai.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "content generation is not available",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, creditsdomain.ErrInvalidUser),
		errors.Is(err, creditsdomain.ErrInvalidAmount),
		errors.Is(err, subscriptiondomain.ErrInvalidPlan),
		errors.Is(err, subscriptiondomain.ErrInvalidUser),
		errors.Is(err, subscriptiondomain.ErrInvalidProvider),
		errors.Is(err, generationdomain.ErrEmptyPrompt),
		errors.Is(err, checkoutdomain.ErrInvalidOrder),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent),
		errors.Is(err, paymentdomain.ErrInvalidOrderID):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, subscriptiondomain.ErrNotFound),
		errors.Is(err, checkoutdomain.ErrOrderNotFound),
		errors.Is(err, paymentdomain.ErrProviderNotFound),
		errors.Is(err, paymentdomain.ErrUnknownUser),
		errors.Is(err, subscriptiondomain.ErrUnknownUser),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	const prefix = "invalid_"
	if code == "invalid_request" {
		return "request"
	}
	if len(code) > len(prefix) && code[:len(prefix)] == prefix {
		return code[len(prefix):]
	}
	return ""
}
