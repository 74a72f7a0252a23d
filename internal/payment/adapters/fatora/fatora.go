package fatora

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/inkwavehq/inkwave/internal/config"
	paymentdomain "github.com/inkwavehq/inkwave/internal/payment/domain"
	subscriptiondomain "github.com/inkwavehq/inkwave/internal/subscription/domain"
)

// Fatora charges a flat amount per plan; the webhook carries no plan
// identifier, so the amount is mapped back to the plan it pays for.
var amountToPlan = map[int64]subscriptiondomain.Plan{
	29: subscriptiondomain.PlanPro,
	99: subscriptiondomain.PlanBusiness,
}

type Adapter struct {
	webhookSecret string
}

func New(cfg config.FatoraConfig) *Adapter {
	return &Adapter{webhookSecret: cfg.WebhookSecret}
}

func (a *Adapter) Provider() string {
	return paymentdomain.ProviderFatora
}

// Verify checks the hex HMAC-SHA256 of the raw body against the
// X-Fatora-Signature header. When no secret is configured the payload is
// accepted as-is.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a.webhookSecret == "" {
		return nil
	}

	signature := strings.TrimSpace(headers.Get("X-Fatora-Signature"))
	if signature == "" {
		return paymentdomain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

type fatoraWebhook struct {
	ID            string          `json:"id"`
	PaymentStatus string          `json:"payment_status"`
	Status        string          `json:"status"`
	OrderID       string          `json:"order_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        json.Number     `json:"amount"`
	Currency      string          `json:"currency"`
	CreatedAt     string          `json:"created_at"`
	Customer      *fatoraCustomer `json:"client"`
}

type fatoraCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (a *Adapter) Parse(ctx context.Context, payload []byte, headers http.Header) (*paymentdomain.SubscriptionEvent, error) {
	var hook fatoraWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	orderID := strings.TrimSpace(hook.OrderID)
	if orderID == "" {
		return nil, paymentdomain.ErrInvalidOrderID
	}

	paymentStatus := strings.ToUpper(strings.TrimSpace(hook.PaymentStatus))
	if paymentStatus == "" {
		paymentStatus = strings.ToUpper(strings.TrimSpace(hook.Status))
	}

	var eventType paymentdomain.EventType
	var status subscriptiondomain.Status
	switch paymentStatus {
	case "SUCCESS", "PAID":
		eventType = paymentdomain.EventPaymentSucceeded
		status = subscriptiondomain.StatusActive
	case "FAILURE", "FAILED", "DECLINED":
		eventType = paymentdomain.EventPaymentFailed
		status = subscriptiondomain.StatusFailed
	case "":
		return nil, paymentdomain.ErrInvalidEvent
	default:
		return nil, paymentdomain.ErrEventIgnored
	}

	eventID := strings.TrimSpace(hook.TransactionID)
	if eventID == "" {
		eventID = strings.TrimSpace(hook.ID)
	}
	if eventID == "" {
		// No transaction id on some sandbox payloads; the order id is the
		// only stable handle left for dedupe.
		eventID = orderID + ":" + strings.ToLower(paymentStatus)
	}

	event := &paymentdomain.SubscriptionEvent{
		Provider:        paymentdomain.ProviderFatora,
		ProviderEventID: eventID,
		Type:            eventType,
		OrderID:         orderID,
		Plan:            planFromAmount(hook.Amount),
		Status:          status,
		OccurredAt:      parseCreatedAt(hook.CreatedAt),
		RawPayload:      payload,
	}

	// Fatora is a one-shot charge, not a recurring subscription; a successful
	// payment buys one month from the payment time.
	if eventType == paymentdomain.EventPaymentSucceeded {
		start := event.OccurredAt
		end := start.AddDate(0, 1, 0)
		event.PeriodStart = &start
		event.PeriodEnd = &end
	}
	return event, nil
}

// UserFromOrderID recovers the user id embedded in a checkout order id of the
// form "order_<timestamp>_<user_id>". It is the fallback for order ids that
// predate the checkout_orders table; the last segment is the user id.
func UserFromOrderID(orderID string) (string, error) {
	parts := strings.Split(strings.TrimSpace(orderID), "_")
	if len(parts) < 3 {
		return "", paymentdomain.ErrInvalidOrderID
	}
	userID := parts[len(parts)-1]
	if userID == "" {
		return "", paymentdomain.ErrInvalidOrderID
	}
	return userID, nil
}

func planFromAmount(amount json.Number) subscriptiondomain.Plan {
	value, err := amount.Float64()
	if err != nil {
		return ""
	}
	return amountToPlan[int64(value)]
}

func parseCreatedAt(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Now().UTC()
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC()
		}
	}
	return time.Now().UTC()
}
