package paddle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/inkwavehq/inkwave/internal/config"
	paymentdomain "github.com/inkwavehq/inkwave/internal/payment/domain"
	subscriptiondomain "github.com/inkwavehq/inkwave/internal/subscription/domain"
)

type Adapter struct {
	planIDPro      string
	planIDBusiness string
}

func New(cfg config.PaddleConfig) *Adapter {
	return &Adapter{
		planIDPro:      cfg.PlanIDPro,
		planIDBusiness: cfg.PlanIDBusiness,
	}
}

func (a *Adapter) Provider() string {
	return paymentdomain.ProviderPaddle
}

// Verify accepts all payloads. Legacy webhooks carry a p_signature field but
// no verification key is wired for this provider.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	return nil
}

// Parse handles both the legacy form-encoded alerts and the JSON billing
// notifications, dispatching on alert_name or event_type respectively.
func (a *Adapter) Parse(ctx context.Context, payload []byte, headers http.Header) (*paymentdomain.SubscriptionEvent, error) {
	contentType := strings.ToLower(headers.Get("Content-Type"))
	if strings.Contains(contentType, "application/x-www-form-urlencoded") {
		return a.parseForm(payload)
	}
	return a.parseJSON(payload)
}

func (a *Adapter) parseForm(payload []byte) (*paymentdomain.SubscriptionEvent, error) {
	values, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	alertName := strings.TrimSpace(values.Get("alert_name"))
	if alertName == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	var eventType paymentdomain.EventType
	var status subscriptiondomain.Status
	switch alertName {
	case "subscription_created":
		eventType = paymentdomain.EventSubscriptionCreated
		status = statusFromPaddle(values.Get("status"))
	case "subscription_updated":
		eventType = paymentdomain.EventSubscriptionUpdated
		status = statusFromPaddle(values.Get("status"))
	case "subscription_cancelled":
		eventType = paymentdomain.EventSubscriptionCancelled
		status = subscriptiondomain.StatusCancelled
	case "subscription_payment_succeeded":
		eventType = paymentdomain.EventPaymentSucceeded
		status = subscriptiondomain.StatusActive
	case "subscription_payment_failed":
		eventType = paymentdomain.EventPaymentFailed
		status = subscriptiondomain.StatusFailed
	default:
		return nil, paymentdomain.ErrEventIgnored
	}

	event := &paymentdomain.SubscriptionEvent{
		Provider:               paymentdomain.ProviderPaddle,
		ProviderEventID:        strings.TrimSpace(values.Get("alert_id")),
		Type:                   eventType,
		UserID:                 userFromPassthrough(values.Get("passthrough")),
		Plan:                   a.planFromID(values.Get("subscription_plan_id")),
		Status:                 status,
		ProviderCustomerID:     strings.TrimSpace(values.Get("user_id")),
		ProviderSubscriptionID: strings.TrimSpace(values.Get("subscription_id")),
		OccurredAt:             parseLegacyTime(values.Get("event_time")),
		RawPayload:             payload,
	}

	if nextBill := parseLegacyDate(values.Get("next_bill_date")); nextBill != nil {
		event.PeriodEnd = nextBill
	}
	return event, nil
}

type paddleNotification struct {
	EventID    string     `json:"event_id"`
	EventType  string     `json:"event_type"`
	OccurredAt string     `json:"occurred_at"`
	Data       paddleData `json:"data"`
}

type paddleData struct {
	ID                   string            `json:"id"`
	Status               string            `json:"status"`
	CustomerID           string            `json:"customer_id"`
	CustomData           map[string]string `json:"custom_data"`
	Items                []paddleItem      `json:"items"`
	CurrentBillingPeriod *paddlePeriod     `json:"current_billing_period"`
}

type paddleItem struct {
	Price paddlePrice `json:"price"`
}

type paddlePrice struct {
	ID string `json:"id"`
}

type paddlePeriod struct {
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

func (a *Adapter) parseJSON(payload []byte) (*paymentdomain.SubscriptionEvent, error) {
	var notification paddleNotification
	if err := json.Unmarshal(payload, &notification); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	var eventType paymentdomain.EventType
	var status subscriptiondomain.Status
	switch strings.TrimSpace(notification.EventType) {
	case "subscription.created":
		eventType = paymentdomain.EventSubscriptionCreated
		status = statusFromPaddle(notification.Data.Status)
	case "subscription.updated":
		eventType = paymentdomain.EventSubscriptionUpdated
		status = statusFromPaddle(notification.Data.Status)
	case "subscription.canceled":
		eventType = paymentdomain.EventSubscriptionCancelled
		status = subscriptiondomain.StatusCancelled
	case "transaction.completed":
		eventType = paymentdomain.EventPaymentSucceeded
		status = subscriptiondomain.StatusActive
	case "":
		return nil, paymentdomain.ErrInvalidEvent
	default:
		return nil, paymentdomain.ErrEventIgnored
	}

	if strings.TrimSpace(notification.Data.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	event := &paymentdomain.SubscriptionEvent{
		Provider:               paymentdomain.ProviderPaddle,
		ProviderEventID:        strings.TrimSpace(notification.EventID),
		Type:                   eventType,
		UserID:                 strings.TrimSpace(notification.Data.CustomData["user_id"]),
		Plan:                   a.planFromItems(notification.Data.Items),
		Status:                 status,
		ProviderCustomerID:     strings.TrimSpace(notification.Data.CustomerID),
		ProviderSubscriptionID: strings.TrimSpace(notification.Data.ID),
		OccurredAt:             parseRFC3339(notification.OccurredAt),
		RawPayload:             payload,
	}

	if period := notification.Data.CurrentBillingPeriod; period != nil {
		if start := parseRFC3339(period.StartsAt); !start.IsZero() {
			event.PeriodStart = &start
		}
		if end := parseRFC3339(period.EndsAt); !end.IsZero() {
			event.PeriodEnd = &end
		}
	}
	return event, nil
}

func (a *Adapter) planFromID(planID string) subscriptiondomain.Plan {
	switch strings.TrimSpace(planID) {
	case "":
		return ""
	case a.planIDPro:
		return subscriptiondomain.PlanPro
	case a.planIDBusiness:
		return subscriptiondomain.PlanBusiness
	default:
		return ""
	}
}

func (a *Adapter) planFromItems(items []paddleItem) subscriptiondomain.Plan {
	for _, item := range items {
		if plan := a.planFromID(item.Price.ID); plan != "" {
			return plan
		}
	}
	return ""
}

func statusFromPaddle(status string) subscriptiondomain.Status {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing":
		return subscriptiondomain.StatusActive
	case "past_due", "paused":
		return subscriptiondomain.StatusFailed
	case "deleted", "canceled":
		return subscriptiondomain.StatusCancelled
	default:
		return subscriptiondomain.StatusPending
	}
}

func userFromPassthrough(passthrough string) string {
	passthrough = strings.TrimSpace(passthrough)
	if passthrough == "" {
		return ""
	}
	var data map[string]string
	if err := json.Unmarshal([]byte(passthrough), &data); err != nil {
		// Some integrations put the bare user id in passthrough.
		if !strings.HasPrefix(passthrough, "{") {
			return passthrough
		}
		return ""
	}
	return strings.TrimSpace(data["user_id"])
}

func parseLegacyTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Now().UTC()
	}
	parsed, err := time.Parse("2006-01-02 15:04:05", value)
	if err != nil {
		return time.Now().UTC()
	}
	return parsed.UTC()
}

func parseLegacyDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	parsed = parsed.UTC()
	return &parsed
}

func parseRFC3339(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}
