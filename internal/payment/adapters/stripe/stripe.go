package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/inkwavehq/inkwave/internal/config"
	paymentdomain "github.com/inkwavehq/inkwave/internal/payment/domain"
	subscriptiondomain "github.com/inkwavehq/inkwave/internal/subscription/domain"
)

type Adapter struct {
	webhookSecret string
	secretKey     string
	apiBaseURL    string
	priceToPlan   map[string]subscriptiondomain.Plan
	client        *http.Client
}

func New(cfg config.StripeConfig) *Adapter {
	priceToPlan := map[string]subscriptiondomain.Plan{}
	if cfg.PriceIDPro != "" {
		priceToPlan[cfg.PriceIDPro] = subscriptiondomain.PlanPro
	}
	if cfg.PriceIDBusiness != "" {
		priceToPlan[cfg.PriceIDBusiness] = subscriptiondomain.PlanBusiness
	}

	return &Adapter{
		webhookSecret: cfg.WebhookSecret,
		secretKey:     cfg.SecretKey,
		apiBaseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		priceToPlan:   priceToPlan,
		client:        &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *Adapter) Provider() string {
	return paymentdomain.ProviderStripe
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a.webhookSecret == "" {
		return paymentdomain.ErrInvalidSignature
	}
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return paymentdomain.ErrInvalidSignature
}

func (a *Adapter) Parse(ctx context.Context, payload []byte, headers http.Header) (*paymentdomain.SubscriptionEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case "customer.subscription.created":
		return a.parseSubscription(event, payload, paymentdomain.EventSubscriptionCreated)
	case "customer.subscription.updated":
		return a.parseSubscription(event, payload, paymentdomain.EventSubscriptionUpdated)
	case "customer.subscription.deleted":
		return a.parseSubscription(event, payload, paymentdomain.EventSubscriptionDeleted)
	case "checkout.session.completed":
		return a.parseCheckoutSession(ctx, event, payload)
	default:
		return nil, paymentdomain.ErrEventIgnored
	}
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeSubscription struct {
	ID                 string            `json:"id"`
	Customer           string            `json:"customer"`
	Status             string            `json:"status"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	Items              stripeItemList    `json:"items"`
	Metadata           map[string]string `json:"metadata"`
}

type stripeItemList struct {
	Data []stripeItem `json:"data"`
}

type stripeItem struct {
	Price stripePrice `json:"price"`
}

type stripePrice struct {
	ID string `json:"id"`
}

type stripeCheckoutSession struct {
	ID                string `json:"id"`
	Mode              string `json:"mode"`
	Customer          string `json:"customer"`
	Subscription      string `json:"subscription"`
	ClientReferenceID string `json:"client_reference_id"`
}

func (a *Adapter) parseSubscription(event stripeEvent, payload []byte, eventType paymentdomain.EventType) (*paymentdomain.SubscriptionEvent, error) {
	var sub stripeSubscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(sub.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	out := a.eventFromSubscription(sub, eventType)
	out.ProviderEventID = event.ID
	out.OccurredAt = timestamp(event.Created)
	out.RawPayload = payload
	return out, nil
}

// parseCheckoutSession resolves a completed subscription-mode checkout by
// fetching the full subscription object and re-running the update path.
func (a *Adapter) parseCheckoutSession(ctx context.Context, event stripeEvent, payload []byte) (*paymentdomain.SubscriptionEvent, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if !strings.EqualFold(strings.TrimSpace(session.Mode), "subscription") {
		return nil, paymentdomain.ErrEventIgnored
	}
	if strings.TrimSpace(session.Subscription) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	sub, err := a.fetchSubscription(ctx, session.Subscription)
	if err != nil {
		return nil, err
	}

	out := a.eventFromSubscription(*sub, paymentdomain.EventCheckoutCompleted)
	out.ProviderEventID = event.ID
	out.OccurredAt = timestamp(event.Created)
	out.RawPayload = payload
	if out.UserID == "" {
		out.UserID = strings.TrimSpace(session.ClientReferenceID)
	}
	if out.ProviderCustomerID == "" {
		out.ProviderCustomerID = strings.TrimSpace(session.Customer)
	}
	return out, nil
}

func (a *Adapter) eventFromSubscription(sub stripeSubscription, eventType paymentdomain.EventType) *paymentdomain.SubscriptionEvent {
	out := &paymentdomain.SubscriptionEvent{
		Provider:               paymentdomain.ProviderStripe,
		Type:                   eventType,
		UserID:                 strings.TrimSpace(sub.Metadata["user_id"]),
		Plan:                   a.planFromItems(sub.Items),
		Status:                 statusFromStripe(sub.Status),
		ProviderCustomerID:     strings.TrimSpace(sub.Customer),
		ProviderSubscriptionID: strings.TrimSpace(sub.ID),
	}
	if sub.CurrentPeriodStart > 0 {
		start := time.Unix(sub.CurrentPeriodStart, 0).UTC()
		out.PeriodStart = &start
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		out.PeriodEnd = &end
	}
	return out
}

func (a *Adapter) fetchSubscription(ctx context.Context, subscriptionID string) (*stripeSubscription, error) {
	if a.secretKey == "" {
		return nil, errors.New("stripe secret key not configured")
	}

	url := fmt.Sprintf("%s/subscriptions/%s", a.apiBaseURL, subscriptionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.secretKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch stripe subscription: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch stripe subscription: status %d", resp.StatusCode)
	}

	var sub stripeSubscription
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	return &sub, nil
}

func (a *Adapter) planFromItems(items stripeItemList) subscriptiondomain.Plan {
	for _, item := range items.Data {
		if plan, ok := a.priceToPlan[item.Price.ID]; ok {
			return plan
		}
	}
	return ""
}

func statusFromStripe(status string) subscriptiondomain.Status {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing":
		return subscriptiondomain.StatusActive
	case "canceled":
		return subscriptiondomain.StatusCancelled
	case "past_due", "unpaid", "incomplete_expired":
		return subscriptiondomain.StatusFailed
	case "incomplete":
		return subscriptiondomain.StatusPending
	default:
		return subscriptiondomain.StatusPending
	}
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(value int64) time.Time {
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}
