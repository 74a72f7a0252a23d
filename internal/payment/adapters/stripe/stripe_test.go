package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/inkwavehq/inkwave/internal/config"
	paymentdomain "github.com/inkwavehq/inkwave/internal/payment/domain"
	subscriptiondomain "github.com/inkwavehq/inkwave/internal/subscription/domain"
	"github.com/stretchr/testify/require"
)

func signPayload(secret string, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "." + string(payload)))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerify(t *testing.T) {
	secret := "whsec_test"
	adapter := New(config.StripeConfig{WebhookSecret: secret})
	payload := []byte(`{"id":"evt_1"}`)

	signature := signPayload(secret, "1699999999", payload)
	headers := http.Header{}
	headers.Set("Stripe-Signature", fmt.Sprintf("t=1699999999,v1=%s", signature))
	require.NoError(t, adapter.Verify(context.Background(), payload, headers))

	headers.Set("Stripe-Signature", "t=1699999999,v1=deadbeef")
	require.ErrorIs(t, adapter.Verify(context.Background(), payload, headers), paymentdomain.ErrInvalidSignature)

	headers.Set("Stripe-Signature", "garbage")
	require.ErrorIs(t, adapter.Verify(context.Background(), payload, headers), paymentdomain.ErrInvalidSignature)

	require.ErrorIs(t, adapter.Verify(context.Background(), payload, http.Header{}), paymentdomain.ErrInvalidSignature)
}

func TestVerify_TamperedPayload(t *testing.T) {
	secret := "whsec_test"
	adapter := New(config.StripeConfig{WebhookSecret: secret})

	signature := signPayload(secret, "1699999999", []byte(`{"id":"evt_1"}`))
	headers := http.Header{}
	headers.Set("Stripe-Signature", fmt.Sprintf("t=1699999999,v1=%s", signature))

	err := adapter.Verify(context.Background(), []byte(`{"id":"evt_2"}`), headers)
	require.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)
}

func TestParse_SubscriptionUpdated(t *testing.T) {
	adapter := New(config.StripeConfig{PriceIDPro: "price_pro", PriceIDBusiness: "price_biz"})

	payload := []byte(`{
		"id": "evt_1",
		"type": "customer.subscription.updated",
		"created": 1700000000,
		"data": {
			"object": {
				"id": "sub_1",
				"customer": "cus_1",
				"status": "active",
				"current_period_start": 1700000000,
				"current_period_end": 1702592000,
				"items": {"data": [{"price": {"id": "price_pro"}}]},
				"metadata": {"user_id": "user-42"}
			}
		}
	}`)

	event, err := adapter.Parse(context.Background(), payload, http.Header{})
	require.NoError(t, err)
	require.Equal(t, paymentdomain.EventSubscriptionUpdated, event.Type)
	require.Equal(t, "evt_1", event.ProviderEventID)
	require.Equal(t, "user-42", event.UserID)
	require.Equal(t, subscriptiondomain.PlanPro, event.Plan)
	require.Equal(t, subscriptiondomain.StatusActive, event.Status)
	require.Equal(t, "cus_1", event.ProviderCustomerID)
	require.Equal(t, "sub_1", event.ProviderSubscriptionID)
	require.NotNil(t, event.PeriodStart)
	require.NotNil(t, event.PeriodEnd)
}

func TestParse_SubscriptionDeleted(t *testing.T) {
	adapter := New(config.StripeConfig{})

	payload := []byte(`{
		"id": "evt_2",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_1", "customer": "cus_1", "status": "canceled"}}
	}`)

	event, err := adapter.Parse(context.Background(), payload, http.Header{})
	require.NoError(t, err)
	require.Equal(t, paymentdomain.EventSubscriptionDeleted, event.Type)
	require.Equal(t, subscriptiondomain.StatusCancelled, event.Status)
}

func TestParse_CheckoutSessionCompleted(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/subscriptions/sub_9", r.URL.Path)
		require.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "sub_9",
			"customer": "cus_9",
			"status": "active",
			"current_period_start": 1700000000,
			"current_period_end": 1702592000,
			"items": {"data": [{"price": {"id": "price_biz"}}]},
			"metadata": {}
		}`)
	}))
	defer api.Close()

	adapter := New(config.StripeConfig{
		SecretKey:       "sk_test",
		APIBaseURL:      api.URL,
		PriceIDBusiness: "price_biz",
	})

	payload := []byte(`{
		"id": "evt_3",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_1",
				"mode": "subscription",
				"customer": "cus_9",
				"subscription": "sub_9",
				"client_reference_id": "user-7"
			}
		}
	}`)

	event, err := adapter.Parse(context.Background(), payload, http.Header{})
	require.NoError(t, err)
	require.Equal(t, paymentdomain.EventCheckoutCompleted, event.Type)
	require.Equal(t, "user-7", event.UserID)
	require.Equal(t, subscriptiondomain.PlanBusiness, event.Plan)
	require.Equal(t, subscriptiondomain.StatusActive, event.Status)
	require.NotNil(t, event.PeriodStart)
	require.NotNil(t, event.PeriodEnd)
}

func TestParse_CheckoutSessionPaymentModeIgnored(t *testing.T) {
	adapter := New(config.StripeConfig{})

	payload := []byte(`{
		"id": "evt_4",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_2", "mode": "payment"}}
	}`)

	_, err := adapter.Parse(context.Background(), payload, http.Header{})
	require.ErrorIs(t, err, paymentdomain.ErrEventIgnored)
}

func TestParse_UnknownEventIgnored(t *testing.T) {
	adapter := New(config.StripeConfig{})

	payload := []byte(`{"id": "evt_5", "type": "invoice.finalized", "data": {"object": {}}}`)
	_, err := adapter.Parse(context.Background(), payload, http.Header{})
	require.ErrorIs(t, err, paymentdomain.ErrEventIgnored)
}

func TestStatusMapping(t *testing.T) {
	require.Equal(t, subscriptiondomain.StatusActive, statusFromStripe("active"))
	require.Equal(t, subscriptiondomain.StatusActive, statusFromStripe("trialing"))
	require.Equal(t, subscriptiondomain.StatusCancelled, statusFromStripe("canceled"))
	require.Equal(t, subscriptiondomain.StatusFailed, statusFromStripe("past_due"))
	require.Equal(t, subscriptiondomain.StatusFailed, statusFromStripe("unpaid"))
	require.Equal(t, subscriptiondomain.StatusPending, statusFromStripe("incomplete"))
	require.Equal(t, subscriptiondomain.StatusPending, statusFromStripe("something_new"))
}
