package paddle

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/inkwavehq/inkwave/internal/config"
	paymentdomain "github.com/inkwavehq/inkwave/internal/payment/domain"
	subscriptiondomain "github.com/inkwavehq/inkwave/internal/subscription/domain"
	"github.com/stretchr/testify/require"
)

func formHeaders() http.Header {
	headers := http.Header{}
	headers.Set("Content-Type", "application/x-www-form-urlencoded")
	return headers
}

func TestParseForm_SubscriptionCreated(t *testing.T) {
	adapter := New(config.PaddleConfig{PlanIDPro: "654321"})

	form := url.Values{}
	form.Set("alert_id", "alert_1")
	form.Set("alert_name", "subscription_created")
	form.Set("status", "active")
	form.Set("subscription_id", "psub_1")
	form.Set("subscription_plan_id", "654321")
	form.Set("user_id", "pcus_1")
	form.Set("passthrough", `{"user_id":"user-9"}`)
	form.Set("event_time", "2024-05-10 12:00:00")
	form.Set("next_bill_date", "2024-06-10")

	event, err := adapter.Parse(context.Background(), []byte(form.Encode()), formHeaders())
	require.NoError(t, err)
	require.Equal(t, paymentdomain.EventSubscriptionCreated, event.Type)
	require.Equal(t, "alert_1", event.ProviderEventID)
	require.Equal(t, "user-9", event.UserID)
	require.Equal(t, subscriptiondomain.PlanPro, event.Plan)
	require.Equal(t, subscriptiondomain.StatusActive, event.Status)
	require.Equal(t, "psub_1", event.ProviderSubscriptionID)
	require.Equal(t, "pcus_1", event.ProviderCustomerID)
	require.NotNil(t, event.PeriodEnd)
}

func TestParseForm_Cancelled(t *testing.T) {
	adapter := New(config.PaddleConfig{})

	form := url.Values{}
	form.Set("alert_id", "alert_2")
	form.Set("alert_name", "subscription_cancelled")
	form.Set("subscription_id", "psub_1")

	event, err := adapter.Parse(context.Background(), []byte(form.Encode()), formHeaders())
	require.NoError(t, err)
	require.Equal(t, paymentdomain.EventSubscriptionCancelled, event.Type)
	require.Equal(t, subscriptiondomain.StatusCancelled, event.Status)
}

func TestParseForm_PaymentSucceeded(t *testing.T) {
	adapter := New(config.PaddleConfig{})

	form := url.Values{}
	form.Set("alert_id", "alert_3")
	form.Set("alert_name", "subscription_payment_succeeded")
	form.Set("subscription_id", "psub_1")
	form.Set("passthrough", "user-9")

	event, err := adapter.Parse(context.Background(), []byte(form.Encode()), formHeaders())
	require.NoError(t, err)
	require.Equal(t, paymentdomain.EventPaymentSucceeded, event.Type)
	require.Equal(t, subscriptiondomain.StatusActive, event.Status)
	require.Equal(t, "user-9", event.UserID)
}

func TestParseForm_UnknownAlertIgnored(t *testing.T) {
	adapter := New(config.PaddleConfig{})

	form := url.Values{}
	form.Set("alert_name", "locker_processed")

	_, err := adapter.Parse(context.Background(), []byte(form.Encode()), formHeaders())
	require.ErrorIs(t, err, paymentdomain.ErrEventIgnored)
}

func TestParseForm_MissingAlertName(t *testing.T) {
	adapter := New(config.PaddleConfig{})

	_, err := adapter.Parse(context.Background(), []byte("status=active"), formHeaders())
	require.ErrorIs(t, err, paymentdomain.ErrInvalidEvent)
}

func TestParseJSON_SubscriptionUpdated(t *testing.T) {
	adapter := New(config.PaddleConfig{PlanIDBusiness: "pri_biz"})

	payload := []byte(`{
		"event_id": "ntf_1",
		"event_type": "subscription.updated",
		"occurred_at": "2024-05-10T12:00:00Z",
		"data": {
			"id": "psub_2",
			"status": "active",
			"customer_id": "ctm_2",
			"custom_data": {"user_id": "user-11"},
			"items": [{"price": {"id": "pri_biz"}}],
			"current_billing_period": {
				"starts_at": "2024-05-10T12:00:00Z",
				"ends_at": "2024-06-10T12:00:00Z"
			}
		}
	}`)

	event, err := adapter.Parse(context.Background(), payload, http.Header{})
	require.NoError(t, err)
	require.Equal(t, paymentdomain.EventSubscriptionUpdated, event.Type)
	require.Equal(t, "ntf_1", event.ProviderEventID)
	require.Equal(t, "user-11", event.UserID)
	require.Equal(t, subscriptiondomain.PlanBusiness, event.Plan)
	require.Equal(t, subscriptiondomain.StatusActive, event.Status)
	require.Equal(t, "psub_2", event.ProviderSubscriptionID)
	require.NotNil(t, event.PeriodStart)
	require.NotNil(t, event.PeriodEnd)
}

func TestParseJSON_Canceled(t *testing.T) {
	adapter := New(config.PaddleConfig{})

	payload := []byte(`{
		"event_id": "ntf_2",
		"event_type": "subscription.canceled",
		"data": {"id": "psub_2", "status": "canceled"}
	}`)

	event, err := adapter.Parse(context.Background(), payload, http.Header{})
	require.NoError(t, err)
	require.Equal(t, paymentdomain.EventSubscriptionCancelled, event.Type)
	require.Equal(t, subscriptiondomain.StatusCancelled, event.Status)
}

func TestParseJSON_InvalidPayload(t *testing.T) {
	adapter := New(config.PaddleConfig{})

	_, err := adapter.Parse(context.Background(), []byte("not json"), http.Header{})
	require.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)
}

func TestStatusFromPaddle(t *testing.T) {
	require.Equal(t, subscriptiondomain.StatusActive, statusFromPaddle("active"))
	require.Equal(t, subscriptiondomain.StatusFailed, statusFromPaddle("past_due"))
	require.Equal(t, subscriptiondomain.StatusCancelled, statusFromPaddle("deleted"))
	require.Equal(t, subscriptiondomain.StatusPending, statusFromPaddle(""))
}
