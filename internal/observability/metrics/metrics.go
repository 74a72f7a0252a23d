// Package metrics exposes application-level prometheus instruments.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	creditsConsumed  *prometheus.CounterVec
	gateRejections   *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
	rateLimitDenied  *prometheus.CounterVec
	renewalSweepRuns prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		creditsConsumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwave_credits_consumed_total",
			Help: "Credits debited, labelled by action type.",
		}, []string{"action_type"}),
		gateRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwave_credit_gate_rejections_total",
			Help: "Requests rejected by the credit gate.",
		}, []string{"action_type"}),
		webhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwave_webhook_events_total",
			Help: "Payment provider webhook events, labelled by provider and event type.",
		}, []string{"provider", "event_type"}),
		rateLimitDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwave_rate_limit_denied_total",
			Help: "Requests denied by the rate limiter.",
		}, []string{"endpoint"}),
		renewalSweepRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inkwave_renewal_sweep_runs_total",
			Help: "Completed renewal sweep iterations.",
		}),
	}
}

func (m *Metrics) RecordCreditsConsumed(action string, amount int64) {
	if m == nil {
		return
	}
	m.creditsConsumed.WithLabelValues(strings.TrimSpace(action)).Add(float64(amount))
}

func (m *Metrics) RecordGateRejection(action string) {
	if m == nil {
		return
	}
	m.gateRejections.WithLabelValues(strings.TrimSpace(action)).Inc()
}

func (m *Metrics) RecordWebhookEvent(provider, eventType string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(strings.TrimSpace(provider), strings.TrimSpace(eventType)).Inc()
}

func (m *Metrics) RecordRateLimitDenied(endpoint string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.WithLabelValues(strings.TrimSpace(endpoint)).Inc()
}

func (m *Metrics) RecordRenewalSweep() {
	if m == nil {
		return
	}
	m.renewalSweepRuns.Inc()
}

var Module = fx.Module("observability.metrics",
	fx.Provide(New),
)
