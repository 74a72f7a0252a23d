// Package webhook ingests provider callbacks: verify, parse, dedupe, resolve
// the owning user, then reconcile the subscription row.
package webhook

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	checkoutdomain "github.com/inkwavehq/inkwave/internal/checkout/domain"
	"github.com/inkwavehq/inkwave/internal/clock"
	"github.com/inkwavehq/inkwave/internal/observability/metrics"
	"github.com/inkwavehq/inkwave/internal/payment/adapters"
	"github.com/inkwavehq/inkwave/internal/payment/adapters/fatora"
	paymentdomain "github.com/inkwavehq/inkwave/internal/payment/domain"
	subscriptiondomain "github.com/inkwavehq/inkwave/internal/subscription/domain"
	"github.com/inkwavehq/inkwave/pkg/db"
	"github.com/inkwavehq/inkwave/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type ServiceParam struct {
	fx.In

	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Registry        *adapters.Registry
	Events          repository.Repository[paymentdomain.WebhookEvent]
	CheckoutSvc     checkoutdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	Metrics         *metrics.Metrics `optional:"true"`
}

type Service struct {
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	registry        *adapters.Registry
	events          repository.Repository[paymentdomain.WebhookEvent]
	checkoutSvc     checkoutdomain.Service
	subscriptionSvc subscriptiondomain.Service
	metrics         *metrics.Metrics
}

func NewService(p ServiceParam) paymentdomain.Service {
	return &Service{
		log:             p.Log.Named("payment.webhook"),
		genID:           p.GenID,
		clock:           p.Clock,
		registry:        p.Registry,
		events:          p.Events,
		checkoutSvc:     p.CheckoutSvc,
		subscriptionSvc: p.SubscriptionSvc,
		metrics:         p.Metrics,
	}
}

func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.ErrInvalidProvider
	}

	adapter, err := s.registry.Get(provider)
	if err != nil {
		return err
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("webhook signature rejected", zap.String("provider", provider))
		return err
	}

	event, err := adapter.Parse(ctx, payload, headers)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			s.log.Debug("webhook event ignored", zap.String("provider", provider))
		}
		return err
	}

	s.metrics.RecordWebhookEvent(provider, string(event.Type))

	userID, err := s.resolveUser(ctx, event)
	if err != nil {
		// Leave the event unclaimed so a provider retry can succeed once the
		// missing mapping exists.
		s.log.Error("webhook user resolution failed",
			zap.String("provider", provider),
			zap.String("event_type", string(event.Type)),
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
		return err
	}
	event.UserID = userID

	record, err := s.claimEvent(ctx, event)
	if err != nil {
		return err
	}

	if err := s.reconcile(ctx, event); err != nil {
		return err
	}

	s.finishEvent(ctx, record)

	s.log.Info("webhook processed",
		zap.String("provider", provider),
		zap.String("event_type", string(event.Type)),
		zap.String("user_id", userID),
	)
	return nil
}

// claimEvent inserts the dedupe row. The unique index on (provider, event id)
// makes the insert the arbiter between concurrent deliveries of the same
// event. A claim whose processed_at is still NULL belongs to a delivery that
// failed mid-flight, so a retry takes it over instead of being dropped.
func (s *Service) claimEvent(ctx context.Context, event *paymentdomain.SubscriptionEvent) (*paymentdomain.WebhookEvent, error) {
	if strings.TrimSpace(event.ProviderEventID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	record := &paymentdomain.WebhookEvent{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       string(event.Type),
		UserID:          event.UserID,
		Payload:         datatypes.JSON(event.RawPayload),
		ReceivedAt:      s.clock.Now(),
	}

	if err := s.events.Create(ctx, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			existing, findErr := s.events.FindOne(ctx, &paymentdomain.WebhookEvent{
				Provider:        event.Provider,
				ProviderEventID: event.ProviderEventID,
			})
			if findErr != nil {
				return nil, findErr
			}
			if existing == nil || existing.ProcessedAt != nil {
				return nil, paymentdomain.ErrEventAlreadyProcessed
			}
			return existing, nil
		}
		return nil, err
	}
	return record, nil
}

func (s *Service) finishEvent(ctx context.Context, record *paymentdomain.WebhookEvent) {
	now := s.clock.Now()
	err := s.events.Update(ctx, record.ID.String(), map[string]any{
		"processed_at": now,
	})
	if err != nil {
		s.log.Warn("webhook event finalize failed",
			zap.String("provider", record.Provider),
			zap.String("provider_event_id", record.ProviderEventID),
			zap.Error(err),
		)
	}
}

// resolveUser finds the owning user: the payload's own user id first, then the
// checkout order record, then the provider identifiers on the subscription
// row. Legacy order ids without a stored record fall back to the embedded
// user fragment.
func (s *Service) resolveUser(ctx context.Context, event *paymentdomain.SubscriptionEvent) (string, error) {
	if userID := strings.TrimSpace(event.UserID); userID != "" {
		return userID, nil
	}

	if orderID := strings.TrimSpace(event.OrderID); orderID != "" {
		order, err := s.checkoutSvc.FindOrder(ctx, orderID)
		if err == nil {
			if event.Plan == "" {
				event.Plan = order.Plan
			}
			return order.UserID, nil
		}
		if !errors.Is(err, checkoutdomain.ErrOrderNotFound) {
			return "", err
		}
		return fatora.UserFromOrderID(orderID)
	}

	userID, err := s.subscriptionSvc.ResolveUser(ctx, event.Provider, event.ProviderCustomerID, event.ProviderSubscriptionID)
	if err != nil {
		if errors.Is(err, subscriptiondomain.ErrUnknownUser) {
			return "", paymentdomain.ErrUnknownUser
		}
		return "", err
	}
	return userID, nil
}

func (s *Service) reconcile(ctx context.Context, event *paymentdomain.SubscriptionEvent) error {
	switch event.Type {
	case paymentdomain.EventSubscriptionDeleted:
		err := s.subscriptionSvc.Deactivate(ctx, event.UserID)
		if errors.Is(err, subscriptiondomain.ErrNotFound) {
			return nil
		}
		return err

	case paymentdomain.EventSubscriptionCancelled:
		_, err := s.subscriptionSvc.Apply(ctx, s.updateRequest(ctx, event))
		return err

	case paymentdomain.EventSubscriptionCreated,
		paymentdomain.EventSubscriptionUpdated,
		paymentdomain.EventCheckoutCompleted,
		paymentdomain.EventPaymentSucceeded,
		paymentdomain.EventPaymentFailed:
		if _, err := s.subscriptionSvc.Apply(ctx, s.updateRequest(ctx, event)); err != nil {
			return err
		}
		if event.Type == paymentdomain.EventPaymentSucceeded && event.OrderID != "" {
			if err := s.checkoutSvc.MarkCompleted(ctx, event.OrderID); err != nil &&
				!errors.Is(err, checkoutdomain.ErrOrderNotFound) {
				s.log.Warn("checkout order completion failed",
					zap.String("order_id", event.OrderID),
					zap.Error(err),
				)
			}
		}
		return nil

	default:
		return paymentdomain.ErrInvalidEvent
	}
}

func (s *Service) updateRequest(ctx context.Context, event *paymentdomain.SubscriptionEvent) subscriptiondomain.UpdateRequest {
	req := subscriptiondomain.UpdateRequest{
		UserID:                 event.UserID,
		Plan:                   event.Plan,
		Status:                 event.Status,
		Provider:               event.Provider,
		ProviderCustomerID:     event.ProviderCustomerID,
		ProviderSubscriptionID: event.ProviderSubscriptionID,
		PeriodStart:            event.PeriodStart,
		PeriodEnd:              event.PeriodEnd,
	}

	// A successful recurring payment on an already-active plan is a renewal,
	// which resets the credit period instead of raising the ceiling again.
	if event.Type == paymentdomain.EventPaymentSucceeded {
		current, err := s.subscriptionSvc.Get(ctx, event.UserID)
		if err == nil && current.Status == subscriptiondomain.StatusActive &&
			(event.Plan == "" || current.Plan == event.Plan) {
			req.Renewal = true
		}
	}
	return req
}
