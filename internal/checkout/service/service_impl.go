package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/bwmarrin/snowflake"
	checkoutdomain "github.com/inkwavehq/inkwave/internal/checkout/domain"
	"github.com/inkwavehq/inkwave/internal/clock"
	"github.com/inkwavehq/inkwave/internal/config"
	paymentdomain "github.com/inkwavehq/inkwave/internal/payment/domain"
	subscriptiondomain "github.com/inkwavehq/inkwave/internal/subscription/domain"
	"github.com/inkwavehq/inkwave/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log             *zap.Logger
	GenID           *snowflake.Node
	Cfg             config.Config
	Clock           clock.Clock
	Orders          repository.Repository[checkoutdomain.CheckoutOrder]
	SubscriptionSvc subscriptiondomain.Service
}

type Service struct {
	log             *zap.Logger
	genID           *snowflake.Node
	cfg             config.Config
	clock           clock.Clock
	orders          repository.Repository[checkoutdomain.CheckoutOrder]
	subscriptionSvc subscriptiondomain.Service
}

func NewService(p ServiceParam) checkoutdomain.Service {
	return &Service{
		log:             p.Log.Named("checkout.service"),
		genID:           p.GenID,
		cfg:             p.Cfg,
		clock:           p.Clock,
		orders:          p.Orders,
		subscriptionSvc: p.SubscriptionSvc,
	}
}

func (s *Service) Begin(ctx context.Context, userID string, plan subscriptiondomain.Plan, provider string) (*checkoutdomain.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, subscriptiondomain.ErrInvalidUser
	}
	if !plan.Valid() || plan == subscriptiondomain.PlanFree {
		return nil, subscriptiondomain.ErrInvalidPlan
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	switch provider {
	case paymentdomain.ProviderStripe, paymentdomain.ProviderPaddle, paymentdomain.ProviderFatora:
	default:
		return nil, subscriptiondomain.ErrInvalidProvider
	}

	now := s.clock.Now()
	orderID := fmt.Sprintf("order_%d_%s", now.Unix(), userID)

	order := &checkoutdomain.CheckoutOrder{
		ID:        s.genID.Generate(),
		OrderID:   orderID,
		UserID:    userID,
		Plan:      plan,
		Provider:  provider,
		Status:    checkoutdomain.OrderStatusCreated,
		CreatedAt: now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	if _, err := s.subscriptionSvc.BeginCheckout(ctx, userID, plan, provider); err != nil {
		return nil, err
	}

	redirect, err := s.redirectURL(provider, plan, userID, orderID)
	if err != nil {
		return nil, err
	}

	s.log.Info("checkout started",
		zap.String("user_id", userID),
		zap.String("provider", provider),
		zap.String("plan", string(plan)),
		zap.String("order_id", orderID),
	)

	return &checkoutdomain.Session{
		OrderID:     orderID,
		Provider:    provider,
		Plan:        plan,
		RedirectURL: redirect,
	}, nil
}

func (s *Service) FindOrder(ctx context.Context, orderID string) (*checkoutdomain.CheckoutOrder, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, checkoutdomain.ErrInvalidOrder
	}

	order, err := s.orders.FindOne(ctx, &checkoutdomain.CheckoutOrder{OrderID: orderID})
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, checkoutdomain.ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) MarkCompleted(ctx context.Context, orderID string) error {
	order, err := s.FindOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status == checkoutdomain.OrderStatusCompleted {
		return nil
	}

	now := s.clock.Now()
	return s.orders.Update(ctx, order.ID.String(), map[string]any{
		"status":       checkoutdomain.OrderStatusCompleted,
		"completed_at": now,
	})
}

// redirectURL builds the hosted payment page link for the provider. The base
// URLs come from configuration; the identifying fields ride along as query
// parameters so the provider echoes them back on the webhook.
func (s *Service) redirectURL(provider string, plan subscriptiondomain.Plan, userID, orderID string) (string, error) {
	var base string
	params := url.Values{}

	switch provider {
	case paymentdomain.ProviderStripe:
		base = s.cfg.Stripe.CheckoutURL
		params.Set("client_reference_id", userID)
		if plan == subscriptiondomain.PlanPro {
			params.Set("price_id", s.cfg.Stripe.PriceIDPro)
		} else {
			params.Set("price_id", s.cfg.Stripe.PriceIDBusiness)
		}
	case paymentdomain.ProviderPaddle:
		base = s.cfg.Paddle.CheckoutURL
		params.Set("passthrough", userID)
		if plan == subscriptiondomain.PlanPro {
			params.Set("product", s.cfg.Paddle.PlanIDPro)
		} else {
			params.Set("product", s.cfg.Paddle.PlanIDBusiness)
		}
	case paymentdomain.ProviderFatora:
		base = s.cfg.Fatora.CheckoutURL
		params.Set("order_id", orderID)
	}

	if base == "" {
		return "", subscriptiondomain.ErrInvalidProvider
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	for key, values := range params {
		for _, value := range values {
			query.Set(key, value)
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
