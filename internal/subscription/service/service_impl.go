package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/inkwavehq/inkwave/internal/clock"
	creditsdomain "github.com/inkwavehq/inkwave/internal/credits/domain"
	subscriptiondomain "github.com/inkwavehq/inkwave/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       subscriptiondomain.Repository
	CreditsSvc creditsdomain.Service
	Clock      clock.Clock
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       subscriptiondomain.Repository
	creditsSvc creditsdomain.Service
	clock      clock.Clock
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("subscription.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		creditsSvc: p.CreditsSvc,
		clock:      p.Clock,
	}
}

// Get returns the user's subscription row, defaulting to free/inactive when
// the user never started a checkout.
func (s *Service) Get(ctx context.Context, userID string) (*subscriptiondomain.Subscription, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, subscriptiondomain.ErrInvalidUser
	}

	existing, err := s.repo.FindByUserID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	return &subscriptiondomain.Subscription{
		UserID: userID,
		Plan:   subscriptiondomain.PlanFree,
		Status: subscriptiondomain.StatusInactive,
	}, nil
}

func (s *Service) ResolveUser(ctx context.Context, provider, customerID, subscriptionID string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return "", subscriptiondomain.ErrInvalidProvider
	}

	if customerID = strings.TrimSpace(customerID); customerID != "" {
		sub, err := s.repo.FindByProviderCustomerID(ctx, s.db, provider, customerID)
		if err != nil {
			return "", err
		}
		if sub != nil {
			return sub.UserID, nil
		}
	}

	if subscriptionID = strings.TrimSpace(subscriptionID); subscriptionID != "" {
		sub, err := s.repo.FindByProviderSubscriptionID(ctx, s.db, provider, subscriptionID)
		if err != nil {
			return "", err
		}
		if sub != nil {
			return sub.UserID, nil
		}
	}

	return "", subscriptiondomain.ErrUnknownUser
}

func (s *Service) BeginCheckout(ctx context.Context, userID string, plan subscriptiondomain.Plan, provider string) (*subscriptiondomain.Subscription, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, subscriptiondomain.ErrInvalidUser
	}
	if !plan.Valid() || plan == subscriptiondomain.PlanFree {
		return nil, subscriptiondomain.ErrInvalidPlan
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return nil, subscriptiondomain.ErrInvalidProvider
	}

	now := s.clock.Now()
	sub, err := s.repo.FindByUserID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		sub = &subscriptiondomain.Subscription{
			ID:        s.genID.Generate(),
			UserID:    userID,
			CreatedAt: now,
		}
	}

	sub.Plan = plan
	sub.Status = subscriptiondomain.StatusPending
	sub.PaymentProvider = provider
	sub.UpdatedAt = now

	if err := s.repo.Save(ctx, s.db, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Apply upserts the row and reconciles credits on activation. Replaying the
// same event reproduces the same final state.
func (s *Service) Apply(ctx context.Context, req subscriptiondomain.UpdateRequest) (*subscriptiondomain.Subscription, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, subscriptiondomain.ErrInvalidUser
	}

	now := s.clock.Now()
	sub, err := s.repo.FindByUserID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		sub = &subscriptiondomain.Subscription{
			ID:        s.genID.Generate(),
			UserID:    userID,
			Plan:      subscriptiondomain.PlanFree,
			Status:    subscriptiondomain.StatusPending,
			CreatedAt: now,
		}
	}

	wasActiveOnPlan := sub.Status == subscriptiondomain.StatusActive && sub.Plan == req.Plan

	if req.Plan.Valid() && req.Plan != "" {
		sub.Plan = req.Plan
	}
	if req.Status != "" {
		sub.Status = req.Status
	}
	if provider := strings.ToLower(strings.TrimSpace(req.Provider)); provider != "" {
		sub.PaymentProvider = provider
	}
	if id := strings.TrimSpace(req.ProviderCustomerID); id != "" {
		sub.ProviderCustomerID = id
	}
	if id := strings.TrimSpace(req.ProviderSubscriptionID); id != "" {
		sub.ProviderSubscriptionID = id
	}
	if req.PeriodStart != nil {
		sub.CurrentPeriodStart = req.PeriodStart
	}
	if req.PeriodEnd != nil {
		sub.CurrentPeriodEnd = req.PeriodEnd
	}
	sub.UpdatedAt = now

	if err := s.repo.Save(ctx, s.db, sub); err != nil {
		return nil, err
	}

	if sub.Status == subscriptiondomain.StatusActive {
		s.reconcileCredits(ctx, sub, req.Renewal, wasActiveOnPlan)
	}

	return sub, nil
}

func (s *Service) Deactivate(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return subscriptiondomain.ErrInvalidUser
	}

	sub, err := s.repo.FindByUserID(ctx, s.db, userID)
	if err != nil {
		return err
	}
	if sub == nil {
		return subscriptiondomain.ErrNotFound
	}

	sub.Plan = subscriptiondomain.PlanFree
	sub.Status = subscriptiondomain.StatusInactive
	sub.CurrentPeriodStart = nil
	sub.CurrentPeriodEnd = nil
	sub.UpdatedAt = s.clock.Now()

	if err := s.repo.Save(ctx, s.db, sub); err != nil {
		return err
	}

	if err := s.creditsSvc.AdjustTotal(ctx, userID, subscriptiondomain.PlanFree.Allotment()); err != nil {
		s.log.Error("credit downgrade failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	return nil
}

// reconcileCredits aligns the credit ceiling with the activated plan. The
// subscription row is authoritative, so credit failures are logged and the
// reconciliation succeeds regardless.
func (s *Service) reconcileCredits(ctx context.Context, sub *subscriptiondomain.Subscription, renewal, wasActiveOnPlan bool) {
	allotment := sub.Plan.Allotment()

	switch {
	case renewal:
		if err := s.creditsSvc.Reset(ctx, sub.UserID, allotment); err != nil {
			s.log.Error("credit renewal failed",
				zap.String("user_id", sub.UserID),
				zap.String("plan", string(sub.Plan)),
				zap.Error(err),
			)
		}
	case !wasActiveOnPlan:
		if err := s.creditsSvc.AdjustTotal(ctx, sub.UserID, allotment); err != nil {
			s.log.Error("credit upgrade failed",
				zap.String("user_id", sub.UserID),
				zap.String("plan", string(sub.Plan)),
				zap.Error(err),
			)
			return
		}
		if _, err := s.creditsSvc.Consume(ctx, sub.UserID, creditsdomain.ActionPlanUpgrade,
			fmt.Sprintf("upgraded to %s plan", sub.Plan)); err != nil {
			s.log.Warn("plan upgrade log failed",
				zap.String("user_id", sub.UserID),
				zap.Error(err),
			)
		}
	}
}
