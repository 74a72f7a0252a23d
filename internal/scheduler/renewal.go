// Package scheduler runs the periodic credit renewal sweep. Balances whose
// reset date has passed get a fresh monthly allotment sized to the user's
// active plan.
package scheduler

import (
	"context"
	"time"

	"github.com/inkwavehq/inkwave/internal/clock"
	creditsdomain "github.com/inkwavehq/inkwave/internal/credits/domain"
	"github.com/inkwavehq/inkwave/internal/observability/metrics"
	subscriptiondomain "github.com/inkwavehq/inkwave/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sweepBatchSize = 100

type RenewalSweeperParam struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Clock           clock.Clock
	CreditsRepo     creditsdomain.Repository
	CreditsSvc      creditsdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	Metrics         *metrics.Metrics `optional:"true"`
}

type RenewalSweeper struct {
	db              *gorm.DB
	log             *zap.Logger
	clock           clock.Clock
	creditsRepo     creditsdomain.Repository
	creditsSvc      creditsdomain.Service
	subscriptionSvc subscriptiondomain.Service
	metrics         *metrics.Metrics
	interval        time.Duration

	stop chan struct{}
	done chan struct{}
}

func NewRenewalSweeper(p RenewalSweeperParam, interval time.Duration) *RenewalSweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &RenewalSweeper{
		db:              p.DB,
		log:             p.Log.Named("scheduler.renewal"),
		clock:           p.Clock,
		creditsRepo:     p.CreditsRepo,
		creditsSvc:      p.CreditsSvc,
		subscriptionSvc: p.SubscriptionSvc,
		metrics:         p.Metrics,
		interval:        interval,
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
}

func (s *RenewalSweeper) Start() {
	go s.run()
}

func (s *RenewalSweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *RenewalSweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			s.Sweep(ctx)
			cancel()
		}
	}
}

// Sweep renews every balance due at the current time. It is exported so the
// interval loop and operational tooling share one code path.
func (s *RenewalSweeper) Sweep(ctx context.Context) {
	now := s.clock.Now()

	due, err := s.creditsRepo.FindDueForReset(ctx, s.db, now, sweepBatchSize)
	if err != nil {
		s.log.Error("renewal sweep query failed", zap.Error(err))
		return
	}

	s.metrics.RecordRenewalSweep()
	if len(due) == 0 {
		return
	}

	renewed := 0
	for _, balance := range due {
		if err := s.renew(ctx, balance.UserID); err != nil {
			s.log.Error("credit renewal failed",
				zap.String("user_id", balance.UserID),
				zap.Error(err),
			)
			continue
		}
		renewed++
	}

	s.log.Info("renewal sweep finished",
		zap.Int("due", len(due)),
		zap.Int("renewed", renewed),
	)
}

func (s *RenewalSweeper) renew(ctx context.Context, userID string) error {
	sub, err := s.subscriptionSvc.Get(ctx, userID)
	if err != nil {
		return err
	}

	plan := subscriptiondomain.PlanFree
	if sub.Status == subscriptiondomain.StatusActive && sub.Plan.Valid() {
		plan = sub.Plan
	}

	return s.creditsSvc.Reset(ctx, userID, plan.Allotment())
}
