package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/inkwavehq/inkwave/internal/clock"
	"github.com/inkwavehq/inkwave/internal/config"
	creditsdomain "github.com/inkwavehq/inkwave/internal/credits/domain"
	"github.com/inkwavehq/inkwave/internal/observability/metrics"
	pkgdb "github.com/inkwavehq/inkwave/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    creditsdomain.Repository
	Cfg     config.Config
	Costs   *config.CostConfigHolder
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    creditsdomain.Repository
	cfg     config.Config
	costs   *config.CostConfigHolder
	clock   clock.Clock
	metrics *metrics.Metrics
}

func NewService(p ServiceParam) creditsdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("credits.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		cfg:     p.Cfg,
		costs:   p.Costs,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

// Initialize returns the user's balance, creating one with the default
// allotment when absent. Safe to call repeatedly.
func (s *Service) Initialize(ctx context.Context, userID string) (*creditsdomain.CreditBalance, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, creditsdomain.ErrInvalidUser
	}

	existing, err := s.repo.FindByUserID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.clock.Now()
	balance := &creditsdomain.CreditBalance{
		ID:           s.genID.Generate(),
		UserID:       userID,
		TotalCredits: s.cfg.DefaultCredits,
		UsedCredits:  0,
		ResetDate:    nil,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, s.db, balance); err != nil {
		// Lost the insert race; the winner's row is authoritative.
		if pkgdb.IsDuplicateKeyErr(err) {
			return s.repo.FindByUserID(ctx, s.db, userID)
		}
		return nil, err
	}
	return balance, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*creditsdomain.CreditBalance, error) {
	return s.Initialize(ctx, userID)
}

func (s *Service) HasEnough(ctx context.Context, userID string, action creditsdomain.ActionType) (bool, error) {
	cost := s.costs.Get().CostFor(string(action))
	if cost <= 0 {
		return true, nil
	}

	balance, err := s.Initialize(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance.Remaining() >= cost, nil
}

// Consume debits the action's cost in a single conditional update and appends
// a log entry. A zero-rows update means the balance could not cover the cost.
func (s *Service) Consume(ctx context.Context, userID string, action creditsdomain.ActionType, description string) (*creditsdomain.CreditBalance, error) {
	balance, err := s.Initialize(ctx, userID)
	if err != nil {
		return nil, err
	}

	cost := s.costs.Get().CostFor(string(action))
	now := s.clock.Now()

	if cost > 0 {
		debited, err := s.repo.Debit(ctx, s.db, userID, cost, now)
		if err != nil {
			return nil, err
		}
		if !debited {
			return nil, creditsdomain.ErrInsufficientCredits
		}
	}

	s.appendLog(ctx, userID, action, cost, description, now)
	s.metrics.RecordCreditsConsumed(string(action), cost)

	if cost > 0 {
		refreshed, err := s.repo.FindByUserID(ctx, s.db, userID)
		if err == nil && refreshed != nil {
			return refreshed, nil
		}
		s.log.Warn("balance re-read failed after debit",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		// The debit committed; reflect it rather than report the stale view.
		balance.UsedCredits += cost
	}
	return balance, nil
}

// AdjustTotal overwrites the period ceiling and schedules the next reset for
// the first day of the following calendar month.
func (s *Service) AdjustTotal(ctx context.Context, userID string, newTotal int64) error {
	if newTotal < 0 {
		return creditsdomain.ErrInvalidAmount
	}
	if _, err := s.Initialize(ctx, userID); err != nil {
		return err
	}

	now := s.clock.Now()
	resetDate := firstOfNextMonth(now)
	err := s.repo.UpdateBalance(ctx, s.db, userID, map[string]any{
		"total_credits": newTotal,
		"reset_date":    resetDate,
		"updated_at":    now,
	})
	if err != nil {
		return err
	}

	s.appendLog(ctx, userID, creditsdomain.ActionManualAdjustment, 0,
		fmt.Sprintf("total credits set to %d", newTotal), now)
	return nil
}

// Reset starts a fresh billing period.
func (s *Service) Reset(ctx context.Context, userID string, newTotal int64) error {
	if newTotal < 0 {
		return creditsdomain.ErrInvalidAmount
	}
	if _, err := s.Initialize(ctx, userID); err != nil {
		return err
	}

	now := s.clock.Now()
	resetDate := firstOfNextMonth(now)
	err := s.repo.UpdateBalance(ctx, s.db, userID, map[string]any{
		"used_credits":  0,
		"total_credits": newTotal,
		"reset_date":    resetDate,
		"updated_at":    now,
	})
	if err != nil {
		return err
	}

	s.appendLog(ctx, userID, creditsdomain.ActionPlanRenewal, 0,
		fmt.Sprintf("credits renewed to %d", newTotal), now)
	return nil
}

func (s *Service) History(ctx context.Context, userID string, limit int) ([]creditsdomain.CreditLogEntry, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, creditsdomain.ErrInvalidUser
	}
	return s.repo.ListLog(ctx, s.db, userID, limit)
}

// appendLog writes the audit entry. The balance row is the source of truth,
// so a failed log write is reported but does not fail the operation.
func (s *Service) appendLog(ctx context.Context, userID string, action creditsdomain.ActionType, cost int64, description string, at time.Time) {
	entry := &creditsdomain.CreditLogEntry{
		ID:          s.genID.Generate(),
		UserID:      userID,
		ActionType:  action,
		CreditsUsed: cost,
		Description: description,
		CreatedAt:   at,
	}
	if err := s.repo.AppendLog(ctx, s.db, entry); err != nil {
		s.log.Warn("credit log append failed",
			zap.String("user_id", userID),
			zap.String("action_type", string(action)),
			zap.Error(err),
		)
	}
}

func firstOfNextMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
