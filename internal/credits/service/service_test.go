package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/inkwavehq/inkwave/internal/clock"
	"github.com/inkwavehq/inkwave/internal/config"
	creditsdomain "github.com/inkwavehq/inkwave/internal/credits/domain"
	"github.com/inkwavehq/inkwave/internal/credits/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupCreditsTest(t *testing.T) (creditsdomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	// A single connection keeps every session on the same in-memory database.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&creditsdomain.CreditBalance{}, &creditsdomain.CreditLogEntry{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	fake := clock.NewFakeClock(time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Cfg:   config.Config{DefaultCredits: 100},
		Costs: config.NewStaticCostConfigHolder(config.DefaultCostConfig()),
		Clock: fake,
	})
	return svc, db, fake
}

func TestInitialize_Idempotent(t *testing.T) {
	svc, db, _ := setupCreditsTest(t)
	ctx := context.Background()

	first, err := svc.Initialize(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(100), first.TotalCredits)
	require.Equal(t, int64(0), first.UsedCredits)

	second, err := svc.Initialize(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var count int64
	db.Model(&creditsdomain.CreditBalance{}).Where("user_id = ?", "user-1").Count(&count)
	require.Equal(t, int64(1), count)
}

func TestConsume_DebitsAndLogs(t *testing.T) {
	svc, db, _ := setupCreditsTest(t)
	ctx := context.Background()

	balance, err := svc.Consume(ctx, "user-1", creditsdomain.ActionTextGeneration, "blog post")
	require.NoError(t, err)
	require.Equal(t, int64(10), balance.UsedCredits)
	require.Equal(t, int64(90), balance.Remaining())

	var entries []creditsdomain.CreditLogEntry
	db.Where("user_id = ?", "user-1").Find(&entries)
	require.Len(t, entries, 1)
	require.Equal(t, creditsdomain.ActionTextGeneration, entries[0].ActionType)
	require.Equal(t, int64(10), entries[0].CreditsUsed)
}

func TestConsume_InsufficientCredits(t *testing.T) {
	svc, db, _ := setupCreditsTest(t)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, "user-1")
	require.NoError(t, err)
	db.Model(&creditsdomain.CreditBalance{}).
		Where("user_id = ?", "user-1").
		Update("used_credits", 95)

	_, err = svc.Consume(ctx, "user-1", creditsdomain.ActionTextGeneration, "blog post")
	require.ErrorIs(t, err, creditsdomain.ErrInsufficientCredits)

	// The failed attempt must not mutate the balance or the log.
	balance, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(95), balance.UsedCredits)

	var count int64
	db.Model(&creditsdomain.CreditLogEntry{}).Where("user_id = ?", "user-1").Count(&count)
	require.Equal(t, int64(0), count)
}

func TestConsume_ExactBoundary(t *testing.T) {
	svc, db, _ := setupCreditsTest(t)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, "user-1")
	require.NoError(t, err)
	db.Model(&creditsdomain.CreditBalance{}).
		Where("user_id = ?", "user-1").
		Update("used_credits", 90)

	// 90 + 10 == 100 is still covered.
	balance, err := svc.Consume(ctx, "user-1", creditsdomain.ActionTextGeneration, "last one")
	require.NoError(t, err)
	require.Equal(t, int64(100), balance.UsedCredits)
	require.Equal(t, int64(0), balance.Remaining())

	_, err = svc.Consume(ctx, "user-1", creditsdomain.ActionGrammarCheck, "over the line")
	require.ErrorIs(t, err, creditsdomain.ErrInsufficientCredits)
}

func TestConsume_NeverExceedsTotal(t *testing.T) {
	svc, db, _ := setupCreditsTest(t)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, "user-1")
	require.NoError(t, err)
	db.Model(&creditsdomain.CreditBalance{}).
		Where("user_id = ?", "user-1").
		Update("total_credits", 25)

	// cost 10 each: two succeed, the rest must fail.
	succeeded := 0
	for i := 0; i < 5; i++ {
		_, err := svc.Consume(ctx, "user-1", creditsdomain.ActionTextGeneration, "draft")
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, creditsdomain.ErrInsufficientCredits)
	}
	require.Equal(t, 2, succeeded)

	balance, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(20), balance.UsedCredits)
	require.LessOrEqual(t, balance.UsedCredits, balance.TotalCredits)
}

func TestConsume_Concurrent_NeverOverspends(t *testing.T) {
	svc, db, _ := setupCreditsTest(t)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, "user-1")
	require.NoError(t, err)
	db.Model(&creditsdomain.CreditBalance{}).
		Where("user_id = ?", "user-1").
		Update("total_credits", 50)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Consume(ctx, "user-1", creditsdomain.ActionTextGeneration, "concurrent")
			if err != nil && !errors.Is(err, creditsdomain.ErrInsufficientCredits) {
				// sqlite may reject concurrent writers; a store error must
				// never be reported as a successful debit.
				t.Logf("consume failed: %v", err)
			}
		}()
	}
	wg.Wait()

	var balance creditsdomain.CreditBalance
	require.NoError(t, db.Where("user_id = ?", "user-1").First(&balance).Error)
	require.LessOrEqual(t, balance.UsedCredits, balance.TotalCredits)
}

func TestLogSum_MatchesUsedCredits(t *testing.T) {
	svc, db, _ := setupCreditsTest(t)
	ctx := context.Background()

	actions := []creditsdomain.ActionType{
		creditsdomain.ActionTextGeneration,
		creditsdomain.ActionGrammarCheck,
		creditsdomain.ActionTranslation,
		creditsdomain.ActionContentImprovement,
	}
	for _, action := range actions {
		_, err := svc.Consume(ctx, "user-1", action, string(action))
		require.NoError(t, err)
	}

	balance, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)

	var sum int64
	db.Model(&creditsdomain.CreditLogEntry{}).
		Where("user_id = ?", "user-1").
		Select("COALESCE(SUM(credits_used), 0)").
		Scan(&sum)
	require.Equal(t, balance.UsedCredits, sum)
}

func TestReset_StartsFreshPeriod(t *testing.T) {
	svc, db, fake := setupCreditsTest(t)
	ctx := context.Background()

	_, err := svc.Consume(ctx, "user-1", creditsdomain.ActionImageGeneration, "hero image")
	require.NoError(t, err)

	require.NoError(t, svc.Reset(ctx, "user-1", 1000))

	balance, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(0), balance.UsedCredits)
	require.Equal(t, int64(1000), balance.TotalCredits)
	require.NotNil(t, balance.ResetDate)
	require.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), balance.ResetDate.UTC())
	require.True(t, balance.ResetDate.After(fake.Now()))

	var renewals []creditsdomain.CreditLogEntry
	db.Where("user_id = ? AND action_type = ?", "user-1", creditsdomain.ActionPlanRenewal).
		Find(&renewals)
	require.Len(t, renewals, 1)
	require.Equal(t, int64(0), renewals[0].CreditsUsed)
}

func TestAdjustTotal_KeepsUsage(t *testing.T) {
	svc, _, _ := setupCreditsTest(t)
	ctx := context.Background()

	_, err := svc.Consume(ctx, "user-1", creditsdomain.ActionTextGeneration, "draft")
	require.NoError(t, err)

	require.NoError(t, svc.AdjustTotal(ctx, "user-1", 1000))

	balance, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(1000), balance.TotalCredits)
	require.Equal(t, int64(10), balance.UsedCredits)
}

func TestAdjustTotal_RejectsNegative(t *testing.T) {
	svc, _, _ := setupCreditsTest(t)

	err := svc.AdjustTotal(context.Background(), "user-1", -5)
	require.ErrorIs(t, err, creditsdomain.ErrInvalidAmount)
}

func TestHasEnough(t *testing.T) {
	svc, db, _ := setupCreditsTest(t)
	ctx := context.Background()

	enough, err := svc.HasEnough(ctx, "user-1", creditsdomain.ActionTextGeneration)
	require.NoError(t, err)
	require.True(t, enough)

	db.Model(&creditsdomain.CreditBalance{}).
		Where("user_id = ?", "user-1").
		Update("used_credits", 95)

	enough, err = svc.HasEnough(ctx, "user-1", creditsdomain.ActionTextGeneration)
	require.NoError(t, err)
	require.False(t, enough)

	// cost 3 still fits in the remaining 5.
	enough, err = svc.HasEnough(ctx, "user-1", creditsdomain.ActionGrammarCheck)
	require.NoError(t, err)
	require.True(t, enough)
}

func TestHistory_MostRecentFirst(t *testing.T) {
	svc, _, fake := setupCreditsTest(t)
	ctx := context.Background()

	_, err := svc.Consume(ctx, "user-1", creditsdomain.ActionTextGeneration, "first")
	require.NoError(t, err)
	fake.Advance(time.Minute)
	_, err = svc.Consume(ctx, "user-1", creditsdomain.ActionGrammarCheck, "second")
	require.NoError(t, err)

	entries, err := svc.History(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "second", entries[0].Description)
	require.Equal(t, "first", entries[1].Description)
}

func TestInvalidUser(t *testing.T) {
	svc, _, _ := setupCreditsTest(t)
	ctx := context.Background()

	_, err := svc.Initialize(ctx, "  ")
	require.ErrorIs(t, err, creditsdomain.ErrInvalidUser)

	_, err = svc.History(ctx, "", 10)
	require.ErrorIs(t, err, creditsdomain.ErrInvalidUser)
}

// rereadFailRepo drops every balance read after the first successful debit,
// simulating a connection failure between the debit and the re-read.
type rereadFailRepo struct {
	creditsdomain.Repository
	debited bool
}

func (r *rereadFailRepo) Debit(ctx context.Context, db *gorm.DB, userID string, cost int64, at time.Time) (bool, error) {
	ok, err := r.Repository.Debit(ctx, db, userID, cost, at)
	if ok {
		r.debited = true
	}
	return ok, err
}

func (r *rereadFailRepo) FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*creditsdomain.CreditBalance, error) {
	if r.debited {
		return nil, errors.New("connection reset")
	}
	return r.Repository.FindByUserID(ctx, db, userID)
}

func TestConsume_RereadFailureStillReflectsDebit(t *testing.T) {
	_, db, fake := setupCreditsTest(t)
	ctx := context.Background()

	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  &rereadFailRepo{Repository: repository.Provide()},
		Cfg:   config.Config{DefaultCredits: 100},
		Costs: config.NewStaticCostConfigHolder(config.DefaultCostConfig()),
		Clock: fake,
	})

	_, err = svc.Initialize(ctx, "user-1")
	require.NoError(t, err)

	balance, err := svc.Consume(ctx, "user-1", creditsdomain.ActionTextGeneration, "draft")
	require.NoError(t, err)
	require.Equal(t, int64(10), balance.UsedCredits)
	require.Equal(t, int64(90), balance.Remaining())

	var stored creditsdomain.CreditBalance
	require.NoError(t, db.Where("user_id = ?", "user-1").First(&stored).Error)
	require.Equal(t, int64(10), stored.UsedCredits)
}
