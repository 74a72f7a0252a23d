package gate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/inkwavehq/inkwave/internal/clock"
	"github.com/inkwavehq/inkwave/internal/config"
	creditsdomain "github.com/inkwavehq/inkwave/internal/credits/domain"
	creditsrepository "github.com/inkwavehq/inkwave/internal/credits/repository"
	creditsservice "github.com/inkwavehq/inkwave/internal/credits/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupGateTest(t *testing.T) (*gin.Engine, creditsdomain.Service, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
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

	svc := creditsservice.NewService(creditsservice.ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  creditsrepository.Provide(),
		Cfg:   config.Config{DefaultCredits: 100},
		Costs: config.NewStaticCostConfigHolder(config.DefaultCostConfig()),
		Clock: clock.NewFakeClock(time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)),
	})

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		if user := c.GetHeader("X-Test-User"); user != "" {
			c.Set(UserIDKey, user)
		}
		c.Next()
	})
	engine.Use(Middleware(svc, nil, zap.NewNop()))

	handler := func(action creditsdomain.ActionType) gin.HandlerFunc {
		return func(c *gin.Context) {
			balance, err := svc.Consume(c.Request.Context(), c.GetString(UserIDKey), action, string(action))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"used_credits": balance.UsedCredits})
		}
	}
	engine.POST("/v1/generate/text", handler(creditsdomain.ActionTextGeneration))
	engine.POST("/v1/generate/grammar", handler(creditsdomain.ActionGrammarCheck))
	engine.POST("/v1/other", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	return engine, svc, db
}

func doRequest(engine *gin.Engine, path, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestGate_BlocksThenAllows(t *testing.T) {
	engine, svc, db := setupGateTest(t)

	_, err := svc.Initialize(context.Background(), "user-1")
	require.NoError(t, err)
	db.Model(&creditsdomain.CreditBalance{}).
		Where("user_id = ?", "user-1").
		Updates(map[string]any{"total_credits": 1000, "used_credits": 995})

	// 995 + 10 > 1000: rejected before the handler runs.
	rec := doRequest(engine, "/v1/generate/text", "user-1")
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.Contains(t, rec.Body.String(), "INSUFFICIENT_CREDITS")

	var balance creditsdomain.CreditBalance
	require.NoError(t, db.Where("user_id = ?", "user-1").First(&balance).Error)
	require.Equal(t, int64(995), balance.UsedCredits)

	// 995 + 3 <= 1000: allowed, consumed, logged.
	rec = doRequest(engine, "/v1/generate/grammar", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, db.Where("user_id = ?", "user-1").First(&balance).Error)
	require.Equal(t, int64(998), balance.UsedCredits)

	var entries []creditsdomain.CreditLogEntry
	db.Where("user_id = ?", "user-1").Find(&entries)
	require.Len(t, entries, 1)
	require.Equal(t, creditsdomain.ActionGrammarCheck, entries[0].ActionType)
	require.Equal(t, int64(3), entries[0].CreditsUsed)
}

func TestGate_UnmeteredPathPassesThrough(t *testing.T) {
	engine, _, _ := setupGateTest(t)

	rec := doRequest(engine, "/v1/other", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGate_MissingUserUnauthorized(t *testing.T) {
	engine, _, _ := setupGateTest(t)

	rec := doRequest(engine, "/v1/generate/text", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestActionForPath(t *testing.T) {
	action, metered := ActionForPath("/v1/generate/image")
	require.True(t, metered)
	require.Equal(t, creditsdomain.ActionImageGeneration, action)

	_, metered = ActionForPath("/v1/credits/balance")
	require.False(t, metered)
}
