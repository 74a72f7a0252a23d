package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwavehq/inkwave/internal/checkout"
	checkoutdomain "github.com/inkwavehq/inkwave/internal/checkout/domain"
	"github.com/inkwavehq/inkwave/internal/clock"
	"github.com/inkwavehq/inkwave/internal/config"
	"github.com/inkwavehq/inkwave/internal/credits"
	creditsdomain "github.com/inkwavehq/inkwave/internal/credits/domain"
	"github.com/inkwavehq/inkwave/internal/credits/gate"
	"github.com/inkwavehq/inkwave/internal/generation"
	generationdomain "github.com/inkwavehq/inkwave/internal/generation/domain"
	"github.com/inkwavehq/inkwave/internal/logger"
	"github.com/inkwavehq/inkwave/internal/migration"
	"github.com/inkwavehq/inkwave/internal/observability/metrics"
	"github.com/inkwavehq/inkwave/internal/payment"
	paymentdomain "github.com/inkwavehq/inkwave/internal/payment/domain"
	"github.com/inkwavehq/inkwave/internal/ratelimit"
	"github.com/inkwavehq/inkwave/internal/scheduler"
	"github.com/inkwavehq/inkwave/internal/subscription"
	subscriptiondomain "github.com/inkwavehq/inkwave/internal/subscription/domain"
	"github.com/inkwavehq/inkwave/pkg/db"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	config.Module,
	logger.Module,
	clock.Module,
	metrics.Module,
	db.Module,
	migration.Module,
	credits.Module,
	subscription.Module,
	checkout.Module,
	payment.Module,
	generation.Module,
	ratelimit.Module,
	scheduler.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	metrics         *metrics.Metrics
	limiter         *ratelimit.TokenBucket
	creditsSvc      creditsdomain.Service
	subscriptionSvc subscriptiondomain.Service
	checkoutSvc     checkoutdomain.Service
	generationSvc   generationdomain.Service
	paymentSvc      paymentdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Metrics         *metrics.Metrics       `optional:"true"`
	Limiter         *ratelimit.TokenBucket `optional:"true"`
	CreditsSvc      creditsdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	CheckoutSvc     checkoutdomain.Service
	GenerationSvc   generationdomain.Service
	PaymentSvc      paymentdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("server"),
		metrics:         p.Metrics,
		limiter:         p.Limiter,
		creditsSvc:      p.CreditsSvc,
		subscriptionSvc: p.SubscriptionSvc,
		checkoutSvc:     p.CheckoutSvc,
		generationSvc:   p.GenerationSvc,
		paymentSvc:      p.PaymentSvc,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1", s.AuthRequired())

	v1.GET("/credits/balance", s.GetCreditBalance)
	v1.GET("/credits/history", s.GetCreditHistory)

	v1.GET("/subscription", s.GetSubscription)
	v1.POST("/checkout", s.BeginCheckout)

	generate := v1.Group("/generate",
		s.GenerationRateLimit(),
		gate.Middleware(s.creditsSvc, s.metrics, s.log),
	)
	{
		generate.POST("/text", s.GenerateText)
		generate.POST("/image", s.GenerateImage)
		generate.POST("/translate", s.Translate)
		generate.POST("/grammar", s.CheckGrammar)
		generate.POST("/improve", s.Improve)
	}
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/v1/admin", s.AuthRequired(), s.RequireAdmin())

	admin.GET("/credits/:user_id", s.AdminGetCredits)
	admin.POST("/credits/adjust", s.AdminAdjustCredits)
	admin.POST("/credits/reset", s.AdminResetCredits)
	admin.GET("/subscriptions/:user_id", s.AdminGetSubscription)
}

func (s *Server) registerWebhookRoutes() {
	// Provider callbacks carry their own authentication in the payload.
	s.engine.POST("/v1/webhooks/:provider", s.HandlePaymentWebhook)
}
