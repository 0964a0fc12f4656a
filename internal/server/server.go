package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/givebridge/internal/config"
	"github.com/smallbiznis/givebridge/internal/observability"
	obsmiddleware "github.com/smallbiznis/givebridge/internal/observability/logger"
	obstracing "github.com/smallbiznis/givebridge/internal/observability/tracing"
	paymentservice "github.com/smallbiznis/givebridge/internal/payment/service"
	"github.com/smallbiznis/givebridge/internal/payment/webhook"
	"github.com/smallbiznis/givebridge/internal/ratelimit"
	"github.com/smallbiznis/givebridge/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxWebhookBody caps a single provider delivery.
const maxWebhookBody = 1 << 20

var Module = fx.Module("http.server",
	fx.Provide(provideHTTPMetrics),
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func provideHTTPMetrics() *telemetry.Metrics {
	return telemetry.NewMetrics(nil)
}

func NewEngine(obsCfg observability.Config, httpMetrics *telemetry.Metrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(MetricsMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Params struct {
	fx.In

	Engine      *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	DB          *gorm.DB
	Gateway     *paymentservice.Service
	Webhooks    *webhook.Service
	HTTPMetrics *telemetry.Metrics        `optional:"true"`
	Limiter     *ratelimit.WebhookLimiter `optional:"true"`
}

// Server exposes the inbound webhook endpoint and the health endpoints.
type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	db          *gorm.DB
	gateway     *paymentservice.Service
	webhooks    *webhook.Service
	httpMetrics *telemetry.Metrics
	limiter     deliveryLimiter
}

func NewServer(p Params) *Server {
	s := &Server{
		engine:      p.Engine,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		db:          p.DB,
		gateway:     p.Gateway,
		webhooks:    p.Webhooks,
		httpMetrics: p.HTTPMetrics,
	}
	if p.Limiter != nil {
		s.limiter = p.Limiter
	}
	return s
}

func (s *Server) RegisterRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/readyz", s.Readyz)
	s.engine.POST("/webhooks/:provider", WebhookRateLimit(s.limiter, s.log), s.HandlePaymentWebhook)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func run(lc fx.Lifecycle, s *Server) {
	addr := s.cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			s.log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
