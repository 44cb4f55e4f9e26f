package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/causabona/donare/internal/config"
	intakeservice "github.com/causabona/donare/internal/intake/service"
	"github.com/causabona/donare/internal/observability"
	subscriptiondomain "github.com/causabona/donare/internal/subscription/domain"
	webhookservice "github.com/causabona/donare/internal/webhook"
	"github.com/causabona/donare/internal/wompi"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Server struct {
	cfg     config.Config
	log     *zap.Logger
	env     wompi.Environment
	metrics *observability.Metrics

	intakeSvc        *intakeservice.Service
	webhookSvc       *webhookservice.Service
	subscriptionRepo subscriptiondomain.Repository

	engine *gin.Engine
}

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Env     wompi.Environment
	Metrics *observability.Metrics

	IntakeSvc        *intakeservice.Service
	WebhookSvc       *webhookservice.Service
	SubscriptionRepo subscriptiondomain.Repository
}

func New(p Params) *Server {
	s := &Server{
		cfg:              p.Cfg,
		log:              p.Log.Named("server"),
		env:              p.Env,
		metrics:          p.Metrics,
		intakeSvc:        p.IntakeSvc,
		webhookSvc:       p.WebhookSvc,
		subscriptionRepo: p.SubscriptionRepo,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		p.Metrics.Registry, promhttp.HandlerOpts{},
	)))

	api := engine.Group("/api")
	{
		api.POST("/donations", s.SubmitDonation)
		api.POST("/wompi/signature", s.IntegritySignature)
		api.POST("/wompi/webhook", s.IngestWebhook)
		api.GET("/wompi/config", s.WidgetConfig)
		api.GET("/cron/keepalive", s.Keepalive)
	}

	s.engine = engine
	return s
}

func (s *Server) Router() http.Handler { return s.engine }

var Module = fx.Module("server",
	fx.Provide(New),
	fx.Invoke(register),
)

func register(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.log.Info("http server listening", zap.String("addr", s.cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
