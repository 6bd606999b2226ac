// Package server exposes the HTTP control and reporting surface.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/brightops/usagesync/internal/config"
	obslogger "github.com/brightops/usagesync/internal/observability/logger"
	"github.com/brightops/usagesync/internal/reconciler"
	usagedomain "github.com/brightops/usagesync/internal/usage/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log.Named("http")))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	holder *config.ReconcileConfigHolder

	reconcilerSvc *reconciler.Service
	usageRepo     usagedomain.Repository
}

type ServerParams struct {
	fx.In

	Engine *gin.Engine
	Cfg    config.Config
	DB     *gorm.DB
	Holder *config.ReconcileConfigHolder

	Reconciler *reconciler.Service
	UsageRepo  usagedomain.Repository
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:        p.Engine,
		cfg:           p.Cfg,
		db:            p.DB,
		holder:        p.Holder,
		reconcilerSvc: p.Reconciler,
		usageRepo:     p.UsageRepo,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.POST("/reconcile", s.TriggerReconcile)
	api.GET("/reconcile/status", s.ReconcileStatus)
	api.GET("/clients/:id/usage", s.ClientUsage)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
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
