// Package server exposes the engine's HTTP trigger surface.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/costlens/internal/config"
	enginedomain "github.com/smallbiznis/costlens/internal/engine/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(RunHTTP),
)

// NewEngine builds the gin engine with the shared middleware chain.
func NewEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

type Server struct {
	engine    *gin.Engine
	log       *zap.Logger
	engineSvc enginedomain.Service
}

type Params struct {
	fx.In

	Gin       *gin.Engine
	Log       *zap.Logger
	EngineSvc enginedomain.Service
}

func NewServer(p Params) *Server {
	return &Server{
		engine:    p.Gin,
		log:       p.Log.Named("http.server"),
		engineSvc: p.EngineSvc,
	}
}

func registerRoutes(s *Server) {
	v1 := s.engine.Group("/v1")
	v1.POST("/runs", s.createRun)
	v1.GET("/runs", s.listRuns)
	v1.GET("/runs/:id", s.getRun)
}

// RunHTTP starts the listener on fx start and drains it on stop.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http listener failed", zap.Error(err))
				}
			}()
			log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
