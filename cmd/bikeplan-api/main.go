// README: Entry point; loads config, wires the planner and optional stores, starts the HTTP server.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bikeplan/internal/app"
	"bikeplan/internal/config"
	httptransport "bikeplan/internal/http"
	"bikeplan/internal/infra"
	"bikeplan/internal/logger"
	"bikeplan/internal/modules/aiusage"
	"bikeplan/internal/observability"
	"bikeplan/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, "bikeplan-api", cfg.Tracing.OTLPEndpoint)
	if err != nil {
		zl.Fatal("tracing init", zap.Error(err))
	}
	defer shutdownTracing(context.Background())

	planner, cleanup, err := app.NewPlanner(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("planner init", zap.Error(err))
	}
	defer cleanup()

	deps := httptransport.ServerDeps{
		Planner:     planner,
		PlanTimeout: 2 * time.Minute,
		Logger:      logger.Component(zl, "http"),
	}

	if cfg.Redis.Addr != "" {
		redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			zl.Fatal("redis init", zap.Error(err))
		}
		defer redisClient.Close()
		deps.Sessions = session.NewStore(redisClient, cfg.Redis.SessionTTL)
	}

	if cfg.DB.DSN != "" {
		dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			zl.Fatal("postgres init", zap.Error(err))
		}
		defer dbPool.Close()
		deps.Quota = aiusage.NewService(aiusage.NewStore(dbPool))
	}

	handler := httptransport.NewServer(deps)
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	zl.Info("listening", zap.String("addr", cfg.HTTP.Addr),
		zap.String("maps_provider", cfg.Maps.Provider), zap.String("llm_provider", cfg.AI.Provider))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zl.Fatal("server", zap.Error(err))
	}
}
