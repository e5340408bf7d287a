package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/clanhub/api/internal/api"
	"github.com/clanhub/api/internal/api/handlers"
	"github.com/clanhub/api/internal/metrics"
	"github.com/clanhub/api/internal/repository"
	"github.com/clanhub/api/internal/services"
	"github.com/clanhub/api/pkg/config"
	"github.com/clanhub/api/pkg/database"
	"github.com/clanhub/api/pkg/logger"
)

func main() {
	cfg := config.MustLoad()

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("starting clan service",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("db_driver", cfg.DatabaseDriver),
	)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A failed schema init is not fatal: liveness keeps answering and /readyz
	// retries until the database shows up.
	ready := database.NewInitializer(db, cfg.DBInitRetries)
	if err := ready.Run(ctx); err != nil {
		log.Error("database schema initialization failed; serving not-ready", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	clanRepo := repository.NewClanRepository(db)
	clanSvc := services.NewClanService(clanRepo, m)

	router := api.NewRouter(api.Dependencies{
		ClansHandler:   handlers.NewClansHandler(clanSvc),
		HealthHandler:  handlers.NewHealthHandler(ready),
		Metrics:        m,
		Gatherer:       reg,
		HMACSecret:     []byte(cfg.AuthHMACSecret),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		TrustProxy:     cfg.TrustProxyHeaders,
	})
	if cfg.AuthHMACSecret == "" {
		log.Warn("AUTH_HMAC_SECRET not set, mutating routes are unauthenticated")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
