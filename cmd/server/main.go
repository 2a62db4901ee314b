package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/notifyhub/tenantq/internal/api"
	"github.com/notifyhub/tenantq/internal/config"
	"github.com/notifyhub/tenantq/internal/db"
	"github.com/notifyhub/tenantq/internal/domain"
	"github.com/notifyhub/tenantq/internal/metrics"
	"github.com/notifyhub/tenantq/internal/queuestore"
	"github.com/notifyhub/tenantq/internal/ratelimiter"
	"github.com/notifyhub/tenantq/internal/routing"
	"github.com/notifyhub/tenantq/internal/service"
	"github.com/notifyhub/tenantq/internal/tenant"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- control-plane database ----
	ctx := context.Background()
	cpPool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal("failed to connect to control-plane database", zap.Error(err))
	}
	defer cpPool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("control-plane migrations applied")

	// ---- tenant cluster ----
	// The admin pool points at the cluster's maintenance database and is
	// only used for CREATE/DROP DATABASE and role management.
	adminPool, err := db.Connect(ctx, cfg.TenantDatabaseURL, cfg.TenantDBMaxConns, cfg.TenantDBMinConns)
	if err != nil {
		logger.Fatal("failed to connect to tenant cluster", zap.Error(err))
	}
	defer adminPool.Close()

	resolver, err := db.NewResolver(cfg.TenantDatabaseURL, cfg.TenantDBMaxConns, cfg.TenantDBMinConns, logger)
	if err != nil {
		logger.Fatal("failed to build tenant resolver", zap.Error(err))
	}
	defer resolver.Close()

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	tables := routing.Default()
	store := queuestore.NewPgStore(resolver, logger)
	cp := tenant.NewPgControlPlaneStore(cpPool)

	limiter := ratelimiter.New(cfg.TierRates, func(ctx context.Context, tenantID string) (domain.Tier, error) {
		t, err := cp.Get(ctx, tenantID)
		if err != nil {
			return "", err
		}
		return t.Tier, nil
	})

	onEnqueued, onClaimed, onCompleted := m.QueueHooks()
	svc := service.NewQueueService(tables, store, limiter, service.Hooks{
		OnEnqueued:  onEnqueued,
		OnClaimed:   onClaimed,
		OnCompleted: onCompleted,
	}, logger)

	prov, err := tenant.NewPgProvisioner(adminPool, cfg.TenantDatabaseURL)
	if err != nil {
		logger.Fatal("failed to build provisioner", zap.Error(err))
	}

	onStep, onOnboarded, onTornDown := m.LifecycleHooks()
	mgr := tenant.NewManager(cp, prov, tables.Queues(), resolver.ConnectionInfo, tenant.LifecycleHooks{
		OnStep:      onStep,
		OnOnboarded: onOnboarded,
		OnTornDown:  onTornDown,
	}, logger, resolver, store)

	// ---- HTTP server ----
	router := api.NewRouter(svc, mgr, cfg.MaxClaimBatch, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped cleanly")
}
